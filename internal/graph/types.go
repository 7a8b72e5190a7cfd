package graph

import "log/slog"

// DownloadURL is a pre-authenticated content URL. It embeds a short-lived
// credential, so it redacts itself when logged.
type DownloadURL string

// LogValue implements slog.LogValuer.
func (DownloadURL) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// SharedItem is the drive item a sharing link resolves to.
// Fields are normalized from the Graph API response; callers never see raw API data.
type SharedItem struct {
	ID          string
	Name        string
	Size        int64       // as reported by the API; the downloaded byte count is authoritative
	DownloadURL DownloadURL // empty when the API omitted it; see ProbeShareContent
	WebURL      string
	MimeType    string
}

// HasDownloadURL reports whether the metadata carried a direct download URL.
func (s *SharedItem) HasDownloadURL() bool {
	return s.DownloadURL != ""
}

package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonimelisma/planset-go/internal/sharelink"
)

// shareExpiryMarker starts the share-expiry query on collaboration-suite links.
const shareExpiryMarker = "?e="

// downloadParam asks sharing hosts for the raw bytes instead of a viewer page.
const downloadParam = "download=1"

// viewSegments maps viewer path segments to their download equivalents.
var viewSegments = []struct{ view, download string }{
	{"/view.aspx", "/download.aspx"},
	{"/redir.aspx", "/download.aspx"},
	{"/redir?", "/download?"},
}

// RewriteAcquirer resolves sharing links without an API: it expands short
// links, rewrites the result into a probable direct-download URL, and
// downloads it. This is best-effort; a host may answer 200 with an HTML
// page, which the PDF signature check then rejects.
type RewriteAcquirer struct {
	opts Options
}

// NewRewriteAcquirer creates a RewriteAcquirer.
func NewRewriteAcquirer(opts Options) *RewriteAcquirer {
	return &RewriteAcquirer{opts: opts.withDefaults()}
}

// DirectDownloadURL rewrites a collaboration-suite or consumer-storage
// sharing URL into its probable direct-download form.
func DirectDownloadURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)

	if i := strings.Index(u, shareExpiryMarker); i >= 0 {
		u = u[:i]
	}

	for _, seg := range viewSegments {
		if strings.Contains(u, seg.view) {
			u = strings.Replace(u, seg.view, seg.download, 1)
			break
		}
	}

	if strings.Contains(u, downloadParam) {
		return u
	}

	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}

	return u + sep + downloadParam
}

// Acquire implements Acquirer.
func (a *RewriteAcquirer) Acquire(ctx context.Context, src Source) (*AcquiredFile, error) {
	if !sharelink.IsShareURL(src.URL) {
		return nil, &Error{Kind: ErrInvalidLink, Provenance: ProvenanceRewrite}
	}

	target := strings.TrimSpace(src.URL)
	logger := a.opts.Logger

	if sharelink.IsShortLink(target) {
		expanded, err := a.expandShortLink(ctx, target)
		if err != nil {
			return nil, err
		}

		logger.Debug("expanded short link", slog.String("url", sharelink.Redact(expanded)))

		target = expanded
	}

	if sharelink.IsStorageHost(target) {
		target = DirectDownloadURL(target)
	}

	logger.Info("downloading via direct rewrite", slog.String("url", sharelink.Redact(target)))

	return a.download(ctx, target, src.ceilingOr(a.opts.Limits.Link))
}

// expandShortLink follows the redirector with a HEAD request and returns
// the final URL. The response status is not checked; the download that
// follows reports any failure.
func (a *RewriteAcquirer) expandShortLink(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, http.NoBody)
	if err != nil {
		return "", &Error{Kind: ErrResolutionFailed, Provenance: ProvenanceRewrite, Err: err}
	}

	req.Header.Set("User-Agent", a.opts.UserAgent)

	resp, err := a.opts.MetaHTTP.Do(req)
	if err != nil {
		return "", &Error{Kind: ErrResolutionFailed, Provenance: ProvenanceRewrite, Err: withoutURL(err)}
	}
	resp.Body.Close()

	return resp.Request.URL.String(), nil
}

// download fetches target into a new workspace and applies the PDF check.
func (a *RewriteAcquirer) download(ctx context.Context, target string, ceiling int64) (*AcquiredFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceRewrite, Err: err}
	}

	req.Header.Set("User-Agent", a.opts.UserAgent)

	resp, err := a.opts.TransferHTTP.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceRewrite, Err: withoutURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceRewrite, Status: resp.StatusCode}
	}

	declared := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if declared == "" {
		declared = DefaultName
	}

	ws, err := newWorkspace(a.opts.TempRoot, localName(declared), ceiling, a.opts.Logger)
	if err != nil {
		return nil, err
	}

	if _, err := ws.copyFrom(ctx, resp.Body, a.opts.Bandwidth); err != nil {
		ws.discard()
		return nil, streamError(err, ProvenanceRewrite, declared)
	}

	if !LooksLikePDF(resp.Header.Get("Content-Type"), declared, ws.head) {
		ws.discard()
		return nil, &Error{Kind: ErrNotAPDF, Provenance: ProvenanceRewrite, Name: declared}
	}

	file, err := ws.commit(declared, ProvenanceRewrite)
	if err != nil {
		return nil, err
	}

	a.opts.Logger.Info("downloaded shared file",
		slog.String("name", declared),
		slog.Int64("bytes", file.Size),
		slog.String("provenance", string(file.Provenance)),
	)

	return file, nil
}

// streamError converts a failure while writing a body to disk into an *Error.
// A ceiling breach keeps its ErrTooLarge kind; context cancellation is
// returned wrapped so callers can tell it apart from transport failures.
func streamError(err error, prov Provenance, name string) error {
	if acqErr, ok := asError(err); ok {
		acqErr.Provenance = prov
		acqErr.Name = name

		return acqErr
	}

	return &Error{Kind: ErrDownloadFailed, Provenance: prov, Name: name, Err: fmt.Errorf("writing body: %w", err)}
}

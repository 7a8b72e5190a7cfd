package graph

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestDownloadURL_LogValuer verifies that a pre-authenticated URL is redacted
// when logged, so its embedded credential never reaches log output.
func TestDownloadURL_LogValuer(t *testing.T) {
	t.Parallel()

	secretURL := DownloadURL("https://contoso.sharepoint.com/_layouts/15/download.aspx?tempauth=secret-token-here")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	}))

	logger.Info("download started", "url", secretURL)

	output := buf.String()

	if !strings.Contains(output, "[REDACTED]") {
		t.Errorf("expected [REDACTED] in log output, got: %s", output)
	}

	if strings.Contains(output, "secret-token-here") {
		t.Errorf("log output contains secret URL token: %s", output)
	}
}

func TestSharedItem_HasDownloadURL(t *testing.T) {
	t.Parallel()

	var item SharedItem
	if item.HasDownloadURL() {
		t.Error("zero-value SharedItem should have no download URL")
	}

	item.DownloadURL = "https://example.com/download"
	if !item.HasDownloadURL() {
		t.Error("populated DownloadURL not reported")
	}
}

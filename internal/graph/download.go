package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Download streams the body of downloadURL to w and returns the number of
// bytes written. An Authorization header is sent only when the URL points at
// the client's own API base; pre-authenticated URLs carry their credential in
// the query string and must not receive a bearer token.
// The URL itself is never logged.
func (c *Client) Download(ctx context.Context, downloadURL DownloadURL, w io.Writer) (int64, error) {
	target := string(downloadURL)
	authenticate := strings.HasPrefix(target, c.baseURL+"/")

	resp, err := c.send(ctx, c.httpClient, http.MethodGet, target, nil, authenticate)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, c.errorFromResponse(resp, http.MethodGet, "download")
	}

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	c.logger.Debug("download complete",
		slog.Bool("authenticated", authenticate),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}

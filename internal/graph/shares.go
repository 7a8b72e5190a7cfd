package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonimelisma/planset-go/internal/sharelink"
)

// shareTokenPrefix marks a base64url-encoded sharing URL for the shares API.
const shareTokenPrefix = "u!"

// ErrNoDownloadURL is returned by ProbeShareContent when the content
// endpoint neither redirects nor serves the bytes.
var ErrNoDownloadURL = errors.New("graph: shared item has no download URL")

// EncodeShareToken converts a sharing URL into the token accepted by
// /shares/{token}: "u!" followed by the unpadded base64url encoding of the
// raw URL bytes. Distinct URLs always yield distinct tokens.
func EncodeShareToken(shareURL string) string {
	return shareTokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(shareURL))
}

// sharedItemResponse mirrors the Graph driveItem JSON for the fields we use.
type sharedItemResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Size        int64      `json:"size"`
	WebURL      string     `json:"webUrl"`
	File        *fileFacet `json:"file"`
	DownloadURL string     `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

func (r *sharedItemResponse) toSharedItem() SharedItem {
	item := SharedItem{
		ID:          r.ID,
		Name:        r.Name,
		Size:        r.Size,
		DownloadURL: DownloadURL(r.DownloadURL),
		WebURL:      r.WebURL,
	}

	if r.File != nil {
		item.MimeType = r.File.MimeType
	}

	return item
}

// redactSharePath masks the token in a /shares/{token}/... path. The token
// decodes back to the sharing URL.
func redactSharePath(path string) string {
	const prefix = "/shares/"

	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return path
	}

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "[REDACTED]" + rest[i:]
	}

	return prefix + "[REDACTED]"
}

// sharePath returns the driveItem path for a share token.
func sharePath(token string) string {
	return "/shares/" + token + "/driveItem"
}

// ResolveShare resolves a sharing URL to its drive item metadata via
// GET /shares/{token}/driveItem. HTTP failures are returned as *GraphError
// so callers can branch on ErrUnauthorized / ErrNotFound.
func (c *Client) ResolveShare(ctx context.Context, shareURL string) (*SharedItem, error) {
	token := EncodeShareToken(shareURL)

	c.logger.Info("resolving sharing link", slog.String("link", sharelink.Redact(shareURL)))

	resp, err := c.Do(ctx, http.MethodGet, sharePath(token), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw sharedItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("graph: decoding shared item response: %w", err)
	}

	item := raw.toSharedItem()

	c.logger.Info("resolved sharing link",
		slog.String("item_id", item.ID),
		slog.String("name", item.Name),
		slog.Int64("size", item.Size),
		slog.Bool("has_download_url", item.HasDownloadURL()),
	)

	return &item, nil
}

// ShareContentURL returns the absolute content endpoint for a sharing URL.
func (c *Client) ShareContentURL(shareURL string) string {
	return c.baseURL + sharePath(EncodeShareToken(shareURL)) + "/content"
}

// ProbeShareContent finds a fetchable URL for a shared item whose metadata
// lacked a download URL. It requests the content endpoint without following
// redirects: a 301/302 yields the Location header, a 200 means the content
// endpoint itself serves the bytes. Any other status is a *GraphError
// wrapping ErrNoDownloadURL.
func (c *Client) ProbeShareContent(ctx context.Context, shareURL string) (DownloadURL, error) {
	contentURL := c.ShareContentURL(shareURL)

	probe := *c.httpClient
	probe.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := c.send(ctx, &probe, http.MethodHead, contentURL, nil, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", &GraphError{
				StatusCode: resp.StatusCode,
				RequestID:  resp.Header.Get("request-id"),
				Message:    "redirect without Location header",
				Err:        ErrNoDownloadURL,
			}
		}

		c.logger.Debug("content endpoint redirected", slog.Int("status", resp.StatusCode))

		return DownloadURL(loc), nil
	case http.StatusOK:
		c.logger.Debug("content endpoint serves bytes directly")

		return DownloadURL(contentURL), nil
	default:
		c.logger.Warn("content probe failed", slog.Int("status", resp.StatusCode))

		return "", &GraphError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    "content probe failed",
			Err:        ErrNoDownloadURL,
		}
	}
}

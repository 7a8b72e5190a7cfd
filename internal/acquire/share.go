package acquire

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tonimelisma/planset-go/internal/graph"
	"github.com/tonimelisma/planset-go/internal/sharelink"
)

// ShareAcquirer resolves sharing links through the Graph shares API. It uses
// two clients over the same credential: meta for resolution and probing
// (short timeout) and transfer for the body (long timeout).
type ShareAcquirer struct {
	meta     *graph.Client
	transfer *graph.Client
	opts     Options
}

// NewShareAcquirer creates a ShareAcquirer. A nil meta client makes every
// Acquire fail with ErrNotConfigured; transfer defaults to meta.
func NewShareAcquirer(meta, transfer *graph.Client, opts Options) *ShareAcquirer {
	if transfer == nil {
		transfer = meta
	}

	return &ShareAcquirer{meta: meta, transfer: transfer, opts: opts.withDefaults()}
}

// Acquire implements Acquirer. When src.Token is set it is used as a
// delegated user token instead of the application credential.
func (a *ShareAcquirer) Acquire(ctx context.Context, src Source) (*AcquiredFile, error) {
	if a.meta == nil {
		return nil, &Error{Kind: ErrNotConfigured, Provenance: ProvenanceShareAPI}
	}

	shareURL := strings.TrimSpace(src.URL)
	if !sharelink.IsShareURL(shareURL) {
		return nil, &Error{Kind: ErrInvalidLink, Provenance: ProvenanceShareAPI}
	}

	meta, transfer := a.meta, a.transfer
	if src.Token != "" {
		user := graph.StaticToken(src.Token)
		meta, transfer = meta.WithToken(user), transfer.WithToken(user)
	}

	item, err := meta.ResolveShare(ctx, shareURL)
	if err != nil {
		return nil, resolveError(err)
	}

	ceiling := src.ceilingOr(a.opts.Limits.Link)

	if !IsPDFName(item.Name) {
		return nil, &Error{Kind: ErrNotAPDF, Provenance: ProvenanceShareAPI, Name: item.Name}
	}

	if ceiling > 0 && item.Size > ceiling {
		return nil, &Error{
			Kind:       ErrTooLarge,
			Provenance: ProvenanceShareAPI,
			Name:       item.Name,
			Size:       item.Size,
			Limit:      ceiling,
		}
	}

	downloadURL := item.DownloadURL
	if !item.HasDownloadURL() {
		a.opts.Logger.Debug("shared item has no download URL, probing content endpoint",
			slog.String("item_id", item.ID),
		)

		downloadURL, err = meta.ProbeShareContent(ctx, shareURL)
		if err != nil {
			return nil, &Error{
				Kind:       ErrDownloadURLUnavailable,
				Provenance: ProvenanceShareAPI,
				Status:     graph.StatusCode(err),
				Name:       item.Name,
				Err:        err,
			}
		}
	}

	return a.fetch(ctx, transfer, downloadURL, item.Name, ceiling)
}

// fetch streams downloadURL into a new workspace.
func (a *ShareAcquirer) fetch(
	ctx context.Context, transfer *graph.Client, downloadURL graph.DownloadURL, name string, ceiling int64,
) (*AcquiredFile, error) {
	ws, err := newWorkspace(a.opts.TempRoot, localName(name), ceiling, a.opts.Logger)
	if err != nil {
		return nil, err
	}

	if _, err := transfer.Download(ctx, downloadURL, a.opts.Bandwidth.WrapWriter(ctx, ws)); err != nil {
		ws.discard()

		var graphErr *graph.GraphError
		if errors.As(err, &graphErr) {
			return nil, &Error{
				Kind:       ErrDownloadFailed,
				Provenance: ProvenanceShareAPI,
				Status:     graphErr.StatusCode,
				Name:       name,
				Err:        err,
			}
		}

		return nil, streamError(err, ProvenanceShareAPI, name)
	}

	file, err := ws.commit(name, ProvenanceShareAPI)
	if err != nil {
		return nil, err
	}

	a.opts.Logger.Info("downloaded shared file",
		slog.String("name", name),
		slog.Int64("bytes", file.Size),
		slog.String("provenance", string(file.Provenance)),
	)

	return file, nil
}

// resolveError maps a metadata resolution failure to its kind.
func resolveError(err error) error {
	status := graph.StatusCode(err)

	kind := ErrResolutionFailed

	switch status {
	case http.StatusUnauthorized:
		kind = ErrNotAuthorized
	case http.StatusNotFound:
		kind = ErrNotFound
	}

	return &Error{Kind: kind, Provenance: ProvenanceShareAPI, Status: status, Err: err}
}

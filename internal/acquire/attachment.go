package acquire

import (
	"context"
	"log/slog"
	"net/http"
)

// AttachmentAcquirer downloads chat-platform attachments from their content
// URL. The URL is already a direct endpoint; no redirect or rewrite logic
// applies.
type AttachmentAcquirer struct {
	opts Options
}

// NewAttachmentAcquirer creates an AttachmentAcquirer.
func NewAttachmentAcquirer(opts Options) *AttachmentAcquirer {
	return &AttachmentAcquirer{opts: opts.withDefaults()}
}

// Acquire implements Acquirer. src.Token, when set, is sent as a bearer
// token; pre-authenticated content URLs need none.
func (a *AttachmentAcquirer) Acquire(ctx context.Context, src Source) (*AcquiredFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceAttachment, Name: src.Name, Err: err}
	}

	if src.Token != "" {
		req.Header.Set("Authorization", "Bearer "+src.Token)
	}

	resp, err := a.opts.TransferHTTP.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceAttachment, Name: src.Name, Err: withoutURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:       ErrDownloadFailed,
			Provenance: ProvenanceAttachment,
			Status:     resp.StatusCode,
			Name:       src.Name,
		}
	}

	ceiling := src.ceilingOr(a.opts.Limits.Attachment)

	ws, err := newWorkspace(a.opts.TempRoot, localName(src.Name), ceiling, a.opts.Logger)
	if err != nil {
		return nil, err
	}

	if _, err := ws.copyFrom(ctx, resp.Body, a.opts.Bandwidth); err != nil {
		ws.discard()
		return nil, streamError(err, ProvenanceAttachment, src.Name)
	}

	file, err := ws.commit(src.Name, ProvenanceAttachment)
	if err != nil {
		return nil, err
	}

	a.opts.Logger.Info("downloaded attachment",
		slog.String("name", src.Name),
		slog.Int64("bytes", file.Size),
	)

	return file, nil
}

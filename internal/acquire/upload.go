package acquire

import (
	"context"
	"log/slog"
)

// UploadAcquirer persists bytes the caller already holds: a web form upload
// or a local file handed to the CLI.
type UploadAcquirer struct {
	opts Options
}

// NewUploadAcquirer creates an UploadAcquirer.
func NewUploadAcquirer(opts Options) *UploadAcquirer {
	return &UploadAcquirer{opts: opts.withDefaults()}
}

// Acquire implements Acquirer. The declared name must end in .pdf; nothing
// is written otherwise.
func (a *UploadAcquirer) Acquire(ctx context.Context, src Source) (*AcquiredFile, error) {
	if !IsPDFName(src.Name) {
		return nil, &Error{Kind: ErrNotAPDF, Provenance: ProvenanceUpload, Name: src.Name}
	}

	if src.Body == nil {
		return nil, &Error{Kind: ErrDownloadFailed, Provenance: ProvenanceUpload, Name: src.Name}
	}

	ws, err := newWorkspace(a.opts.TempRoot, localName(src.Name), src.ceilingOr(a.opts.Limits.Attachment), a.opts.Logger)
	if err != nil {
		return nil, err
	}

	if _, err := ws.copyFrom(ctx, src.Body, nil); err != nil {
		ws.discard()
		return nil, streamError(err, ProvenanceUpload, src.Name)
	}

	file, err := ws.commit(src.Name, ProvenanceUpload)
	if err != nil {
		return nil, err
	}

	a.opts.Logger.Debug("stored upload",
		slog.String("name", src.Name),
		slog.Int64("bytes", file.Size),
	)

	return file, nil
}

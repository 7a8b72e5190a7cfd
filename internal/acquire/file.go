package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Provenance records which acquisition path produced a file. It selects the
// size ceiling and the wording of user-facing errors.
type Provenance string

// Acquisition paths.
const (
	ProvenanceUpload     Provenance = "upload"
	ProvenanceAttachment Provenance = "attachment"
	ProvenanceRewrite    Provenance = "onedrive-rewrite"
	ProvenanceShareAPI   Provenance = "onedrive-api"
)

// IsLink reports whether p came from a sharing link.
func (p Provenance) IsLink() bool {
	return p == ProvenanceRewrite || p == ProvenanceShareAPI
}

// bytesPerMB converts byte counts to the MB figures shown to users.
const bytesPerMB = 1024 * 1024

// tempDirPattern names the private per-acquisition directory.
const tempDirPattern = "planset-*"

// sniffLen is how many leading bytes are kept for type detection.
const sniffLen = 512

// AcquiredFile is a local copy of an acquired document. The caller that
// received it owns it and must call Release on every exit path, typically
// with defer right after a successful Acquire.
type AcquiredFile struct {
	Path         string     // absolute path of the downloaded bytes, unique per acquisition
	Dir          string     // private directory containing Path; removed by Release
	DeclaredName string     // name reported by the source; untrusted
	Size         int64      // bytes actually written
	Provenance   Provenance // acquisition path
	ContentType  string     // detected from the leading bytes

	head    []byte
	logger  *slog.Logger
	release sync.Once
}

// SizeMB returns Size in mebibytes.
func (f *AcquiredFile) SizeMB() float64 {
	return float64(f.Size) / bytesPerMB
}

// Head returns a copy of the first bytes of the file, at most 512.
func (f *AcquiredFile) Head() []byte {
	return append([]byte(nil), f.head...)
}

// Release removes the file and its private directory. Only the first call
// does anything. Removal failures are logged, never returned: cleanup must
// not mask the caller's primary result.
func (f *AcquiredFile) Release() {
	if f == nil {
		return
	}

	f.release.Do(func() {
		if err := os.RemoveAll(f.Dir); err != nil {
			f.logger.Warn("failed to remove acquired file",
				slog.String("dir", f.Dir),
				slog.String("error", err.Error()),
			)

			return
		}

		f.logger.Debug("released acquired file",
			slog.String("dir", f.Dir),
			slog.String("provenance", string(f.Provenance)),
		)
	})
}

// workspace is the private directory and open file for one acquisition.
// It is an io.Writer that enforces the size ceiling and captures the head
// of the stream for type detection.
type workspace struct {
	dir     string
	path    string
	file    *os.File
	limit   int64
	written int64
	head    []byte
	logger  *slog.Logger
}

// newWorkspace creates a fresh private directory under root (os.TempDir
// when empty) and opens name inside it. name must already be sanitized.
func newWorkspace(root, name string, limit int64, logger *slog.Logger) (*workspace, error) {
	dir, err := os.MkdirTemp(root, tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("acquire: creating temp directory: %w", err)
	}

	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("acquire: creating temp file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &workspace{
		dir:    dir,
		path:   abs,
		file:   f,
		limit:  limit,
		logger: logger,
	}, nil
}

// Write appends p to the file. Once the total would exceed the limit no
// further bytes are written and an ErrTooLarge *Error is returned.
func (w *workspace) Write(p []byte) (int, error) {
	if w.limit > 0 && w.written+int64(len(p)) > w.limit {
		return 0, &Error{Kind: ErrTooLarge, Size: w.written + int64(len(p)), Limit: w.limit}
	}

	if len(w.head) < sniffLen {
		need := min(sniffLen-len(w.head), len(p))
		w.head = append(w.head, p[:need]...)
	}

	n, err := w.file.Write(p)
	w.written += int64(n)

	return n, err
}

// copyFrom streams r into the workspace, stopping when ctx is canceled.
// bl throttles the copy and may be nil.
func (w *workspace) copyFrom(ctx context.Context, r io.Reader, bl *BandwidthLimiter) (int64, error) {
	return io.Copy(bl.WrapWriter(ctx, w), &ctxReader{ctx: ctx, r: r})
}

// commit closes the file and hands ownership to a new AcquiredFile.
func (w *workspace) commit(declaredName string, prov Provenance) (*AcquiredFile, error) {
	if err := w.file.Close(); err != nil {
		w.discard()
		return nil, fmt.Errorf("acquire: closing temp file: %w", err)
	}

	return &AcquiredFile{
		Path:         w.path,
		Dir:          w.dir,
		DeclaredName: declaredName,
		Size:         w.written,
		Provenance:   prov,
		ContentType:  DetectMIME(w.head),
		head:         w.head,
		logger:       w.logger,
	}, nil
}

// discard closes and removes everything the workspace created. Safe to
// call after commit failed; errors are logged only.
func (w *workspace) discard() {
	_ = w.file.Close()

	if err := os.RemoveAll(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("failed to remove partial download",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()),
		)
	}
}

// ctxReader fails reads once its context is done, so local copies (uploads)
// honor cancellation the same way network bodies do.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

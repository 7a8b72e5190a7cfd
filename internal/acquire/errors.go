package acquire

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Failure kinds. Every error returned by an Acquirer or by Validate wraps
// exactly one of these; use errors.Is(err, acquire.ErrTooLarge) to branch.
var (
	ErrInvalidLink            = errors.New("not a recognized sharing link")
	ErrNotAuthorized          = errors.New("not authorized to access the shared file")
	ErrNotFound               = errors.New("shared file not found")
	ErrResolutionFailed       = errors.New("sharing link resolution failed")
	ErrDownloadURLUnavailable = errors.New("no download URL available")
	ErrDownloadFailed         = errors.New("download failed")
	ErrNotAPDF                = errors.New("file is not a PDF")
	ErrTooLarge               = errors.New("file exceeds the size limit")
	ErrNotConfigured          = errors.New("sharing API client not configured")
)

// kinds lists every failure kind, in the order KindName reports them.
var kinds = []error{
	ErrInvalidLink, ErrNotAuthorized, ErrNotFound, ErrResolutionFailed,
	ErrDownloadURLUnavailable, ErrDownloadFailed, ErrNotAPDF, ErrTooLarge, ErrNotConfigured,
}

// Error carries a failure kind plus the context a caller needs to pick a
// user-facing message.
type Error struct {
	Kind       error      // one of the Err* sentinels
	Provenance Provenance // acquisition path, empty when not yet known
	Status     int        // HTTP status, 0 when no response was received
	Name       string     // declared file name, when known
	Size       int64      // declared or observed size, when relevant
	Limit      int64      // ceiling that was exceeded, for ErrTooLarge
	Err        error      // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("acquire: ")
	b.WriteString(e.Kind.Error())

	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}

	if e.Name != "" {
		fmt.Fprintf(&b, " (%s)", e.Name)
	}

	if e.Limit > 0 {
		fmt.Fprintf(&b, " [%d > %d bytes]", e.Size, e.Limit)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind wrapped by err, or nil when err did not
// originate in this package.
func KindOf(err error) error {
	var acqErr *Error
	if errors.As(err, &acqErr) {
		return acqErr.Kind
	}

	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}

	return nil
}

func asError(err error) (*Error, bool) {
	var acqErr *Error
	ok := errors.As(err, &acqErr)

	return acqErr, ok
}

// KindName returns a stable identifier for a failure kind, used in logs
// and stored review records.
func KindName(kind error) string {
	switch kind {
	case ErrInvalidLink:
		return "invalid_link"
	case ErrNotAuthorized:
		return "not_authorized"
	case ErrNotFound:
		return "not_found"
	case ErrResolutionFailed:
		return "resolution_failed"
	case ErrDownloadURLUnavailable:
		return "download_url_unavailable"
	case ErrDownloadFailed:
		return "download_failed"
	case ErrNotAPDF:
		return "not_a_pdf"
	case ErrTooLarge:
		return "too_large"
	case ErrNotConfigured:
		return "not_configured"
	default:
		return "internal"
	}
}

// withoutURL drops the request URL that net/http puts in transport errors.
// Sharing and attachment URLs grant access to the file. The operation and
// cause are kept, so errors.Is still sees context cancellation.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}

	return err
}

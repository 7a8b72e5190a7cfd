package acquire

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default channel ceilings.
const (
	DefaultAttachmentCeiling int64 = 25 * bytesPerMB  // chat platform upload limit
	DefaultLinkCeiling       int64 = 500 * bytesPerMB // sharing-link downloads
)

const (
	pdfExt      = ".pdf"
	pdfMIME     = "application/pdf"
	octetStream = "application/octet-stream"
)

// pdfMagic is the signature every PDF starts with.
var pdfMagic = []byte("%PDF-")

// Limits holds the per-channel size ceilings in bytes.
type Limits struct {
	Attachment int64 // direct uploads and chat attachments
	Link       int64 // sharing links, either strategy
}

// DefaultLimits returns the built-in ceilings.
func DefaultLimits() Limits {
	return Limits{Attachment: DefaultAttachmentCeiling, Link: DefaultLinkCeiling}
}

// Ceiling returns the size ceiling for files acquired through p.
func (l Limits) Ceiling(p Provenance) int64 {
	if p.IsLink() {
		return l.Link
	}

	return l.Attachment
}

// IsPDFName reports whether name ends in .pdf, ignoring case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), pdfExt)
}

// IsPDFContentType reports whether a Content-Type header names PDF.
func IsPDFContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}

// SniffPDF reports whether head starts with the PDF signature.
func SniffPDF(head []byte) bool {
	return bytes.HasPrefix(head, pdfMagic)
}

// LooksLikePDF applies the download-time check: the header or the file
// name must indicate PDF, otherwise the leading bytes must carry the
// signature.
func LooksLikePDF(contentType, name string, head []byte) bool {
	return IsPDFContentType(contentType) || IsPDFName(name) || SniffPDF(head)
}

// DetectMIME determines a MIME type from the leading bytes, using stdlib
// detection first and falling back to the broader mimetype library when
// the result is ambiguous.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return octetStream
	}

	mt := http.DetectContentType(head)
	if mt != octetStream {
		return mt
	}

	return mimetype.Detect(head).String()
}

// Validate checks an acquired file against its channel ceiling and the
// PDF type rules. The declared name or the file content must identify the
// file as a PDF.
func Validate(f *AcquiredFile, limits Limits) error {
	ceiling := limits.Ceiling(f.Provenance)
	if ceiling > 0 && f.Size > ceiling {
		return &Error{
			Kind:       ErrTooLarge,
			Provenance: f.Provenance,
			Name:       f.DeclaredName,
			Size:       f.Size,
			Limit:      ceiling,
		}
	}

	if !IsPDFName(f.DeclaredName) && !SniffPDF(f.head) && f.ContentType != pdfMIME {
		return &Error{Kind: ErrNotAPDF, Provenance: f.Provenance, Name: f.DeclaredName}
	}

	return nil
}

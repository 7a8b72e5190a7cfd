package intake

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/planset-go/internal/acquire"
)

func TestUserMessage(t *testing.T) {
	limits := acquire.DefaultLimits()
	cause := errors.New("xref table broken")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "analysis failure shows cause",
			err:  &AnalysisError{Err: cause},
			want: ProcessingFailed(cause),
		},
		{
			name: "wrapped analysis failure",
			err:  fmt.Errorf("outer: %w", &AnalysisError{Err: cause}),
			want: ProcessingFailed(cause),
		},
		{
			name: "upload too large",
			err:  &acquire.Error{Kind: acquire.ErrTooLarge, Provenance: acquire.ProvenanceUpload, Size: 30 << 20, Limit: 25 << 20},
			want: FileTooLarge(30<<20, 25<<20),
		},
		{
			name: "link too large falls back to link ceiling",
			err:  &acquire.Error{Kind: acquire.ErrTooLarge, Provenance: acquire.ProvenanceShareAPI, Size: 600 << 20},
			want: LinkTooLarge(600<<20, limits.Link),
		},
		{
			name: "not a pdf",
			err:  &acquire.Error{Kind: acquire.ErrNotAPDF, Name: "notes.docx"},
			want: InvalidFileType("notes.docx"),
		},
		{
			name: "invalid link",
			err:  &acquire.Error{Kind: acquire.ErrInvalidLink},
			want: InvalidLink,
		},
		{
			name: "not configured",
			err:  &acquire.Error{Kind: acquire.ErrNotConfigured},
			want: LinksUnavailable,
		},
		{
			name: "not authorized",
			err:  &acquire.Error{Kind: acquire.ErrNotAuthorized, Provenance: acquire.ProvenanceShareAPI, Status: 403},
			want: DownloadFailed,
		},
		{
			name: "resolution failed",
			err:  &acquire.Error{Kind: acquire.ErrResolutionFailed, Provenance: acquire.ProvenanceShareAPI},
			want: DownloadFailed,
		},
		{
			name: "no download url",
			err:  &acquire.Error{Kind: acquire.ErrDownloadURLUnavailable, Provenance: acquire.ProvenanceShareAPI},
			want: DownloadFailed,
		},
		{
			name: "link download failed",
			err:  &acquire.Error{Kind: acquire.ErrDownloadFailed, Provenance: acquire.ProvenanceRewrite, Status: 500},
			want: DownloadFailed,
		},
		{
			name: "unexpected error",
			err:  errors.New("disk full"),
			want: Generic(errors.New("disk full")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, limits))
		})
	}
}

func TestUserMessage_AttachmentDownloadFailed(t *testing.T) {
	err := &acquire.Error{Kind: acquire.ErrDownloadFailed, Provenance: acquire.ProvenanceAttachment, Status: 401}

	msg := UserMessage(err, acquire.DefaultLimits())
	assert.Contains(t, msg, "error while analyzing your planset")
	assert.Contains(t, msg, "HTTP 401")
}

func TestFormatMB(t *testing.T) {
	assert.Equal(t, "25 MB", formatMB(25<<20))
	assert.Equal(t, "500 MB", formatMB(500<<20))
	assert.Equal(t, "1.5 MB", formatMB(3<<19))
}

func TestFileTooLarge(t *testing.T) {
	msg := FileTooLarge(30<<20, 25<<20)
	assert.Contains(t, msg, "**File size:** 30.0 MB")
	assert.Contains(t, msg, "**Maximum direct upload:** 25 MB")
}

func TestInvalidFileType_Unnamed(t *testing.T) {
	assert.Contains(t, InvalidFileType(""), "(unnamed file)")
}

package acquire

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentAcquire_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bot-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, pdfBody)
	}))
	defer srv.Close()

	a := NewAttachmentAcquirer(Options{TempRoot: t.TempDir()})

	f, err := a.Acquire(context.Background(), Attachment(srv.URL+"/v3/attachments/1", "site plan.pdf", "bot-token"))
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, ProvenanceAttachment, f.Provenance)
	assert.Equal(t, "site plan.pdf", f.DeclaredName)
	assert.Equal(t, "site_plan.pdf", filepath.Base(f.Path))
	assert.Equal(t, int64(len(pdfBody)), f.Size)
}

func TestAttachmentAcquire_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, pdfBody)
	}))
	defer srv.Close()

	a := NewAttachmentAcquirer(Options{TempRoot: t.TempDir()})

	f, err := a.Acquire(context.Background(), Attachment(srv.URL+"/file", "a.pdf", ""))
	require.NoError(t, err)
	assertReleased(t, f)
}

func TestAttachmentAcquire_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	root := t.TempDir()
	a := NewAttachmentAcquirer(Options{TempRoot: root})

	_, err := a.Acquire(context.Background(), Attachment(srv.URL+"/file", "a.pdf", "expired"))
	acqErr := assertKind(t, err, ErrDownloadFailed)
	assert.Equal(t, http.StatusUnauthorized, acqErr.Status)
	assert.Equal(t, ProvenanceAttachment, acqErr.Provenance)
	assertEmptyDir(t, root)
}

func TestAttachmentAcquire_CeilingCountsBytesReceived(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Understated length header; the body is what counts.
		_, _ = io.WriteString(w, pdfBody+strings.Repeat("x", 2048))
	}))
	defer srv.Close()

	root := t.TempDir()
	a := NewAttachmentAcquirer(Options{TempRoot: root, Limits: Limits{Attachment: 1024, Link: 1024}})

	_, err := a.Acquire(context.Background(), Attachment(srv.URL+"/file", "a.pdf", ""))
	acqErr := assertKind(t, err, ErrTooLarge)
	assert.Equal(t, int64(1024), acqErr.Limit)
	assertEmptyDir(t, root)
}

func TestAttachmentAcquire_TransportErrorOmitsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL + "/file?sig=SECRET"
	srv.Close()

	a := NewAttachmentAcquirer(Options{TempRoot: t.TempDir()})

	_, err := a.Acquire(context.Background(), Attachment(target, "a.pdf", ""))
	assertKind(t, err, ErrDownloadFailed)
	assert.NotContains(t, err.Error(), "SECRET")
}

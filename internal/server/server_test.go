package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/analyze"
	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/intake"
	"github.com/tonimelisma/planset-go/testutil"
)

// stubLink serves a fixed PDF for every sharing link.
type stubLink struct {
	root string
	err  error
	urls []string
}

func (s *stubLink) Acquire(ctx context.Context, src acquire.Source) (*acquire.AcquiredFile, error) {
	s.urls = append(s.urls, src.URL)

	if s.err != nil {
		return nil, s.err
	}

	// Reuse the upload path to produce a real temp file.
	up := acquire.NewUploadAcquirer(acquire.Options{TempRoot: s.root})

	return up.Acquire(ctx, acquire.Upload("shared.pdf", bytes.NewReader(testutil.BuildPDF("S-1", "S-2", "S-3"))))
}

func newTestServer(t *testing.T, limits acquire.Limits, link *stubLink) (*Server, *config.Holder) {
	t.Helper()

	root := t.TempDir()
	if link != nil {
		link.root = root
	}

	var la acquire.Acquirer
	if link != nil {
		la = link
	}

	svc := intake.New(intake.Config{
		Acquirer: acquire.NewRouter(la, acquire.Options{TempRoot: root, Limits: limits}),
		Limits:   limits,
		Analyzer: analyze.NewPageReport(nil),
	})

	holder := config.NewHolder(config.DefaultConfig(), "")

	return New(svc, holder, nil), holder
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)

	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func decodeReview(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func TestReview_Upload(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	body, ct := multipartBody(t, "file", "plans.pdf", testutil.BuildPDF("C-001", "C-002"))
	req := httptest.NewRequest(http.MethodPost, "/api/review", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeReview(t, rec)
	assert.Equal(t, true, out["success"])
	assert.EqualValues(t, 2, out["page_count"])
	assert.Contains(t, out["report"], "PLANSET REVIEW REPORT")

	data, ok := out["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plans.pdf", data["file_name"])
}

func TestReview_UploadWrongType(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	body, ct := multipartBody(t, "file", "plans.docx", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/review", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	out := decodeReview(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, errInvalidType, out["error"])
}

func TestReview_UploadUnreadableIs500(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	body, ct := multipartBody(t, "file", "plans.pdf", []byte("not a pdf at all"))
	req := httptest.NewRequest(http.MethodPost, "/api/review", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeReview(t, rec)["error"], "unreadable PDF")
}

func TestReview_UploadOverCeiling(t *testing.T) {
	srv, _ := newTestServer(t, acquire.Limits{Attachment: 256, Link: 1 << 20}, nil)

	body, ct := multipartBody(t, "file", "plans.pdf", testutil.BuildPDF("A", "B", "C"))
	req := httptest.NewRequest(http.MethodPost, "/api/review", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeReview(t, rec)["error"], "File too large")
}

func TestReview_BodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, acquire.Limits{Attachment: 1024, Link: 1 << 20}, nil)

	body, ct := multipartBody(t, "file", "plans.pdf", bytes.Repeat([]byte("x"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/review", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, errBodyTooLarge, decodeReview(t, rec)["error"])
}

func postForm(t *testing.T, srv *Server, values url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	return rec
}

func TestReview_ShareURL(t *testing.T) {
	link := &stubLink{}
	srv, _ := newTestServer(t, acquire.DefaultLimits(), link)

	rec := postForm(t, srv, url.Values{"url": {"  https://contoso.sharepoint.com/:b:/g/EaX?e=1  "}})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 3, decodeReview(t, rec)["page_count"])
	assert.Equal(t, []string{"https://contoso.sharepoint.com/:b:/g/EaX?e=1"}, link.urls)
}

func TestReview_InvalidURL(t *testing.T) {
	link := &stubLink{}
	srv, _ := newTestServer(t, acquire.DefaultLimits(), link)

	rec := postForm(t, srv, url.Values{"url": {"https://example.com/plans.pdf"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errInvalidURL, decodeReview(t, rec)["error"])
	assert.Empty(t, link.urls)
}

func TestReview_LinkFailureIs400(t *testing.T) {
	link := &stubLink{err: &acquire.Error{Kind: acquire.ErrNotFound, Provenance: acquire.ProvenanceShareAPI, Status: 404}}
	srv, _ := newTestServer(t, acquire.DefaultLimits(), link)

	rec := postForm(t, srv, url.Values{"url": {"https://1drv.ms/b/s!gone"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeReview(t, rec)["error"], "Failed to download file")
}

func TestReview_NoInput(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	rec := postForm(t, srv, url.Values{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errNoInput, decodeReview(t, rec)["error"])
}

func TestReview_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/review", http.NoBody))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, holder := newTestServer(t, acquire.DefaultLimits(), nil)

	get := func() map[string]any {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)

		return decodeReview(t, rec)
	}

	out := get()
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, false, out["bot_configured"])

	cfg := config.DefaultConfig()
	cfg.Graph.TenantID = "t"
	cfg.Graph.ClientID = "c"
	cfg.Graph.ClientSecret = "s"
	holder.Update(cfg)

	assert.Equal(t, true, get()["bot_configured"])
}

func TestMessages(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out messagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{intake.Welcome}, out.Messages)
}

func TestMessages_AttachmentFromPlatform(t *testing.T) {
	pdf := testutil.BuildPDF("G-001")

	platform := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bot", r.Header.Get("Authorization"))
		_, _ = w.Write(pdf)
	}))
	defer platform.Close()

	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	activity := `{"text":"","token":"bot","attachments":[{"name":"g.pdf","contentType":"application/pdf","contentUrl":"` +
		platform.URL + `/att/1"}]}`

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(activity)))

	require.Equal(t, http.StatusOK, rec.Code)

	var out messagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Messages, 5)
	assert.Equal(t, intake.ProcessingComplete, out.Messages[3])
	assert.True(t, strings.HasPrefix(out.Messages[4], "```\n"))
}

func TestMessages_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetService(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	small := acquire.Limits{Attachment: 2 << 20, Link: 7 << 20}
	srv.SetService(intake.New(intake.Config{
		Acquirer: acquire.NewRouter(nil, acquire.Options{TempRoot: t.TempDir(), Limits: small}),
		Limits:   small,
		Analyzer: analyze.NewPageReport(nil),
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"text":"plans?"}`)))

	var out messagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Messages, 1)
	assert.Contains(t, out.Messages[0], "under 2 MB")
	assert.Contains(t, out.Messages[0], "up to 7 MB")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, acquire.DefaultLimits(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

package intake

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/testutil"
)

func pdfServer(t *testing.T, pages ...string) *httptest.Server {
	t.Helper()

	body := testutil.BuildPDF(pages...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bot-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestHandleMessage_HelpKeywords(t *testing.T) {
	f := newFixture(t, nil)

	for _, text := range []string{"help", "  Hello ", "HI", "start", "?", ""} {
		msgs := f.svc.HandleMessage(context.Background(), Activity{Text: text}, 0)
		assert.Equal(t, []string{Welcome}, msgs, "text %q", text)
	}

	assert.Empty(t, f.records(t), "help does not run a review")
}

func TestHandleMessage_NoAttachment(t *testing.T) {
	f := newFixture(t, nil)

	msgs := f.svc.HandleMessage(context.Background(), Activity{Text: "please review my plans"}, 0)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "I didn't receive a PDF file")
	assert.Contains(t, msgs[0], "under 25 MB")
	assert.Contains(t, msgs[0], "up to 500 MB")
}

func TestHandleMessage_PDFAttachment(t *testing.T) {
	f := newFixture(t, nil)
	srv := pdfServer(t, "C-001 COVER", "C-101 GRADING")

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Text:  "here you go",
		Token: "bot-token",
		Attachments: []ChatAttachment{
			{Name: "logo.png", ContentType: "image/png", ContentURL: srv.URL + "/logo"},
			{Name: "plans.pdf", ContentType: "application/pdf", ContentURL: srv.URL + "/plans"},
		},
	}, 0)

	require.GreaterOrEqual(t, len(msgs), 5)
	assert.Equal(t, ProcessingStart, msgs[0])
	assert.Equal(t, "Downloading planset from chat attachment...", msgs[1])
	assert.Equal(t, "Analyzing planset (2 pages)...", msgs[2])
	assert.Equal(t, ProcessingComplete, msgs[3])
	assert.True(t, strings.HasPrefix(msgs[4], "```"))
	assertRootEmpty(t, f.root)

	recs := f.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "attachment", recs[0].Channel)
}

func TestHandleMessage_ReportIsChunked(t *testing.T) {
	f := newFixture(t, nil)

	pages := make([]string, 60)
	for i := range pages {
		pages[i] = "SHEET " + strings.Repeat("X", 40)
	}

	srv := pdfServer(t, pages...)

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Token:       "bot-token",
		Attachments: []ChatAttachment{{Name: "big.pdf", ContentURL: srv.URL}},
	}, 1000)

	require.Greater(t, len(msgs), 5)

	parts := msgs[4:]
	for i, p := range parts {
		assert.True(t, strings.HasPrefix(p, fmt.Sprintf("**Report Part %d/%d**", i+1, len(parts))))
	}
}

func TestHandleMessage_AttachmentNotPDFName(t *testing.T) {
	f := newFixture(t, nil)

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Attachments: []ChatAttachment{{Name: "plans.dwg", ContentType: "application/pdf", ContentURL: "https://example.invalid/x"}},
	}, 0)

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "You sent: **plans.dwg**")
}

func TestHandleMessage_AttachmentMissingURL(t *testing.T) {
	f := newFixture(t, nil)

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Attachments: []ChatAttachment{{ContentType: "application/pdf"}},
	}, 0)

	require.Len(t, msgs, 3)
	assert.Equal(t, ProcessingStart, msgs[0])
	assert.Contains(t, msgs[2], "attachment has no content URL")
}

func TestHandleMessage_NonPDFAttachmentFallsThroughToText(t *testing.T) {
	f := newFixture(t, nil)

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Text:        "hello",
		Attachments: []ChatAttachment{{Name: "photo.jpg", ContentType: "image/jpeg", ContentURL: "https://example.invalid/p"}},
	}, 0)

	assert.Equal(t, []string{Welcome}, msgs)
}

func TestHandleMessage_ShareLink(t *testing.T) {
	f := newFixture(t, nil)

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Text:  "plans are at https://contoso.sharepoint.com/:b:/s/eng/EaBc123?e=xyz thanks",
		Token: "user-token",
	}, 0)

	require.Len(t, msgs, 3)
	assert.Equal(t, "Downloading planset from OneDrive/SharePoint...", msgs[1])
	assert.Equal(t, DownloadFailed, msgs[2])

	require.Len(t, f.link.srcs, 1)
	assert.Equal(t, "https://contoso.sharepoint.com/:b:/s/eng/EaBc123?e=xyz", f.link.srcs[0].URL)
	assert.Equal(t, "user-token", f.link.srcs[0].Token)
}

func TestHandleMessage_AttachmentWinsOverLink(t *testing.T) {
	f := newFixture(t, nil)
	srv := pdfServer(t, "A")

	msgs := f.svc.HandleMessage(context.Background(), Activity{
		Text:        "https://1drv.ms/b/s!abc",
		Token:       "bot-token",
		Attachments: []ChatAttachment{{Name: "a.pdf", ContentURL: srv.URL}},
	}, 0)

	assert.Equal(t, "Downloading planset from chat attachment...", msgs[1])
	assert.Empty(t, f.link.srcs)
}

func TestChatAttachment_IsPDF(t *testing.T) {
	assert.True(t, ChatAttachment{ContentType: "application/pdf"}.IsPDF())
	assert.True(t, ChatAttachment{Name: "X.PDF"}.IsPDF())
	assert.False(t, ChatAttachment{Name: "x.txt", ContentType: "text/plain"}.IsPDF())
}

func TestHandleMessage_LinksDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.acquirer = acquire.NewRouter(nil, acquire.Options{TempRoot: f.root})

	msgs := f.svc.HandleMessage(context.Background(), Activity{Text: "https://1drv.ms/b/s!abc"}, 0)

	require.Len(t, msgs, 3)
	assert.Equal(t, LinksUnavailable, msgs[2])
}

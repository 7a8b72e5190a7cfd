package intake

import (
	"context"
	"strings"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/report"
	"github.com/tonimelisma/planset-go/internal/sharelink"
)

// helpKeywords trigger the welcome copy. The empty string covers messages
// with no text and no attachment.
var helpKeywords = map[string]bool{
	"help": true, "hi": true, "hello": true, "start": true, "?": true, "": true,
}

// Activity is the minimal chat message this service understands.
type Activity struct {
	Text        string           `json:"text"`
	Attachments []ChatAttachment `json:"attachments"`
	// Token authorizes attachment downloads and, for sharing links, acts as
	// the delegated user token. Empty for pre-authenticated URLs.
	Token string `json:"token,omitempty"`
}

// ChatAttachment is one file attached to an Activity.
type ChatAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	ContentURL  string `json:"contentUrl"`
}

// IsPDF reports whether the attachment claims to be a PDF by content type
// or by name.
func (a ChatAttachment) IsPDF() bool {
	return acquire.IsPDFContentType(a.ContentType) || acquire.IsPDFName(a.Name)
}

// HandleMessage answers one chat message with the ordered list of replies.
// Dispatch order: the first PDF attachment, then a sharing link in the
// text, then help keywords; anything else gets the no-attachment copy.
// The report is split into parts of at most messageCeiling bytes.
func (s *Service) HandleMessage(ctx context.Context, act Activity, messageCeiling int) []string {
	for _, att := range act.Attachments {
		if att.IsPDF() {
			return s.handleAttachment(ctx, att, act.Token, messageCeiling)
		}
	}

	if shareURL, ok := sharelink.FindShareURL(act.Text); ok {
		return s.run(ctx, acquire.ShareLink(shareURL, act.Token), sourceShareLink, messageCeiling)
	}

	if helpKeywords[strings.ToLower(strings.TrimSpace(act.Text))] {
		return []string{Welcome}
	}

	return []string{NoAttachment(s.limits)}
}

func (s *Service) handleAttachment(ctx context.Context, att ChatAttachment, token string, messageCeiling int) []string {
	name := att.Name
	if name == "" {
		name = acquire.DefaultName
	}

	if !acquire.IsPDFName(name) {
		return []string{InvalidFileType(name)}
	}

	if att.ContentURL == "" {
		return []string{
			ProcessingStart,
			ProcessingDownload(sourceAttachment),
			ProcessingFailed(errNoContentURL),
		}
	}

	return s.run(ctx, acquire.Attachment(att.ContentURL, name, token), sourceAttachment, messageCeiling)
}

func (s *Service) run(ctx context.Context, src acquire.Source, label string, messageCeiling int) []string {
	msgs := []string{ProcessingStart, ProcessingDownload(label)}

	res, err := s.Review(ctx, Request{
		Source:   src,
		Progress: func(m string) { msgs = append(msgs, m) },
	})
	if err != nil {
		return append(msgs, UserMessage(err, s.limits))
	}

	if messageCeiling <= 0 {
		messageCeiling = report.DefaultCeiling
	}

	msgs = append(msgs, ProcessingComplete)

	return append(msgs, report.Chunks(res.Report, messageCeiling)...)
}

// Package acquire turns user-supplied document references (uploads, chat
// attachments, and cloud sharing links) into validated local files.
//
// Every Acquirer writes into a private temporary directory created for that
// call alone and returns an *AcquiredFile the caller owns. On failure the
// acquirer removes what it wrote; on success the caller must Release the
// file on every exit path. Nothing in this package retries: a failed
// resolution or download surfaces immediately as an *Error.
package acquire

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonimelisma/planset-go/internal/graph"
)

// Timeouts for the two HTTP clients every acquirer uses.
const (
	DefaultMetadataTimeout = 30 * time.Second  // redirects, metadata, probes
	DefaultDownloadTimeout = 300 * time.Second // full-body downloads
)

// DefaultBrowserUserAgent is sent to sharing hosts, some of which reject
// requests that do not look like they come from a browser.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// graphUserAgent identifies this client to the Graph API.
const graphUserAgent = "planset-go/0.1"

// SourceKind says which acquisition channel a Source belongs to.
type SourceKind int

// Source kinds.
const (
	SourceShareLink SourceKind = iota + 1
	SourceAttachment
	SourceUpload
)

// Source describes what to acquire. Build one with ShareLink, Attachment,
// or Upload.
type Source struct {
	Kind    SourceKind
	URL     string    // sharing URL or attachment content URL
	Name    string    // declared name for attachments and uploads
	Token   string    // delegated user token (share link) or platform token (attachment)
	Body    io.Reader // upload bytes
	Ceiling int64     // size ceiling in bytes; 0 = acquirer default
}

// ShareLink describes a sharing URL. userToken may be empty, in which case
// the application credential is used.
func ShareLink(shareURL, userToken string) Source {
	return Source{Kind: SourceShareLink, URL: shareURL, Token: userToken}
}

// Attachment describes a chat-platform attachment. token may be empty for
// pre-authenticated content URLs.
func Attachment(contentURL, name, token string) Source {
	return Source{Kind: SourceAttachment, URL: contentURL, Name: name, Token: token}
}

// Upload describes bytes the caller already holds.
func Upload(name string, body io.Reader) Source {
	return Source{Kind: SourceUpload, Name: name, Body: body}
}

// WithCeiling returns a copy of s limited to ceiling bytes.
func (s Source) WithCeiling(ceiling int64) Source {
	s.Ceiling = ceiling
	return s
}

// ceilingOr returns the source ceiling, or def when none was set.
func (s Source) ceilingOr(def int64) int64 {
	if s.Ceiling > 0 {
		return s.Ceiling
	}

	return def
}

// Acquirer produces a local file from a Source.
type Acquirer interface {
	Acquire(ctx context.Context, src Source) (*AcquiredFile, error)
}

// Options configures the HTTP clients and scratch location shared by the
// acquirers.
type Options struct {
	MetaHTTP     *http.Client // short-timeout client for redirects, metadata, probes
	TransferHTTP *http.Client // long-timeout client for bodies
	UserAgent    string       // sent to sharing hosts on the rewrite path
	TempRoot     string       // parent of per-acquisition directories; "" = os.TempDir()
	Limits       Limits
	Bandwidth    *BandwidthLimiter // shared download throttle; nil = unlimited
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MetaHTTP == nil {
		o.MetaHTTP = &http.Client{Timeout: DefaultMetadataTimeout}
	}

	if o.TransferHTTP == nil {
		o.TransferHTTP = &http.Client{Timeout: DefaultDownloadTimeout}
	}

	if o.UserAgent == "" {
		o.UserAgent = DefaultBrowserUserAgent
	}

	if o.Limits == (Limits{}) {
		o.Limits = DefaultLimits()
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}

// NewLinkAcquirer picks the sharing-link strategy once, at configuration
// time: the Graph shares API when application credentials are configured,
// otherwise the URL-rewrite heuristic.
func NewLinkAcquirer(creds graph.AppCredentials, baseURL string, opts Options) Acquirer {
	opts = opts.withDefaults()

	if !creds.Configured() {
		opts.Logger.Info("sharing API credentials not configured, using direct rewrite strategy")
		return NewRewriteAcquirer(opts)
	}

	if baseURL == "" {
		baseURL = graph.DefaultBaseURL
	}

	ts := graph.NewAppTokenSource(creds, opts.MetaHTTP, opts.Logger)
	meta := graph.NewClient(baseURL, opts.MetaHTTP, ts, opts.Logger, graphUserAgent)
	transfer := graph.NewClient(baseURL, opts.TransferHTTP, ts, opts.Logger, graphUserAgent)

	opts.Logger.Info("using sharing API strategy", slog.String("base_url", baseURL))

	return NewShareAcquirer(meta, transfer, opts)
}

// Router dispatches a Source to the acquirer for its channel and fills in
// the channel ceiling.
type Router struct {
	Link       Acquirer // nil = sharing links unsupported
	Attachment Acquirer
	Upload     Acquirer
	Limits     Limits
}

// NewRouter wires the standard acquirers around link.
func NewRouter(link Acquirer, opts Options) *Router {
	opts = opts.withDefaults()

	return &Router{
		Link:       link,
		Attachment: NewAttachmentAcquirer(opts),
		Upload:     NewUploadAcquirer(opts),
		Limits:     opts.Limits,
	}
}

// Acquire implements Acquirer.
func (r *Router) Acquire(ctx context.Context, src Source) (*AcquiredFile, error) {
	switch src.Kind {
	case SourceShareLink:
		if r.Link == nil {
			return nil, &Error{Kind: ErrNotConfigured}
		}

		return r.Link.Acquire(ctx, src.WithCeiling(src.ceilingOr(r.Limits.Link)))
	case SourceAttachment:
		return r.Attachment.Acquire(ctx, src.WithCeiling(src.ceilingOr(r.Limits.Attachment)))
	case SourceUpload:
		return r.Upload.Acquire(ctx, src.WithCeiling(src.ceilingOr(r.Limits.Attachment)))
	default:
		return nil, &Error{Kind: ErrInvalidLink}
	}
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/planset-go/internal/tokenfile"
)

// GraphScope is the resource scope requested for application tokens.
const GraphScope = "https://graph.microsoft.com/.default"

// Token lifetime handling.
const (
	expiryDelta  = 2 * time.Minute  // refresh this long before the token expires
	fetchTimeout = 30 * time.Second // upper bound on one token request
)

// Sentinel errors for delegated token files.
var (
	ErrNotLoggedIn  = errors.New("graph: no saved user token")
	ErrTokenExpired = errors.New("graph: saved user token has expired")
)

// AppCredentials identifies the application registration used for the
// client-credentials flow.
type AppCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	TokenURL     string // empty = Azure AD endpoint for TenantID
}

// Configured reports whether all fields needed for a token request are set.
func (c AppCredentials) Configured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// AppTokenSource is a process-wide application token cache. Concurrent
// callers read the cached token under a read lock; when it is missing or
// close to expiry exactly one refresh runs and every waiting caller shares
// its result.
type AppTokenSource struct {
	fetch  func(ctx context.Context) (*oauth2.Token, error)
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *oauth2.Token
	group  singleflight.Group
}

// NewAppTokenSource builds an AppTokenSource that requests GraphScope tokens
// with the client-credentials grant. httpClient may be nil.
func NewAppTokenSource(creds AppCredentials, httpClient *http.Client, logger *slog.Logger) *AppTokenSource {
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = microsoft.AzureADEndpoint(creds.TenantID).TokenURL
	}

	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{GraphScope},
	}

	return newAppTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}

		return cfg.Token(ctx)
	}, logger)
}

func newAppTokenSource(fetch func(ctx context.Context) (*oauth2.Token, error), logger *slog.Logger) *AppTokenSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &AppTokenSource{
		fetch:  fetch,
		logger: logger,
		now:    time.Now,
	}
}

// Token returns a valid access token, refreshing it if needed.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	if tok := s.current(); tok != nil {
		return tok.AccessToken, nil
	}

	v, err, shared := s.group.Do("app-token", func() (any, error) {
		// A refresh that finished while we queued for the group already
		// populated the cache.
		if tok := s.current(); tok != nil {
			return tok, nil
		}

		// Detach from the first caller's cancellation: the result is
		// shared with every caller waiting on the group.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		tok, fetchErr := s.fetch(fetchCtx)
		if fetchErr != nil {
			return nil, fetchErr
		}

		s.mu.Lock()
		s.cached = tok
		s.mu.Unlock()

		s.logger.Info("application token acquired", slog.Time("expiry", tok.Expiry))

		return tok, nil
	})
	if err != nil {
		s.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("graph: obtaining application token: %w", err)
	}

	if shared {
		s.logger.Debug("shared in-flight token refresh")
	}

	tok, ok := v.(*oauth2.Token)
	if !ok || tok == nil {
		return "", fmt.Errorf("graph: token refresh returned no token")
	}

	return tok.AccessToken, nil
}

// current returns the cached token if it is still usable, else nil.
func (s *AppTokenSource) current() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok := s.cached
	if tok == nil || tok.AccessToken == "" {
		return nil
	}

	if !tok.Expiry.IsZero() && !s.now().Add(expiryDelta).Before(tok.Expiry) {
		return nil
	}

	return tok
}

// TokenSourceFromPath loads a delegated user token saved by tokenfile.Save
// and returns it as a StaticToken. Returns ErrNotLoggedIn when no file exists
// and ErrTokenExpired when the saved token is past its expiry; this process
// never refreshes user tokens.
func TokenSourceFromPath(tokenPath string, logger *slog.Logger) (StaticToken, error) {
	tok, err := tokenfile.Load(tokenPath)
	if err != nil {
		return "", err
	}

	if tok == nil {
		return "", ErrNotLoggedIn
	}

	if logger == nil {
		logger = slog.Default()
	}

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	logger.Info("loaded saved user token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	if expired {
		return "", ErrTokenExpired
	}

	return StaticToken(tok.AccessToken), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tonimelisma/planset-go/internal/acquire"
	"github.com/tonimelisma/planset-go/internal/analyze"
	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/graph"
	"github.com/tonimelisma/planset-go/internal/history"
	"github.com/tonimelisma/planset-go/internal/intake"
	"github.com/tonimelisma/planset-go/internal/sharelink"
	"github.com/tonimelisma/planset-go/internal/storage"
)

// limitsFrom converts the configured ceilings.
func limitsFrom(cfg *config.Config) acquire.Limits {
	return acquire.Limits{
		Attachment: cfg.Limits.AttachmentBytes(),
		Link:       cfg.Limits.LinkBytes(),
	}
}

// newRouter wires the acquirers for every channel. The sharing-link
// strategy is chosen here, once.
func newRouter(cfg *config.Config, logger *slog.Logger) *acquire.Router {
	metaTimeout, downloadTimeout := cfg.Network.Timeouts()

	opts := acquire.Options{
		MetaHTTP:     &http.Client{Timeout: metaTimeout},
		TransferHTTP: &http.Client{Timeout: downloadTimeout},
		UserAgent:    cfg.Network.UserAgent,
		Limits:       limitsFrom(cfg),
		Bandwidth:    acquire.NewBandwidthLimiter(cfg.Network.BandwidthBytes(), logger),
		Logger:       logger,
	}

	creds := graph.AppCredentials{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
	}

	return acquire.NewRouter(acquire.NewLinkAcquirer(creds, cfg.Graph.BaseURL, opts), opts)
}

// newSink returns the configured upload sink, or nil when storage is off.
func newSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Sink, error) {
	if !cfg.Storage.Enabled() {
		return nil, nil //nolint:nilnil // nil sink means archiving is disabled
	}

	return storage.NewS3Sink(ctx, storage.Options{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		Prefix:          cfg.Storage.Prefix,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Logger:          logger,
	})
}

// openHistory opens the review ledger, or returns nil when it is disabled.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*history.Store, error) {
	path := cfg.Server.HistoryPath()
	if path == "" {
		return nil, nil //nolint:nilnil // history disabled
	}

	return history.Open(ctx, path, logger)
}

// newService wires a review service. hist may be nil.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, hist *history.Store) (*intake.Service, error) {
	sink, err := newSink(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svcCfg := intake.Config{
		Acquirer: newRouter(cfg, logger),
		Limits:   limitsFrom(cfg),
		Analyzer: analyze.NewPageReport(logger),
		Sink:     sink,
		Logger:   logger,
	}

	// A nil *history.Store must not become a non-nil Recorder.
	if hist != nil {
		svcCfg.History = hist
	}

	return intake.New(svcCfg), nil
}

// userToken returns the delegated user token to send with sharing links.
// An explicit --user-token-file must load; the default location is used
// only when a token has been saved there.
func userToken(cc *CLIContext) (string, error) {
	path := cc.Flags.UserTokenFile
	explicit := path != ""

	if !explicit {
		path = config.DefaultTokenPath()
		if path == "" {
			return "", nil
		}
	}

	tok, err := graph.TokenSourceFromPath(path, cc.Logger)
	if err != nil {
		if !explicit && errors.Is(err, graph.ErrNotLoggedIn) {
			return "", nil
		}

		return "", fmt.Errorf("loading user token: %w", err)
	}

	return string(tok), nil
}

// sourceFromArg turns a command-line argument into a Source: an http(s)
// argument must be a recognized sharing link, anything else is a local
// file path. The returned cleanup closes the local file.
func sourceFromArg(arg, token string) (acquire.Source, func(), error) {
	lower := strings.ToLower(strings.TrimSpace(arg))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if !sharelink.IsShareURL(arg) {
			return acquire.Source{}, nil, &acquire.Error{Kind: acquire.ErrInvalidLink, Name: arg}
		}

		return acquire.ShareLink(strings.TrimSpace(arg), token), func() {}, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return acquire.Source{}, nil, fmt.Errorf("opening %s: %w", arg, err)
	}

	return acquire.Upload(filepath.Base(arg), f), func() { f.Close() }, nil
}

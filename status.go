package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/graph"
	"github.com/tonimelisma/planset-go/internal/history"
)

// Token state constants for status reporting.
const (
	tokenStateMissing = "missing"
	tokenStateExpired = "expired"
	tokenStateValid   = "valid"
)

// Share-link strategy labels.
const (
	strategySharingAPI = "sharing-api"
	strategyRewrite    = "direct-rewrite"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the share-link strategy, user token, server, and last review",
		Long: `Display how share links will be fetched, whether a delegated user token
is saved, whether a server is running, and the most recent review.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	ConfigPath string          `json:"config_path"`
	Strategy   string          `json:"share_link_strategy"`
	Missing    []string        `json:"missing_credentials,omitempty"`
	TokenState string          `json:"user_token"`
	ServerPID  int             `json:"server_pid,omitempty"`
	History    string          `json:"history_path,omitempty"`
	Last       *history.Record `json:"last_review,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	out := statusOutput{
		ConfigPath: cc.CfgPath,
		Strategy:   strategySharingAPI,
		Missing:    config.MissingCredentials(cc.Cfg),
		History:    cc.Cfg.Server.HistoryPath(),
	}

	if len(out.Missing) > 0 {
		out.Strategy = strategyRewrite
	}

	if path, err := tokenPath(cc); err == nil {
		out.TokenState = checkTokenState(path, cc.Logger)
	} else {
		out.TokenState = tokenStateMissing
	}

	if pid, err := liveServerPID(config.DefaultPIDPath()); err == nil {
		out.ServerPID = pid
	}

	if out.History != "" {
		last, err := lastReview(cmd, cc)
		if err != nil {
			return err
		}

		out.Last = last
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	printStatusText(cc, &out)

	return nil
}

// checkTokenState reports whether the user token at path is usable.
func checkTokenState(path string, logger *slog.Logger) string {
	_, err := graph.TokenSourceFromPath(path, logger)

	switch {
	case err == nil:
		return tokenStateValid
	case errors.Is(err, graph.ErrNotLoggedIn):
		return tokenStateMissing
	default:
		return tokenStateExpired
	}
}

// lastReview returns the newest history record, or nil when there is none.
// A history database that does not exist yet is not opened, so status
// never creates one.
func lastReview(cmd *cobra.Command, cc *CLIContext) (*history.Record, error) {
	if _, err := os.Stat(cc.Cfg.Server.HistoryPath()); errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // no reviews yet
	}

	store, err := openHistory(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	recs, err := store.List(cmd.Context(), 1)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, nil //nolint:nilnil // no reviews yet
	}

	return &recs[0], nil
}

func printStatusText(cc *CLIContext, out *statusOutput) {
	w := cc.Stdout

	fmt.Fprintf(w, "Config:      %s\n", out.ConfigPath)

	if out.Strategy == strategySharingAPI {
		fmt.Fprintf(w, "Share links: sharing API\n")
	} else {
		fmt.Fprintf(w, "Share links: direct download rewrite (missing %d credentials)\n", len(out.Missing))
	}

	fmt.Fprintf(w, "User token:  %s\n", out.TokenState)

	if out.ServerPID > 0 {
		fmt.Fprintf(w, "Server:      running (PID %d)\n", out.ServerPID)
	} else {
		fmt.Fprintf(w, "Server:      stopped\n")
	}

	switch {
	case out.History == "":
		fmt.Fprintf(w, "History:     disabled\n")
	case out.Last == nil:
		fmt.Fprintf(w, "History:     no reviews yet\n")
	default:
		fmt.Fprintf(w, "Last review: %s %s %s (%s)\n",
			formatTime(out.Last.CreatedAt), out.Last.Channel, out.Last.Outcome, truncate(out.Last.Source, 60))
	}
}

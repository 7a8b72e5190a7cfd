package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/tokenfile"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the delegated user token used for sharing links",
		Long: `The sharing API can act on behalf of a user instead of the application.
A token obtained elsewhere (for example from a chat platform sign-in) is
saved with "token save" and sent with every sharing-link request until it
expires. This tool never refreshes user tokens.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
	}

	cmd.AddCommand(newTokenSaveCmd())
	cmd.AddCommand(newTokenStatusCmd())
	cmd.AddCommand(newTokenClearCmd())

	return cmd
}

// tokenPath is --user-token-file or the default location.
func tokenPath(cc *CLIContext) (string, error) {
	if cc.Flags.UserTokenFile != "" {
		return cc.Flags.UserTokenFile, nil
	}

	p := config.DefaultTokenPath()
	if p == "" {
		return "", fmt.Errorf("cannot determine data directory; pass --user-token-file")
	}

	return p, nil
}

func newTokenSaveCmd() *cobra.Command {
	var (
		expiresIn time.Duration
		account   string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save an access token read from stdin",
		Long: `Read an access token from stdin and save it with owner-only permissions.

Example:
  printf '%s' "$TOKEN" | planset-go token save --expires-in 1h --account user@example.com`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTokenSave(mustCLIContext(cmd.Context()), cmd.InOrStdin(), expiresIn, account)
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime from now (0 = no expiry recorded)")
	cmd.Flags().StringVar(&account, "account", "", "account the token belongs to (informational)")

	return cmd
}

func runTokenSave(cc *CLIContext, in io.Reader, expiresIn time.Duration, account string) error {
	path, err := tokenPath(cc)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading token: %w", err)
	}

	access := strings.TrimSpace(line)
	if access == "" {
		return fmt.Errorf("no token on stdin")
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if expiresIn > 0 {
		tok.Expiry = time.Now().Add(expiresIn)
	}

	if err := tokenfile.Save(path, tok, account); err != nil {
		return err
	}

	cc.Logger.Info("user token saved", "path", path)
	cc.Statusf("Token saved to %s\n", path)

	return nil
}

// tokenStatusOutput is the JSON schema for `token status --json`.
type tokenStatusOutput struct {
	Path    string    `json:"path"`
	Present bool      `json:"present"`
	Expired bool      `json:"expired"`
	Expiry  time.Time `json:"expiry,omitzero"`
}

func newTokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show whether a usable user token is saved",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTokenStatus(mustCLIContext(cmd.Context()))
		},
	}
}

func runTokenStatus(cc *CLIContext) error {
	path, err := tokenPath(cc)
	if err != nil {
		return err
	}

	tok, err := tokenfile.Load(path)
	if err != nil {
		return err
	}

	out := tokenStatusOutput{Path: path, Present: tok != nil}
	if tok != nil {
		out.Expiry = tok.Expiry
		out.Expired = !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	switch {
	case !out.Present:
		fmt.Fprintf(cc.Stdout, "No user token at %s; sharing links use the application identity.\n", path)
	case out.Expired:
		fmt.Fprintf(cc.Stdout, "User token at %s expired %s.\n", path, formatTime(out.Expiry))
	case out.Expiry.IsZero():
		fmt.Fprintf(cc.Stdout, "User token at %s (no expiry recorded).\n", path)
	default:
		fmt.Fprintf(cc.Stdout, "User token at %s valid until %s.\n", path, formatTime(out.Expiry))
	}

	return nil
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "clear",
		Short:       "Remove the saved user token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTokenClear(mustCLIContext(cmd.Context()))
		},
	}
}

func runTokenClear(cc *CLIContext) error {
	path, err := tokenPath(cc)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cc.Statusf("No saved token.\n")
			return nil
		}

		return fmt.Errorf("removing token: %w", err)
	}

	cc.Logger.Info("user token removed", "path", path)
	cc.Statusf("Token removed.\n")

	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that load (or do not need)
// configuration themselves.
const skipConfigAnnotation = "skipConfig"

// CLIFlags holds the global persistent flags.
type CLIFlags struct {
	ConfigPath    string
	UserTokenFile string
	JSON          bool
	Verbose       bool
	Quiet         bool
}

// CLIContext is built once per invocation by the root pre-run and carried
// on the command context.
type CLIContext struct {
	Flags   CLIFlags
	Env     config.EnvOverrides
	Cfg     *config.Config // nil for commands that skip config loading
	CfgPath string
	Logger  *slog.Logger
	Stdout  io.Writer
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by the root pre-run.
// Panics when called outside a command, which is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("cli context not initialized")
	}

	return cc
}

// newRootCmd builds the fully-assembled root command.
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:   "planset-go",
		Short: "Planset PDF review from uploads, chat attachments, and sharing links",
		Long: "Fetches planset PDFs from uploads, chat attachments, and OneDrive/SharePoint\n" +
			"sharing links, validates them, and produces a review report.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc := &CLIContext{
				Flags:  flags,
				Env:    config.ReadEnvOverrides(),
				Stdout: cmd.OutOrStdout(),
			}

			if cmd.Annotations[skipConfigAnnotation] != "true" {
				if err := loadConfig(cmd, cc); err != nil {
					return err
				}
			}

			cc.Logger = buildLogger(cc.Cfg, cc.Flags, os.Stderr)
			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.UserTokenFile, "user-token-file", "",
		"delegated user token for the sharing API (default: <data dir>/user-token.json when present)")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newReviewCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTokenCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain.
func loadConfig(cmd *cobra.Command, cc *CLIContext) error {
	cli := config.CLIOverrides{ConfigPath: cc.Flags.ConfigPath}

	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		v := f.Value.String()
		cli.Listen = &v
	}

	cfg, path, err := config.Resolve(cc.Env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = cfg
	cc.CfgPath = path

	return nil
}

// buildLogger creates an slog.Logger from the config log level and format.
// --verbose and --quiet override the config level. Format "auto" picks
// text for a terminal and JSON otherwise.
func buildLogger(cfg *config.Config, flags CLIFlags, w *os.File) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.Logging.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/intake"
	"github.com/tonimelisma/planset-go/internal/report"
)

func newReviewCmd() *cobra.Command {
	var chunk bool

	cmd := &cobra.Command{
		Use:   "review <sharing-url|path>",
		Short: "Fetch, validate, and review a planset PDF",
		Long: `Fetch a planset from a OneDrive/SharePoint sharing link or a local file,
validate it, and print the review report.

Examples:
  planset-go review ./plans.pdf
  planset-go review 'https://contoso.sharepoint.com/:b:/s/eng/EaBc?e=xyz'
  planset-go review --chunk ./plans.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, args[0], chunk)
		},
	}

	cmd.Flags().BoolVar(&chunk, "chunk", false, "print the report as chat-sized parts")

	return cmd
}

func runReview(cmd *cobra.Command, arg string, chunk bool) error {
	cc := mustCLIContext(cmd.Context())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctx = shutdownContext(ctx, cc.Logger)

	token, err := userToken(cc)
	if err != nil {
		return err
	}

	src, cleanup, err := sourceFromArg(arg, token)
	if err != nil {
		return err
	}
	defer cleanup()

	hist, err := openHistory(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	if hist != nil {
		defer hist.Close()
	}

	svc, err := newService(ctx, cc.Cfg, cc.Logger, hist)
	if err != nil {
		return err
	}

	res, err := svc.Review(ctx, intake.Request{
		Source:   src,
		Progress: func(msg string) { cc.Statusf("%s\n", msg) },
	})
	if err != nil {
		cc.Statusf("%s\n", intake.UserMessage(err, svc.Limits()))
		return fmt.Errorf("review failed: %w", err)
	}

	cc.Statusf("Reviewed %s (%s, %d pages)\n", res.FileName, formatSize(res.SizeBytes), res.PageCount)

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}

	if chunk {
		fmt.Fprintln(cc.Stdout, strings.Join(report.Chunks(res.Report, cc.Cfg.Limits.MessageCeiling), "\n\n"))
		return nil
	}

	fmt.Fprintln(cc.Stdout, res.Report)

	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/history"
)

const defaultHistoryRows = 20

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(mustCLIContext(cmd.Context()), cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryRows, "number of reviews to show")

	return cmd
}

func runHistory(cc *CLIContext, cmd *cobra.Command, limit int) error {
	if cc.Cfg.Server.HistoryPath() == "" {
		return fmt.Errorf("review history is disabled (server.history_db = %q)", cc.Cfg.Server.HistoryDB)
	}

	store, err := openHistory(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		if recs == nil {
			recs = []history.Record{}
		}

		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		cc.Statusf("No reviews recorded.\n")
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for i := range recs {
		r := &recs[i]

		pages := "-"
		if r.PageCount > 0 {
			pages = strconv.Itoa(r.PageCount)
		}

		rows = append(rows, []string{
			formatTime(r.CreatedAt),
			r.Channel,
			r.Outcome,
			pages,
			formatSize(r.SizeBytes),
			formatDuration(r.Duration),
			truncate(r.Source, 60),
		})
	}

	printTable(cc.Stdout, []string{"WHEN", "CHANNEL", "OUTCOME", "PAGES", "SIZE", "TOOK", "SOURCE"}, rows)

	return nil
}

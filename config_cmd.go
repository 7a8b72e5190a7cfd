package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigCheckCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(mustCLIContext(cmd.Context()))
		},
	}
}

func runConfigShow(cc *CLIContext) error {
	if cc.Cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if cc.Flags.JSON {
		redacted := *cc.Cfg
		redacted.Graph.ClientSecret = maskSecret(redacted.Graph.ClientSecret)
		redacted.Storage.SecretAccessKey = maskSecret(redacted.Storage.SecretAccessKey)

		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(&redacted)
	}

	return config.RenderEffective(cc.Cfg, cc.CfgPath, cc.Stdout)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}

	return "(set)"
}

// configCheckOutput is the JSON schema for `config check --json`.
type configCheckOutput struct {
	Path               string   `json:"path"`
	Valid              bool     `json:"valid"`
	Error              string   `json:"error,omitempty"`
	SharingAPI         bool     `json:"sharing_api"`
	MissingCredentials []string `json:"missing_credentials,omitempty"`
	StorageEnabled     bool     `json:"storage_enabled"`
	HistoryPath        string   `json:"history_path"`
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report missing credentials",
		Long: `Load the configuration through every override layer, report validation
errors, and show which sharing-link strategy is active. Exits non-zero
when the configuration is invalid.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigCheck(mustCLIContext(cmd.Context()))
		},
	}
}

func runConfigCheck(cc *CLIContext) error {
	cfg, path, err := config.Resolve(cc.Env, config.CLIOverrides{ConfigPath: cc.Flags.ConfigPath})

	if cc.Flags.JSON {
		out := configCheckOutput{Path: path, Valid: err == nil}

		if err != nil {
			out.Error = err.Error()
		} else {
			out.MissingCredentials = config.MissingCredentials(cfg)
			out.SharingAPI = len(out.MissingCredentials) == 0
			out.StorageEnabled = cfg.Storage.Enabled()
			out.HistoryPath = cfg.Server.HistoryPath()
		}

		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		if encErr := enc.Encode(out); encErr != nil {
			return fmt.Errorf("encoding JSON output: %w", encErr)
		}

		return err
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(cc.Stdout, "config: %s (valid)\n", path)

	if err := config.RenderStatus(cfg, cc.Stdout); err != nil {
		return err
	}

	if cfg.Storage.Enabled() {
		fmt.Fprintf(cc.Stdout, "upload archive: s3://%s/%s\n", cfg.Storage.Bucket, cfg.Storage.Prefix)
	} else {
		fmt.Fprintln(cc.Stdout, "upload archive: disabled")
	}

	if p := cfg.Server.HistoryPath(); p != "" {
		fmt.Fprintf(cc.Stdout, "review history: %s\n", p)
	} else {
		fmt.Fprintln(cc.Stdout, "review history: disabled")
	}

	return nil
}

package config

import (
	"fmt"
	"io"
)

// redacted replaces secrets in rendered output.
const redacted = "(set)"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. Secrets are shown only as set or unset.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	ew.printf("[limits]\n")
	ew.printf("  attachment_ceiling = %q  # %d bytes\n", cfg.Limits.AttachmentCeiling, cfg.Limits.AttachmentBytes())
	ew.printf("  link_ceiling       = %q  # %d bytes\n", cfg.Limits.LinkCeiling, cfg.Limits.LinkBytes())
	ew.printf("  message_ceiling    = %d\n\n", cfg.Limits.MessageCeiling)

	ew.printf("[graph]\n")
	ew.printf("  tenant_id     = %q\n", cfg.Graph.TenantID)
	ew.printf("  client_id     = %q\n", cfg.Graph.ClientID)
	ew.printf("  client_secret = %q\n", secret(cfg.Graph.ClientSecret))
	ew.printf("  base_url      = %q\n\n", cfg.Graph.BaseURL)

	ew.printf("[network]\n")
	ew.printf("  metadata_timeout = %q\n", cfg.Network.MetadataTimeout)
	ew.printf("  download_timeout = %q\n", cfg.Network.DownloadTimeout)

	ew.printf("  bandwidth_limit  = %q\n", cfg.Network.BandwidthLimit)

	if cfg.Network.UserAgent != "" {
		ew.printf("  user_agent       = %q\n", cfg.Network.UserAgent)
	}

	ew.printf("\n[storage]\n")

	if cfg.Storage.Enabled() {
		ew.printf("  bucket   = %q\n", cfg.Storage.Bucket)
		ew.printf("  region   = %q\n", cfg.Storage.Region)
		ew.printf("  endpoint = %q\n", cfg.Storage.Endpoint)
		ew.printf("  prefix   = %q\n", cfg.Storage.Prefix)
		ew.printf("  access_key_id     = %q\n", cfg.Storage.AccessKeyID)
		ew.printf("  secret_access_key = %q\n", secret(cfg.Storage.SecretAccessKey))
	} else {
		ew.printf("  # disabled (no bucket)\n")
	}

	ew.printf("\n[server]\n")
	ew.printf("  listen     = %q\n", cfg.Server.Listen)
	ew.printf("  history_db = %q\n\n", cfg.Server.HistoryPath())

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", cfg.Logging.LogLevel)
	ew.printf("  log_format = %q\n", cfg.Logging.LogFormat)

	return ew.err
}

// RenderStatus writes which share-link strategy is active and which
// credentials are missing.
func RenderStatus(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	missing := MissingCredentials(cfg)
	if len(missing) == 0 {
		ew.printf("share links: sharing API (tenant %s)\n", cfg.Graph.TenantID)
		return ew.err
	}

	ew.printf("share links: direct download rewrite\n")
	ew.printf("missing for sharing API:\n")

	for _, name := range missing {
		ew.printf("  - %s\n", name)
	}

	return ew.err
}

func secret(s string) string {
	if s == "" {
		return ""
	}

	return redacted
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

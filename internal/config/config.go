// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for planset-go. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Limits  LimitsConfig  `toml:"limits"`
	Graph   GraphConfig   `toml:"graph"`
	Network NetworkConfig `toml:"network"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// LimitsConfig holds the size ceilings. Sizes are human-readable strings
// ("25MiB", "500MB") parsed with ParseSize.
type LimitsConfig struct {
	AttachmentCeiling string `toml:"attachment_ceiling"`
	LinkCeiling       string `toml:"link_ceiling"`
	MessageCeiling    int    `toml:"message_ceiling"`
}

// AttachmentBytes returns the attachment ceiling in bytes. Invalid values
// have already been rejected by Validate; they read as zero here.
func (l *LimitsConfig) AttachmentBytes() int64 {
	n, _ := ParseSize(l.AttachmentCeiling)
	return n
}

// LinkBytes returns the share-link ceiling in bytes.
func (l *LimitsConfig) LinkBytes() int64 {
	n, _ := ParseSize(l.LinkCeiling)
	return n
}

// GraphConfig holds the application credentials for the sharing API. All
// three credential fields must be set together or not at all.
type GraphConfig struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
}

// Configured reports whether all application credentials are present.
func (g *GraphConfig) Configured() bool {
	return g.TenantID != "" && g.ClientID != "" && g.ClientSecret != ""
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	MetadataTimeout string `toml:"metadata_timeout"`
	DownloadTimeout string `toml:"download_timeout"`
	UserAgent       string `toml:"user_agent"`
	BandwidthLimit  string `toml:"bandwidth_limit"`
}

// Timeouts returns the parsed metadata and download timeouts.
func (n *NetworkConfig) Timeouts() (metadata, download time.Duration) {
	metadata, _ = time.ParseDuration(n.MetadataTimeout)
	download, _ = time.ParseDuration(n.DownloadTimeout)

	return metadata, download
}

// BandwidthBytes returns the download rate limit in bytes per second, or 0
// for unlimited.
func (n *NetworkConfig) BandwidthBytes() int64 {
	b, _ := ParseBandwidth(n.BandwidthLimit)
	return b
}

// StorageConfig configures the optional S3-compatible upload sink. An empty
// bucket disables the sink. Without static keys the AWS default credential
// chain is used.
type StorageConfig struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Prefix          string `toml:"prefix"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Enabled reports whether a sink bucket is configured.
func (s *StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Listen    string `toml:"listen"`
	HistoryDB string `toml:"history_db"`
}

// HistoryOff disables the review history store when used as history_db.
const HistoryOff = "off"

// HistoryPath returns the history database path, or "" when disabled.
func (s *ServerConfig) HistoryPath() string {
	switch s.HistoryDB {
	case HistoryOff:
		return ""
	case "":
		return DefaultHistoryPath()
	default:
		return s.HistoryDB
	}
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Listen     *string // --listen flag
	LogLevel   *string // --log-level flag
}

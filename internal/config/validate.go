package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minCeilingBytes    = 1024
	minMessageCeiling  = 1000
	minMetadataTimeout = 1 * time.Second
	minDownloadTimeout = 5 * time.Second
)

// Validate checks all configuration values and returns all errors found,
// joined, so a broken file can be fixed in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateGraph(&cfg.Graph)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// MissingCredentials lists the environment variables that would enable the
// sharing API. An empty result means the sharing API is fully configured;
// a full result means share links use the direct-rewrite fallback.
func MissingCredentials(cfg *Config) []string {
	var missing []string

	if cfg.Graph.TenantID == "" {
		missing = append(missing, EnvTenantID)
	}

	if cfg.Graph.ClientID == "" {
		missing = append(missing, EnvClientID)
	}

	if cfg.Graph.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}

	return missing
}

func validateLimits(l *LimitsConfig) []error {
	var errs []error

	errs = append(errs, validateCeiling("attachment_ceiling", l.AttachmentCeiling)...)
	errs = append(errs, validateCeiling("link_ceiling", l.LinkCeiling)...)

	if l.MessageCeiling < minMessageCeiling {
		errs = append(errs, fmt.Errorf("message_ceiling: must be >= %d, got %d",
			minMessageCeiling, l.MessageCeiling))
	}

	return errs
}

func validateCeiling(field, value string) []error {
	n, err := ParseSize(value)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", field, err)}
	}

	if n < minCeilingBytes {
		return []error{fmt.Errorf("%s: must be at least %d bytes, got %q", field, minCeilingBytes, value)}
	}

	return nil
}

// validateGraph rejects a partial credential set. Either all three are set
// (sharing API) or none are (direct rewrite).
func validateGraph(g *GraphConfig) []error {
	var errs []error

	missing := 0

	for _, v := range []string{g.TenantID, g.ClientID, g.ClientSecret} {
		if v == "" {
			missing++
		}
	}

	if missing != 0 && missing != 3 {
		errs = append(errs, errors.New("graph: tenant_id, client_id and client_secret must be set together"))
	}

	if err := validateAbsoluteURL("base_url", g.BaseURL); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateAbsoluteURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}

	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, value)
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("metadata_timeout", n.MetadataTimeout, minMetadataTimeout)...)
	errs = append(errs, validateDurationMin("download_timeout", n.DownloadTimeout, minDownloadTimeout)...)

	if _, err := ParseBandwidth(n.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	return errs
}

func validateStorage(s *StorageConfig) []error {
	var errs []error

	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		errs = append(errs, errors.New("storage: access_key_id and secret_access_key must be set together"))
	}

	if s.Endpoint == "" {
		return errs
	}

	if err := validateAbsoluteURL("storage.endpoint", s.Endpoint); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateServer(s *ServerConfig) []error {
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return []error{fmt.Errorf("listen: invalid address %q: %w", s.Listen, err)}
	}

	return nil
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	switch l.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for overrides.
const (
	EnvConfig        = "PLANSET_GO_CONFIG"
	EnvTenantID      = "AZURE_TENANT_ID"
	EnvClientID      = "AZURE_CLIENT_ID"
	EnvClientSecret  = "AZURE_CLIENT_SECRET"
	EnvMaxFileSizeMB = "MAX_FILE_SIZE_MB"
	EnvPort          = "PORT"
)

// EnvOverrides holds values derived from environment variables. Empty
// fields were not set.
type EnvOverrides struct {
	ConfigPath    string // PLANSET_GO_CONFIG: override config file path
	TenantID      string // AZURE_TENANT_ID
	ClientID      string // AZURE_CLIENT_ID
	ClientSecret  string // AZURE_CLIENT_SECRET
	MaxFileSizeMB string // MAX_FILE_SIZE_MB: share-link ceiling in MiB
	Port          string // PORT: listen on all interfaces at this port
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify a Config; Resolve applies them.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:    os.Getenv(EnvConfig),
		TenantID:      os.Getenv(EnvTenantID),
		ClientID:      os.Getenv(EnvClientID),
		ClientSecret:  os.Getenv(EnvClientSecret),
		MaxFileSizeMB: os.Getenv(EnvMaxFileSizeMB),
		Port:          os.Getenv(EnvPort),
	}
}

// apply copies the set overrides into cfg.
func (e EnvOverrides) apply(cfg *Config) error {
	if e.TenantID != "" {
		cfg.Graph.TenantID = e.TenantID
	}

	if e.ClientID != "" {
		cfg.Graph.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.Graph.ClientSecret = e.ClientSecret
	}

	if e.MaxFileSizeMB != "" {
		mb, err := strconv.Atoi(e.MaxFileSizeMB)
		if err != nil || mb <= 0 {
			return fmt.Errorf("%s: must be a positive integer, got %q", EnvMaxFileSizeMB, e.MaxFileSizeMB)
		}

		cfg.Limits.LinkCeiling = fmt.Sprintf("%dMiB", mb)
	}

	if e.Port != "" {
		port, err := strconv.Atoi(e.Port)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvPort, e.Port)
		}

		cfg.Server.Listen = fmt.Sprintf("0.0.0.0:%d", port)
	}

	return nil
}

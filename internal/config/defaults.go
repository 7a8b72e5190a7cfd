package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work without any config file.
const (
	defaultAttachmentCeiling = "25MiB"
	defaultLinkCeiling       = "500MiB"
	defaultMessageCeiling    = 25000
	defaultGraphBaseURL      = "https://graph.microsoft.com/v1.0"
	defaultMetadataTimeout   = "30s"
	defaultDownloadTimeout   = "300s"
	defaultStoragePrefix     = "planset-uploads"
	defaultListen            = "127.0.0.1:5000"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			AttachmentCeiling: defaultAttachmentCeiling,
			LinkCeiling:       defaultLinkCeiling,
			MessageCeiling:    defaultMessageCeiling,
		},
		Graph: GraphConfig{
			BaseURL: defaultGraphBaseURL,
		},
		Network: NetworkConfig{
			MetadataTimeout: defaultMetadataTimeout,
			DownloadTimeout: defaultDownloadTimeout,
			BandwidthLimit:  "0",
		},
		Storage: StorageConfig{
			Prefix: defaultStoragePrefix,
		},
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}

// Package config loads crmsync configuration from file and environment.
//
// Settings are read from crmsync.yaml (working directory or
// ~/.config/crmsync) and overridden by CRMSYNC_* environment variables, e.g.
// CRMSYNC_LOCAL_DSN or CRMSYNC_REMOTE_API_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the CLI needs.
type Config struct {
	// LocalDSN is the local store (postgres:// or file: for development).
	LocalDSN string

	// RemoteDSN is the remote store over SQL. Needed for to_remote writes.
	RemoteDSN string

	// RemoteRESTURL, when set, reads remote records over the REST
	// table-select interface instead of SQL.
	RemoteRESTURL string

	// RemoteAPIKey authenticates REST requests.
	RemoteAPIKey string

	// CallTimeout bounds each remote call.
	CallTimeout time.Duration

	// PageSize is the REST page size.
	PageSize int

	// LogFile, when set, mirrors log output into a rotating file.
	LogFile string

	// SchemaOverlay optionally points at a YAML schema overlay.
	SchemaOverlay string
}

// Load reads configuration. path may be empty, in which case the default
// search locations are used and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("call_timeout", "30s")
	v.SetDefault("page_size", 500)

	v.SetEnvPrefix("CRMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("crmsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/crmsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		LocalDSN:      v.GetString("local_dsn"),
		RemoteDSN:     v.GetString("remote_dsn"),
		RemoteRESTURL: v.GetString("remote_rest_url"),
		RemoteAPIKey:  v.GetString("remote_api_key"),
		CallTimeout:   v.GetDuration("call_timeout"),
		PageSize:      v.GetInt("page_size"),
		LogFile:       v.GetString("log_file"),
		SchemaOverlay: v.GetString("schema_overlay"),
	}, nil
}

// Validate checks that the configuration can serve a sync at all.
func (c *Config) Validate() error {
	if c.LocalDSN == "" {
		return fmt.Errorf("local_dsn is required (set it in crmsync.yaml or CRMSYNC_LOCAL_DSN)")
	}
	if c.RemoteDSN == "" && c.RemoteRESTURL == "" {
		return fmt.Errorf("either remote_dsn or remote_rest_url is required")
	}
	if c.RemoteRESTURL != "" && c.RemoteAPIKey == "" {
		return fmt.Errorf("remote_api_key is required when remote_rest_url is set")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/lizz/gcal-mcp/internal/logging"
)

// Configuration keys. Nested YAML maps produce these dotted names.
const (
	KeyClientID        = "google.oauth.client.id"
	KeyClientSecret    = "google.oauth.client.secret"
	KeyApplicationName = "google.application.name"
	KeyCallbackPort    = "auth.callback.port"
	KeyCredentialsFile = "auth.credentials.file"
)

// Environment variables consulted when the file has no usable value.
const (
	EnvClientID        = "GOOGLE_CLIENT_ID"
	EnvClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvApplicationName = "GOOGLE_APPLICATION_NAME"
)

const (
	// DefaultApplicationName is used when no name is configured.
	DefaultApplicationName = "Lizz GCal MCP"

	// DefaultCallbackPort is the loopback port for the authorization redirect.
	DefaultCallbackPort = 8888

	// FileName is the config file looked up next to the executable and in
	// the working directory.
	FileName = "config.yaml"

	// HomeFileName is the per-user fallback under the home directory.
	HomeFileName = ".gcal-mcp-config.yaml"
)

// placeholders are template values shipped in example config files.
var placeholders = map[string]bool{
	"YOUR_CLIENT_ID":     true,
	"YOUR_CLIENT_SECRET": true,
}

// MissingValueError reports a required setting that is absent from both the
// config file and the environment.
type MissingValueError struct {
	Description string
	Key         string
	EnvVar      string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("%s not found. Please set %s in %s or the %s environment variable.",
		e.Description, e.Key, FileName, e.EnvVar)
}

// ErrMissingValue is matched by every *MissingValueError via errors.Is.
var ErrMissingValue = errors.New("missing configuration value")

// Is reports whether target is ErrMissingValue.
func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// Options controls where Load looks for a config file.
type Options struct {
	// File, when set, is the only file considered and must exist.
	File string

	// SearchPaths overrides the default candidate list. Used by tests.
	SearchPaths []string

	Logger *slog.Logger
}

// Config is a read-only view over the merged file and environment settings.
type Config struct {
	v      *viper.Viper
	source string
}

// Load reads the first existing candidate config file. A missing file is
// not an error; all lookups then fall through to the environment.
func Load(opts Options) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault(KeyCallbackPort, DefaultCallbackPort)

	cfg := &Config{v: v}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.File, err)
		}
		cfg.source = opts.File
		return cfg, nil
	}

	candidates := opts.SearchPaths
	if candidates == nil {
		candidates = DefaultSearchPaths()
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Cannot access config file", logging.Path(path), logging.Err(err))
			}
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Failed to load config file", logging.Path(path), logging.Err(err))
			continue
		}
		cfg.source = path
		logger.Debug("Loaded config file", logging.Path(path))
		return cfg, nil
	}

	logger.Debug("No config file found, using environment variables only")
	return cfg, nil
}

// DefaultSearchPaths lists config file candidates in priority order: next to
// the executable, the working directory, then the home directory.
func DefaultSearchPaths() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), FileName))
	}
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(wd, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, HomeFileName))
	}
	return paths
}

// Source returns the path of the loaded config file, or "" if none.
func (c *Config) Source() string {
	return c.source
}

// ClientID returns the OAuth client ID.
func (c *Config) ClientID() (string, error) {
	return c.require(KeyClientID, EnvClientID, "Google Client ID")
}

// ClientSecret returns the OAuth client secret.
func (c *Config) ClientSecret() (string, error) {
	return c.require(KeyClientSecret, EnvClientSecret, "Google Client Secret")
}

// ApplicationName returns the configured application name or the default.
func (c *Config) ApplicationName() string {
	if name := c.lookup(KeyApplicationName, EnvApplicationName); name != "" {
		return name
	}
	return DefaultApplicationName
}

// CallbackPort returns the loopback redirect port.
func (c *Config) CallbackPort() int {
	return c.v.GetInt(KeyCallbackPort)
}

// CredentialsFile returns the configured credential file path, or "" for
// the default location.
func (c *Config) CredentialsFile() string {
	return strings.TrimSpace(c.v.GetString(KeyCredentialsFile))
}

func (c *Config) require(key, env, description string) (string, error) {
	if value := c.lookup(key, env); value != "" {
		return value, nil
	}
	return "", &MissingValueError{Description: description, Key: key, EnvVar: env}
}

// lookup prefers the file value; blank or placeholder values fall through
// to the environment.
func (c *Config) lookup(key, env string) string {
	if value := strings.TrimSpace(c.v.GetString(key)); value != "" && !placeholders[value] {
		return value
	}
	return strings.TrimSpace(os.Getenv(env))
}

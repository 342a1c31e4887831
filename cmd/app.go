package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lizz/gcal-mcp/internal/config"
	"github.com/lizz/gcal-mcp/internal/google"
	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/logging"
)

// Environment variables read when the matching flag was not set.
const (
	envLogLevel     = "LOG_LEVEL"
	envLogFormat    = "LOG_FORMAT"
	envCallbackPort = "GCAL_MCP_CALLBACK_PORT"
	envCredentials  = "GCAL_MCP_CREDENTIALS_FILE"
)

// globalOptions are the settings shared by every command.
type globalOptions struct {
	ConfigFile      string
	CredentialsFile string
	CallbackPort    int
	Debug           bool
}

var globalOpts globalOptions

func addGlobalFlags(cmd *cobra.Command, opts *globalOptions) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Config file (default: config.yaml next to the binary or in the working directory, then ~/"+config.HomeFileName+")")
	flags.StringVar(&opts.CredentialsFile, "credentials-file", "", "Credential file (default: ~/"+google.CredentialsFileName+"). Can also use "+envCredentials+" env var.")
	flags.IntVar(&opts.CallbackPort, "callback-port", 0, "Loopback port for the OAuth redirect (default: auth.callback.port or 8888). Can also use "+envCallbackPort+" env var.")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
}

// resolveEnv fills unset options from the environment. Flags win over
// environment variables, which win over the config file.
func (o globalOptions) resolveEnv() (globalOptions, error) {
	if o.CredentialsFile == "" {
		o.CredentialsFile = os.Getenv(envCredentials)
	}
	if o.CallbackPort == 0 {
		if s := os.Getenv(envCallbackPort); s != "" {
			port, err := strconv.Atoi(s)
			if err != nil || port < 0 || port > 65535 {
				return o, fmt.Errorf("invalid %s %q", envCallbackPort, s)
			}
			o.CallbackPort = port
		}
	}
	return o, nil
}

// newLogger builds the process logger. Logs always go to stderr since the
// stdio transport owns stdout.
func newLogger(debug bool) *slog.Logger {
	level := logging.ParseLevel(os.Getenv(envLogLevel))
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(os.Stderr, level, os.Getenv(envLogFormat))
}

// app bundles the configuration and credential handling built from the
// global options.
type app struct {
	logger      *slog.Logger
	config      *config.Config
	store       *google.FileCredentialStore
	credentials *google.CredentialManager
}

func newApp(opts globalOptions, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	opts, err := opts.resolveEnv()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{File: opts.ConfigFile, Logger: logger})
	if err != nil {
		return nil, err
	}

	credentialsFile := opts.CredentialsFile
	if credentialsFile == "" {
		credentialsFile = cfg.CredentialsFile()
	}
	store, err := google.NewFileCredentialStore(credentialsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	port := opts.CallbackPort
	if port == 0 {
		port = cfg.CallbackPort()
	}

	oauthConfig := google.NewConfigSource(cfg, google.CalendarScopes)
	manager, err := google.NewCredentialManager(google.ManagerOptions{
		Store:     store,
		Exchanger: &google.RefreshExchanger{Config: oauthConfig},
		Authorizer: &google.LoopbackAuthorizer{
			Config: oauthConfig,
			Port:   port,
			Logger: logger,
		},
		Scopes:  google.CalendarScopes,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	if source := cfg.Source(); source != "" {
		logger.Debug("Using config file", logging.Path(source))
	}
	logger.Debug("Using credential file", logging.Path(store.Path()), slog.Int("callback_port", port))

	return &app{
		logger:      logger,
		config:      cfg,
		store:       store,
		credentials: manager,
	}, nil
}

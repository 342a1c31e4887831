package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizz/gcal-mcp/internal/google"
	"github.com/lizz/gcal-mcp/internal/server"
)

func TestValidateTransport(t *testing.T) {
	tests := []struct {
		transport string
		wantErr   bool
	}{
		{transport: "stdio"},
		{transport: "sse"},
		{transport: "streamable-http"},
		{transport: "http", wantErr: true},
		{transport: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			err := validateTransport(tt.transport)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadMetricsEnvVars(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want MetricsConfig
	}{
		{
			name: "defaults",
			want: MetricsConfig{Enabled: true, Addr: server.DefaultMetricsAddr},
		},
		{
			name: "env overrides defaults",
			env:  map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": "127.0.0.1:9191"},
			want: MetricsConfig{Enabled: false, Addr: "127.0.0.1:9191"},
		},
		{
			name: "flags win over env",
			args: []string{"--metrics-enabled=true", "--metrics-addr=localhost:9292"},
			env:  map[string]string{"METRICS_ENABLED": "false", "METRICS_ADDR": "127.0.0.1:9191"},
			want: MetricsConfig{Enabled: true, Addr: "localhost:9292"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("METRICS_ENABLED", "")
			t.Setenv("METRICS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cmd := newServeCmd()
			require.NoError(t, cmd.Flags().Parse(tt.args))

			var cfg MetricsConfig
			cfg.Enabled, _ = cmd.Flags().GetBool("metrics-enabled")
			cfg.Addr, _ = cmd.Flags().GetString("metrics-addr")
			loadMetricsEnvVars(cmd, &cfg)

			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestGlobalOptionsResolveEnv(t *testing.T) {
	t.Run("env fills unset options", func(t *testing.T) {
		t.Setenv(envCallbackPort, "9999")
		t.Setenv(envCredentials, "/tmp/creds")

		got, err := globalOptions{}.resolveEnv()
		require.NoError(t, err)
		assert.Equal(t, 9999, got.CallbackPort)
		assert.Equal(t, "/tmp/creds", got.CredentialsFile)
	})

	t.Run("flags win", func(t *testing.T) {
		t.Setenv(envCallbackPort, "9999")
		t.Setenv(envCredentials, "/tmp/creds")

		got, err := globalOptions{CallbackPort: 1234, CredentialsFile: "/etc/creds"}.resolveEnv()
		require.NoError(t, err)
		assert.Equal(t, 1234, got.CallbackPort)
		assert.Equal(t, "/etc/creds", got.CredentialsFile)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv(envCallbackPort, "http")
		_, err := globalOptions{}.resolveEnv()
		assert.Error(t, err)
	})
}

// newTestApp builds an app from a temporary config file.
func newTestApp(t *testing.T, credentialsFile string) *app {
	t.Helper()
	t.Setenv(envCallbackPort, "")
	t.Setenv(envCredentials, "")

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`google:
  oauth:
    client:
      id: test-client
      secret: test-secret
auth:
  callback:
    port: 18888
`), 0o600))

	a, err := newApp(globalOptions{ConfigFile: configFile, CredentialsFile: credentialsFile}, newLogger(false), nil)
	require.NoError(t, err)
	return a
}

func TestNewApp(t *testing.T) {
	credentialsFile := filepath.Join(t.TempDir(), "creds.properties")
	a := newTestApp(t, credentialsFile)

	assert.Equal(t, credentialsFile, a.store.Path())
	assert.Equal(t, google.ScopeHash(google.CalendarScopes), a.credentials.ScopeHash())
	assert.Equal(t, 18888, a.config.CallbackPort())
	assert.Nil(t, a.credentials.Cached())
}

func TestNewApp_MissingConfigFile(t *testing.T) {
	_, err := newApp(globalOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}, newLogger(false), nil)
	assert.Error(t, err)
}

func TestAuthStatusAndLogout(t *testing.T) {
	credentialsFile := filepath.Join(t.TempDir(), "creds.properties")
	a := newTestApp(t, credentialsFile)

	var out bytes.Buffer
	require.NoError(t, runAuthStatus(&out, a))
	assert.Contains(t, out.String(), "No stored credentials")

	require.NoError(t, a.store.Save(context.Background(), google.StoredCredential{
		RefreshToken: "1//refresh",
		ScopeHash:    "stale",
	}))
	out.Reset()
	require.NoError(t, runAuthStatus(&out, a))
	assert.Contains(t, out.String(), "different scopes")

	require.NoError(t, a.store.Save(context.Background(), google.StoredCredential{
		RefreshToken: "1//refresh",
		ScopeHash:    a.credentials.ScopeHash(),
	}))
	out.Reset()
	require.NoError(t, runAuthStatus(&out, a))
	assert.Contains(t, out.String(), "match the current scopes")

	out.Reset()
	require.NoError(t, runAuthLogout(&out, a))
	assert.Contains(t, out.String(), "Removed stored credentials")
	_, err := os.Stat(credentialsFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRegisterAllTools(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), server.Options{Calendar: docsCalendar{}})
	require.NoError(t, err)
	defer sc.Shutdown()

	mcpSrv := mcpserver.NewMCPServer(serverName, "test",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	require.NoError(t, registerAllTools(mcpSrv, sc))

	names := make([]string, 0)
	for name := range mcpSrv.ListTools() {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"get_todays_events", "create_event", "ping", "google_auth_status", "google_authorize"}, names)
}

func TestRenderToolDocs(t *testing.T) {
	markdown, err := renderToolDocs()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(markdown, "# MCP Tools Reference"))
	assert.Contains(t, markdown, "## Google Calendar Tools")
	assert.Contains(t, markdown, "### create_event")
	assert.Contains(t, markdown, "- `title` (string, required): The title/summary of the event (required)")
	assert.Contains(t, markdown, "- `duration_minutes` (number, optional)")
	assert.Contains(t, markdown, "## Diagnostics")
}

func TestGetCategoryFromToolName(t *testing.T) {
	assert.Equal(t, "Diagnostics", getCategoryFromToolName("ping"))
	assert.Equal(t, "Google Authorization Tools", getCategoryFromToolName("google_authorize"))
	assert.Equal(t, "Google Calendar Tools", getCategoryFromToolName("create_event"))
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Equal(t, "gcal-mcp version "+version+"\n", out.String())
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "auth", "config", "generate-docs", "version"})

	auth, _, err := rootCmd.Find([]string{"auth", "status"})
	require.NoError(t, err)
	assert.Equal(t, "status", auth.Name())
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("credentials-file"))
}

package adapter

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/importwatch/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  endpoint: https://backend.example.com/
  api_key: secret
project:
  id: p1
console:
  database: db1
  collection: users
watch:
  poll_interval: 45s
ui:
  collapsed: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example.com", cfg.Server.Endpoint)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "p1", cfg.Project.ID)
	assert.Equal(t, 45*time.Second, cfg.Watch.PollInterval)
	assert.True(t, cfg.UI.Collapsed)
	assert.Equal(t, "users", cfg.Console.Collection)
	assert.Equal(t, "https://backend.example.com/console", cfg.ConsoleURL())

	// untouched keys keep their defaults
	assert.Equal(t, 20*time.Second, cfg.Watch.PingInterval)
	assert.Equal(t, 2, cfg.Server.MaxRetries)
	assert.True(t, cfg.IsConfigured())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "project:\n  id: from-file\n")
	t.Setenv("IMPORTWATCH_PROJECT_ID", "from-env")
	t.Setenv("IMPORTWATCH_SERVER_ENDPOINT", "http://localhost:8080")
	t.Setenv("IMPORTWATCH_WATCH_POLL_INTERVAL", "0s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Project.ID)
	assert.Equal(t, "http://localhost:8080", cfg.Server.Endpoint)
	assert.Equal(t, time.Duration(0), cfg.Watch.PollInterval)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Endpoint = "https://backend.example.com"
	cfg.Project.ID = "p1"
	cfg.Console.Collection = "orders"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Project, loaded.Project)
	assert.Equal(t, cfg.Console, loaded.Console)
	assert.Nil(t, loaded.Console.BrowserArgs)
	assert.Equal(t, cfg.Watch, loaded.Watch)
}

func TestSaveConfig_RoundTripBrowserArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Endpoint = "https://backend.example.com"
	cfg.Project.ID = "p1"
	cfg.Console.Browser = "firefox"
	cfg.Console.BrowserArgs = []string{"--new-tab"}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Console, loaded.Console)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no endpoint", func(c *Config) { c.Server.Endpoint = "" }, false},
		{"bad scheme", func(c *Config) { c.Server.Endpoint = "ftp://x" }, false},
		{"no project", func(c *Config) { c.Project.ID = "" }, false},
		{"negative poll", func(c *Config) { c.Watch.PollInterval = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server.Endpoint = "https://backend.example.com"
			cfg.Project.ID = "p1"
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("chatty"))
}

func TestSetupLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "importwatch.log")
	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "id", "m1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"shown"`)
	assert.Contains(t, string(data), `"id":"m1"`)
}

func TestSetupConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupConsoleLogger(&buf, "info")
	logger.Debug("hidden")
	logger.Info("import finished", "id", "m1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "import finished")
	assert.Contains(t, buf.String(), "m1")
}

type recordedCommand struct {
	name string
	args []string
}

func fakeStart(fail map[string]bool, calls *[]recordedCommand) func(string, ...string) error {
	return func(name string, args ...string) error {
		*calls = append(*calls, recordedCommand{name, args})
		if fail[name] {
			return errors.New("not found")
		}
		return nil
	}
}

func TestLauncher_ConfiguredBrowser(t *testing.T) {
	var calls []recordedCommand
	l := NewLauncher("firefox", []string{"--new-tab"}, NullLogger())
	l.start = fakeStart(nil, &calls)

	require.NoError(t, l.Open("https://console.example.com/x"))
	require.Len(t, calls, 1)
	assert.Equal(t, recordedCommand{"firefox", []string{"--new-tab", "https://console.example.com/x"}}, calls[0])
}

func TestLauncher_FallsBackToSystemDefault(t *testing.T) {
	var calls []recordedCommand
	l := NewLauncher("firefox", nil, NullLogger())
	l.start = fakeStart(map[string]bool{"firefox": true}, &calls)

	require.NoError(t, l.Open("https://console.example.com/x"))
	require.Len(t, calls, 2)

	name, args := defaultOpener("linux", "u")
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"u"}, args)

	assert.Error(t, l.Open(""))
}

func TestDefaultOpener(t *testing.T) {
	name, args := defaultOpener("darwin", "u")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"u"}, args)

	name, args = defaultOpener("windows", "u")
	assert.Equal(t, "cmd", name)
	assert.Equal(t, []string{"/c", "start", "", "u"}, args)
}

type recordingOpener struct {
	opened []string
	err    error
}

func (o *recordingOpener) Open(url string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, url)
	return nil
}

func TestBrowserRouter(t *testing.T) {
	opener := &recordingOpener{}
	start := domain.ResourceRef{DatabaseID: "db1", CollectionID: "users"}
	r := NewBrowserRouter("https://backend.example.com/console/", "p1", start, opener, NullLogger())

	assert.Equal(t, start, r.CurrentCollection())

	orders := domain.ResourceRef{DatabaseID: "db1", CollectionID: "orders"}
	url := r.CollectionURL(orders)
	assert.Equal(t, "https://backend.example.com/console/project-p1/databases/database-db1/collection-orders", url)

	require.NoError(t, r.NavigateTo(url))
	assert.Equal(t, []string{url}, opener.opened)
	assert.Equal(t, orders, r.CurrentCollection())

	opener.err = errors.New("no browser")
	assert.Error(t, r.NavigateTo(r.CollectionURL(start)))
	assert.Equal(t, orders, r.CurrentCollection(), "failed navigation keeps the view")
}

func TestParseCollectionURL(t *testing.T) {
	ref, ok := ParseCollectionURL("https://x/console/project-p1/databases/database-db1/collection-c1")
	require.True(t, ok)
	assert.Equal(t, domain.ResourceRef{DatabaseID: "db1", CollectionID: "c1"}, ref)

	_, ok = ParseCollectionURL("https://x/console/project-p1/databases/database-db1")
	assert.False(t, ok)
}

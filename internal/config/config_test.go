package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymon/relaymon/internal/errors"
	"github.com/relaymon/relaymon/internal/tracker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Empty(t, cfg.Daemon.Name)
	assert.Zero(t, cfg.Daemon.PID)

	policy := tracker.DefaultConfig()
	assert.Equal(t, policy.MinInterval, cfg.Tracker.MinInterval)
	assert.Equal(t, policy.MaxInterval, cfg.Tracker.MaxInterval)
	assert.Equal(t, policy.RetryLimit, cfg.Tracker.RetryLimit)
	assert.Equal(t, policy.SampleWindow, cfg.Tracker.SampleWindow)
	assert.Equal(t, policy.ConnectionCache, cfg.Tracker.ConnectionCache)
	assert.Equal(t, policy.QueryTimeout, cfg.Tracker.QueryTimeout)
	assert.Equal(t, policy.DegradedRetest, cfg.Tracker.DegradedRetest)

	assert.Empty(t, cfg.Remote.Host)
	assert.True(t, cfg.Remote.StrictHostKey)
	assert.Equal(t, time.Second, cfg.UI.Refresh)
	assert.Equal(t, "auto", cfg.UI.Color)
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
daemon:
  name: relayd
  pid_file: ~/run/relayd.pid
tracker:
  resolvers: [proc, lsof]
  min_interval: 250ms
  max_interval: 10s
  retry_limit: 5
  sample_window: 5m
remote:
  host: relay-box
  user: monitor
  strict_host_key: false
ui:
  refresh: 2s
  color: never
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "relayd", cfg.Daemon.Name)
	assert.Equal(t, filepath.Join(home, "run", "relayd.pid"), cfg.Daemon.PIDFile)

	assert.Equal(t, []string{"proc", "lsof"}, cfg.Tracker.Resolvers)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracker.MinInterval)
	assert.Equal(t, 10*time.Second, cfg.Tracker.MaxInterval)
	assert.Equal(t, 5, cfg.Tracker.RetryLimit)
	assert.Equal(t, 5*time.Minute, cfg.Tracker.SampleWindow)

	// Omitted keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Tracker.ConnectionCache)
	assert.Equal(t, 5*time.Second, cfg.Tracker.QueryTimeout)

	assert.Equal(t, "relay-box", cfg.Remote.Host)
	assert.Equal(t, "monitor", cfg.Remote.User)
	assert.False(t, cfg.Remote.StrictHostKey)

	assert.Equal(t, 2*time.Second, cfg.UI.Refresh)
	assert.Equal(t, "never", cfg.UI.Color)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("daemon:\n  name: relayd\n"), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "relayd", cfg.Daemon.Name)
	assert.Equal(t, time.Second, cfg.Tracker.MinInterval)
	assert.True(t, cfg.Remote.StrictHostKey)
	assert.Equal(t, "auto", cfg.UI.Color)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("daemon: [unclosed\n"), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFindExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	found, err := Find(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)

	_, err = Find(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestFindCurrentDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))
	t.Chdir(dir)

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindWalksUpToParent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	configPath := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindGlobalFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	globalDir := filepath.Join(home, GlobalConfigDir)
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	globalPath := filepath.Join(globalDir, GlobalConfigFile)
	require.NoError(t, os.WriteFile(globalPath, []byte("version: 1\n"), 0o644))

	t.Chdir(t.TempDir())

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, globalPath, found)
}

func TestFindNothing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	found, err := Find("")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLoadOrDefaultWithoutConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefaultExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ndaemon:\n  name: relayd\n"), 0o644))

	cfg, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "relayd", cfg.Daemon.Name)
}

func TestPolicyMapsFields(t *testing.T) {
	tc := TrackerConfig{
		Resolvers:       []string{"native", "ps"},
		MinInterval:     500 * time.Millisecond,
		MaxInterval:     20 * time.Second,
		RetryLimit:      4,
		SampleWindow:    2 * time.Minute,
		ConnectionCache: 3 * time.Second,
		QueryTimeout:    time.Second,
		DegradedRetest:  15 * time.Second,
	}

	policy := tc.Policy()
	assert.Equal(t, []string{"native", "ps"}, policy.ResolverOrder)
	assert.Equal(t, 500*time.Millisecond, policy.MinInterval)
	assert.Equal(t, 20*time.Second, policy.MaxInterval)
	assert.Equal(t, 4, policy.RetryLimit)
	assert.Equal(t, 2*time.Minute, policy.SampleWindow)
	assert.Equal(t, 3*time.Second, policy.ConnectionCache)
	assert.Equal(t, time.Second, policy.QueryTimeout)
	assert.Equal(t, 15*time.Second, policy.DegradedRetest)
}

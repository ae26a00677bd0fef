package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mirrorbox/mirrorbox/internal/client/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetConfigState clears flag and viper state shared between runs so each
// test sees a fresh first-run environment.
func resetConfigState(t *testing.T) {
	t.Helper()
	viper.Reset()
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"source", "backup", "logdir", "interval", "verbose", "config"} {
		f := flags.Lookup(name)
		require.NotNil(t, f)
		require.NoError(t, flags.Set(name, f.DefValue))
		f.Changed = false
	}
	configFilePath = ""
	configFileUsed = false
}

func TestBuildConfig_FirstRunSavesConfig(t *testing.T) {
	resetConfigState(t)

	oldDefault := config.DefaultConfigPath
	config.DefaultConfigPath = filepath.Join(t.TempDir(), "config.json")
	t.Cleanup(func() { config.DefaultConfigPath = oldDefault })

	source, backup, logDir := t.TempDir(), t.TempDir(), t.TempDir()
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("source", source))
	require.NoError(t, flags.Set("backup", backup))
	require.NoError(t, flags.Set("logdir", logDir))

	require.NoError(t, loadConfig(rootCmd))
	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, source, cfg.SourceDir)
	assert.Equal(t, config.DefaultConfigPath, cfg.Path)

	// the effective config was written so later runs can omit the flags
	saved, err := config.Load(config.DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, source, saved.SourceDir)
	assert.Equal(t, backup, saved.BackupDir)
	assert.Equal(t, logDir, saved.LogDir)
	assert.Equal(t, float64(config.DefaultIntervalMinutes), saved.IntervalMinutes)
}

func TestBuildConfig_LoadsExistingConfigFile(t *testing.T) {
	resetConfigState(t)

	source, backup, logDir := t.TempDir(), t.TempDir(), t.TempDir()
	path := filepath.Join(t.TempDir(), "config.json")
	seed := &config.Config{
		SourceDir:       source,
		BackupDir:       backup,
		LogDir:          logDir,
		IntervalMinutes: 2.5,
		Verbose:         true,
	}
	require.NoError(t, seed.Save(path))

	require.NoError(t, rootCmd.PersistentFlags().Set("config", path))

	require.NoError(t, loadConfig(rootCmd))
	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, source, cfg.SourceDir)
	assert.Equal(t, backup, cfg.BackupDir)
	assert.Equal(t, logDir, cfg.LogDir)
	assert.Equal(t, 2.5, cfg.IntervalMinutes)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, path, cfg.Path)
}

func TestBuildConfig_FlagsBeatConfigFile(t *testing.T) {
	resetConfigState(t)

	path := filepath.Join(t.TempDir(), "config.json")
	seed := &config.Config{
		SourceDir:       t.TempDir(),
		BackupDir:       t.TempDir(),
		LogDir:          t.TempDir(),
		IntervalMinutes: 2,
	}
	require.NoError(t, seed.Save(path))

	flagSource := t.TempDir()
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("config", path))
	require.NoError(t, flags.Set("source", flagSource))
	require.NoError(t, flags.Set("interval", "0.5"))

	require.NoError(t, loadConfig(rootCmd))
	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, flagSource, cfg.SourceDir)
	assert.Equal(t, seed.BackupDir, cfg.BackupDir)
	assert.Equal(t, 0.5, cfg.IntervalMinutes)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	resetConfigState(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	require.NoError(t, rootCmd.PersistentFlags().Set("config", path))

	assert.Error(t, loadConfig(rootCmd))
}

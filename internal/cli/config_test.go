package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_AllFields(t *testing.T) {
	path := writeConfig(t, `
mode: container
signal: sigterm
allow-empty: true
fallback: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "container", cfg.Mode)
	assert.Equal(t, "sigterm", cfg.Signal)
	require.NotNil(t, cfg.AllowEmpty)
	assert.True(t, *cfg.AllowEmpty)
	require.NotNil(t, cfg.Fallback)
	assert.True(t, *cfg.Fallback)
}

// TestLoadConfig_PartialFile verifies that absent keys stay
// distinguishable from explicit false values.
func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeConfig(t, "mode: process\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "process", cfg.Mode)
	assert.Empty(t, cfg.Signal)
	assert.Nil(t, cfg.AllowEmpty, "absent keys must stay nil")
	assert.Nil(t, cfg.Fallback)
}

// TestLoadConfig_MissingExplicitPath verifies that a --config path that
// does not exist is an error, unlike the optional default location.
func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	cliErr, ok := err.(*model.CLIError)
	require.True(t, ok)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "mode: [unclosed\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse config file")
}

// TestApplyConfigDefaults_FlagWins verifies precedence: explicit
// command-line flags beat config values, config fills the rest.
func TestApplyConfigDefaults_FlagWins(t *testing.T) {
	cmd := NewRootCommand()
	require.NoError(t, cmd.Flags().Set("mode", "process"))
	require.NoError(t, cmd.Flags().Set("allow-empty", "false"))

	flags := &rootFlags{mode: "process"}
	allowEmpty := true
	fallback := true
	applyConfigDefaults(cmd, flags, Config{
		Mode:       "container",
		Signal:     "sigterm",
		AllowEmpty: &allowEmpty,
		Fallback:   &fallback,
	})

	assert.Equal(t, "process", flags.mode, "explicit --mode must win over config")
	assert.Equal(t, "sigterm", flags.signal, "unset --signal must take the config value")
	assert.False(t, flags.allowEmpty, "explicit --allow-empty=false must win over config")
	assert.True(t, flags.fallback, "unset --fallback must take the config value")
}

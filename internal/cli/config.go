// Package cli — config.go loads optional user defaults.
//
// portreap reads defaults from ~/.config/portreap/config.yaml (or the
// --config override). The file sets defaults only: any flag given
// explicitly on the command line wins. A missing file is not an error;
// a malformed one is, since silently ignoring it would make the user's
// settings disappear without explanation.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/portreap/internal/model"
)

// Config holds the user's default settings. Pointer fields distinguish
// "not set in the file" from an explicit false/empty value.
type Config struct {
	// Mode is the default --mode value: process, container, or both.
	Mode string `yaml:"mode"`

	// Signal is the default --signal value, by name or number.
	Signal string `yaml:"signal"`

	// AllowEmpty is the default --allow-empty value.
	AllowEmpty *bool `yaml:"allow-empty"`

	// Fallback is the default --fallback value.
	Fallback *bool `yaml:"fallback"`
}

// DefaultConfigPath returns ~/.config/portreap/config.yaml, or an empty
// string when the home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "portreap", "config.yaml")
}

// LoadConfig reads and parses the config file at path, falling back to
// DefaultConfigPath when path is empty. A missing file yields a zero
// Config and no error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
		if path == "" {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Config{}, nil
		}
		return Config{}, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot read config file %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("cannot parse config file %s", path), err)
	}
	return cfg, nil
}

// applyConfigDefaults fills in flags the user did not set explicitly.
// cobra's Changed tracking tells the two cases apart, so an explicit
// --mode both still overrides a config file saying "process".
func applyConfigDefaults(cmd *cobra.Command, flags *rootFlags, cfg Config) {
	if flags.mode == "" && cfg.Mode != "" {
		flags.mode = cfg.Mode
	}
	if flags.signal == "" && cfg.Signal != "" {
		flags.signal = cfg.Signal
	}
	if cfg.AllowEmpty != nil && !cmd.Flags().Changed("allow-empty") {
		flags.allowEmpty = *cfg.AllowEmpty
	}
	if cfg.Fallback != nil && !cmd.Flags().Changed("fallback") {
		flags.fallback = *cfg.Fallback
	}
}

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Defaults holds the environment-derived locations and secrets used before a
// config file is read.
type Defaults struct {
	ConfigPath string `env:"GDSYNC_CONFIG_PATH"`
	BaseDir    string `env:"GDSYNC_HOME"`
	Passphrase string `env:"GDSYNC_PASSPHRASE"`
	LogDir     string `env:"-"`
}

// GetDefaults returns application defaults for config path, base dir and log
// dir. Variables in an optional .env file in the working directory are loaded
// first; they never override variables already set in the environment.
func GetDefaults() (*Defaults, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	d, err := env.ParseAs[Defaults]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if d.ConfigPath == "" || d.BaseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		if d.ConfigPath == "" {
			d.ConfigPath = filepath.Join(homeDir, ".config", "gdsync.toml")
		}
		if d.BaseDir == "" {
			d.BaseDir = filepath.Join(homeDir, ".local", "share", "gdsync")
		}
	}
	d.LogDir = filepath.Join(d.BaseDir, "log")

	return &d, nil
}

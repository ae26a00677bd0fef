// Package config holds the mirrorbox daemon configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mirrorbox/mirrorbox/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".mirrorbox", "config.json")
)

const DefaultIntervalMinutes = 5

type Config struct {
	SourceDir       string  `json:"source_dir"`
	BackupDir       string  `json:"backup_dir"`
	LogDir          string  `json:"log_dir"`
	IntervalMinutes float64 `json:"interval_minutes"`
	Verbose         bool    `json:"verbose"`
	Path            string  `json:"-"`
}

// Interval returns the sleep between equality checks. The configured value is
// in (fractional) minutes.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes * float64(time.Minute))
}

func (c *Config) Validate() error {
	if !utils.DirExists(c.SourceDir) {
		return fmt.Errorf("source %q is not a directory", c.SourceDir)
	}
	if !utils.DirExists(c.BackupDir) {
		return fmt.Errorf("backup %q is not a directory", c.BackupDir)
	}
	if c.LogDir != "" && !utils.DirExists(c.LogDir) {
		return fmt.Errorf("log dir %q is not a directory", c.LogDir)
	}
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.IntervalMinutes)
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{IntervalMinutes: DefaultIntervalMinutes}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	return &cfg, nil
}

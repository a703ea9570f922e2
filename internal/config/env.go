package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by shotdiff.
const EnvPrefix = "SHOTDIFF"

// Env holds the settings that may come from the process environment.
// Unset variables leave the zero value, which Apply ignores.
type Env struct {
	OutputDir   string        `envconfig:"OUTPUT_DIR"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	RunTimeout  time.Duration `envconfig:"RUN_TIMEOUT"`
	ChromePath  string        `envconfig:"CHROME_PATH"`
	RemoteURL   string        `envconfig:"REMOTE_URL"`
	Headless    *bool         `envconfig:"HEADLESS"`
}

// LoadEnv loads the given dotenv files, skipping the ones that do not exist,
// and reads the SHOTDIFF_* variables. Variables already set in the process
// take precedence over dotenv files.
func LoadEnv(dotenvFiles ...string) (Env, error) {
	for _, path := range dotenvFiles {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Env{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("invalid environment: %w", err)
	}
	return env, nil
}

// Apply copies the variables that were set onto c.
func (e Env) Apply(c *Config) {
	if e.OutputDir != "" {
		c.OutputDir = e.OutputDir
	}
	if e.DatabaseURL != "" {
		c.DatabaseURL = e.DatabaseURL
	}
	if e.RunTimeout != 0 {
		c.RunTimeout = e.RunTimeout
	}
	if e.ChromePath != "" {
		c.ChromePath = e.ChromePath
	}
	if e.RemoteURL != "" {
		c.RemoteURL = e.RemoteURL
	}
	if e.Headless != nil {
		c.Headless = *e.Headless
	}
}

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/shotdiff/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "shotdiff"

	// DefaultWidth and DefaultHeight are the canonical frame every capture is
	// normalized to, and the size of the default desktop device.
	DefaultWidth  = 1280
	DefaultHeight = 800

	// DefaultDevice is used when the configuration file defines no devices.
	DefaultDevice = "desktop"

	// DefaultReference and DefaultCandidate are the environment names used
	// when the configuration file does not set them.
	DefaultReference = "prod"
	DefaultCandidate = "staging"

	// DefaultOutputDir is where screenshots and reports are written.
	DefaultOutputDir = "visual_comparison"

	// DefaultSettleTimeout is how long a page may keep loading before it is
	// captured anyway.
	DefaultSettleTimeout = 10 * time.Second

	// DefaultCaptureTimeout bounds navigation and screenshot of one page.
	DefaultCaptureTimeout = 30 * time.Second

	// DefaultRunTimeout bounds the whole run. Pages not reached are reported as not run.
	DefaultRunTimeout = 30 * time.Minute

	// DefaultNavigationInterval spaces navigations to the same browser.
	DefaultNavigationInterval = 250 * time.Millisecond

	// DefaultConcurrency is the number of device sessions run at once.
	DefaultConcurrency = 1

	// DefaultCompositeFactor scales each panel of a side-by-side image.
	DefaultCompositeFactor = 0.5
)

// Config holds every option of a run. It is filled from defaults, the
// configuration file, the environment and CLI flags, in that order.
type Config struct {
	// ConfigFilePath is the configuration file to load. Empty searches the
	// current directory, the home directory and the XDG config directory.
	ConfigFilePath string

	// File is the parsed configuration file.
	File *File

	// Devices selects the devices to run. Empty runs every configured device.
	Devices []string

	OutputDir string

	RunTimeout         time.Duration
	SettleTimeout      time.Duration
	CaptureTimeout     time.Duration
	NavigationInterval time.Duration

	// Concurrency is the number of device sessions run at once.
	// Each session owns one browser.
	Concurrency int

	Verbose bool

	// MarkdownReport and JSONReport write those reports next to the HTML one.
	MarkdownReport bool
	JSONReport     bool

	// Composite writes a side-by-side image per page.
	Composite       bool
	CompositeFactor float64

	// SaveHistory stores each run in the history database.
	SaveHistory bool

	// DBDir is the directory of the SQLite history database.
	DBDir string

	// DatabaseURL selects a PostgreSQL history database instead of SQLite.
	DatabaseURL string

	// ChromePath is the browser binary; empty lets chromedp find one.
	ChromePath string

	// RemoteURL is a DevTools websocket URL of an already running browser.
	RemoteURL string

	Headless bool

	// FailOnDiff makes the run exit non-zero when any page fails or errors.
	FailOnDiff bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:          DefaultOutputDir,
		RunTimeout:         DefaultRunTimeout,
		SettleTimeout:      DefaultSettleTimeout,
		CaptureTimeout:     DefaultCaptureTimeout,
		NavigationInterval: DefaultNavigationInterval,
		Concurrency:        DefaultConcurrency,
		CompositeFactor:    DefaultCompositeFactor,
		SaveHistory:        true,
		DBDir:              XDGDataDir(),
		Headless:           true,
	}
}

// XDGDataDir returns the XDG data directory for shotdiff, which holds the
// history database.
// On Linux: ~/.local/share/shotdiff
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for shotdiff.
// On Linux: ~/.config/shotdiff
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.File == nil || len(c.File.Environments) == 0 {
		return ErrNoConfigFile
	}
	if err := c.File.Validate(); err != nil {
		return err
	}

	for _, name := range c.Devices {
		if _, err := c.File.Device(name); err != nil {
			return err
		}
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.RunTimeout <= 0 || c.SettleTimeout <= 0 || c.CaptureTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SettleTimeout >= c.CaptureTimeout {
		return fmt.Errorf("%w (settle %s, capture %s)", ErrSettleExceedsCapture, c.SettleTimeout, c.CaptureTimeout)
	}
	if c.NavigationInterval < 0 {
		return ErrInvalidNavigationInterval
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

// SelectedDevices returns the devices to run in order: the ones named in
// Devices, or every configured device.
func (c *Config) SelectedDevices() ([]model.Device, error) {
	names := c.Devices
	if len(names) == 0 {
		names = c.File.DeviceNames()
	}
	devices := make([]model.Device, 0, len(names))
	for _, name := range names {
		d, err := c.File.Device(name)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSettleTimeout is how long a navigation may run before the screenshot is taken anyway.
	DefaultSettleTimeout = 10 * time.Second

	// DefaultCaptureTimeout bounds navigation and screenshot together.
	DefaultCaptureTimeout = 30 * time.Second
)

// Browser is the page driver used by Controller. Implementations must
// tolerate Capture being called while an earlier Navigate is still running.
type Browser interface {
	// Navigate loads url and returns once the page has finished loading.
	Navigate(ctx context.Context, url string) error

	// Capture writes a full-page PNG screenshot of the current page to path.
	Capture(ctx context.Context, path string) error
}

// Artifact describes the result of one capture attempt.
type Artifact struct {
	URL  string
	Path string

	// Exists reports whether a file is present at Path after the attempt.
	Exists bool

	// Settled is true when navigation completed without error before the settle timeout.
	Settled bool

	// NavigationErr is the navigation failure, ErrSettleTimeout, or nil.
	NavigationErr error

	// CaptureErr is the screenshot failure or nil.
	CaptureErr error

	Elapsed time.Duration
}

// Notes returns human-readable descriptions of the absorbed failures.
func (a Artifact) Notes() []string {
	var notes []string
	if a.NavigationErr != nil {
		notes = append(notes, fmt.Sprintf("navigation %s: %v", a.URL, a.NavigationErr))
	}
	if a.CaptureErr != nil {
		notes = append(notes, fmt.Sprintf("capture %s: %v", a.URL, a.CaptureErr))
	}
	return notes
}

// Controller captures pages through a Browser with bounded waiting.
type Controller struct {
	browser        Browser
	settleTimeout  time.Duration
	captureTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettleTimeout sets the inner timer that races navigation.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.settleTimeout = d
	}
}

// WithCaptureTimeout sets the outer bound of one capture.
func WithCaptureTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.captureTimeout = d
	}
}

// WithNavigationInterval spaces navigations at least d apart. Zero disables pacing.
func WithNavigationInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController returns a Controller driving browser.
func NewController(browser Browser, opts ...Option) (*Controller, error) {
	c := &Controller{
		browser:        browser,
		settleTimeout:  DefaultSettleTimeout,
		captureTimeout: DefaultCaptureTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settleTimeout <= 0 || c.settleTimeout >= c.captureTimeout {
		return nil, fmt.Errorf("%w: settle %s, capture %s", ErrInvalidTimeouts, c.settleTimeout, c.captureTimeout)
	}
	return c, nil
}

// Capture navigates to url and saves a screenshot to dest, creating parent
// directories as needed. It never returns an error: every failure is
// recorded on the Artifact, and the screenshot is attempted even when
// navigation failed or did not settle in time.
func (c *Controller) Capture(ctx context.Context, url, dest string) Artifact {
	start := time.Now()
	a := Artifact{URL: url, Path: dest}

	ctx, cancel := context.WithTimeout(ctx, c.captureTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		a.CaptureErr = fmt.Errorf("failed to create screenshot directory: %w", err)
		a.Elapsed = time.Since(start)
		return a
	}
	// a screenshot left over from an earlier run must not pass for this one
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.CaptureErr = fmt.Errorf("failed to remove previous screenshot: %w", err)
		a.Elapsed = time.Since(start)
		return a
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			a.NavigationErr = fmt.Errorf("navigation pacing: %w", err)
		}
	}

	if a.NavigationErr == nil {
		a.Settled, a.NavigationErr = c.navigate(ctx, url)
	}
	if a.NavigationErr != nil {
		c.logger.Warn("navigation did not complete, capturing anyway",
			"url", url,
			"error", a.NavigationErr,
		)
	}

	if err := c.browser.Capture(ctx, dest); err != nil {
		a.CaptureErr = err
		c.logger.Warn("screenshot failed", "url", url, "path", dest, "error", err)
	}

	a.Exists = fileExists(dest)
	a.Elapsed = time.Since(start)

	c.logger.Debug("capture finished",
		"url", url,
		"path", dest,
		"settled", a.Settled,
		"exists", a.Exists,
		"elapsed", a.Elapsed,
	)
	return a
}

// navigate races the page load against the settle timer. The losing
// navigation goroutine is left to finish on its own; it exits once ctx ends.
func (c *Controller) navigate(ctx context.Context, url string) (bool, error) {
	done := make(chan error, 1)
	go func() {
		done <- c.browser.Navigate(ctx, url)
	}()

	settle := time.NewTimer(c.settleTimeout)
	defer settle.Stop()

	select {
	case err := <-done:
		if err != nil {
			return false, err
		}
		return true, nil
	case <-settle.C:
		return false, ErrSettleTimeout
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// IsSettleTimeout reports whether err records a navigation that did not settle.
func IsSettleTimeout(err error) bool {
	return errors.Is(err, ErrSettleTimeout)
}

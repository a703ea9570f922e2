package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoConfigFile is returned when no environments were loaded.
	ErrNoConfigFile = errors.New("no configuration: create one with 'shotdiff init' or pass --config")

	// ErrUnknownEnvironment is returned when the reference or candidate
	// environment is not defined in the configuration file.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrSameEnvironment is returned when reference and candidate are the same environment.
	ErrSameEnvironment = errors.New("reference and candidate must be different environments")

	// ErrMissingBaseURL is returned when an environment has no usable base_url.
	ErrMissingBaseURL = errors.New("environment base_url must be an absolute http(s) URL")

	// ErrNoPages is returned when neither environment lists a page.
	ErrNoPages = errors.New("no pages to compare")

	// ErrUnknownDevice is returned when a selected device is not defined.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrInvalidDevice is returned when a device has a non-positive size or scale.
	ErrInvalidDevice = errors.New("invalid device: width and height must be positive")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrSettleExceedsCapture is returned when the settle timeout is not
	// strictly shorter than the capture timeout.
	ErrSettleExceedsCapture = errors.New("invalid timeouts: settle timeout must be shorter than capture timeout")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidNavigationInterval is returned when the navigation interval is negative.
	ErrInvalidNavigationInterval = errors.New("invalid navigation interval: must be non-negative")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("output directory must not be empty")
)

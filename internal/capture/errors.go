package capture

import "errors"

var (
	// ErrSettleTimeout records that the settle timer fired before the page finished loading.
	ErrSettleTimeout = errors.New("page did not settle before the settle timeout")

	// ErrInvalidTimeouts is returned when the settle timeout is not shorter than the capture timeout.
	ErrInvalidTimeouts = errors.New("invalid timeouts: settle timeout must be positive and shorter than capture timeout")

	// ErrNoScreenshot is returned by a browser that produced no image data.
	ErrNoScreenshot = errors.New("browser returned an empty screenshot")
)

package imaging

import "errors"

var (
	// ErrMissingFile is returned when a screenshot file does not exist.
	// Errors wrapping it also wrap fs.ErrNotExist.
	ErrMissingFile = errors.New("screenshot file missing")

	// ErrDecode is returned when a screenshot file exists but is not a decodable image.
	ErrDecode = errors.New("screenshot cannot be decoded")

	// ErrSizeMismatch is returned by Differ.Diff when the two images differ in size.
	// No pixel comparison is performed in that case.
	ErrSizeMismatch = errors.New("image dimensions differ")

	// ErrInvalidFrame is returned when the canonical frame is not positive.
	ErrInvalidFrame = errors.New("invalid canonical frame: width and height must be positive")
)

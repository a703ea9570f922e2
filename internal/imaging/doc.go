// Package imaging normalizes screenshots to a canonical frame and compares
// them pixel by pixel.
//
// Normalization uses a "contain" fit: the screenshot is scaled to fit inside
// the frame with its aspect ratio preserved, centered, and the remaining area
// is left fully transparent. Normalized files are written back in place.
//
// The diff is a single linear pass over two equally sized NRGBA buffers.
// Mismatching pixels are painted into a diff image; matching pixels stay
// transparent. Side-by-side composites are drawn with gg.
package imaging

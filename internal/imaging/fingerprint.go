package imaging

import (
	"encoding/binary"
	"encoding/hex"
	"image"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns the hex SHA3-256 digest of the image size and its
// pixel rows. Two images with the same fingerprint are pixel identical.
func Fingerprint(img *image.NRGBA) string {
	h := sha3.New256()
	size := img.Rect.Size()

	var header [16]byte
	binary.BigEndian.PutUint64(header[:8], uint64(size.X)) //nolint:gosec // sizes are non-negative
	binary.BigEndian.PutUint64(header[8:], uint64(size.Y)) //nolint:gosec // sizes are non-negative
	_, _ = h.Write(header[:])

	rowLen := size.X * 4
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		i := img.PixOffset(img.Rect.Min.X, y)
		_, _ = h.Write(img.Pix[i : i+rowLen])
	}
	return hex.EncodeToString(h.Sum(nil))
}

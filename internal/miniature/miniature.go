// Package miniature implements the fixed-size RGB thumbnail used as the
// comparison key for duplicate detection, and the early-exit pixel-distance
// comparator the rest of the service is built around.
//
// The comparison loop is ported from the teacher repo's scalar
// sum-of-squared-differences kernel (internal/fit/ssd_scalar.go in
// github.com/cwbudde/mayflycirclefit), adapted from 4-byte NRGBA buffers to
// the packed 3-byte RGB layout this service persists, and with the ceiling
// check moved inside the row loop so it can early-exit per row rather than
// only once per whole image.
package miniature

import "github.com/pixeldup/dids/internal/diderr"

// Miniature is a rectangular RGB raster of fixed side length, three bytes
// per pixel (R, G, B), row-major, with row stride = 3*width.
type Miniature struct {
	Width  int
	Height int
	Data   []uint8
}

// New allocates a zero-filled miniature of the given dimensions.
func New(width, height int) (*Miniature, error) {
	if width <= 0 || height <= 0 {
		return nil, diderr.New(diderr.OutOfMemory, "miniature: invalid dimensions %dx%d", width, height)
	}
	size := 3 * width * height
	data := make([]uint8, size)
	if data == nil {
		return nil, diderr.New(diderr.OutOfMemory, "miniature: allocation failed")
	}
	return &Miniature{Width: width, Height: height, Data: data}, nil
}

// inBounds reports whether (x, y) lies within [0,width) x [0,height).
func (m *Miniature) inBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// offset returns the byte offset of pixel (x, y). Caller must check bounds.
func (m *Miniature) offset(x, y int) int {
	return 3*m.Width*y + 3*x
}

// GetPixel returns the RGB channels at (x, y). Coordinates outside the
// miniature are silently ignored and return zero values — this mirrors the
// reference C behavior (PPM_GetPixel), preserved for bit-identical output
// of debugging paths that iterate slightly out-of-range coordinates.
func (m *Miniature) GetPixel(x, y int) (r, g, b uint8) {
	if !m.inBounds(x, y) {
		return 0, 0, 0
	}
	i := m.offset(x, y)
	return m.Data[i], m.Data[i+1], m.Data[i+2]
}

// SetPixel writes the RGB channels at (x, y). Coordinates outside the
// miniature are silently ignored, matching PPM_SetPixel.
func (m *Miniature) SetPixel(x, y int, r, g, b uint8) {
	if !m.inBounds(x, y) {
		return
	}
	i := m.offset(x, y)
	m.Data[i] = r
	m.Data[i+1] = g
	m.Data[i+2] = b
}

// Compare returns the sum over all pixels of (dr^2 + dg^2 + db^2), computed
// on unsigned 8-bit channels cast to signed, between m and other. If the
// running sum exceeds ceiling at the end of any row, the current partial
// sum is returned immediately (early-exit pruning): the caller passes the
// best distance found so far, and once the partial sum beats it the rest
// of the image cannot change the outcome.
//
// Requires m and other to share the same dimensions; returns a
// diderr.InternalInvariant size-mismatch error otherwise.
func (m *Miniature) Compare(other *Miniature, ceiling uint32) (uint32, error) {
	if m.Width != other.Width || m.Height != other.Height {
		return 0, diderr.New(diderr.InternalInvariant,
			"miniature: size mismatch comparing %dx%d with %dx%d", m.Width, m.Height, other.Width, other.Height)
	}

	var sum uint32
	stride := 3 * m.Width
	for y := 0; y < m.Height; y++ {
		rowStart := y * stride
		for x := 0; x < m.Width; x++ {
			i := rowStart + 3*x
			dr := int32(m.Data[i]) - int32(other.Data[i])
			dg := int32(m.Data[i+1]) - int32(other.Data[i+1])
			db := int32(m.Data[i+2]) - int32(other.Data[i+2])
			sum += uint32(dr*dr + dg*dg + db*db)
		}
		// Row-granularity early exit: bounds worst-case extra work at
		// one row once the partial sum can no longer win.
		if sum > ceiling {
			return sum, nil
		}
	}
	return sum, nil
}

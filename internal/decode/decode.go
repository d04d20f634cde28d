// Package decode builds fixed-size miniatures from source image files,
// the "image-decoding collaborator" spec.md §4.1 and §6 name. Adapted
// from the teacher's internal/server.loadReferenceImage, generalized
// from a fixed NRGBA load into a box-downscale to an arbitrary S×S
// target and extended to fail on undersized sources per §6's decoder
// contract.
package decode

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pixeldup/dids/internal/diderr"
	"github.com/pixeldup/dids/internal/miniature"
)

// Miniature reads the image at path and resizes it to an S×S miniature
// via box averaging, failing with diderr.IoFailure if the file can't be
// opened, and with diderr.DecodeFailure if it can't be decoded or if
// either source dimension is smaller than S.
func Miniature(path string, s int) (*miniature.Miniature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diderr.Wrap(diderr.IoFailure, err, "decode: failed to open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, diderr.Wrap(diderr.DecodeFailure, err, "decode: failed to decode %s", path)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW < s || srcH < s {
		return nil, diderr.New(diderr.DecodeFailure,
			"decode: source image %s is %dx%d, smaller than required %dx%d", path, srcW, srcH, s, s)
	}

	m, err := miniature.New(s, s)
	if err != nil {
		return nil, err
	}

	for ty := 0; ty < s; ty++ {
		y0 := bounds.Min.Y + ty*srcH/s
		y1 := bounds.Min.Y + (ty+1)*srcH/s
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for tx := 0; tx < s; tx++ {
			x0 := bounds.Min.X + tx*srcW/s
			x1 := bounds.Min.X + (tx+1)*srcW/s
			if x1 <= x0 {
				x1 = x0 + 1
			}
			r, g, b := averageBlock(img, x0, y0, x1, y1)
			m.SetPixel(tx, ty, r, g, b)
		}
	}

	return m, nil
}

// averageBlock returns the mean RGB of img over [x0,x1)x[y0,y1), used
// to box-downscale a source region into one miniature pixel.
func averageBlock(img image.Image, x0, y0, x1, y1 int) (uint8, uint8, uint8) {
	var sumR, sumG, sumB, count uint64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sumR += uint64(r >> 8)
			sumG += uint64(g >> 8)
			sumB += uint64(b >> 8)
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0
	}
	return uint8(sumR / count), uint8(sumG / count), uint8(sumB / count)
}

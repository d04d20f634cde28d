package dao

import (
	"encoding/hex"
	"strings"

	"github.com/pixeldup/dids/internal/diderr"
	"github.com/pixeldup/dids/internal/miniature"
)

// EncodeHex converts a miniature's pixel buffer into the interoperable
// persistence format spec.md §6 names: six uppercase hex characters per
// pixel, row-major, no separators. Ported from
// original_source/src/ppm_dao.c's ppm_to_hexdata.
func EncodeHex(m *miniature.Miniature) string {
	return strings.ToUpper(hex.EncodeToString(m.Data))
}

// DecodeHex reconstructs a miniature of the given dimensions from its hex
// encoding. Ported from original_source/src/ppm_dao.c's hexdata_to_ppm.
func DecodeHex(width, height int, hexdata string) (*miniature.Miniature, error) {
	want := 2 * 3 * width * height
	if len(hexdata) != want {
		return nil, diderr.New(diderr.PersistenceFailure,
			"dao: hex payload length %d does not match expected %d for %dx%d miniature",
			len(hexdata), want, width, height)
	}

	data, err := hex.DecodeString(hexdata)
	if err != nil {
		return nil, diderr.Wrap(diderr.PersistenceFailure, err, "dao: invalid hex payload")
	}

	return &miniature.Miniature{Width: width, Height: height, Data: data}, nil
}

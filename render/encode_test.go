package render

import (
	"bytes"
	"image"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/mbtiles"
)

func TestEncodeFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	quality := config.FormatQuality{PNG: 100, JPEG: 80, WebP: 90}

	cases := []struct {
		format      string
		contentType string
		sniffed     mbtiles.Format
	}{
		{"png", "image/png", mbtiles.FormatPNG},
		{"jpg", "image/jpeg", mbtiles.FormatJPG},
		{"jpeg", "image/jpeg", mbtiles.FormatJPG},
		{"webp", "image/webp", mbtiles.FormatWebP},
	}
	for _, c := range cases {
		data, ct, err := Encode(img, c.format, quality)
		require.NoError(t, err, c.format)
		assert.Equal(t, c.contentType, ct)
		assert.Equal(t, c.sniffed, mbtiles.DetectFormat(data), c.format)
	}
}

func TestEncodeRoundTripDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 24))
	quality := config.FormatQuality{PNG: 100, JPEG: 80, WebP: 90}

	data, _, err := Encode(img, "png", quality)
	require.NoError(t, err)
	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 24, decoded.Bounds().Dy())

	data, _, err = Encode(img, "webp", quality)
	require.NoError(t, err)
	decoded, err = webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
}

func TestEncodeInvalidFormat(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	_, _, err := Encode(img, "gif", config.FormatQuality{})
	assert.Error(t, err)
}

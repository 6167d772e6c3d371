package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	"github.com/GrainArc/TileServe/config"
)

// Encode 按请求格式与配置质量编码位图，返回数据与Content-Type
func Encode(img image.Image, format string, quality config.FormatQuality) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if quality.PNG < 50 {
			enc.CompressionLevel = png.BestCompression
		}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	case "jpg", "jpeg":
		q := quality.JPEG
		if q <= 0 || q > 100 {
			q = 80
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	case "webp":
		q := float32(quality.WebP)
		if q <= 0 || q > 100 {
			q = 90
		}
		if err := webp.Encode(&buf, img, &webp.Options{Quality: q}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil
	default:
		return nil, "", fmt.Errorf("invalid format %q", format)
	}
}

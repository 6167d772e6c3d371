package maprender

import (
	"errors"
	"image"
	stddraw "image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/GrainArc/TileServe/mbtiles"
	"github.com/GrainArc/TileServe/tilemath"
)

// drawRaster 将可见范围内的栅格瓦片拼接进缓冲
func (m *Map) drawRaster(h *sourceHandle, layer *LayerSpec) error {
	t := &m.transform
	ratio := m.frontend.PixelRatio()
	dst := m.frontend.Image()

	z := h.tileZoom(t.Camera.Zoom)
	n := 1 << uint(z)
	world := float64(n)

	minX, minY, maxX, maxY := t.VisibleBounds()
	x0 := clampIndex(int(math.Floor(minX*world)), n)
	x1 := clampIndex(int(math.Floor(maxX*world)), n)
	y0 := clampIndex(int(math.Floor(minY*world)), n)
	y1 := clampIndex(int(math.Floor(maxY*world)), n)

	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			img, err := h.rasterTile(z, tx, ty)
			if err != nil {
				if errors.Is(err, mbtiles.ErrTileNotFound) {
					continue
				}
				return err
			}

			// 瓦片角点换算到物理像素
			lon0 := tilemath.XToLon(float64(tx) / world)
			lat0 := tilemath.YToLat(float64(ty) / world)
			lon1 := tilemath.XToLon(float64(tx+1) / world)
			lat1 := tilemath.YToLat(float64(ty+1) / world)
			sx0, sy0 := t.Project(lon0, lat0)
			sx1, sy1 := t.Project(lon1, lat1)

			rect := image.Rect(
				int(math.Round(sx0*ratio)), int(math.Round(sy0*ratio)),
				int(math.Round(sx1*ratio)), int(math.Round(sy1*ratio)),
			)
			if rect.Empty() || !rect.Overlaps(dst.Bounds()) {
				continue
			}
			blitTile(dst, rect, img, layer.Paint.RasterOpacity)
		}
	}
	return nil
}

func blitTile(dst *image.RGBA, rect image.Rectangle, src image.Image, opacity float64) {
	if opacity >= 1 {
		xdraw.ApproxBiLinear.Scale(dst, rect, src, src.Bounds(), xdraw.Over, nil)
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.ApproxBiLinear.Scale(tmp, tmp.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	mask := image.NewUniform(alpha16(opacity))
	stddraw.DrawMask(dst, rect, tmp, image.Point{}, mask, image.Point{}, stddraw.Over)
}

func alpha16(opacity float64) alphaColor {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return alphaColor(opacity * 0xffff)
}

// alphaColor 均匀透明度遮罩
type alphaColor uint16

func (a alphaColor) RGBA() (r, g, b, al uint32) {
	return 0, 0, 0, uint32(a)
}

func clampIndex(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}

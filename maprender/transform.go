package maprender

import (
	"math"

	"github.com/GrainArc/TileServe/tilemath"
)

// Camera 相机参数，缩放基于512像素瓦片网格
type Camera struct {
	Lon     float64
	Lat     float64
	Zoom    float64
	Bearing float64
	Pitch   float64
}

// Bounds 经纬度包围盒
type Bounds struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Transform 渲染时的视口状态，渲染完成后用于覆盖物投影
type Transform struct {
	Camera Camera
	Width  int
	Height int
}

// worldSize 当前缩放下整个世界的像素宽度
func (t *Transform) worldSize() float64 {
	return tilemath.InternalTileSize * math.Pow(2, t.Camera.Zoom)
}

// Project 经纬度到屏幕逻辑像素，原点左上
func (t *Transform) Project(lon, lat float64) (float64, float64) {
	world := t.worldSize()
	cx := tilemath.LonToX(t.Camera.Lon) * world
	cy := tilemath.LatToY(t.Camera.Lat) * world
	x := tilemath.LonToX(lon)*world - cx + float64(t.Width)/2
	y := tilemath.LatToY(lat)*world - cy + float64(t.Height)/2
	return x, y
}

// VisibleBounds 视口覆盖的世界归一化坐标范围 [0,1]
func (t *Transform) VisibleBounds() (minX, minY, maxX, maxY float64) {
	world := t.worldSize()
	cx := tilemath.LonToX(t.Camera.Lon)
	cy := tilemath.LatToY(t.Camera.Lat)
	hw := float64(t.Width) / 2 / world
	hh := float64(t.Height) / 2 / world
	return cx - hw, cy - hh, cx + hw, cy + hh
}

// CameraForBounds 计算能放下包围盒的相机，inset为四边内边距像素
func CameraForBounds(b Bounds, width, height int, inset float64) Camera {
	boxW := tilemath.LonToX(b.MaxLon) - tilemath.LonToX(b.MinLon)
	boxH := tilemath.LatToY(b.MinLat) - tilemath.LatToY(b.MaxLat)

	availW := float64(width) - 2*inset
	availH := float64(height) - 2*inset
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	zoom := math.Inf(1)
	if boxW > 0 {
		zoom = math.Log2(availW / (boxW * tilemath.InternalTileSize))
	}
	if boxH > 0 {
		zoom = math.Min(zoom, math.Log2(availH/(boxH*tilemath.InternalTileSize)))
	}
	if math.IsInf(zoom, 1) {
		zoom = float64(tilemath.MaxZoom)
	}
	if zoom < 0 {
		zoom = 0
	}
	if zoom > float64(tilemath.MaxZoom) {
		zoom = float64(tilemath.MaxZoom)
	}

	cx := (tilemath.LonToX(b.MinLon) + tilemath.LonToX(b.MaxLon)) / 2
	cy := (tilemath.LatToY(b.MinLat) + tilemath.LatToY(b.MaxLat)) / 2
	return Camera{
		Lon:  tilemath.XToLon(cx),
		Lat:  tilemath.YToLat(cy),
		Zoom: zoom,
	}
}

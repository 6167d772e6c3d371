// Package tilemath Web墨卡托投影与瓦片坐标换算
package tilemath

import (
	"math"
)

const (
	EarthRadius = 6378137.0
	OriginShift = math.Pi * EarthRadius // 20037508.342789244

	// InternalTileSize 渲染引擎内部瓦片网格
	InternalTileSize = 512

	// MaxZoom 瓦片坐标与相机级别的上限
	MaxZoom = 22

	// MaxLatitude Web墨卡托可表示的最大纬度
	MaxLatitude = 85.0511287798066
)

// LonToX 经度映射到单位正方形[0,1]
func LonToX(lon float64) float64 {
	return (lon + 180.0) / 360.0
}

// LatToY 纬度映射到单位正方形[0,1]
func LatToY(lat float64) float64 {
	latRad := lat * math.Pi / 180.0
	return (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0
}

// XToLon 单位正方形横坐标转经度
func XToLon(x float64) float64 {
	return x*360.0 - 180.0
}

// YToLat 单位正方形纵坐标转纬度
func YToLat(y float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1.0-2.0*y))) * 180.0 / math.Pi
}

// LonToTileX 经度转瓦片列号
func LonToTileX(lon float64, z int) int {
	n := math.Exp2(float64(z))
	x := int(math.Floor(LonToX(lon) * n))
	return clampTile(x, z)
}

// LatToTileY 纬度转瓦片行号
func LatToTileY(lat float64, z int) int {
	n := math.Exp2(float64(z))
	y := int(math.Floor(LatToY(lat) * n))
	return clampTile(y, z)
}

// clampTile 行列号限制在[0, 2^z-1]
func clampTile(v int, z int) int {
	maxTile := int(math.Exp2(float64(z))) - 1
	if v < 0 {
		return 0
	}
	if v > maxTile {
		return maxTile
	}
	return v
}

// LonToPixel 经度转全局像素坐标
func LonToPixel(lon float64, z float64, tileSize int) float64 {
	return LonToX(lon) * math.Exp2(z) * float64(tileSize)
}

// LatToPixel 纬度转全局像素坐标
func LatToPixel(lat float64, z float64, tileSize int) float64 {
	return LatToY(lat) * math.Exp2(z) * float64(tileSize)
}

// TileBounds 瓦片边界（WGS84经纬度）
type TileBounds struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// GetTileBoundsWGS84 获取瓦片的WGS84边界
func GetTileBoundsWGS84(z, x, y int) TileBounds {
	n := math.Exp2(float64(z))
	return TileBounds{
		MinLon: float64(x)/n*360.0 - 180.0,
		MaxLon: float64(x+1)/n*360.0 - 180.0,
		MinLat: YToLat(float64(y+1) / n),
		MaxLat: YToLat(float64(y) / n),
	}
}

// Center 边界中心点
func (b TileBounds) Center() (lon, lat float64) {
	return (b.MinLon + b.MaxLon) / 2, (b.MinLat + b.MaxLat) / 2
}

// ZoomForBBox 计算在w*h像素内放下指定经纬度范围所需的级别
// 以更受限的一边为准，结果不小于0
func ZoomForBBox(minLon, minLat, maxLon, maxLat float64, w, h int, padding float64) float64 {
	boxW := LonToX(maxLon) - LonToX(minLon)
	boxH := LatToY(minLat) - LatToY(maxLat)
	if boxW <= 0 {
		boxW = math.SmallestNonzeroFloat64
	}
	if boxH <= 0 {
		boxH = math.SmallestNonzeroFloat64
	}

	zx := math.Log2(float64(w) / (1 + 2*padding) / boxW / InternalTileSize)
	zy := math.Log2(float64(h) / (1 + 2*padding) / boxH / InternalTileSize)

	z := math.Min(zx, zy)
	if z < 0 {
		z = 0
	}
	return z
}

// MercatorToWGS84 EPSG:3857米坐标转EPSG:4326经纬度
func MercatorToWGS84(x, y float64) (lon, lat float64) {
	lon = x / OriginShift * 180.0
	lat = math.Atan(math.Sinh(y/OriginShift*math.Pi)) * 180.0 / math.Pi
	return
}

package tilemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLonLatToUnitSquare(t *testing.T) {
	assert.InDelta(t, 0.5, LonToX(0), 1e-12)
	assert.InDelta(t, 0.0, LonToX(-180), 1e-12)
	assert.InDelta(t, 1.0, LonToX(180), 1e-12)
	assert.InDelta(t, 0.5, LatToY(0), 1e-12)
	assert.InDelta(t, 0.0, LatToY(MaxLatitude), 1e-9)
	assert.InDelta(t, 1.0, LatToY(-MaxLatitude), 1e-9)
}

func TestUnitSquareRoundTrip(t *testing.T) {
	for _, lon := range []float64{-180, -123.45, -1, 0, 1, 67.89, 180} {
		assert.InDelta(t, lon, XToLon(LonToX(lon)), 1e-9)
	}
	for _, lat := range []float64{-85, -45.5, 0, 33.3, 85} {
		assert.InDelta(t, lat, YToLat(LatToY(lat)), 1e-9)
	}
}

func TestTileIndexInRange(t *testing.T) {
	lons := []float64{-180, -179.999, -90, 0, 90, 179.999, 180}
	lats := []float64{-85.0511, -60, 0, 60, 85.0511}
	for z := 0; z <= MaxZoom; z++ {
		maxTile := int(math.Exp2(float64(z))) - 1
		for _, lon := range lons {
			x := LonToTileX(lon, z)
			assert.GreaterOrEqual(t, x, 0)
			assert.LessOrEqual(t, x, maxTile)
		}
		for _, lat := range lats {
			y := LatToTileY(lat, z)
			assert.GreaterOrEqual(t, y, 0)
			assert.LessOrEqual(t, y, maxTile)
		}
	}
}

func TestTileIndexKnownValues(t *testing.T) {
	// 0级世界只有一张瓦片
	assert.Equal(t, 0, LonToTileX(0, 0))
	assert.Equal(t, 0, LatToTileY(0, 0))
	// 1级原点落在东南象限
	assert.Equal(t, 1, LonToTileX(0.0001, 1))
	assert.Equal(t, 1, LatToTileY(-0.0001, 1))
	assert.Equal(t, 0, LonToTileX(-0.0001, 1))
	assert.Equal(t, 0, LatToTileY(0.0001, 1))
}

func TestGetTileBoundsWGS84(t *testing.T) {
	b := GetTileBoundsWGS84(0, 0, 0)
	assert.InDelta(t, -180, b.MinLon, 1e-9)
	assert.InDelta(t, 180, b.MaxLon, 1e-9)
	assert.InDelta(t, -MaxLatitude, b.MinLat, 1e-6)
	assert.InDelta(t, MaxLatitude, b.MaxLat, 1e-6)

	// 瓦片边界与行列号互逆
	b = GetTileBoundsWGS84(5, 10, 12)
	midLon, midLat := b.Center()
	assert.Equal(t, 10, LonToTileX(midLon, 5))
	assert.Equal(t, 12, LatToTileY(midLat, 5))
}

func TestLonToPixel(t *testing.T) {
	// 0级中心像素
	assert.InDelta(t, 128, LonToPixel(0, 0, 256), 1e-9)
	assert.InDelta(t, 128, LatToPixel(0, 0, 256), 1e-9)
	// 级别+1像素坐标翻倍
	assert.InDelta(t, 2*LonToPixel(45, 3, 256), LonToPixel(45, 4, 256), 1e-6)
}

func TestZoomForBBoxMonotonic(t *testing.T) {
	z1 := ZoomForBBox(-10, -10, 10, 10, 512, 512, 0.1)
	// 缩小范围级别不降低
	z2 := ZoomForBBox(-5, -5, 5, 5, 512, 512, 0.1)
	assert.GreaterOrEqual(t, z2, z1)
	// 增大padding级别不升高
	z3 := ZoomForBBox(-10, -10, 10, 10, 512, 512, 0.5)
	assert.LessOrEqual(t, z3, z1)
	// 永不为负
	z4 := ZoomForBBox(-180, -85, 180, 85, 64, 64, 0.1)
	assert.GreaterOrEqual(t, z4, 0.0)
}

func TestMercatorToWGS84(t *testing.T) {
	lon, lat := MercatorToWGS84(0, 0)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	lon, lat = MercatorToWGS84(OriginShift, 0)
	assert.InDelta(t, 180, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	lon, lat = MercatorToWGS84(0, OriginShift)
	assert.InDelta(t, MaxLatitude, lat, 1e-6)
	assert.InDelta(t, 0, lon, 1e-9)
}

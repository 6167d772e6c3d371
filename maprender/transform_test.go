package maprender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectCenter(t *testing.T) {
	tr := Transform{
		Camera: Camera{Lon: 8.5, Lat: 47.3, Zoom: 10},
		Width:  512,
		Height: 512,
	}
	x, y := tr.Project(8.5, 47.3)
	assert.InDelta(t, 256, x, 1e-9)
	assert.InDelta(t, 256, y, 1e-9)
}

func TestProjectDirections(t *testing.T) {
	tr := Transform{
		Camera: Camera{Lon: 0, Lat: 0, Zoom: 2},
		Width:  512,
		Height: 512,
	}
	// 东边在右，北边在上
	x, _ := tr.Project(10, 0)
	assert.Greater(t, x, 256.0)
	_, y := tr.Project(0, 10)
	assert.Less(t, y, 256.0)
}

func TestVisibleBoundsWorldAtZoomZero(t *testing.T) {
	tr := Transform{
		Camera: Camera{Lon: 0, Lat: 0, Zoom: 0},
		Width:  512,
		Height: 512,
	}
	minX, minY, maxX, maxY := tr.VisibleBounds()
	assert.InDelta(t, 0, minX, 1e-9)
	assert.InDelta(t, 0, minY, 1e-9)
	assert.InDelta(t, 1, maxX, 1e-9)
	assert.InDelta(t, 1, maxY, 1e-9)
}

func TestCameraForBoundsContainsBox(t *testing.T) {
	b := Bounds{MinLon: 5, MinLat: 45, MaxLon: 12, MaxLat: 49}
	cam := CameraForBounds(b, 800, 600, 20)

	tr := Transform{Camera: cam, Width: 800, Height: 600}
	for _, pt := range [][2]float64{
		{b.MinLon, b.MinLat}, {b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat}, {b.MaxLon, b.MinLat},
	} {
		x, y := tr.Project(pt[0], pt[1])
		assert.GreaterOrEqual(t, x, 19.0)
		assert.LessOrEqual(t, x, 781.0)
		assert.GreaterOrEqual(t, y, 19.0)
		assert.LessOrEqual(t, y, 581.0)
	}
}

func TestCameraForBoundsDegenerateBox(t *testing.T) {
	cam := CameraForBounds(Bounds{MinLon: 8, MinLat: 47, MaxLon: 8, MaxLat: 47}, 512, 512, 0)
	assert.InDelta(t, 8, cam.Lon, 1e-9)
	assert.InDelta(t, 47, cam.Lat, 1e-6)
	assert.LessOrEqual(t, cam.Zoom, 22.0)
}

package maprender

import (
	"errors"
	"math"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"

	"github.com/GrainArc/TileServe/mbtiles"
)

// tileKey 单次渲染内的矢量瓦片缓存键
type tileKey struct {
	source  string
	z, x, y int
}

// drawVector 绘制一个矢量图层覆盖的全部可见瓦片
func (m *Map) drawVector(h *sourceHandle, layer *LayerSpec, cache map[tileKey]mvt.Layers) error {
	t := &m.transform
	z := h.tileZoom(t.Camera.Zoom)
	n := 1 << uint(z)
	world := float64(n)

	minX, minY, maxX, maxY := t.VisibleBounds()
	x0 := clampIndex(int(math.Floor(minX*world)), n)
	x1 := clampIndex(int(math.Floor(maxX*world)), n)
	y0 := clampIndex(int(math.Floor(minY*world)), n)
	y1 := clampIndex(int(math.Floor(maxY*world)), n)

	dc := gg.NewContextForRGBA(m.frontend.Image())
	ratio := m.frontend.PixelRatio()

	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			key := tileKey{h.spec.Name, z, tx, ty}
			layers, ok := cache[key]
			if !ok {
				var err error
				layers, err = h.vectorTile(z, tx, ty)
				if err != nil {
					if errors.Is(err, mbtiles.ErrTileNotFound) {
						cache[key] = nil
						continue
					}
					return err
				}
				cache[key] = layers
			}
			if layers == nil {
				continue
			}
			for _, l := range layers {
				if l.Name != layer.SourceLayer {
					continue
				}
				for _, f := range l.Features {
					m.drawFeature(dc, layer, f.Geometry, ratio)
				}
			}
		}
	}
	return nil
}

func (m *Map) drawFeature(dc *gg.Context, layer *LayerSpec, geom orb.Geometry, ratio float64) {
	switch layer.Type {
	case "fill":
		m.drawFill(dc, layer, geom, ratio)
	case "line":
		m.drawLine(dc, layer, geom, ratio)
	case "circle":
		m.drawCircle(dc, layer, geom, ratio)
	}
}

func (m *Map) drawFill(dc *gg.Context, layer *LayerSpec, geom orb.Geometry, ratio float64) {
	polys := polygonsOf(geom)
	if len(polys) == 0 {
		return
	}
	for _, poly := range polys {
		dc.NewSubPath()
		for _, ring := range poly {
			m.tracePath(dc, orb.LineString(ring), ratio)
			dc.ClosePath()
		}
		p := layer.Paint
		dc.SetFillRuleEvenOdd()
		dc.SetColor(p.FillColor)
		if p.HasOutline {
			dc.FillPreserve()
			dc.SetColor(p.FillOutline)
			dc.SetLineWidth(ratio)
			dc.Stroke()
		} else {
			dc.Fill()
		}
	}
}

func (m *Map) drawLine(dc *gg.Context, layer *LayerSpec, geom orb.Geometry, ratio float64) {
	for _, ls := range lineStringsOf(geom) {
		m.tracePath(dc, ls, ratio)
		dc.SetColor(layer.Paint.LineColor)
		dc.SetLineWidth(layer.Paint.LineWidth * ratio)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		dc.Stroke()
	}
}

func (m *Map) drawCircle(dc *gg.Context, layer *LayerSpec, geom orb.Geometry, ratio float64) {
	for _, pt := range pointsOf(geom) {
		x, y := m.transform.Project(pt[0], pt[1])
		dc.SetColor(layer.Paint.CircleColor)
		dc.DrawCircle(x*ratio, y*ratio, layer.Paint.CircleRadius*ratio)
		dc.Fill()
	}
}

func (m *Map) tracePath(dc *gg.Context, ls orb.LineString, ratio float64) {
	for i, pt := range ls {
		x, y := m.transform.Project(pt[0], pt[1])
		if i == 0 {
			dc.MoveTo(x*ratio, y*ratio)
		} else {
			dc.LineTo(x*ratio, y*ratio)
		}
	}
}

func polygonsOf(geom orb.Geometry) []orb.Polygon {
	switch g := geom.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	}
	return nil
}

func lineStringsOf(geom orb.Geometry) []orb.LineString {
	switch g := geom.(type) {
	case orb.LineString:
		return []orb.LineString{g}
	case orb.MultiLineString:
		return []orb.LineString(g)
	case orb.Polygon:
		out := make([]orb.LineString, 0, len(g))
		for _, r := range g {
			out = append(out, orb.LineString(r))
		}
		return out
	case orb.MultiPolygon:
		var out []orb.LineString
		for _, p := range g {
			for _, r := range p {
				out = append(out, orb.LineString(r))
			}
		}
		return out
	}
	return nil
}

func pointsOf(geom orb.Geometry) []orb.Point {
	switch g := geom.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return []orb.Point(g)
	}
	return nil
}

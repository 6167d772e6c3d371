package render

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/maprender"
	"github.com/GrainArc/TileServe/tilemath"
)

// StaticRequest 静态图请求，由HTTP层从路径与查询参数归一化而来
type StaticRequest struct {
	Width  int
	Height int
	Scale  int

	// 三种视口来源之一
	HasCenter bool
	Lon       float64
	Lat       float64
	Zoom      float64
	Bearing   float64
	Pitch     float64

	HasBBox bool
	BBox    [4]float64 // minLon, minLat, maxLon, maxLat

	Auto bool

	// raw形式下全部坐标输入为EPSG:3857米
	Raw bool

	Paths   []*Path
	Markers []*Marker

	// 全局叠加默认值
	Fill           string
	Stroke         string
	Border         string
	StrokeWidth    float64
	HasStrokeWidth bool
	LineCap        string
	LineJoin       string
	BorderWidth    float64
	HasBorderWidth bool
	Padding        float64
	MaxZoom        float64
}

// NewStaticRequest 带默认值的请求
func NewStaticRequest(width, height, scale int) *StaticRequest {
	return &StaticRequest{
		Width:   width,
		Height:  height,
		Scale:   scale,
		Padding: 0.1,
		MaxZoom: config.MaxZoom,
	}
}

// RenderStatic 渲染静态图并合成叠加物
func (p *Pools) RenderStatic(ctx context.Context, styleID string, req *StaticRequest) (image.Image, error) {
	pool, ok := p.pool(styleID, req.Scale)
	if !ok {
		return nil, ErrUnknownStyle
	}
	if req.Width < 1 || req.Height < 1 ||
		req.Width > p.opts.MaxSize || req.Height > p.opts.MaxSize {
		return nil, ErrInvalidSize
	}

	if req.Raw {
		req.reproject()
	}
	cam, err := p.selectViewport(req)
	if err != nil {
		return nil, err
	}

	w, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(w)

	var img *image.RGBA
	var tr maprender.Transform
	fut := w.Submit(func(r *Renderer) error {
		var jobErr error
		img, tr, jobErr = renderStill(r, cam, req.Width, req.Height)
		return jobErr
	})
	if err := fut.Wait(ctx); err != nil {
		return nil, err
	}

	// 叠加物投影依赖渲染后的视口状态
	if err := p.composite(img, &tr, req); err != nil {
		return nil, err
	}
	return img, nil
}

// reproject 将3857米坐标的输入就地转成经纬度
func (req *StaticRequest) reproject() {
	if req.HasCenter {
		req.Lon, req.Lat = tilemath.MercatorToWGS84(req.Lon, req.Lat)
	}
	if req.HasBBox {
		req.BBox[0], req.BBox[1] = tilemath.MercatorToWGS84(req.BBox[0], req.BBox[1])
		req.BBox[2], req.BBox[3] = tilemath.MercatorToWGS84(req.BBox[2], req.BBox[3])
	}
	for _, path := range req.Paths {
		for i, pt := range path.Points {
			lon, lat := tilemath.MercatorToWGS84(pt[0], pt[1])
			path.Points[i][0], path.Points[i][1] = lon, lat
		}
	}
	for _, m := range req.Markers {
		m.Lon, m.Lat = tilemath.MercatorToWGS84(m.Lon, m.Lat)
	}
	req.Raw = false
}

// selectViewport 视口三选一：中心+级别、外包框、auto
func (p *Pools) selectViewport(req *StaticRequest) (maprender.Camera, error) {
	sb := p.opts.ServeBounds
	if len(sb) != 4 {
		sb = []float64{-180, -85.0511, 180, 85.0511}
	}

	if req.HasCenter {
		if req.Lon < sb[0] || req.Lon > sb[2] || req.Lat < sb[1] || req.Lat > sb[3] {
			return maprender.Camera{}, ErrOutOfBounds
		}
		return maprender.Camera{
			Lon: req.Lon, Lat: req.Lat, Zoom: req.Zoom,
			Bearing: req.Bearing, Pitch: req.Pitch,
		}, nil
	}

	bbox := req.BBox
	if !req.HasBBox {
		if !req.Auto {
			return maprender.Camera{}, fmt.Errorf("%w: no viewport given", ErrNoViewport)
		}
		var ok bool
		bbox, ok = overlayBBox(req)
		if !ok {
			return maprender.Camera{}, fmt.Errorf("%w: auto needs at least one overlay point", ErrNoViewport)
		}
	}

	// 与服务范围求交，不相交则拒绝
	bbox[0] = math.Max(bbox[0], sb[0])
	bbox[1] = math.Max(bbox[1], sb[1])
	bbox[2] = math.Min(bbox[2], sb[2])
	bbox[3] = math.Min(bbox[3], sb[3])
	if bbox[0] > bbox[2] || bbox[1] > bbox[3] {
		return maprender.Camera{}, ErrOutOfBounds
	}

	zoom := tilemath.ZoomForBBox(bbox[0], bbox[1], bbox[2], bbox[3], req.Width, req.Height, req.Padding)
	if zoom > req.MaxZoom {
		zoom = req.MaxZoom
	}
	return maprender.Camera{
		Lon:  (bbox[0] + bbox[2]) / 2,
		Lat:  (bbox[1] + bbox[3]) / 2,
		Zoom: zoom,
	}, nil
}

// overlayBBox 全部叠加物顶点的外包框
func overlayBBox(req *StaticRequest) ([4]float64, bool) {
	bbox := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	found := false

	grow := func(lon, lat float64) {
		bbox[0] = math.Min(bbox[0], lon)
		bbox[1] = math.Min(bbox[1], lat)
		bbox[2] = math.Max(bbox[2], lon)
		bbox[3] = math.Max(bbox[3], lat)
		found = true
	}
	for _, path := range req.Paths {
		for _, pt := range path.Points {
			grow(pt[0], pt[1])
		}
	}
	for _, m := range req.Markers {
		grow(m.Lon, m.Lat)
	}
	return bbox, found
}

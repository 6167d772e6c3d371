package render

import (
	"context"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/maprender"
	"github.com/GrainArc/TileServe/tilemath"
)

// RenderTile 渲染单个XYZ瓦片
// 相机置于瓦片中心，按内部512网格渲染后裁掉边距
func (p *Pools) RenderTile(ctx context.Context, styleID string, scale, z, x, y int) (image.Image, error) {
	pool, ok := p.pool(styleID, scale)
	if !ok {
		return nil, ErrUnknownStyle
	}

	margin := p.opts.InternalTileMargin()
	mapSize := p.opts.TileSize + 2*margin
	internalZoom := p.opts.RendererZoom(z)

	lon, lat := tilemath.GetTileBoundsWGS84(z, x, y).Center()
	cam := maprender.Camera{Lon: lon, Lat: lat, Zoom: internalZoom}
	if cam.Zoom < 0 {
		cam.Zoom = 0
	}

	w, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Release(w)

	var raw *image.RGBA
	fut := w.Submit(func(r *Renderer) error {
		var jobErr error
		raw, _, jobErr = renderStill(r, cam, mapSize, mapSize)
		return jobErr
	})
	if err := fut.Wait(ctx); err != nil {
		return nil, err
	}
	return clipTile(raw, p.opts, scale, internalZoom), nil
}

// clipTile 从带边距的渲染结果中裁出目标瓦片
func clipTile(raw *image.RGBA, opts *config.Options, scale int, internalZoom float64) image.Image {
	margin := opts.InternalTileMargin()
	if margin <= 0 {
		return raw
	}
	tilePx := opts.TileSize * scale

	if internalZoom >= 0 {
		off := margin * scale
		return raw.SubImage(image.Rect(off, off, off+tilePx, off+tilePx))
	}

	// 低级别时世界不足一帧，取居中子图再降采样
	side := int(float64(opts.TileSize)*math.Pow(2, -math.Floor(internalZoom))) * scale
	b := raw.Bounds()
	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2
	rect := image.Rect(cx-side/2, cy-side/2, cx+side/2, cy+side/2).Intersect(b)

	dst := image.NewRGBA(image.Rect(0, 0, tilePx, tilePx))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), raw.SubImage(rect), rect, xdraw.Src, nil)
	return dst
}

// Package render 瓦片与静态图渲染路径
//
// 渲染池按(样式,比例)二维组织：前端的像素比在构造时固定，
// 因此比例是池的维度而不是任务参数。
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/maprender"
	"github.com/GrainArc/TileServe/style"
	"github.com/GrainArc/TileServe/worker"
)

var (
	ErrUnknownStyle = errors.New("style not found")
	ErrOutOfBounds  = errors.New("out of bounds")
	ErrInvalidSize  = errors.New("invalid image size")
	ErrNoViewport   = errors.New("no usable viewport")
)

// Renderer 渲染工作线程独占的资源组
type Renderer struct {
	Loop     *maprender.RunLoop
	Frontend *maprender.Frontend
	Map      *maprender.Map
}

// Close 按构造逆序释放
func (r *Renderer) Close() {
	r.Map.Close()
}

type poolKey struct {
	styleID string
	scale   int
}

// Pools 全部渲染池的集合
type Pools struct {
	opts  *config.Options
	pools map[poolKey]*worker.Pool[*Renderer]
}

// NewPools 为每个可渲染样式按比例1..MaxScale各建一个池
// 单个样式建池失败会拖垮整组，已建的池被销毁
func NewPools(conf *config.Config, repo *style.Repository) (*Pools, error) {
	p := &Pools{opts: &conf.Options, pools: map[poolKey]*worker.Pool[*Renderer]{}}
	margin := conf.Options.InternalTileMargin()
	mapSize := conf.Options.TileSize + 2*margin

	for id, s := range repo.Styles {
		if !s.ServeRendered {
			continue
		}
		styleJSON, err := s.RendererJSON(repo.ResolveData, &conf.Options)
		if err != nil {
			config.Log.Warnf("style %q renderer config failed: %s", id, err)
			continue
		}

		for scale := 1; scale <= conf.Options.MaxScale(); scale++ {
			ratio := float64(scale)
			factory := func() (*Renderer, error) {
				loop := maprender.NewRunLoop()
				fe := maprender.NewFrontend(mapSize, mapSize, ratio)
				m, err := maprender.NewMap(loop, fe, styleJSON)
				if err != nil {
					return nil, err
				}
				return &Renderer{Loop: loop, Frontend: fe, Map: m}, nil
			}

			pool, err := worker.NewPool(conf.Options.MinPoolSize(scale), conf.Options.MaxPoolSize(scale), factory)
			if err != nil {
				p.Dispose()
				return nil, fmt.Errorf("renderer pool for style %q @%dx: %w", id, scale, err)
			}
			p.pools[poolKey{id, scale}] = pool
		}
		config.Log.Infof("renderer pools ready for style %q", id)
	}
	return p, nil
}

// pool 取(样式,比例)对应的池
func (p *Pools) pool(styleID string, scale int) (*worker.Pool[*Renderer], bool) {
	pool, ok := p.pools[poolKey{styleID, scale}]
	return pool, ok
}

// Has 样式是否有渲染池
func (p *Pools) Has(styleID string) bool {
	_, ok := p.pools[poolKey{styleID, 1}]
	return ok
}

// Dispose 销毁全部池
func (p *Pools) Dispose() {
	for _, pool := range p.pools {
		pool.Dispose()
	}
}

// renderStill 在工作线程上执行一次渲染，返回缓冲副本与视口状态
func renderStill(r *Renderer, cam maprender.Camera, width, height int) (*image.RGBA, maprender.Transform, error) {
	fw, fh := r.Frontend.Size()
	if fw != width || fh != height {
		r.Map.SetSize(width, height)
	}

	var out *image.RGBA
	var renderErr error
	r.Map.RenderStill(cam, func(img image.Image, err error) {
		if err == nil {
			out = cloneRGBA(img)
		}
		renderErr = err
		r.Loop.Stop()
	})
	r.Loop.Run()

	if renderErr != nil {
		return nil, maprender.Transform{}, renderErr
	}
	return out, *r.Map.Transform(), nil
}

// cloneRGBA 复制缓冲，工作器归还后会复用原缓冲
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

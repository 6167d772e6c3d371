package maprender

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/paulmach/orb/encoding/mvt"
)

// Map 装载了样式与数据源的地图实例
// 所有方法只允许在持有它的渲染线程上调用
type Map struct {
	loop     *RunLoop
	frontend *Frontend

	style     *CompiledStyle
	sources   map[string]*sourceHandle
	transform Transform
}

// NewMap 编译样式并打开其引用的全部本地数据源
func NewMap(loop *RunLoop, frontend *Frontend, styleJSON []byte) (*Map, error) {
	style, err := CompileStyle(styleJSON)
	if err != nil {
		return nil, err
	}

	m := &Map{
		loop:     loop,
		frontend: frontend,
		style:    style,
		sources:  map[string]*sourceHandle{},
	}
	for name, spec := range style.Sources {
		h, err := openSource(spec)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.sources[name] = h
	}
	return m, nil
}

// Close 释放全部数据源句柄
func (m *Map) Close() {
	for _, h := range m.sources {
		h.close()
	}
	m.sources = map[string]*sourceHandle{}
}

// SetSize 调整渲染尺寸
func (m *Map) SetSize(width, height int) {
	m.frontend.Resize(width, height)
}

// Transform 最近一次渲染的视口状态
func (m *Map) Transform() *Transform {
	return &m.transform
}

// RenderStill 投递一次静态渲染，完成时回调
// 回调负责调用RunLoop.Stop结束本次驱动
func (m *Map) RenderStill(cam Camera, cb func(image.Image, error)) {
	m.loop.Post(func() {
		err := m.render(cam)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(m.frontend.Image(), nil)
	})
}

// render 按图层声明顺序执行一次完整绘制
func (m *Map) render(cam Camera) error {
	w, h := m.frontend.Size()
	m.transform = Transform{Camera: cam, Width: w, Height: h}

	// 1. 清空缓冲
	dst := m.frontend.Image()
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	// 2. 逐图层绘制
	vectorCache := map[tileKey]mvt.Layers{}
	for _, layer := range m.style.Layers {
		if cam.Zoom < layer.MinZoom || cam.Zoom >= layer.MaxZoom {
			continue
		}
		switch layer.Type {
		case "background":
			draw.Draw(dst, dst.Bounds(), image.NewUniform(layer.Paint.BackgroundColor), image.Point{}, draw.Over)
		case "raster":
			h, ok := m.sources[layer.Source]
			if !ok {
				continue
			}
			if err := m.drawRaster(h, layer); err != nil {
				return fmt.Errorf("layer %s: %w", layer.ID, err)
			}
		case "fill", "line", "circle":
			h, ok := m.sources[layer.Source]
			if !ok {
				continue
			}
			if err := m.drawVector(h, layer, vectorCache); err != nil {
				return fmt.Errorf("layer %s: %w", layer.ID, err)
			}
		}
	}
	return nil
}

package maprender

import (
	"image"
)

// Frontend 离屏渲染前端，持有像素缓冲
// 像素比在构造时确定且不可变，尺寸可按请求调整
type Frontend struct {
	width      int
	height     int
	pixelRatio float64
	img        *image.RGBA
}

// NewFrontend 创建前端并分配缓冲
func NewFrontend(width, height int, pixelRatio float64) *Frontend {
	f := &Frontend{pixelRatio: pixelRatio}
	f.Resize(width, height)
	return f
}

// Resize 按逻辑尺寸重新分配缓冲
func (f *Frontend) Resize(width, height int) {
	f.width = width
	f.height = height
	f.img = image.NewRGBA(image.Rect(0, 0, f.PixelWidth(), f.PixelHeight()))
}

// Size 逻辑尺寸
func (f *Frontend) Size() (int, int) {
	return f.width, f.height
}

// PixelRatio 设备像素比
func (f *Frontend) PixelRatio() float64 {
	return f.pixelRatio
}

// PixelWidth 物理像素宽
func (f *Frontend) PixelWidth() int {
	return int(float64(f.width) * f.pixelRatio)
}

// PixelHeight 物理像素高
func (f *Frontend) PixelHeight() int {
	return int(float64(f.height) * f.pixelRatio)
}

// Image 渲染结果缓冲
func (f *Frontend) Image() *image.RGBA {
	return f.img
}

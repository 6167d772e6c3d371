package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/maprender"
)

// 叠加物的全局缺省颜色
const (
	defaultPathFill   = "#ffffff66"
	defaultPathStroke = "#0040ffb2"
)

// composite 把路径与标记画到渲染结果上
func (p *Pools) composite(img *image.RGBA, tr *maprender.Transform, req *StaticRequest) error {
	if len(req.Paths) == 0 && len(req.Markers) == 0 {
		return nil
	}

	dc := gg.NewContextForRGBA(img)
	ratio := float64(req.Scale)

	for _, path := range req.Paths {
		drawPath(dc, tr, path, req, ratio)
	}
	for _, m := range req.Markers {
		if err := p.drawMarker(img, tr, m, ratio); err != nil {
			return err
		}
	}
	return nil
}

// drawPath 单条路径：可选填充、可选描边、可选描边外沿
func drawPath(dc *gg.Context, tr *maprender.Transform, path *Path, req *StaticRequest, ratio float64) {
	trace := func() {
		for i, pt := range path.Points {
			x, y := tr.Project(pt[0], pt[1])
			if i == 0 {
				dc.MoveTo(x*ratio, y*ratio)
			} else {
				dc.LineTo(x*ratio, y*ratio)
			}
		}
		if len(path.Points) > 1 && path.Points[0] == path.Points[len(path.Points)-1] {
			dc.ClosePath()
		}
	}

	// 1. 填充：全局或本路径给出fill才画
	fillActive := path.Fill != "" || req.Fill != ""
	if fillActive {
		trace()
		dc.ClosePath()
		dc.SetColor(colorOr(firstOf(path.Fill, req.Fill), defaultPathFill))
		dc.Fill()
	}

	// 2. 描边宽度：路径值 > 全局值 > 0；无填充且无宽度时画1px
	width := 0.0
	switch {
	case path.HasWidth:
		width = path.Width
	case req.HasStrokeWidth:
		width = req.StrokeWidth
	}
	if !fillActive && width <= 0 {
		width = 1
	}
	if width <= 0 {
		return
	}

	applyLineStyle(dc, firstOf(path.LineCap, req.LineCap), firstOf(path.LineJoin, req.LineJoin))

	// 3. 外沿先画，宽度=描边+2*外沿宽
	borderColor := firstOf(path.Border, req.Border)
	if borderColor != "" {
		borderWidth := width * 0.1
		switch {
		case path.HasBorderWidth:
			borderWidth = path.BorderWidth
		case req.HasBorderWidth:
			borderWidth = req.BorderWidth
		}
		if borderWidth > 0 {
			trace()
			dc.SetColor(colorOr(borderColor, defaultPathStroke))
			dc.SetLineWidth((width + 2*borderWidth) * ratio)
			dc.Stroke()
		}
	}

	// 4. 描边
	trace()
	dc.SetColor(colorOr(firstOf(path.Stroke, req.Stroke), defaultPathStroke))
	dc.SetLineWidth(width * ratio)
	dc.Stroke()
}

// drawMarker 取图标并按底部中心锚点绘制
func (p *Pools) drawMarker(dst *image.RGBA, tr *maprender.Transform, m *Marker, ratio float64) error {
	icon, err := p.loadIcon(m.Icon)
	if err != nil {
		return err
	}
	if icon == nil {
		// 被策略跳过的远程图标
		return nil
	}

	s := m.Scale * ratio
	iconW := float64(icon.Bounds().Dx())
	iconH := float64(icon.Bounds().Dy())

	x, y := tr.Project(m.Lon, m.Lat)
	x = x*ratio + (-iconW/2+m.OffsetX)*s
	y = y*ratio + (-iconH+m.OffsetY)*s

	rect := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+iconW*s)), int(math.Round(y+iconH*s)),
	)
	xdraw.CatmullRom.Scale(dst, rect, icon, icon.Bounds(), xdraw.Over, nil)
	return nil
}

// loadIcon 本地图标从icons目录取，远程图标受allowRemoteMarkerIcons约束
// 被策略拒绝的远程图标返回(nil, nil)，整图请求不失败
func (p *Pools) loadIcon(ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if !p.opts.AllowRemoteMarkerIcons {
			config.Log.Debugf("remote marker icon skipped: %s", ref)
			return nil, nil
		}
		resp, err := http.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("fetch marker icon: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch marker icon: status %d", resp.StatusCode)
		}
		img, _, err := image.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decode marker icon: %w", err)
		}
		return img, nil
	}

	// 图标路径不得越出icons目录
	path := filepath.Join(p.opts.Paths.Icons, filepath.Clean("/"+ref))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open marker icon: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode marker icon: %w", err)
	}
	return img, nil
}

// applyLineStyle 线帽与拐角
func applyLineStyle(dc *gg.Context, lineCap, lineJoin string) {
	switch lineCap {
	case "round":
		dc.SetLineCapRound()
	case "square":
		dc.SetLineCapSquare()
	default:
		dc.SetLineCapButt()
	}
	switch lineJoin {
	case "round":
		dc.SetLineJoinRound()
	default:
		dc.SetLineJoinBevel()
	}
}

// colorOr 解析颜色，空值或非法值回退默认
func colorOr(value, fallback string) color.NRGBA {
	if value != "" {
		if c, err := maprender.ParseColor(value); err == nil {
			return c
		}
	}
	c, _ := maprender.ParseColor(fallback)
	return c
}

// firstOf 第一个非空串
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

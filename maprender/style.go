package maprender

import (
	"fmt"
	"image/color"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SourceSpec 样式里声明的数据源
type SourceSpec struct {
	Name     string
	Type     string
	Path     string // mbtiles文件绝对路径
	TileSize int
}

// LayerSpec 编译后的图层，按声明顺序绘制
type LayerSpec struct {
	ID          string
	Type        string
	Source      string
	SourceLayer string
	MinZoom     float64
	MaxZoom     float64
	Paint       Paint
}

// Paint 支持的绘制属性子集
type Paint struct {
	BackgroundColor color.NRGBA
	FillColor       color.NRGBA
	FillOutline     color.NRGBA
	HasOutline      bool
	LineColor       color.NRGBA
	LineWidth       float64
	CircleColor     color.NRGBA
	CircleRadius    float64
	RasterOpacity   float64
}

// CompiledStyle 解析后的样式
type CompiledStyle struct {
	Name    string
	Sources map[string]*SourceSpec
	Layers  []*LayerSpec
}

// CompileStyle 解析渲染用样式JSON
// 数据源URL必须已重写成 mbtiles:// 绝对路径，外部HTTP源被跳过
func CompileStyle(data []byte) (*CompiledStyle, error) {
	var raw struct {
		Name    string                            `json:"name"`
		Sources map[string]map[string]interface{} `json:"sources"`
		Layers  []map[string]interface{}          `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse style: %w", err)
	}

	cs := &CompiledStyle{Name: raw.Name, Sources: map[string]*SourceSpec{}}

	for name, src := range raw.Sources {
		spec, err := compileSource(name, src)
		if err != nil {
			return nil, err
		}
		if spec != nil {
			cs.Sources[name] = spec
		}
	}

	for _, l := range raw.Layers {
		spec, err := compileLayer(l)
		if err != nil {
			return nil, err
		}
		if spec != nil {
			cs.Layers = append(cs.Layers, spec)
		}
	}
	return cs, nil
}

func compileSource(name string, src map[string]interface{}) (*SourceSpec, error) {
	typ, _ := src["type"].(string)
	url, _ := src["url"].(string)
	if !strings.HasPrefix(url, "mbtiles://") {
		// 远程源不在本地渲染范围内
		return nil, nil
	}
	spec := &SourceSpec{
		Name: name,
		Type: typ,
		Path: strings.TrimPrefix(url, "mbtiles://"),
	}
	// 矢量瓦片按512像素网格对齐，栅格默认256
	if typ == "vector" {
		spec.TileSize = 512
	} else {
		spec.TileSize = 256
	}
	if ts, ok := src["tileSize"].(float64); ok && ts > 0 {
		spec.TileSize = int(ts)
	}
	return spec, nil
}

func compileLayer(l map[string]interface{}) (*LayerSpec, error) {
	typ, _ := l["type"].(string)
	switch typ {
	case "background", "raster", "fill", "line", "circle":
	default:
		// symbol等类型不参与软件渲染
		return nil, nil
	}

	spec := &LayerSpec{
		ID:      stringProp(l, "id"),
		Type:    typ,
		Source:  stringProp(l, "source"),
		MinZoom: 0,
		MaxZoom: 24,
	}
	spec.SourceLayer = stringProp(l, "source-layer")
	if v, ok := l["minzoom"].(float64); ok {
		spec.MinZoom = v
	}
	if v, ok := l["maxzoom"].(float64); ok {
		spec.MaxZoom = v
	}

	paint, _ := l["paint"].(map[string]interface{})
	p := Paint{
		LineWidth:     1,
		CircleRadius:  5,
		RasterOpacity: 1,
		FillColor:     color.NRGBA{0, 0, 0, 255},
		LineColor:     color.NRGBA{0, 0, 0, 255},
		CircleColor:   color.NRGBA{0, 0, 0, 255},
	}
	var err error
	if c, ok := paint["background-color"].(string); ok {
		if p.BackgroundColor, err = ParseColor(c); err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
		}
	}
	if c, ok := paint["fill-color"].(string); ok {
		if p.FillColor, err = ParseColor(c); err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
		}
	}
	if c, ok := paint["fill-outline-color"].(string); ok {
		if p.FillOutline, err = ParseColor(c); err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
		}
		p.HasOutline = true
	}
	if c, ok := paint["line-color"].(string); ok {
		if p.LineColor, err = ParseColor(c); err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
		}
	}
	if v, ok := paint["line-width"].(float64); ok {
		p.LineWidth = v
	}
	if c, ok := paint["circle-color"].(string); ok {
		if p.CircleColor, err = ParseColor(c); err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.ID, err)
		}
	}
	if v, ok := paint["circle-radius"].(float64); ok {
		p.CircleRadius = v
	}
	if v, ok := paint["raster-opacity"].(float64); ok {
		p.RasterOpacity = v
	}
	spec.Paint = p
	return spec, nil
}

func stringProp(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

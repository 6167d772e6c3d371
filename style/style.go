// Package style MapLibre样式装载与URL改写
//
// 同一份样式要以三种形态出现：落盘保存用local://占位，
// 渲染器加载用mbtiles://与file://绝对路径，返回客户端时换成公网URL。
// 内存中只保留local://形态，读取方向上按需改写。
package style

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/tilemath"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// mbtiles://{id} 内部数据源引用
var mbtilesRefPattern = regexp.MustCompile(`^mbtiles://\{([^}]+)\}$`)

// Style 已装载样式
type Style struct {
	ID            string
	SpritePath    string // sprites目录内的相对路径
	JSON          map[string]interface{}
	TileJSON      map[string]interface{}
	ServeRendered bool
	ServeData     bool
}

// Load 读取并规范化单个样式，任何失败由调用方将其从活动集中剔除
func Load(id string, entry *config.StyleEntry, opts *config.Options) (*Style, error) {
	raw, err := readStyleSource(entry.Style, opts.Paths.Styles)
	if err != nil {
		return nil, fmt.Errorf("read style %s: %w", id, err)
	}

	styleJSON := map[string]interface{}{}
	if err := json.Unmarshal(raw, &styleJSON); err != nil {
		return nil, fmt.Errorf("parse style %s: %w", id, err)
	}

	s := &Style{
		ID:            id,
		JSON:          styleJSON,
		ServeRendered: entry.ServeRendered,
		ServeData:     entry.ServeData,
	}

	s.rewriteSources()
	s.rewriteSprite()
	s.rewriteGlyphs()
	s.buildTileJSON(entry, opts)
	return s, nil
}

// readStyleSource 样式来源：HTTP URL、绝对路径或相对styles目录
func readStyleSource(src, stylesDir string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := http.Get(src)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("style url returned status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(stylesDir, path)
	}
	return os.ReadFile(path)
}

// rewriteSources mbtiles://{id} 改写为 local://data/<id>.json
func (s *Style) rewriteSources() {
	sources, ok := s.JSON["sources"].(map[string]interface{})
	if !ok {
		return
	}
	for _, v := range sources {
		source, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		url, _ := source["url"].(string)
		if m := mbtilesRefPattern.FindStringSubmatch(url); m != nil {
			source["url"] = "local://data/" + m[1] + ".json"
		}
	}
}

// rewriteSprite 本地sprite改写为local://占位并记录落盘路径
func (s *Style) rewriteSprite() {
	sprite, _ := s.JSON["sprite"].(string)
	if sprite == "" || strings.HasPrefix(sprite, "http://") || strings.HasPrefix(sprite, "https://") {
		return
	}
	s.SpritePath = strings.TrimPrefix(sprite, "/")
	s.JSON["sprite"] = "local://styles/" + s.ID + "/sprite"
}

// rewriteGlyphs 本地字体模板改写为local://占位
func (s *Style) rewriteGlyphs() {
	glyphs, _ := s.JSON["glyphs"].(string)
	if glyphs == "" || strings.HasPrefix(glyphs, "http://") || strings.HasPrefix(glyphs, "https://") {
		return
	}
	s.JSON["glyphs"] = "local://fonts/{fontstack}/{range}.pbf"
}

// buildTileJSON 默认骨架叠加用户配置，必要时从bounds推导center
func (s *Style) buildTileJSON(entry *config.StyleEntry, opts *config.Options) {
	name, _ := s.JSON["name"].(string)
	tj := map[string]interface{}{
		"tilejson":    "2.0.0",
		"name":        name,
		"attribution": "",
		"minzoom":     0,
		"maxzoom":     20,
		"bounds":      []float64{-180, -85.0511, 180, 85.0511},
		"format":      "png",
		"type":        "baselayer",
	}
	for k, v := range entry.TileJSON {
		tj[k] = v
	}

	center, _ := s.JSON["center"].([]interface{})
	zoom, hasZoom := s.JSON["zoom"].(float64)
	if len(center) == 2 && hasZoom {
		lon, _ := toFloat(center[0])
		lat, _ := toFloat(center[1])
		tj["center"] = []float64{lon, lat, zoom}
	} else if _, ok := tj["center"]; !ok {
		if b := toFloatSlice(tj["bounds"]); len(b) == 4 {
			tj["center"] = []float64{
				(b[0] + b[2]) / 2,
				(b[1] + b[3]) / 2,
				tilemath.ZoomForBBox(b[0], b[1], b[2], b[3], 512, 512, 0.1),
			}
		}
	}

	s.TileJSON = tj
}

// RendererJSON 渲染器加载形态：local://替换为mbtiles://与file://绝对路径
// resolve将数据ID映射到MBTiles绝对路径
func (s *Style) RendererJSON(resolve func(dataID string) (string, bool), opts *config.Options) ([]byte, error) {
	clone, err := deepCopy(s.JSON)
	if err != nil {
		return nil, err
	}

	if sources, ok := clone["sources"].(map[string]interface{}); ok {
		for name, v := range sources {
			source, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			url, _ := source["url"].(string)
			if !strings.HasPrefix(url, "local://data/") {
				continue
			}
			dataID := strings.TrimSuffix(strings.TrimPrefix(url, "local://data/"), ".json")
			path, ok := resolve(dataID)
			if !ok {
				return nil, fmt.Errorf("style %s source %q references unknown data %q", s.ID, name, dataID)
			}
			source["url"] = "mbtiles://" + path
		}
	}

	if sprite, _ := clone["sprite"].(string); strings.HasPrefix(sprite, "local://") {
		clone["sprite"] = "file://" + filepath.Join(opts.Paths.Sprites, s.SpritePath, "sprite")
	}
	if glyphs, _ := clone["glyphs"].(string); strings.HasPrefix(glyphs, "local://") {
		clone["glyphs"] = "file://" + opts.Paths.Fonts + "/{fontstack}/{range}.pbf"
	}

	return json.Marshal(clone)
}

// PublicJSON 客户端形态：local://前缀替换为当前公网URL
func (s *Style) PublicJSON(publicBase string) ([]byte, error) {
	data, err := json.Marshal(s.JSON)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(publicBase, "/") {
		publicBase += "/"
	}
	out := strings.ReplaceAll(string(data), "local://", publicBase)
	return []byte(out), nil
}

// deepCopy 经序列化往返的深拷贝
func deepCopy(m map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toFloat 宽松的数值转换
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toFloatSlice 任意数值切片转float64切片
func toFloatSlice(v interface{}) []float64 {
	switch vs := v.(type) {
	case []float64:
		return vs
	case []interface{}:
		out := make([]float64, 0, len(vs))
		for _, e := range vs {
			f, ok := toFloat(e)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

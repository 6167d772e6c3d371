package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/GrainArc/TileServe/tilemath"
)

// Path 一条叠加路径及其样式属性，零值表示未指定
type Path struct {
	Points []orb.Point

	Fill           string
	Stroke         string
	Width          float64
	HasWidth       bool
	LineCap        string
	LineJoin       string
	Border         string
	BorderWidth    float64
	HasBorderWidth bool
	LatLng         bool
}

// Marker 一个叠加标记
type Marker struct {
	Lon     float64
	Lat     float64
	Icon    string
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// ParsePath 解析path=参数
// 形如 ((name:value|){0,8})(enc:<polyline> | lon,lat|lon,lat|...)
func ParsePath(value string) (*Path, error) {
	p := &Path{}
	parts := strings.Split(value, "|")

	// 1. 前导属性段，最多8个
	i := 0
	for ; i < len(parts) && i < 8; i++ {
		name, val, ok := strings.Cut(parts[i], ":")
		if !ok {
			break
		}
		if strings.EqualFold(name, "enc") {
			break
		}
		if err := p.setProp(name, val); err != nil {
			return nil, err
		}
	}

	// 2. 坐标段：polyline或坐标列表
	// polyline字母表包含'|'，enc:之后的内容必须整体还原再解码
	rest := parts[i:]
	if len(rest) > 0 && strings.HasPrefix(strings.ToLower(rest[0]), "enc:") {
		enc := strings.Join(rest, "|")
		p.Points = tilemath.DecodePolyline(enc[len("enc:"):])
	} else {
		for _, tok := range rest {
			lonStr, latStr, ok := strings.Cut(tok, ",")
			if !ok {
				return nil, fmt.Errorf("invalid path coordinate %q", tok)
			}
			if p.LatLng {
				lonStr, latStr = latStr, lonStr
			}
			lon, err1 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
			lat, err2 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid path coordinate %q", tok)
			}
			p.Points = append(p.Points, orb.Point{lon, lat})
		}
	}
	if len(p.Points) == 0 {
		return nil, fmt.Errorf("path has no coordinates")
	}
	return p, nil
}

func (p *Path) setProp(name, val string) error {
	switch strings.ToLower(name) {
	case "latlng":
		p.LatLng = val != "false" && val != "0"
	case "fill":
		p.Fill = val
	case "stroke":
		p.Stroke = val
	case "width":
		w, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid path width %q", val)
		}
		p.Width = w
		p.HasWidth = true
	case "linecap":
		p.LineCap = val
	case "linejoin":
		p.LineJoin = val
	case "border":
		p.Border = val
	case "borderwidth":
		w, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid path borderWidth %q", val)
		}
		p.BorderWidth = w
		p.HasBorderWidth = true
	default:
		return fmt.Errorf("unknown path property %q", name)
	}
	return nil
}

// ParseMarker 解析marker=参数
// 形如 lon,lat|iconPath(|scale:f|offset:dx,dy)
func ParseMarker(value string) (*Marker, error) {
	parts := strings.Split(value, "|")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid marker %q", value)
	}

	lonStr, latStr, ok := strings.Cut(parts[0], ",")
	if !ok {
		return nil, fmt.Errorf("invalid marker coordinate %q", parts[0])
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid marker coordinate %q", parts[0])
	}

	m := &Marker{Lon: lon, Lat: lat, Icon: parts[1], Scale: 1}
	for _, opt := range parts[2:] {
		name, val, ok := strings.Cut(opt, ":")
		if !ok {
			return nil, fmt.Errorf("invalid marker option %q", opt)
		}
		switch strings.ToLower(name) {
		case "scale":
			s, err := strconv.ParseFloat(val, 64)
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid marker scale %q", val)
			}
			m.Scale = s
		case "offset":
			dxStr, dyStr, ok := strings.Cut(val, ",")
			if !ok {
				return nil, fmt.Errorf("invalid marker offset %q", val)
			}
			dx, err1 := strconv.ParseFloat(dxStr, 64)
			dy, err2 := strconv.ParseFloat(dyStr, 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid marker offset %q", val)
			}
			m.OffsetX, m.OffsetY = dx, dy
		default:
			return nil, fmt.Errorf("unknown marker option %q", name)
		}
	}
	return m, nil
}

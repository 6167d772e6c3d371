package maprender

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseColor 解析样式里常见的颜色写法
// 支持 #rgb #rrggbb #rrggbbaa rgb() rgba() 及少量命名色
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch s {
	case "white":
		return color.NRGBA{255, 255, 255, 255}, nil
	case "black":
		return color.NRGBA{0, 0, 0, 255}, nil
	case "red":
		return color.NRGBA{255, 0, 0, 255}, nil
	case "transparent", "":
		return color.NRGBA{}, nil
	}

	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBColor(s)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color: %q", s)
}

func parseHexColor(hex string) (color.NRGBA, error) {
	// 1. 短格式扩展成长格式
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, c := range hex {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		hex = b.String()
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color: #%s", hex)
	}
	// 2. 逐通道解析
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color: #%s", hex)
	}
	if len(hex) == 6 {
		return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, nil
	}
	return color.NRGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

func parseRGBColor(s string) (color.NRGBA, error) {
	open := strings.Index(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close < open {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	parts := strings.Split(s[open+1:close], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
		}
		ch[i] = clampByte(v)
	}
	a := uint8(255)
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
		}
		a = clampByte(v * 255)
	}
	return color.NRGBA{ch[0], ch[1], ch[2], a}, nil
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

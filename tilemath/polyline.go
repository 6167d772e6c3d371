package tilemath

import (
	"math"

	"github.com/paulmach/orb"
)

// DecodePolyline 解码Google Polyline5编码的折线
// 字节流中纬度在前，返回点为(lon,lat)顺序
func DecodePolyline(encoded string) []orb.Point {
	points := make([]orb.Point, 0, len(encoded)/4+1)

	index := 0
	lat := 0
	lng := 0
	strLen := len(encoded)

	for index < strLen {
		result := 0
		shift := 0
		for index < strLen {
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		lat += (result >> 1) ^ (-(result & 1))

		result = 0
		shift = 0
		for index < strLen {
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		lng += (result >> 1) ^ (-(result & 1))

		points = append(points, orb.Point{float64(lng) * 1e-5, float64(lat) * 1e-5})
	}

	return points
}

// EncodePolyline 编码为Google Polyline5
// 输入点为(lon,lat)顺序，写入时纬度在前
func EncodePolyline(points []orb.Point) string {
	if len(points) == 0 {
		return ""
	}

	result := make([]byte, 0, len(points)*6)
	prevLat := 0
	prevLng := 0

	for _, p := range points {
		lat := int(math.Round(p[1] * 1e5))
		lng := int(math.Round(p[0] * 1e5))

		result = append(result, encodeSigned(lat-prevLat)...)
		result = append(result, encodeSigned(lng-prevLng)...)

		prevLat = lat
		prevLng = lng
	}

	return string(result)
}

// encodeSigned zigzag编码单个差值
func encodeSigned(value int) []byte {
	s := value << 1
	if value < 0 {
		s = ^s
	}

	var buf []byte
	for s >= 0x20 {
		buf = append(buf, byte((0x20|(s&0x1f))+63))
		s >>= 5
	}
	buf = append(buf, byte(s+63))
	return buf
}

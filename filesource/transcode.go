package filesource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/GrainArc/TileServe/mbtiles"
)

// Gunzip 若数据带gzip签名则解压，否则原样返回
func Gunzip(data []byte) ([]byte, error) {
	if !mbtiles.IsGzipped(data) {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Gzip 若数据未压缩则gzip，已压缩原样返回
func Gzip(data []byte) ([]byte, error) {
	if mbtiles.IsGzipped(data) {
		return data, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MVTToGeoJSON 将矢量瓦片转为单个FeatureCollection
// 每个要素注入其图层名（属性键统一小写）
func MVTToGeoJSON(data []byte, z, x, y int) ([]byte, error) {
	raw, err := Gunzip(data)
	if err != nil {
		return nil, fmt.Errorf("gunzip vector tile: %w", err)
	}

	layers, err := mvt.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal vector tile: %w", err)
	}
	layers.ProjectToWGS84(maptile.New(uint32(x), uint32(y), maptile.Zoom(z)))

	fc := geojson.NewFeatureCollection()
	for _, layer := range layers {
		for _, feature := range layer.Features {
			props := geojson.Properties{}
			for k, v := range feature.Properties {
				props[strings.ToLower(k)] = v
			}
			props["layer"] = layer.Name
			feature.Properties = props
			fc.Append(feature)
		}
	}
	return json.Marshal(fc)
}

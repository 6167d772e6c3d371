package maprender

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"

	"github.com/GrainArc/TileServe/mbtiles"
	"github.com/GrainArc/TileServe/tilemath"
)

// sourceHandle 地图实例持有的存档句柄，与地图同生命周期
type sourceHandle struct {
	spec *SourceSpec
	db   *mbtiles.DB

	minZoom int
	maxZoom int
}

func openSource(spec *SourceSpec) (*sourceHandle, error) {
	db, err := mbtiles.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", spec.Name, err)
	}
	h := &sourceHandle{spec: spec, db: db, minZoom: 0, maxZoom: tilemath.MaxZoom}
	if md, err := db.Metadata(); err == nil {
		if v, ok := md["minzoom"].(int); ok {
			h.minZoom = v
		}
		if v, ok := md["maxzoom"].(int); ok {
			h.maxZoom = v
		}
	}
	return h, nil
}

func (h *sourceHandle) close() {
	h.db.Close()
}

// tileZoom 引擎缩放换算成该源的瓦片级别并夹紧到存档范围
func (h *sourceHandle) tileZoom(zoom float64) int {
	z := int(math.Round(zoom + math.Log2(tilemath.InternalTileSize/float64(h.spec.TileSize))))
	if z < h.minZoom {
		z = h.minZoom
	}
	if z > h.maxZoom {
		z = h.maxZoom
	}
	if z < 0 {
		z = 0
	}
	return z
}

// rasterTile 读取并解码一张栅格瓦片
func (h *sourceHandle) rasterTile(z, x, y int) (image.Image, error) {
	data, err := h.db.ReadTile(z, x, y)
	if err != nil {
		return nil, err
	}
	if mbtiles.DetectFormat(data) == mbtiles.FormatWebP {
		return webp.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// vectorTile 读取并解码一张矢量瓦片，坐标投影到WGS84
func (h *sourceHandle) vectorTile(z, x, y int) (mvt.Layers, error) {
	data, err := h.db.ReadTile(z, x, y)
	if err != nil {
		return nil, err
	}
	layers, err := mvt.UnmarshalGzipped(data)
	if err != nil {
		layers, err = mvt.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("decode vector tile %d/%d/%d: %w", z, x, y, err)
		}
	}
	layers.ProjectToWGS84(maptile.New(uint32(x), uint32(y), maptile.Zoom(z)))
	return layers, nil
}

package views

import (
	"encoding/xml"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/config"
)

// WMTS能力文档结构，只覆盖RESTful栅格服务需要的字段
type wmtsCapabilities struct {
	XMLName  xml.Name `xml:"Capabilities"`
	Version  string   `xml:"version,attr"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsOws string   `xml:"xmlns:ows,attr"`

	ServiceIdentification wmtsServiceIdentification `xml:"ows:ServiceIdentification"`
	Contents              wmtsContents              `xml:"Contents"`
}

type wmtsServiceIdentification struct {
	Title       string `xml:"ows:Title"`
	ServiceType string `xml:"ows:ServiceType"`
	Version     string `xml:"ows:ServiceTypeVersion"`
}

type wmtsContents struct {
	Layer         wmtsLayer         `xml:"Layer"`
	TileMatrixSet wmtsTileMatrixSet `xml:"TileMatrixSet"`
}

type wmtsLayer struct {
	Title             string             `xml:"ows:Title"`
	Identifier        string             `xml:"ows:Identifier"`
	BoundingBox       wmtsBoundingBox    `xml:"ows:WGS84BoundingBox"`
	Style             wmtsStyle          `xml:"Style"`
	Format            string             `xml:"Format"`
	TileMatrixSetLink wmtsTileMatrixLink `xml:"TileMatrixSetLink"`
	ResourceURL       wmtsResourceURL    `xml:"ResourceURL"`
}

type wmtsBoundingBox struct {
	LowerCorner string `xml:"ows:LowerCorner"`
	UpperCorner string `xml:"ows:UpperCorner"`
}

type wmtsStyle struct {
	IsDefault  bool   `xml:"isDefault,attr"`
	Identifier string `xml:"ows:Identifier"`
}

type wmtsTileMatrixLink struct {
	TileMatrixSet string `xml:"TileMatrixSet"`
}

type wmtsResourceURL struct {
	Format       string `xml:"format,attr"`
	ResourceType string `xml:"resourceType,attr"`
	Template     string `xml:"template,attr"`
}

type wmtsTileMatrixSet struct {
	Identifier   string           `xml:"ows:Identifier"`
	SupportedCRS string           `xml:"ows:SupportedCRS"`
	TileMatrix   []wmtsTileMatrix `xml:"TileMatrix"`
}

type wmtsTileMatrix struct {
	Identifier       string  `xml:"ows:Identifier"`
	ScaleDenominator float64 `xml:"ScaleDenominator"`
	TopLeftCorner    string  `xml:"TopLeftCorner"`
	TileWidth        int     `xml:"TileWidth"`
	TileHeight       int     `xml:"TileHeight"`
	MatrixWidth      int     `xml:"MatrixWidth"`
	MatrixHeight     int     `xml:"MatrixHeight"`
}

// 0级GoogleMapsCompatible比例尺分母
const wmtsBaseScaleDenominator = 559082264.0287178

// wmts GET /styles/<id>/wmts.xml
func (s *Server) wmts(c *gin.Context, id string) {
	st, ok := s.Repo.Styles[id]
	if !ok || !st.ServeRendered {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}

	name := id
	if n, ok := st.TileJSON["name"].(string); ok {
		name = n
	}
	bounds := []float64{-180, -85.0511, 180, 85.0511}
	if b := floatSlice(st.TileJSON["bounds"]); len(b) == 4 {
		bounds = b
	}

	tileSize := s.Conf.Options.TileSize
	matrices := make([]wmtsTileMatrix, 0, config.MaxZoom+1)
	for z := 0; z <= config.MaxZoom; z++ {
		n := int(math.Exp2(float64(z)))
		matrices = append(matrices, wmtsTileMatrix{
			Identifier:       fmt.Sprintf("%d", z),
			ScaleDenominator: wmtsBaseScaleDenominator / math.Exp2(float64(z)),
			TopLeftCorner:    "-20037508.34278925 20037508.34278925",
			TileWidth:        tileSize,
			TileHeight:       tileSize,
			MatrixWidth:      n,
			MatrixHeight:     n,
		})
	}

	caps := wmtsCapabilities{
		Version:  "1.0.0",
		Xmlns:    "http://www.opengis.net/wmts/1.0",
		XmlnsOws: "http://www.opengis.net/ows/1.1",
		ServiceIdentification: wmtsServiceIdentification{
			Title:       name,
			ServiceType: "OGC WMTS",
			Version:     "1.0.0",
		},
		Contents: wmtsContents{
			Layer: wmtsLayer{
				Title:      name,
				Identifier: id,
				BoundingBox: wmtsBoundingBox{
					LowerCorner: fmt.Sprintf("%g %g", bounds[0], bounds[1]),
					UpperCorner: fmt.Sprintf("%g %g", bounds[2], bounds[3]),
				},
				Style:             wmtsStyle{IsDefault: true, Identifier: "default"},
				Format:            "image/png",
				TileMatrixSetLink: wmtsTileMatrixLink{TileMatrixSet: "GoogleMapsCompatible"},
				ResourceURL: wmtsResourceURL{
					Format:       "image/png",
					ResourceType: "tile",
					Template: fmt.Sprintf("%sstyles/%s/{TileMatrix}/{TileCol}/{TileRow}.png",
						publicBase(c), id),
				},
			},
			TileMatrixSet: wmtsTileMatrixSet{
				Identifier:   "GoogleMapsCompatible",
				SupportedCRS: "urn:ogc:def:crs:EPSG::3857",
				TileMatrix:   matrices,
			},
		},
	}

	out, err := xml.MarshalIndent(caps, "", "  ")
	if err != nil {
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/xml", append([]byte(xml.Header), out...))
}

// floatSlice 兼容解码后可能出现的两种数组形态
func floatSlice(v interface{}) []float64 {
	switch vv := v.(type) {
	case []float64:
		return vv
	case []interface{}:
		out := make([]float64, 0, len(vv))
		for _, e := range vv {
			f, ok := e.(float64)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

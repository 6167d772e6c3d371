package views

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"

	"github.com/GrainArc/TileServe/filesource"
	"github.com/GrainArc/TileServe/mbtiles"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DataTileJSON GET /data/<id>.json
func (s *Server) DataTileJSON(c *gin.Context) {
	id := c.Param("id")
	if !strings.HasSuffix(id, ".json") {
		abortError(c, http.StatusNotFound, "data not found")
		return
	}
	id = strings.TrimSuffix(id, ".json")
	if !validID(id) {
		abortError(c, http.StatusNotFound, "data not found")
		return
	}
	tj, ok := s.Repo.Data[id]
	if !ok {
		abortError(c, http.StatusNotFound, "data not found")
		return
	}

	format, _ := tj["format"].(string)
	out := make(map[string]interface{}, len(tj)+1)
	for k, v := range tj {
		out[k] = v
	}
	out["tiles"] = []string{
		fmt.Sprintf("%sdata/%s/{z}/{x}/{y}.%s", publicBase(c), id, format),
	}
	c.JSON(http.StatusOK, out)
}

// DataTile GET /data/<id>/<z>/<x>/<y>.<fmt>
func (s *Server) DataTile(c *gin.Context) {
	id := c.Param("id")
	tj, ok := s.Repo.Data[id]
	if !ok || !validID(id) {
		abortError(c, http.StatusNotFound, "data not found")
		return
	}

	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	yPart := c.Param("y")
	dot := strings.LastIndexByte(yPart, '.')
	if errZ != nil || errX != nil || dot < 1 {
		abortError(c, http.StatusBadRequest, "invalid tile coordinates")
		return
	}
	y, errY := strconv.Atoi(yPart[:dot])
	format := yPart[dot+1:]
	if errY != nil {
		abortError(c, http.StatusBadRequest, "invalid tile coordinates")
		return
	}

	if !s.checkTileBounds(z, x, y) {
		abortError(c, http.StatusBadRequest, "Out of bounds")
		return
	}

	// 格式门禁：请求格式必须等于存储格式，唯一例外是pbf转geojson
	stored, _ := tj["format"].(string)
	if format != stored && !(format == "geojson" && stored == "pbf") {
		abortError(c, http.StatusBadRequest, "Invalid format")
		return
	}

	path, ok := s.Repo.ResolveData(id)
	if !ok {
		abortError(c, http.StatusNotFound, "data not found")
		return
	}

	resp := s.Src.FetchTile(c.Request.Context(), path, z, x, y)
	if resp.Err != nil {
		abortError(c, http.StatusInternalServerError, resp.Err.Error())
		return
	}
	if resp.NoContent {
		c.Status(http.StatusNoContent)
		return
	}

	data := resp.Data
	var contentType string
	switch format {
	case "geojson":
		var err error
		data, err = filesource.MVTToGeoJSON(data, z, x, y)
		if err != nil {
			abortError(c, http.StatusInternalServerError, err.Error())
			return
		}
		contentType = "application/json"
	default:
		contentType = mbtiles.Format(format).ContentType()
	}

	// pbf与geojson总是压缩返回
	if format == "pbf" || format == "geojson" {
		var err error
		data, err = filesource.Gzip(data)
		if err != nil {
			abortError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.Header("Content-Encoding", "gzip")
	}

	if info, err := os.Stat(path); err == nil {
		c.Header("Last-Modified", info.ModTime().UTC().Format(time.RFC1123))
	}
	c.Data(http.StatusOK, contentType, data)
}

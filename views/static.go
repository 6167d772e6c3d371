package views

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/render"
)

var staticSizePattern = regexp.MustCompile(`^(\d+)x(\d+)(@\d+x)?\.(png|jpg|jpeg|webp)$`)

// static GET /styles/<id>/static/[raw/]<viewport>/<W>x<H>[@Nx].<fmt>
func (s *Server) static(c *gin.Context, id, rest string) {
	if !s.Conf.Options.ServeStaticMaps {
		abortError(c, http.StatusNotFound, "static maps disabled")
		return
	}

	raw := false
	if strings.HasPrefix(rest, "raw/") {
		raw = true
		rest = strings.TrimPrefix(rest, "raw/")
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		abortError(c, http.StatusBadRequest, "invalid static request")
		return
	}

	m := staticSizePattern.FindStringSubmatch(parts[1])
	if m == nil {
		abortError(c, http.StatusBadRequest, "invalid image size")
		return
	}
	width, _ := strconv.Atoi(m[1])
	height, _ := strconv.Atoi(m[2])
	scale, ok := parseScalePart(m[3], s.Conf.Options.MaxScale())
	if !ok {
		abortError(c, http.StatusBadRequest, "invalid scale")
		return
	}
	format := m[4]

	req := render.NewStaticRequest(width, height, scale)
	req.Raw = raw
	if err := parseViewportSpec(req, parts[0]); err != "" {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if err := applyOverlayQuery(c, req); err != "" {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	img, err := s.Pools.RenderStatic(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, render.ErrUnknownStyle):
			abortError(c, http.StatusNotFound, "style not found")
		case errors.Is(err, render.ErrOutOfBounds):
			abortError(c, http.StatusBadRequest, "Out of bounds")
		case errors.Is(err, render.ErrInvalidSize):
			abortError(c, http.StatusBadRequest, "invalid image size")
		case errors.Is(err, render.ErrNoViewport):
			abortError(c, http.StatusBadRequest, err.Error())
		default:
			abortError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	data, contentType, err := render.Encode(img, format, s.Conf.Options.FormatQuality)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// parseViewportSpec 三种视口：auto、外包框、中心+级别(+姿态)
// 返回非空串表示解析错误
func parseViewportSpec(req *render.StaticRequest, spec string) string {
	if spec == "auto" {
		req.Auto = true
		return ""
	}

	// 姿态段只跟在中心形式后面
	attitude := ""
	if at := strings.IndexByte(spec, '@'); at >= 0 {
		spec, attitude = spec[:at], spec[at+1:]
	}

	nums, ok := parseFloats(spec)
	if !ok {
		return "invalid viewport"
	}
	switch len(nums) {
	case 3:
		req.HasCenter = true
		req.Lon, req.Lat, req.Zoom = nums[0], nums[1], nums[2]
		if attitude != "" {
			av, ok := parseFloats(attitude)
			if !ok || len(av) > 2 {
				return "invalid viewport"
			}
			req.Bearing = av[0]
			if len(av) == 2 {
				req.Pitch = av[1]
			}
		}
		return ""
	case 4:
		if attitude != "" {
			return "invalid viewport"
		}
		req.HasBBox = true
		copy(req.BBox[:], nums)
		return ""
	default:
		return "invalid viewport"
	}
}

// applyOverlayQuery 叠加物与全局默认值
func applyOverlayQuery(c *gin.Context, req *render.StaticRequest) string {
	for _, v := range c.QueryArray("path") {
		p, err := render.ParsePath(v)
		if err != nil {
			return err.Error()
		}
		req.Paths = append(req.Paths, p)
	}
	for _, v := range c.QueryArray("marker") {
		m, err := render.ParseMarker(v)
		if err != nil {
			return err.Error()
		}
		req.Markers = append(req.Markers, m)
	}

	req.Fill = c.Query("fill")
	req.Stroke = c.Query("stroke")
	req.Border = c.Query("border")
	req.LineCap = c.Query("linecap")
	req.LineJoin = c.Query("linejoin")

	if v := c.Query("width"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "invalid width"
		}
		req.StrokeWidth = w
		req.HasStrokeWidth = true
	}
	if v := c.Query("borderWidth"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "invalid borderWidth"
		}
		req.BorderWidth = w
		req.HasBorderWidth = true
	}
	if v := c.Query("padding"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "invalid padding"
		}
		req.Padding = p
	}
	if v := c.Query("maxzoom"); v != "" {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "invalid maxzoom"
		}
		req.MaxZoom = z
	}
	return ""
}

// parseFloats 逗号分隔的浮点列表
func parseFloats(s string) ([]float64, bool) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

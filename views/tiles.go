package views

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/render"
)

var rasterTilePattern = regexp.MustCompile(`^(\d+)/(\d+)/(\d+)(@\d+x)?\.(png|jpg|jpeg|webp)$`)

// renderedTile GET /styles/<id>/<z>/<x>/<y>[@Nx].<fmt>
func (s *Server) renderedTile(c *gin.Context, id, rest string) {
	m := rasterTilePattern.FindStringSubmatch(rest)
	if m == nil {
		abortError(c, http.StatusNotFound, "not found")
		return
	}
	z, _ := strconv.Atoi(m[1])
	x, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])

	scale, ok := parseScalePart(m[4], s.Conf.Options.MaxScale())
	if !ok {
		abortError(c, http.StatusBadRequest, "invalid scale")
		return
	}
	if !s.checkTileBounds(z, x, y) {
		abortError(c, http.StatusBadRequest, "Out of bounds")
		return
	}

	img, err := s.Pools.RenderTile(c.Request.Context(), id, scale, z, x, y)
	if err != nil {
		if err == render.ErrUnknownStyle {
			abortError(c, http.StatusNotFound, "style not found")
		} else {
			abortError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	data, contentType, err := render.Encode(img, m[5], s.Conf.Options.FormatQuality)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

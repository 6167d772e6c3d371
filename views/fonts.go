package views

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"
)

var glyphRangePattern = regexp.MustCompile(`^(\d+)-(\d+)\.pbf$`)

// Glyphs GET /fonts/<fontstack>/<start>-<end>.pbf
func (s *Server) Glyphs(c *gin.Context) {
	fontstack := c.Param("fontstack")
	if !validID(fontstack) {
		abortError(c, http.StatusBadRequest, "invalid fontstack")
		return
	}
	rangePart := c.Param("range")
	if !glyphRangePattern.MatchString(rangePart) {
		abortError(c, http.StatusBadRequest, "invalid glyph range")
		return
	}

	path := filepath.Join(s.Conf.Options.Paths.Fonts, fontstack, rangePart)
	if _, err := os.Stat(path); err != nil {
		abortError(c, http.StatusNotFound, "font not found")
		return
	}
	c.Header("Content-Type", "application/x-protobuf")
	c.File(path)
}

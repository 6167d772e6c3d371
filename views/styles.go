package views

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// StyleRoot GET /styles/<id>.json
func (s *Server) StyleRoot(c *gin.Context) {
	id := c.Param("id")
	if !strings.HasSuffix(id, ".json") {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}
	s.renderedTileJSON(c, strings.TrimSuffix(id, ".json"))
}

// StyleDispatch GET /styles/<id>/* 的二级分发
// gin的路由树不允许静态段与参数段互为兄弟，样式下的子路径在这里手工分发
func (s *Server) StyleDispatch(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}
	rest := strings.TrimPrefix(c.Param("rest"), "/")

	switch {
	case rest == "style.json":
		s.styleJSON(c, id)
	case strings.HasPrefix(rest, "sprite"):
		s.sprite(c, id, rest)
	case rest == "wmts.xml":
		s.wmts(c, id)
	case strings.HasPrefix(rest, "static/"):
		s.static(c, id, strings.TrimPrefix(rest, "static/"))
	default:
		s.renderedTile(c, id, rest)
	}
}

// styleJSON 公开形式的样式文档，local://换成当前公开地址
func (s *Server) styleJSON(c *gin.Context, id string) {
	st, ok := s.Repo.Styles[id]
	if !ok {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}
	data, err := st.PublicJSON(publicBase(c))
	if err != nil {
		abortError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// renderedTileJSON 渲染瓦片集的TileJSON
func (s *Server) renderedTileJSON(c *gin.Context, id string) {
	st, ok := s.Repo.Styles[id]
	if !ok || !st.ServeRendered {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}

	out := make(map[string]interface{}, len(st.TileJSON)+1)
	for k, v := range st.TileJSON {
		out[k] = v
	}
	out["tiles"] = []string{
		fmt.Sprintf("%sstyles/%s/{z}/{x}/{y}.png", publicBase(c), id),
	}
	c.JSON(http.StatusOK, out)
}

var spritePattern = regexp.MustCompile(`^sprite(@(\d+)x)?\.(json|png)$`)

// sprite 精灵图及其@Nx变体
func (s *Server) sprite(c *gin.Context, id, rest string) {
	st, ok := s.Repo.Styles[id]
	if !ok {
		abortError(c, http.StatusNotFound, "style not found")
		return
	}
	m := spritePattern.FindStringSubmatch(rest)
	if m == nil || st.SpritePath == "" {
		abortError(c, http.StatusBadRequest, "invalid sprite request")
		return
	}

	name := "sprite"
	if m[2] != "" {
		name += "@" + m[2] + "x"
	}
	path := filepath.Join(s.Conf.Options.Paths.Sprites, st.SpritePath, name+"."+m[3])
	if _, err := os.Stat(path); err != nil {
		abortError(c, http.StatusNotFound, "sprite not found")
		return
	}

	if m[3] == "json" {
		c.Header("Content-Type", "application/json")
	} else {
		c.Header("Content-Type", "image/png")
	}
	c.File(path)
}

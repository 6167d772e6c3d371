package views

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>TileServe</title></head>
<body>
<h1>TileServe</h1>
<h2>Styles</h2>
<ul>
{{range .Styles}}<li><a href="styles/{{.}}/style.json">{{.}}</a>
 (<a href="styles/{{.}}.json">TileJSON</a>, <a href="styles/{{.}}/wmts.xml">WMTS</a>)</li>
{{end}}</ul>
<h2>Data</h2>
<ul>
{{range .Data}}<li><a href="data/{{.}}.json">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

// Home GET / 列出已配置的样式与数据源
func (s *Server) Home(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = homeTemplate.Execute(c.Writer, gin.H{
		"Styles": s.Repo.StyleIDs(),
		"Data":   s.Repo.DataIDs(),
	})
}

// Package routers 路由注册与中间件
package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/cache"
	"github.com/GrainArc/TileServe/views"
)

// 静态图端点参与缓存键的查询参数
var outputCacheParams = []string{
	"path", "marker", "fill", "stroke", "width",
	"linecap", "linejoin", "border", "borderWidth", "padding", "maxzoom",
}

// Setup 构建引擎并注册全部路由，out为nil时不启用输出缓存
func Setup(s *views.Server, out *cache.Output, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLog(), CORS(allowedOrigins))

	r.GET("/", s.Home)
	r.GET("/health", s.Health)

	styles := r.Group("/styles")
	{
		styles.GET("/:id", s.StyleRoot)
		if out != nil {
			styles.GET("/:id/*rest", out.Middleware(outputCacheParams...), s.StyleDispatch)
		} else {
			styles.GET("/:id/*rest", s.StyleDispatch)
		}
	}

	data := r.Group("/data")
	{
		data.GET("/:id", s.DataTileJSON)
		data.GET("/:id/:z/:x/:y", s.DataTile)
	}

	r.GET("/fonts/:fontstack/:range", s.Glyphs)
	return r
}

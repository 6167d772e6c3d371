package routers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teris-io/shortid"

	"github.com/GrainArc/TileServe/config"
)

// RequestLog 每个请求一条带短ID的访问日志
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := shortid.Generate()
		c.Set("reqid", id)
		start := time.Now()

		c.Next()

		config.Log.Infof("[%s] %d %s %s %v",
			id, c.Writer.Status(), c.Request.Method,
			c.Request.URL.RequestURI(), time.Since(start))
	}
}

// CORS 按配置的来源列表放行，列表为空时放行全部
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (len(allowed) == 0 || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Accept, Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

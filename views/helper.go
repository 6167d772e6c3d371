// Package views HTTP处理器
package views

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/filesource"
	"github.com/GrainArc/TileServe/render"
	"github.com/GrainArc/TileServe/style"
	"github.com/GrainArc/TileServe/tilemath"
)

// Server 处理器共享的依赖，启动后只读
type Server struct {
	Conf  *config.Config
	Repo  *style.Repository
	Src   *filesource.Source
	Pools *render.Pools
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)

// validID 样式/数据/字体ID的字符约束
func validID(id string) bool {
	return idPattern.MatchString(id)
}

// publicBase 当前请求的公开基地址，带尾部斜杠
func publicBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s/", scheme, c.Request.Host)
}

// abortError 统一的错误出口
func abortError(c *gin.Context, code int, msg string) {
	c.String(code, msg)
	c.Abort()
}

// parseScalePart 解析"@Nx"片段，缺省为1
func parseScalePart(part string, maxScale int) (int, bool) {
	if part == "" {
		return 1, true
	}
	if !strings.HasPrefix(part, "@") || !strings.HasSuffix(part, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(part[1 : len(part)-1])
	if err != nil || n < 1 || n > maxScale {
		return 0, false
	}
	return n, true
}

// checkTileBounds z/x/y是否落在服务范围内
func (s *Server) checkTileBounds(z, x, y int) bool {
	if z < 0 || z > config.MaxZoom || x < 0 || y < 0 {
		return false
	}
	n := 1 << uint(z)
	if x >= n || y >= n {
		return false
	}

	sb := s.Conf.Options.ServeBounds
	if len(sb) != 4 {
		return true
	}
	minX := tilemath.LonToTileX(sb[0], z)
	maxX := tilemath.LonToTileX(sb[2], z)
	minY := tilemath.LatToTileY(sb[3], z)
	maxY := tilemath.LatToTileY(sb[1], z)
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// Health 健康检查
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

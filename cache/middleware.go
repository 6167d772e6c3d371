package cache

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/config"
)

// Output 输出缓存：先查内存LRU，再查持久层
type Output struct {
	mem   *Memory
	store *Store
}

// NewOutput 组合缓存，mem与store均可为nil
func NewOutput(mem *Memory, store *Store) *Output {
	return &Output{mem: mem, store: store}
}

func (o *Output) get(key string) (*Entry, bool) {
	if o.mem != nil {
		if e, ok := o.mem.Get(key); ok {
			return e, true
		}
	}
	if o.store != nil {
		e, ok, err := o.store.Get(key)
		if err != nil {
			config.Log.Warnf("output cache read failed: %s", err)
			return nil, false
		}
		if ok {
			if o.mem != nil {
				o.mem.Set(key, e)
			}
			return e, true
		}
	}
	return nil, false
}

func (o *Output) put(key string, e *Entry) {
	if o.mem != nil {
		o.mem.Set(key, e)
	}
	if o.store != nil {
		if err := o.store.Set(key, e); err != nil {
			config.Log.Warnf("output cache write failed: %s", err)
		}
	}
}

// Middleware 缓存成功响应，键由路径与列出的查询参数构成
func (o *Output) Middleware(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c, params)
		if e, ok := o.get(key); ok {
			if e.Encoding != "" {
				c.Header("Content-Encoding", e.Encoding)
			}
			c.Header("X-Output-Cache", "hit")
			c.Data(http.StatusOK, e.ContentType, e.Data)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() == http.StatusOK && w.buf.Len() > 0 {
			data := make([]byte, w.buf.Len())
			copy(data, w.buf.Bytes())
			o.put(key, &Entry{
				Data:        data,
				ContentType: w.Header().Get("Content-Type"),
				Encoding:    w.Header().Get("Content-Encoding"),
			})
		}
	}
}

// cacheKey 路径加上枚举参数的取值
func cacheKey(c *gin.Context, params []string) string {
	var b strings.Builder
	b.WriteString(c.Request.URL.Path)
	for _, p := range params {
		vals := c.QueryArray(p)
		if len(vals) == 0 {
			continue
		}
		b.WriteByte('&')
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}

// captureWriter 透写并留存响应体
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.buf.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

package cache

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrainArc/TileServe/config"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory(1024)
	m.Set("a", &Entry{Data: []byte("hello"), ContentType: "text/plain"})

	e, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), e.Data)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMemoryEvictsByBytes(t *testing.T) {
	m := NewMemory(10)
	m.Set("a", &Entry{Data: []byte("12345")})
	m.Set("b", &Entry{Data: []byte("12345")})

	// 触碰a使b成为最旧项
	_, ok := m.Get("a")
	require.True(t, ok)

	m.Set("c", &Entry{Data: []byte("12345")})
	_, ok = m.Get("b")
	assert.False(t, ok)
	_, ok = m.Get("a")
	assert.True(t, ok)

	bytes, count := m.Size()
	assert.LessOrEqual(t, bytes, int64(10))
	assert.Equal(t, 2, count)
}

func TestMemoryDisabled(t *testing.T) {
	m := NewMemory(0)
	m.Set("a", &Entry{Data: []byte("x")})
	_, ok := m.Get("a")
	assert.False(t, ok)
}

func TestMemoryOversizedEntrySkipped(t *testing.T) {
	m := NewMemory(4)
	m.Set("a", &Entry{Data: []byte("too large")})
	_, ok := m.Get("a")
	assert.False(t, ok)
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := newStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("k", &Entry{Data: []byte("v1"), ContentType: "image/png", Encoding: "gzip"}))
	e, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), e.Data)
	assert.Equal(t, "image/png", e.ContentType)
	assert.Equal(t, "gzip", e.Encoding)

	// 同键覆盖
	require.NoError(t, s.Set("k", &Entry{Data: []byte("v2")}))
	e, _, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), e.Data)
}

func TestMiddlewareCachesResponse(t *testing.T) {
	config.InitLog()
	gin.SetMode(gin.TestMode)

	var calls int32
	out := NewOutput(NewMemory(1<<20), nil)

	r := gin.New()
	r.GET("/tile", out.Middleware("x", "y"), func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.Data(http.StatusOK, "image/png", []byte("tile-bytes"))
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/tile?x=1&y=2", nil))
	require.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "tile-bytes", w1.Body.String())

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/tile?x=1&y=2", nil))
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "tile-bytes", w2.Body.String())
	assert.Equal(t, "image/png", w2.Header().Get("Content-Type"))
	assert.Equal(t, "hit", w2.Header().Get("X-Output-Cache"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 不同参数取值不命中
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/tile?x=1&y=3", nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMiddlewareSkipsErrors(t *testing.T) {
	config.InitLog()
	gin.SetMode(gin.TestMode)

	var calls int32
	out := NewOutput(NewMemory(1<<20), nil)

	r := gin.New()
	r.GET("/missing", out.Middleware(), func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.String(http.StatusNotFound, "not found")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

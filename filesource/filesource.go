// Package filesource MBTiles文件源：全局工作器池直接对外出瓦片与元数据
package filesource

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/GrainArc/TileServe/mbtiles"
	"github.com/GrainArc/TileServe/worker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 文件源池规格：按需增长，空闲时可缩到零
const (
	poolMin = 0
	poolMax = 16
)

// Handles 文件源工作器独占的句柄集，按路径缓存已打开的存档
type Handles struct {
	dbs map[string]*mbtiles.DB
}

// Close 按构造逆序释放全部句柄
func (h *Handles) Close() {
	for _, db := range h.dbs {
		db.Close()
	}
	h.dbs = nil
}

// open 取出或打开指定路径的存档
func (h *Handles) open(path string) (*mbtiles.DB, error) {
	if db, ok := h.dbs[path]; ok {
		return db, nil
	}
	db, err := mbtiles.Open(path)
	if err != nil {
		return nil, err
	}
	h.dbs[path] = db
	return db, nil
}

// Response 文件源响应，调用方先查Err、再查NoContent、最后用Data
type Response struct {
	Data      []byte
	NoContent bool
	Err       error
}

// Source 全局文件源
type Source struct {
	pool *worker.Pool[*Handles]
}

// NewSource 创建文件源池
func NewSource() (*Source, error) {
	pool, err := worker.NewPool(poolMin, poolMax, func() (*Handles, error) {
		return &Handles{dbs: map[string]*mbtiles.DB{}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Source{pool: pool}, nil
}

// FetchTile 读取单张瓦片，瓦片不存在时Response.NoContent为真
func (s *Source) FetchTile(ctx context.Context, path string, z, x, y int) Response {
	var resp Response
	err := s.submit(ctx, func(h *Handles) error {
		db, err := h.open(path)
		if err != nil {
			return err
		}
		data, err := db.ReadTile(z, x, y)
		if err != nil {
			if errors.Is(err, mbtiles.ErrTileNotFound) {
				resp.NoContent = true
				return nil
			}
			return err
		}
		resp.Data = data
		return nil
	})
	if err != nil {
		resp.Err = err
	}
	return resp
}

// FetchSource 读取存档元数据，返回TileJSON形状的JSON文档
func (s *Source) FetchSource(ctx context.Context, path string) Response {
	var resp Response
	err := s.submit(ctx, func(h *Handles) error {
		db, err := h.open(path)
		if err != nil {
			return err
		}
		md, err := db.Metadata()
		if err != nil {
			return err
		}
		if _, ok := md["format"]; !ok && db.Format != mbtiles.FormatUnknown {
			md["format"] = string(db.Format)
		}
		md["filesize"] = db.Filesize
		data, err := json.Marshal(md)
		if err != nil {
			return err
		}
		resp.Data = data
		return nil
	})
	if err != nil {
		resp.Err = err
	}
	return resp
}

// TileFormat 探测存档的存储格式
func (s *Source) TileFormat(ctx context.Context, path string) (mbtiles.Format, error) {
	var format mbtiles.Format
	err := s.submit(ctx, func(h *Handles) error {
		db, err := h.open(path)
		if err != nil {
			return err
		}
		format = db.Format
		return nil
	})
	return format, err
}

// submit 取一个工作器执行任务并归还
func (s *Source) submit(ctx context.Context, job worker.Job[*Handles]) error {
	w, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire file source worker: %w", err)
	}
	defer s.pool.Release(w)
	return w.Submit(job).Wait(ctx)
}

// Dispose 销毁文件源池
func (s *Source) Dispose() {
	s.pool.Dispose()
}

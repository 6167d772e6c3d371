// Package mbtiles 只读访问MBTiles(SQLite)瓦片存档
package mbtiles

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrTileNotFound   = errors.New("tile does not exist")
	ErrInvalidArchive = errors.New("invalid mbtiles archive")
)

// Format 瓦片存储格式
type Format string

const (
	FormatUnknown Format = ""
	FormatPBF     Format = "pbf"
	FormatPNG     Format = "png"
	FormatJPG     Format = "jpg"
	FormatWebP    Format = "webp"
)

// ContentType 格式对应的MIME类型
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatPBF:
		return "application/x-protobuf"
	default:
		return "application/octet-stream"
	}
}

// 魔数签名，gzip会掩盖pbf，由调用方判定
var formatPatterns = map[Format][]byte{
	FormatPNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FormatJPG:  {0xFF, 0xD8, 0xFF},
	FormatWebP: {0x52, 0x49, 0x46, 0x46},
}

// IsGzipped 数据是否为gzip压缩
func IsGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// DetectFormat 按前导字节嗅探瓦片格式
func DetectFormat(data []byte) Format {
	if IsGzipped(data) {
		// gzip下只存vector tile
		return FormatPBF
	}
	for format, pattern := range formatPatterns {
		if bytes.HasPrefix(data, pattern) {
			return format
		}
	}
	return FormatUnknown
}

// DB 单个MBTiles存档的只读句柄
type DB struct {
	Path     string
	Format   Format
	Filesize int64

	db *sql.DB
}

// Open 打开存档并校验tiles/metadata表存在
func Open(path string) (*DB, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("mbtiles file not accessible: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}

	var tableCount int
	if err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE name IN ('tiles', 'metadata')").Scan(&tableCount); err != nil {
		db.Close()
		return nil, err
	}
	if tableCount < 2 {
		db.Close()
		return nil, fmt.Errorf("%w: missing 'tiles' or 'metadata' table in %s", ErrInvalidArchive, path)
	}

	d := &DB{Path: path, Filesize: stat.Size(), db: db}

	// 取样确定存储格式
	var sample []byte
	if err = db.QueryRow("SELECT tile_data FROM tiles LIMIT 1").Scan(&sample); err == nil {
		d.Format = DetectFormat(sample)
	}
	if d.Format == FormatUnknown {
		if md, err := d.Metadata(); err == nil {
			if f, ok := md["format"].(string); ok {
				d.Format = Format(f)
			}
		}
	}

	return d, nil
}

// ReadTile 按XYZ行列号读取瓦片，内部转TMS行号
func (d *DB) ReadTile(z, x, y int) ([]byte, error) {
	tmsY := (1 << uint(z)) - 1 - y

	var data []byte
	err := d.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		z, x, tmsY,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTileNotFound
		}
		return nil, err
	}
	return data, nil
}

// Metadata 读取metadata表，转成TileJSON形状的字段
func (d *DB) Metadata() (map[string]interface{}, error) {
	rows, err := d.db.Query("SELECT name, value FROM metadata WHERE value is not ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	md := map[string]interface{}{}
	var key, value string
	for rows.Next() {
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case "minzoom", "maxzoom":
			if v, err := strconv.Atoi(value); err == nil {
				md[key] = v
			}
		case "bounds":
			if b, err := parseFloats(value, 4); err == nil {
				md[key] = b
			}
		case "center":
			if c, err := parseFloats(value, 3); err == nil {
				md[key] = c
			} else {
				// 历史数据中心点可能是任意字符串，保留原样交上层清理
				md[key] = value
			}
		case "json":
			var extra map[string]interface{}
			if err := json.Unmarshal([]byte(value), &extra); err == nil {
				for k, v := range extra {
					md[k] = v
				}
			}
		default:
			md[key] = value
		}
	}

	// 缺省级别范围从tiles表推导
	if _, ok := md["minzoom"]; !ok {
		var min, max sql.NullInt64
		if err := d.db.QueryRow("SELECT min(zoom_level), max(zoom_level) FROM tiles").Scan(&min, &max); err == nil && min.Valid {
			md["minzoom"] = int(min.Int64)
			md["maxzoom"] = int(max.Int64)
		}
	}
	return md, nil
}

// Close 关闭底层数据库
func (d *DB) Close() error {
	return d.db.Close()
}

// parseFloats 解析逗号分隔的浮点串并检查个数
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

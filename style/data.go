package style

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/filesource"
)

// LoadData 通过文件源读取MBTiles元数据，与用户配置合并成TileJSON
func LoadData(ctx context.Context, id string, entry *config.DataEntry, src *filesource.Source, opts *config.Options) (map[string]interface{}, error) {
	path := filepath.Join(opts.Paths.MBTiles, entry.MBTiles)

	resp := src.FetchSource(ctx, path)
	if resp.Err != nil {
		return nil, fmt.Errorf("fetch source metadata for %s: %w", id, resp.Err)
	}

	md := map[string]interface{}{}
	if err := json.Unmarshal(resp.Data, &md); err != nil {
		return nil, fmt.Errorf("parse source metadata for %s: %w", id, err)
	}

	// 历史数据里center可能是字符串，直接剔除
	if _, ok := md["center"].(string); ok {
		delete(md, "center")
	}

	for k, v := range entry.TileJSON {
		md[k] = v
	}

	md["tilejson"] = "2.0.0"
	if _, ok := md["format"]; !ok {
		md["format"] = "pbf"
	}
	if _, ok := md["name"]; !ok {
		md["name"] = id
	}
	return md, nil
}

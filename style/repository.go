package style

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/filesource"
)

// Repository 启动时装载的样式与数据源集合，此后只读
type Repository struct {
	Styles    map[string]*Style
	Data      map[string]map[string]interface{}
	DataPaths map[string]string
}

// LoadAll 装载全部样式与数据源
// 装载失败的条目被剔除并告警，不中断启动
func LoadAll(ctx context.Context, conf *config.Config, src *filesource.Source) *Repository {
	repo := &Repository{
		Styles:    map[string]*Style{},
		Data:      map[string]map[string]interface{}{},
		DataPaths: map[string]string{},
	}

	for id, entry := range conf.Data {
		tj, err := LoadData(ctx, id, entry, src, &conf.Options)
		if err != nil {
			config.Log.Warnf("data %q removed: %s", id, err)
			continue
		}
		repo.Data[id] = tj
		repo.DataPaths[id] = filepath.Join(conf.Options.Paths.MBTiles, entry.MBTiles)
		config.Log.Infof("data %q loaded from %s", id, entry.MBTiles)
	}

	for id, entry := range conf.Styles {
		s, err := Load(id, entry, &conf.Options)
		if err != nil {
			config.Log.Warnf("style %q removed: %s", id, err)
			continue
		}
		repo.Styles[id] = s
		config.Log.Infof("style %q loaded", id)
	}

	return repo
}

// ResolveData 数据ID到MBTiles绝对路径
func (r *Repository) ResolveData(id string) (string, bool) {
	path, ok := r.DataPaths[id]
	return path, ok
}

// StyleIDs 排序后的样式ID
func (r *Repository) StyleIDs() []string {
	ids := make([]string, 0, len(r.Styles))
	for id := range r.Styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DataIDs 排序后的数据ID
func (r *Repository) DataIDs() []string {
	ids := make([]string, 0, len(r.Data))
	for id := range r.Data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// InternalTileSize 渲染引擎内部瓦片网格大小，固定512
const InternalTileSize = 512

// MaxZoom 服务允许的最大级别
const MaxZoom = 22

var MainConfig *Config

// PathsOptions 各类资源目录，全部相对Root解析
type PathsOptions struct {
	Root    string `mapstructure:"root" json:"root"`
	Styles  string `mapstructure:"styles" json:"styles"`
	Fonts   string `mapstructure:"fonts" json:"fonts"`
	Sprites string `mapstructure:"sprites" json:"sprites"`
	Icons   string `mapstructure:"icons" json:"icons"`
	MBTiles string `mapstructure:"mbtiles" json:"mbtiles"`
}

// FormatQuality 各输出格式的编码质量
type FormatQuality struct {
	PNG  int `mapstructure:"png" json:"png"`
	JPEG int `mapstructure:"jpeg" json:"jpeg"`
	WebP int `mapstructure:"webp" json:"webp"`
}

// Options 服务全局选项，启动后只读
type Options struct {
	Paths                  PathsOptions  `mapstructure:"paths" json:"paths"`
	TileSize               int           `mapstructure:"tileSize" json:"tileSize"`
	TileMargin             int           `mapstructure:"tileMargin" json:"tileMargin"`
	MinRendererPoolSizes   []int         `mapstructure:"minRendererPoolSizes" json:"minRendererPoolSizes"`
	MaxRendererPoolSizes   []int         `mapstructure:"maxRendererPoolSizes" json:"maxRendererPoolSizes"`
	ServeBounds            []float64     `mapstructure:"serveBounds" json:"serveBounds"`
	MaxScaleFactor         int           `mapstructure:"maxScaleFactor" json:"maxScaleFactor"`
	MaxSize                int           `mapstructure:"maxSize" json:"maxSize"`
	FormatQuality          FormatQuality `mapstructure:"formatQuality" json:"formatQuality"`
	AllowRemoteMarkerIcons bool          `mapstructure:"allowRemoteMarkerIcons" json:"allowRemoteMarkerIcons"`
	ServeStaticMaps        bool          `mapstructure:"serveStaticMaps" json:"serveStaticMaps"`
}

// StyleEntry 单个样式配置
type StyleEntry struct {
	Style         string                 `mapstructure:"style" json:"style"`
	ServeRendered bool                   `mapstructure:"serveRendered" json:"serveRendered"`
	ServeData     bool                   `mapstructure:"serveData" json:"serveData"`
	TileJSON      map[string]interface{} `mapstructure:"tilejson" json:"tilejson"`
}

// DataEntry 单个数据源配置，MBTiles为相对mbtiles目录的文件名
type DataEntry struct {
	MBTiles  string                 `mapstructure:"mbtiles" json:"mbtiles"`
	TileJSON map[string]interface{} `mapstructure:"tilejson" json:"tilejson"`
}

// Config 顶层配置
type Config struct {
	Options Options                `mapstructure:"options" json:"options"`
	Styles  map[string]*StyleEntry `mapstructure:"styles" json:"styles"`
	Data    map[string]*DataEntry  `mapstructure:"data" json:"data"`
}

// Flags 环境变量开关
type Flags struct {
	UseOutputCache    bool
	MemoryCacheSize   int64
	AllowedOrigins    []string
	ConfigurationFile string
}

var MainFlags Flags

// InitConfig 读取配置文件与环境变量，校验失败直接退出
func InitConfig(cfgFile string) *Config {
	viper.AutomaticEnv()
	if cfgFile == "" {
		cfgFile = viper.GetString("ConfigurationFile")
	}
	if cfgFile == "" {
		cfgFile = "config.json"
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("config file(%s) not exist\n", cfgFile)
		os.Exit(1)
	}

	viper.SetConfigType("json")
	viper.SetConfigFile(cfgFile)

	// 默认值
	viper.SetDefault("options.tileSize", 256)
	viper.SetDefault("options.tileMargin", 0)
	viper.SetDefault("options.maxScaleFactor", 3)
	viper.SetDefault("options.maxSize", 2048)
	viper.SetDefault("options.serveStaticMaps", true)
	viper.SetDefault("options.formatQuality.png", 100)
	viper.SetDefault("options.formatQuality.jpeg", 80)
	viper.SetDefault("options.formatQuality.webp", 90)
	viper.SetDefault("options.minRendererPoolSizes", []int{4, 2})
	viper.SetDefault("options.maxRendererPoolSizes", []int{16, 8})

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("read config file(%s) error: %s\n", viper.ConfigFileUsed(), err)
		os.Exit(1)
	}

	conf := &Config{}
	if err := viper.Unmarshal(conf); err != nil {
		fmt.Printf("parse config file(%s) error: %s\n", viper.ConfigFileUsed(), err)
		os.Exit(1)
	}
	conf.normalize()

	MainFlags = Flags{
		UseOutputCache:    viper.GetBool("UseOutputCache"),
		MemoryCacheSize:   viper.GetInt64("MemoryCacheSize"),
		ConfigurationFile: cfgFile,
	}
	if origins := viper.GetString("AllowedOrigins"); origins != "" {
		for _, o := range strings.Split(origins, ";") {
			if o = strings.TrimSpace(o); o != "" {
				MainFlags.AllowedOrigins = append(MainFlags.AllowedOrigins, o)
			}
		}
	}

	MainConfig = conf
	return conf
}

// normalize 解析目录、归一化边界、钳制比例因子
func (c *Config) normalize() {
	p := &c.Options.Paths
	p.Styles = resolvePath(p.Root, p.Styles)
	p.Fonts = resolvePath(p.Root, p.Fonts)
	p.Sprites = resolvePath(p.Root, p.Sprites)
	p.Icons = resolvePath(p.Root, p.Icons)
	p.MBTiles = resolvePath(p.Root, p.MBTiles)

	if c.Options.TileSize <= 0 {
		c.Options.TileSize = 256
	}
	if c.Options.MaxScaleFactor <= 0 {
		c.Options.MaxScaleFactor = 3
	}
	if c.Options.MaxScaleFactor > 9 {
		c.Options.MaxScaleFactor = 9
	}
	if c.Options.MaxSize <= 0 {
		c.Options.MaxSize = 2048
	}

	// serveBounds归一化，保证min<=max
	if len(c.Options.ServeBounds) == 4 {
		b := c.Options.ServeBounds
		if b[0] > b[2] {
			b[0], b[2] = b[2], b[0]
		}
		if b[1] > b[3] {
			b[1], b[3] = b[3], b[1]
		}
	} else {
		c.Options.ServeBounds = []float64{-180, -85.0511, 180, 85.0511}
	}

	if c.Styles == nil {
		c.Styles = map[string]*StyleEntry{}
	}
	if c.Data == nil {
		c.Data = map[string]*DataEntry{}
	}
}

// Validate 校验所有配置目录存在，缺失为致命错误
func (c *Config) Validate() error {
	p := c.Options.Paths
	for _, dir := range []string{p.Root, p.Styles, p.Fonts, p.Sprites, p.Icons, p.MBTiles} {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("the directory %q does not exist", dir)
		}
	}
	return nil
}

// InternalTileMargin 渲染时附加的有效边距
func (o *Options) InternalTileMargin() int {
	margin := (InternalTileSize - o.TileSize) / 2
	if o.TileMargin > margin {
		margin = o.TileMargin
	}
	if margin < 0 {
		margin = 0
	}
	return margin
}

// MinPoolSize 按scale取渲染池最小值
func (o *Options) MinPoolSize(scale int) int {
	return poolSizeAt(o.MinRendererPoolSizes, scale, 4)
}

// MaxPoolSize 按scale取渲染池最大值
func (o *Options) MaxPoolSize(scale int) int {
	return poolSizeAt(o.MaxRendererPoolSizes, scale, 16)
}

// poolSizeAt 超出数组时取最后一个
func poolSizeAt(sizes []int, scale int, def int) int {
	if len(sizes) == 0 {
		return def
	}
	idx := scale - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sizes) {
		idx = len(sizes) - 1
	}
	return sizes[idx]
}

// MaxScale 允许的最大比例因子
func (o *Options) MaxScale() int {
	s := o.MaxScaleFactor
	if s > 9 {
		s = 9
	}
	if s < 1 {
		s = 1
	}
	return s
}

// RendererZoom 配置瓦片大小相对内部网格的级别偏移
func (o *Options) RendererZoom(z int) float64 {
	return float64(z) + math.Log2(float64(o.TileSize)/float64(InternalTileSize))
}

// StyleIDs 排序后的样式ID列表
func (c *Config) StyleIDs() []string {
	ids := make([]string, 0, len(c.Styles))
	for id := range c.Styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DataIDs 排序后的数据源ID列表
func (c *Config) DataIDs() []string {
	ids := make([]string, 0, len(c.Data))
	for id := range c.Data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// resolvePath 相对root解析路径
func resolvePath(root, p string) string {
	if p == "" {
		return root
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrainArc/TileServe/config"
)

const testStyleJSON = `{
	"version": 8,
	"name": "Basic",
	"center": [8.5, 47.3],
	"zoom": 10,
	"sources": {
		"openmaptiles": {"type": "vector", "url": "mbtiles://{openmaptiles}"},
		"satellite": {"type": "raster", "url": "https://tiles.example.com/sat.json"}
	},
	"sprite": "basic",
	"glyphs": "fonts/{fontstack}/{range}.pbf",
	"layers": [
		{"id": "background", "type": "background", "paint": {"background-color": "#f8f4f0"}}
	]
}`

func writeStyle(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testOptions(t *testing.T) *config.Options {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"styles", "fonts", "sprites", "icons", "mbtiles"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}
	return &config.Options{
		Paths: config.PathsOptions{
			Root:    root,
			Styles:  filepath.Join(root, "styles"),
			Fonts:   filepath.Join(root, "fonts"),
			Sprites: filepath.Join(root, "sprites"),
			Icons:   filepath.Join(root, "icons"),
			MBTiles: filepath.Join(root, "mbtiles"),
		},
		TileSize: 256,
	}
}

func TestLoadRewritesURLs(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "basic.json", testStyleJSON)

	s, err := Load("basic", &config.StyleEntry{Style: "basic.json", ServeRendered: true}, opts)
	require.NoError(t, err)

	sources := s.JSON["sources"].(map[string]interface{})
	omt := sources["openmaptiles"].(map[string]interface{})
	assert.Equal(t, "local://data/openmaptiles.json", omt["url"])

	// 外部HTTP源保持不变
	sat := sources["satellite"].(map[string]interface{})
	assert.Equal(t, "https://tiles.example.com/sat.json", sat["url"])

	assert.Equal(t, "local://styles/basic/sprite", s.JSON["sprite"])
	assert.Equal(t, "basic", s.SpritePath)
	assert.Equal(t, "local://fonts/{fontstack}/{range}.pbf", s.JSON["glyphs"])
}

func TestLoadTileJSONCenterFromStyle(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "basic.json", testStyleJSON)

	s, err := Load("basic", &config.StyleEntry{Style: "basic.json"}, opts)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", s.TileJSON["tilejson"])
	assert.Equal(t, "Basic", s.TileJSON["name"])
	assert.Equal(t, []float64{8.5, 47.3, 10}, s.TileJSON["center"])
}

func TestLoadTileJSONCenterFromBounds(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "nocenter.json", `{
		"version": 8, "name": "NoCenter",
		"sources": {}, "layers": []
	}`)

	entry := &config.StyleEntry{
		Style:    "nocenter.json",
		TileJSON: map[string]interface{}{"bounds": []interface{}{0.0, 0.0, 20.0, 10.0}},
	}
	s, err := Load("nocenter", entry, opts)
	require.NoError(t, err)

	center := s.TileJSON["center"].([]float64)
	require.Len(t, center, 3)
	assert.InDelta(t, 10.0, center[0], 1e-9)
	assert.InDelta(t, 5.0, center[1], 1e-9)
	assert.Greater(t, center[2], 0.0)
}

func TestLoadMissingFile(t *testing.T) {
	opts := testOptions(t)
	_, err := Load("ghost", &config.StyleEntry{Style: "ghost.json"}, opts)
	assert.Error(t, err)
}

func TestRendererJSON(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "basic.json", testStyleJSON)

	s, err := Load("basic", &config.StyleEntry{Style: "basic.json"}, opts)
	require.NoError(t, err)

	resolve := func(id string) (string, bool) {
		if id == "openmaptiles" {
			return "/data/openmaptiles.mbtiles", true
		}
		return "", false
	}
	data, err := s.RendererJSON(resolve, opts)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"mbtiles:///data/openmaptiles.mbtiles"`)
	assert.Contains(t, out, `"file://`+opts.Paths.Sprites)
	assert.Contains(t, out, `"file://`+opts.Paths.Fonts)
	assert.NotContains(t, out, "local://")
}

func TestRendererJSONUnknownData(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "basic.json", testStyleJSON)

	s, err := Load("basic", &config.StyleEntry{Style: "basic.json"}, opts)
	require.NoError(t, err)

	_, err = s.RendererJSON(func(string) (string, bool) { return "", false }, opts)
	assert.Error(t, err)
}

func TestPublicJSON(t *testing.T) {
	opts := testOptions(t)
	writeStyle(t, opts.Paths.Styles, "basic.json", testStyleJSON)

	s, err := Load("basic", &config.StyleEntry{Style: "basic.json"}, opts)
	require.NoError(t, err)

	data, err := s.PublicJSON("http://localhost:8080/")
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "http://localhost:8080/data/openmaptiles.json")
	assert.Contains(t, out, "http://localhost:8080/styles/basic/sprite")
	assert.NotContains(t, out, "local://")
}

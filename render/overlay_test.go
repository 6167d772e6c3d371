package render

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathCoordinates(t *testing.T) {
	p, err := ParsePath("-0.5,-0.5|0.5,0.5")
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{-0.5, -0.5}, {0.5, 0.5}}, p.Points)
	assert.False(t, p.HasWidth)
}

func TestParsePathLatLngSwap(t *testing.T) {
	p, err := ParsePath("latlng:true|47.3,8.5")
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{8.5, 47.3}}, p.Points)
}

func TestParsePathProperties(t *testing.T) {
	p, err := ParsePath("fill:#ff000080|stroke:#00ff00|width:3|linecap:round|linejoin:round|border:#000000|borderWidth:2|1,1|2,2")
	require.NoError(t, err)

	assert.Equal(t, "#ff000080", p.Fill)
	assert.Equal(t, "#00ff00", p.Stroke)
	assert.True(t, p.HasWidth)
	assert.Equal(t, 3.0, p.Width)
	assert.Equal(t, "round", p.LineCap)
	assert.Equal(t, "round", p.LineJoin)
	assert.Equal(t, "#000000", p.Border)
	assert.True(t, p.HasBorderWidth)
	assert.Equal(t, 2.0, p.BorderWidth)
	assert.Len(t, p.Points, 2)
}

func TestParsePathEncodedPolyline(t *testing.T) {
	p, err := ParsePath("enc:_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, p.Points, 3)
	assert.InDelta(t, -120.2, p.Points[0][0], 1e-5)
	assert.InDelta(t, 38.5, p.Points[0][1], 1e-5)
}

func TestParsePathEncodedPolylineWithProperties(t *testing.T) {
	// polyline字母表本身含'|'，属性段之后的编码串不能被再切分
	p, err := ParsePath("stroke:#ff0000|width:2|enc:_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", p.Stroke)
	assert.Equal(t, 2.0, p.Width)
	require.Len(t, p.Points, 3)
	assert.InDelta(t, 38.5, p.Points[0][1], 1e-5)
}

func TestParsePathInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1,2|x,y", "width:abc|1,2", "bogus:1|1,2"} {
		_, err := ParsePath(in)
		assert.Error(t, err, in)
	}
}

func TestParseMarker(t *testing.T) {
	m, err := ParseMarker("8.5,47.3|pin.png|scale:0.5|offset:4,-8")
	require.NoError(t, err)
	assert.Equal(t, 8.5, m.Lon)
	assert.Equal(t, 47.3, m.Lat)
	assert.Equal(t, "pin.png", m.Icon)
	assert.Equal(t, 0.5, m.Scale)
	assert.Equal(t, 4.0, m.OffsetX)
	assert.Equal(t, -8.0, m.OffsetY)
}

func TestParseMarkerDefaults(t *testing.T) {
	m, err := ParseMarker("0,0|pin.png")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Scale)
	assert.Zero(t, m.OffsetX)
}

func TestParseMarkerInvalid(t *testing.T) {
	for _, in := range []string{"", "0,0", "a,b|pin.png", "0,0|pin.png|scale:-1", "0,0|pin.png|wat:1"} {
		_, err := ParseMarker(in)
		assert.Error(t, err, in)
	}
}

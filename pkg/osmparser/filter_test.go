package osmparser

import (
	"testing"

	"github.com/lintang-b-s/go-osm-routing/pkg"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
)

func testWay(tags map[string]string, nodeIDs ...int64) *osm.Way {
	way := &osm.Way{ID: osm.WayID(42)}
	for key, value := range tags {
		way.Tags = append(way.Tags, osm.Tag{Key: key, Value: value})
	}
	for _, id := range nodeIDs {
		way.Nodes = append(way.Nodes, osm.WayNode{ID: osm.NodeID(id)})
	}
	return way
}

func TestAcceptWay(t *testing.T) {
	filter := NewWayFilter(util.DefaultConfig())

	assert.True(t, filter.AcceptWay(testWay(map[string]string{"highway": "residential"}, 1, 2)))
	assert.True(t, filter.AcceptWay(testWay(map[string]string{"highway": "motorway"}, 1, 2, 3)))

	assert.False(t, filter.AcceptWay(testWay(map[string]string{"highway": "footway"}, 1, 2)),
		"highway class outside the accepted set")
	assert.False(t, filter.AcceptWay(testWay(map[string]string{"building": "yes"}, 1, 2)),
		"way without a highway tag")
	assert.False(t, filter.AcceptWay(testWay(map[string]string{"highway": "residential"}, 1)),
		"way with a single node")
}

func TestWayDirection(t *testing.T) {
	filter := NewWayFilter(util.DefaultConfig())

	testCases := []struct {
		name    string
		tags    map[string]string
		oneWay  bool
		forward bool
	}{
		{"no direction tag", map[string]string{"highway": "residential"}, false, true},
		{"oneway yes", map[string]string{"highway": "primary", "oneway": "yes"}, true, true},
		{"oneway true", map[string]string{"highway": "primary", "oneway": "true"}, true, true},
		{"oneway 1", map[string]string{"highway": "primary", "oneway": "1"}, true, true},
		{"oneway -1", map[string]string{"highway": "primary", "oneway": "-1"}, true, false},
		{"oneway reverse", map[string]string{"highway": "primary", "oneway": "reverse"}, true, false},
		{"roundabout", map[string]string{"highway": "primary", "junction": "roundabout"}, true, true},
		{"circular junction", map[string]string{"highway": "primary", "junction": "circular"}, true, true},
		{"vehicle forward restricted", map[string]string{"highway": "primary", "vehicle:forward": "no"}, true, false},
		{"motor vehicle forward restricted", map[string]string{"highway": "primary", "motor_vehicle:forward": "restricted"}, true, false},
		{"vehicle backward restricted", map[string]string{"highway": "primary", "vehicle:backward": "no"}, true, true},
		{"motor vehicle backward restricted", map[string]string{"highway": "primary", "motor_vehicle:backward": "no"}, true, true},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			oneWay, forward := filter.WayDirection(testWay(tt.tags, 1, 2))
			assert.Equal(t, tt.oneWay, oneWay)
			assert.Equal(t, tt.forward, forward)
		})
	}
}

func TestWaySpeed(t *testing.T) {
	filter := NewWayFilter(util.DefaultConfig())

	testCases := []struct {
		name string
		tags map[string]string
		want float64
	}{
		{"plain maxspeed is km/h", map[string]string{"highway": "residential", "maxspeed": "50"}, 50},
		{"maxspeed with km/h unit", map[string]string{"highway": "residential", "maxspeed": "60 km/h"}, 60},
		{"maxspeed in mph", map[string]string{"highway": "residential", "maxspeed": "30 mph"}, 30 * pkg.MPH_TO_KMH},
		{"maxspeed in knots", map[string]string{"highway": "residential", "maxspeed": "10 knots"}, 10 * pkg.KNOTS_TO_KMH},
		{"unparseable maxspeed falls back to class speed", map[string]string{"highway": "residential", "maxspeed": "walk"}, 30},
		{"no maxspeed uses class speed", map[string]string{"highway": "motorway"}, 100},
		{"class without configured speed uses default", map[string]string{"highway": "residential_link"}, 30},
		{"tiny maxspeed is clamped", map[string]string{"highway": "residential", "maxspeed": "0.5"}, pkg.MIN_SPEED_KMH},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, filter.WaySpeed(testWay(tt.tags, 1, 2)), 1e-9)
		})
	}
}

func TestParseMaxSpeed(t *testing.T) {
	assert.Equal(t, 0.0, parseMaxSpeed(""))
	assert.Equal(t, 50.0, parseMaxSpeed("50"))
	assert.Equal(t, 50.0, parseMaxSpeed("50 km/h"))
	assert.InDelta(t, 48.2802, parseMaxSpeed("30 mph"), 1e-4)
	assert.InDelta(t, 18.52, parseMaxSpeed("10 knots"), 1e-9)
	assert.Equal(t, 0.0, parseMaxSpeed("signals"))
	assert.Equal(t, 0.0, parseMaxSpeed("50;30"))
}

func TestRoadClass(t *testing.T) {
	filter := NewWayFilter(util.DefaultConfig())

	assert.Equal(t, uint8(pkg.RESIDENTIAL), filter.RoadClass(testWay(map[string]string{"highway": "residential"}, 1, 2)))
	assert.Equal(t, uint8(pkg.MOTORWAY), filter.RoadClass(testWay(map[string]string{"highway": "motorway"}, 1, 2)))
	assert.Equal(t, uint8(pkg.TRACK), filter.RoadClass(testWay(map[string]string{"highway": "track"}, 1, 2)))
	assert.Equal(t, uint8(pkg.UNKNOWN), filter.RoadClass(testWay(map[string]string{"highway": "busway"}, 1, 2)))
}

package osmparser

import (
	"strconv"
	"strings"

	"github.com/lintang-b-s/go-osm-routing/pkg"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"github.com/paulmach/osm"
)

// WayFilter decides which openstreetmap ways become road segments and what
// effective speed each one gets. all knobs come from the engine config.
type WayFilter struct {
	accepted     map[string]struct{}
	classSpeeds  map[string]float64
	defaultSpeed float64
}

func NewWayFilter(cfg *util.Config) *WayFilter {
	accepted := make(map[string]struct{}, len(cfg.AcceptedHighways))
	for _, highway := range cfg.AcceptedHighways {
		accepted[highway] = struct{}{}
	}
	return &WayFilter{
		accepted:     accepted,
		classSpeeds:  cfg.ClassSpeedsKmh,
		defaultSpeed: cfg.DefaultSpeedKmh,
	}
}

// AcceptWay reports whether the way is routable. ways without a recognized
// highway value are discarded.
func (f *WayFilter) AcceptWay(way *osm.Way) bool {
	if len(way.Nodes) < 2 {
		return false
	}
	highway := way.Tags.Find("highway")
	if highway == "" {
		return false
	}
	_, ok := f.accepted[highway]
	return ok
}

func isRestricted(value string) bool {
	if value == "no" || value == "restricted" {
		return true
	}
	return false
}

func getReversedOneWay(way *osm.Way) (bool, bool, bool, bool) {
	vehicleForward := way.Tags.Find("vehicle:forward")
	motorVehicleForward := way.Tags.Find("motor_vehicle:forward")
	vehicleBackward := way.Tags.Find("vehicle:backward")
	motorVehicleBackward := way.Tags.Find("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward),
		isRestricted(vehicleBackward), isRestricted(motorVehicleBackward)
}

// WayDirection returns whether the way is oneway and whether travel runs in
// node order. oneway=-1 ways run against their node order. roundabouts are
// oneway implicitly.
func (f *WayFilter) WayDirection(way *osm.Way) (oneWay bool, forward bool) {
	okvf, okmvf, okvb, okmvb := getReversedOneWay(way)

	onewayTag := way.Tags.Find("oneway")
	junction := way.Tags.Find("junction")

	oneWay = onewayTag == "yes" || onewayTag == "true" || onewayTag == "1" ||
		onewayTag == "-1" || onewayTag == "reverse" ||
		junction == "roundabout" || junction == "circular" ||
		okvf || okmvf || okvb || okmvb

	forward = true
	if onewayTag == "-1" || onewayTag == "reverse" || okvf || okmvf {
		// okvf / okmvf = restricted/not allowed forward.
		forward = false
	}
	return oneWay, forward
}

// WaySpeed returns the effective speed in km/h: the parsed maxspeed tag when
// usable, otherwise the configured speed of the highway class, otherwise the
// global default. never below pkg.MIN_SPEED_KMH.
func (f *WayFilter) WaySpeed(way *osm.Way) float64 {
	speed := parseMaxSpeed(way.Tags.Find("maxspeed"))
	if speed == 0 {
		speed = f.classSpeeds[way.Tags.Find("highway")]
	}
	if speed == 0 {
		speed = f.defaultSpeed
	}
	if speed < pkg.MIN_SPEED_KMH {
		speed = pkg.MIN_SPEED_KMH
	}
	return speed
}

// RoadClass maps the highway tag onto the fixed class enum stored per edge.
func (f *WayFilter) RoadClass(way *osm.Way) uint8 {
	return uint8(pkg.GetHighwayType(way.Tags.Find("highway")))
}

// parseMaxSpeed handles "50", "50 km/h", "30 mph" and "10 knots". a value it
// cannot parse yields 0 so the caller falls back to the class speed.
func parseMaxSpeed(value string) float64 {
	if value == "" {
		return 0
	}

	if strings.Contains(value, "mph") {
		currSpeed, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "mph", "", -1)), 64)
		if err != nil {
			return 0
		}
		return currSpeed * pkg.MPH_TO_KMH
	}
	if strings.Contains(value, "km/h") {
		currSpeed, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "km/h", "", -1)), 64)
		if err != nil {
			return 0
		}
		return currSpeed
	}
	if strings.Contains(value, "knots") {
		currSpeed, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(value, "knots", "", -1)), 64)
		if err != nil {
			return 0
		}
		return currSpeed * pkg.KNOTS_TO_KMH
	}

	currSpeed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return currSpeed
}

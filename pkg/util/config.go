package util

import (
	"errors"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every tunable of the routing core. Values come from
// ./data/config.yaml when present, otherwise from the defaults below.
type Config struct {
	// entity filter & weight model
	AcceptedHighways []string           `mapstructure:"accepted_highways" validate:"min=1"`
	ClassSpeedsKmh   map[string]float64 `mapstructure:"class_speeds_kmh" validate:"required"`
	DefaultSpeedKmh  float64            `mapstructure:"default_speed_kmh" validate:"gt=0"`

	// snapping
	SnapRadiusMeter float64 `mapstructure:"snap_radius_meter" validate:"gt=0"`

	// matrix queries
	MatrixMaxCells int `mapstructure:"matrix_max_cells" validate:"gt=0"`
	MatrixWorkers  int `mapstructure:"matrix_workers" validate:"gte=1"`

	// hidden markov model map matching
	MatcherRadiusMeter   float64 `mapstructure:"matcher_radius_meter" validate:"gt=0"`
	MatcherMaxCandidates int     `mapstructure:"matcher_max_candidates" validate:"gte=1"`
	MatcherGpsStdMeter   float64 `mapstructure:"matcher_gps_std_meter" validate:"gt=0"`
	MatcherBeta          float64 `mapstructure:"matcher_beta" validate:"gt=0"`
	MatcherCacheSize     int     `mapstructure:"matcher_cache_size" validate:"gte=1"`

	// graph build
	BuildWorkers int `mapstructure:"build_workers" validate:"gte=1"`
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return WrapErrorf(err, ErrBadParamInput, "invalid engine configuration")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("accepted_highways", []string{
		"motorway", "motorway_link", "trunk", "trunk_link",
		"primary", "primary_link", "secondary", "secondary_link",
		"tertiary", "tertiary_link", "residential", "residential_link",
		"service", "road", "track", "unclassified", "living_street", "motorroad",
	})
	viper.SetDefault("class_speeds_kmh", map[string]float64{
		"motorway":       100,
		"trunk":          70,
		"primary":        65,
		"secondary":      60,
		"tertiary":       50,
		"unclassified":   40,
		"residential":    30,
		"service":        20,
		"motorway_link":  70,
		"trunk_link":     65,
		"primary_link":   60,
		"secondary_link": 50,
		"tertiary_link":  40,
		"living_street":  5,
		"road":           20,
		"track":          15,
		"motorroad":      90,
	})
	viper.SetDefault("default_speed_kmh", 30.0)
	viper.SetDefault("snap_radius_meter", 100.0)
	viper.SetDefault("matrix_max_cells", 100000)
	viper.SetDefault("matrix_workers", runtime.NumCPU())
	viper.SetDefault("matcher_radius_meter", 100.0)
	viper.SetDefault("matcher_max_candidates", 8)
	viper.SetDefault("matcher_gps_std_meter", 4.07)
	viper.SetDefault("matcher_beta", 5.0)
	viper.SetDefault("matcher_cache_size", 1<<20)
	viper.SetDefault("build_workers", runtime.NumCPU())
}

// ReadConfig read config.yaml from ./data/. A missing file is fine, every
// knob has a default; an unreadable or invalid file is not.
func ReadConfig() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.AddConfigPath("./data/")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, WrapErrorf(err, ErrBadParamInput, "fatal error config file")
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, WrapErrorf(err, ErrBadParamInput, "fatal error config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without touching viper or the
// filesystem. Used by tests and by callers embedding the engine directly.
func DefaultConfig() *Config {
	return &Config{
		AcceptedHighways: []string{
			"motorway", "motorway_link", "trunk", "trunk_link",
			"primary", "primary_link", "secondary", "secondary_link",
			"tertiary", "tertiary_link", "residential", "residential_link",
			"service", "road", "track", "unclassified", "living_street", "motorroad",
		},
		ClassSpeedsKmh: map[string]float64{
			"motorway":       100,
			"trunk":          70,
			"primary":        65,
			"secondary":      60,
			"tertiary":       50,
			"unclassified":   40,
			"residential":    30,
			"service":        20,
			"motorway_link":  70,
			"trunk_link":     65,
			"primary_link":   60,
			"secondary_link": 50,
			"tertiary_link":  40,
			"living_street":  5,
			"road":           20,
			"track":          15,
			"motorroad":      90,
		},
		DefaultSpeedKmh:      30.0,
		SnapRadiusMeter:      100.0,
		MatrixMaxCells:       100000,
		MatrixWorkers:        runtime.NumCPU(),
		MatcherRadiusMeter:   100.0,
		MatcherMaxCandidates: 8,
		MatcherGpsStdMeter:   4.07,
		MatcherBeta:          5.0,
		MatcherCacheSize:     1 << 20,
		BuildWorkers:         runtime.NumCPU(),
	}
}

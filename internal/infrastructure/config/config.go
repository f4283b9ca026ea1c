package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Quality  QualityConfig  `koanf:"quality"`
	Anomaly  AnomalyConfig  `koanf:"anomaly"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

type ServerConfig struct {
	MetricsPort     int           `koanf:"metrics_port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	QueueKey     string        `koanf:"queue_key"`
	VerdictTTL   time.Duration `koanf:"verdict_ttl"`
	PushPerSec   float64       `koanf:"push_per_sec" validate:"gt=0"`
	PushBurst    int           `koanf:"push_burst" validate:"min=1"`
}

type QualityConfig struct {
	CompletenessWeight float64 `koanf:"completeness_weight" validate:"min=0,max=1"`
	ValidityWeight     float64 `koanf:"validity_weight" validate:"min=0,max=1"`
	ConsistencyWeight  float64 `koanf:"consistency_weight" validate:"min=0,max=1"`
	TimelinessWeight   float64 `koanf:"timeliness_weight" validate:"min=0,max=1"`

	QuarantineThreshold       float64 `koanf:"quarantine_threshold" validate:"min=0,max=1"`
	QuarantineOnCriticalIssue bool    `koanf:"quarantine_on_critical_issue"`

	OptimalFreshness    time.Duration `koanf:"optimal_freshness"`
	AcceptableFreshness time.Duration `koanf:"acceptable_freshness"`
	StaleCutoff         time.Duration `koanf:"stale_cutoff"`

	AltitudeMin float64 `koanf:"altitude_min"`
	AltitudeMax float64 `koanf:"altitude_max"`
	VelocityMax float64 `koanf:"velocity_max" validate:"gt=0"`
}

type AnomalyConfig struct {
	ZScoreThreshold float64 `koanf:"z_score_threshold" validate:"gt=0"`
	MinSamples      int     `koanf:"min_samples" validate:"min=2"`

	TeleportDistanceKm float64       `koanf:"teleport_distance_km" validate:"gt=0"`
	MaxJumpSpeedPerSec float64       `koanf:"max_jump_speed_per_sec" validate:"gt=0"`
	TrackMaxPoints     int           `koanf:"track_max_points" validate:"min=1"`
	TrackMaxAge        time.Duration `koanf:"track_max_age"`
	TrackMaxEntries    int           `koanf:"track_max_entries" validate:"min=1"`

	ForbiddenZones []ZoneConfig `koanf:"forbidden_zones" validate:"dive"`
	OceanicZones   []ZoneConfig `koanf:"oceanic_zones" validate:"dive"`
}

type ZoneConfig struct {
	Name   string  `koanf:"name" validate:"required"`
	MinLat float64 `koanf:"min_lat" validate:"min=-90,max=90"`
	MaxLat float64 `koanf:"max_lat" validate:"min=-90,max=90"`
	MinLon float64 `koanf:"min_lon" validate:"min=-180,max=180"`
	MaxLon float64 `koanf:"max_lon" validate:"min=-180,max=180"`
}

type PipelineConfig struct {
	Workers    int `koanf:"workers" validate:"min=1"`
	QueueDepth int `koanf:"queue_depth" validate:"min=1"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// TQE_-prefixed environment variables, highest precedence last.
func Load() (*Config, error) {
	return LoadFromFile("configs/config.yaml")
}

// LoadFromFile is Load with an explicit config file path.
func LoadFromFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("TQE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TQE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func defaults() *Config {
	qd := quality.DefaultConfig()
	ad := anomaly.DefaultConfig()

	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			MetricsPort:     9090,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			QueueKey:   "tqe:quarantine",
			VerdictTTL: 24 * time.Hour,
			PushPerSec: 100,
			PushBurst:  200,
		},
		Quality: QualityConfig{
			CompletenessWeight:        qd.CompletenessWeight,
			ValidityWeight:            qd.ValidityWeight,
			ConsistencyWeight:         qd.ConsistencyWeight,
			TimelinessWeight:          qd.TimelinessWeight,
			QuarantineThreshold:       qd.QuarantineThreshold,
			QuarantineOnCriticalIssue: qd.QuarantineOnCriticalIssue,
			OptimalFreshness:          qd.OptimalFreshness,
			AcceptableFreshness:       qd.AcceptableFreshness,
			StaleCutoff:               qd.StaleCutoff,
			AltitudeMin:               qd.FieldRanges[telemetry.FieldAltitude].Min,
			AltitudeMax:               qd.FieldRanges[telemetry.FieldAltitude].Max,
			VelocityMax:               qd.FieldRanges[telemetry.FieldVelocity].Max,
		},
		Anomaly: AnomalyConfig{
			ZScoreThreshold:    ad.ZScoreThreshold,
			MinSamples:         ad.MinSamples,
			TeleportDistanceKm: ad.TeleportDistanceKm,
			MaxJumpSpeedPerSec: ad.MaxJumpSpeedPerSec,
			TrackMaxPoints:     ad.TrackMaxPoints,
			TrackMaxAge:        ad.TrackMaxAge,
			TrackMaxEntries:    ad.TrackMaxEntries,
			OceanicZones:       zonesFromBoundaries(ad.OceanicZones),
		},
		Pipeline: PipelineConfig{
			Workers:    8,
			QueueDepth: 256,
		},
	}
}

// QualityDomainConfig maps the loaded values onto the scorer's domain
// configuration; the domain validation still runs at scorer construction.
func (c *Config) QualityDomainConfig() quality.Config {
	cfg := quality.DefaultConfig()
	cfg.CompletenessWeight = c.Quality.CompletenessWeight
	cfg.ValidityWeight = c.Quality.ValidityWeight
	cfg.ConsistencyWeight = c.Quality.ConsistencyWeight
	cfg.TimelinessWeight = c.Quality.TimelinessWeight
	cfg.QuarantineThreshold = c.Quality.QuarantineThreshold
	cfg.QuarantineOnCriticalIssue = c.Quality.QuarantineOnCriticalIssue
	cfg.OptimalFreshness = c.Quality.OptimalFreshness
	cfg.AcceptableFreshness = c.Quality.AcceptableFreshness
	cfg.StaleCutoff = c.Quality.StaleCutoff
	cfg.FieldRanges[telemetry.FieldAltitude] = telemetry.Range{
		Min: c.Quality.AltitudeMin,
		Max: c.Quality.AltitudeMax,
	}
	cfg.FieldRanges[telemetry.FieldVelocity] = telemetry.Range{
		Min: 0,
		Max: c.Quality.VelocityMax,
	}
	return cfg
}

// AnomalyDomainConfig maps the loaded values onto the detector's domain
// configuration.
func (c *Config) AnomalyDomainConfig() anomaly.Config {
	cfg := anomaly.DefaultConfig()
	cfg.ZScoreThreshold = c.Anomaly.ZScoreThreshold
	cfg.MinSamples = c.Anomaly.MinSamples
	cfg.TeleportDistanceKm = c.Anomaly.TeleportDistanceKm
	cfg.MaxJumpSpeedPerSec = c.Anomaly.MaxJumpSpeedPerSec
	cfg.TrackMaxPoints = c.Anomaly.TrackMaxPoints
	cfg.TrackMaxAge = c.Anomaly.TrackMaxAge
	cfg.TrackMaxEntries = c.Anomaly.TrackMaxEntries
	if len(c.Anomaly.ForbiddenZones) > 0 {
		cfg.ForbiddenZones = boundariesFromZones(c.Anomaly.ForbiddenZones)
	}
	if len(c.Anomaly.OceanicZones) > 0 {
		cfg.OceanicZones = boundariesFromZones(c.Anomaly.OceanicZones)
	}
	return cfg
}

func boundariesFromZones(zones []ZoneConfig) []anomaly.Boundary {
	out := make([]anomaly.Boundary, len(zones))
	for i, z := range zones {
		out[i] = anomaly.Boundary{
			Name:   z.Name,
			MinLat: z.MinLat,
			MaxLat: z.MaxLat,
			MinLon: z.MinLon,
			MaxLon: z.MaxLon,
		}
	}
	return out
}

func zonesFromBoundaries(bounds []anomaly.Boundary) []ZoneConfig {
	out := make([]ZoneConfig, len(bounds))
	for i, b := range bounds {
		out[i] = ZoneConfig{
			Name:   b.Name,
			MinLat: b.MinLat,
			MaxLat: b.MaxLat,
			MinLon: b.MinLon,
			MaxLon: b.MaxLon,
		}
	}
	return out
}

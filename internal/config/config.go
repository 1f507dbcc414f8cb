// Package config loads application configuration from config.yaml, .env,
// and PARCEL_-prefixed environment variables, and initializes logging.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Parcels ParcelsConfig `yaml:"parcels" mapstructure:"parcels"`
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Resolve ResolveConfig `yaml:"resolve" mapstructure:"resolve"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the forward-geocoding provider.
type GeocodeConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ParcelsConfig configures the spatial parcel registry.
type ParcelsConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	BufferDegrees float64 `yaml:"buffer_degrees" mapstructure:"buffer_degrees"`
	RateRPS       float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CensusConfig configures the administrative-geography service.
type CensusConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Benchmark   string  `yaml:"benchmark" mapstructure:"benchmark"`
	Vintage     string  `yaml:"vintage" mapstructure:"vintage"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResolveConfig configures disambiguation scoring and jurisdiction scope.
type ResolveConfig struct {
	CountyGEOID      string `yaml:"county_geoid" mapstructure:"county_geoid"`
	HouseNumberScore int    `yaml:"house_number_score" mapstructure:"house_number_score"`
	StreetWordScore  int    `yaml:"street_word_score" mapstructure:"street_word_score"`
	SuffixScore      int    `yaml:"suffix_score" mapstructure:"suffix_score"`
}

// BatchConfig configures the batch enrichment driver.
type BatchConfig struct {
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
	CheckpointDB string `yaml:"checkpoint_db" mapstructure:"checkpoint_db"`
}

// SinkConfig configures the optional database sink.
type SinkConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Timeout returns the configured HTTP timeout.
func (c GeocodeConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

// Timeout returns the configured HTTP timeout.
func (c ParcelsConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

// Timeout returns the configured HTTP timeout.
func (c CensusConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

func secs(n int) time.Duration {
	if n <= 0 {
		n = 30
	}
	return time.Duration(n) * time.Second
}

// Validate checks the fields the given command mode requires. mode is the
// command name ("resolve" or "enrich").
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Parcels.BaseURL == "" {
		problems = append(problems, "parcels.base_url is required")
	}
	if c.Parcels.BufferDegrees <= 0 {
		problems = append(problems, "parcels.buffer_degrees must be > 0")
	}
	if c.Census.BaseURL == "" {
		problems = append(problems, "census.base_url is required")
	}
	if c.Resolve.HouseNumberScore < 0 || c.Resolve.StreetWordScore < 0 || c.Resolve.SuffixScore < 0 {
		problems = append(problems, "resolve score weights must be >= 0")
	}

	switch mode {
	case "resolve":
		if c.Geocode.BaseURL == "" {
			problems = append(problems, "geocode.base_url is required")
		}
	case "enrich":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
			problems = append(problems, "batch.concurrency must be between 1 and 32")
		}
		if c.Batch.MaxRetries < 1 {
			problems = append(problems, "batch.max_retries must be >= 1")
		}
	default:
		problems = append(problems, "unknown mode: "+mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// API keys live in .env in deployments; absence is fine.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARCEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.rate_rps", 3)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("parcels.base_url", "https://gis-public.sandiegocounty.gov/arcgis/rest/services/sdep_warehouse/PARCELS_ALL/FeatureServer/0/query")
	v.SetDefault("parcels.buffer_degrees", 0.0003)
	v.SetDefault("parcels.rate_rps", 3)
	v.SetDefault("parcels.timeout_secs", 30)
	v.SetDefault("census.base_url", "https://geocoding.geo.census.gov/geocoder/geographies/coordinates")
	v.SetDefault("census.benchmark", "Public_AR_Current")
	v.SetDefault("census.vintage", "Current_Current")
	v.SetDefault("census.rate_rps", 3)
	v.SetDefault("census.timeout_secs", 15)
	v.SetDefault("resolve.county_geoid", "06073")
	v.SetDefault("resolve.house_number_score", 10)
	v.SetDefault("resolve.street_word_score", 5)
	v.SetDefault("resolve.suffix_score", 2)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.max_retries", 3)
	v.SetDefault("sink.table", "deals")

	// Map the .env key the sibling scripts use onto the viper key.
	_ = v.BindEnv("geocode.api_key", "PARCEL_GEOCODE_API_KEY", "GOOGLE_GEOCODING_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Upstream limits on identifiers per request.
const (
	MaxNWISBatch = 50
	MaxCDWRBatch = 10
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// BatchSize is the number of USGS site numbers per NWIS request.
	BatchSize int
	// CDWRBatchSize is the number of identifiers per CNRA SQL request.
	CDWRBatchSize int
	HTTPTimeout   time.Duration
	// HTTPRetries is the number of extra attempts after a failed request.
	HTTPRetries int

	NWISBaseURL            string
	OWRDBaseURL            string
	CDWRBaseURL            string
	CDWRPeriodicResource   string
	CDWRContinuousResource string
	CDWRStationsResource   string
	CensusCountyURL        string

	// CodeTablesFile replaces the embedded code tables when set.
	CodeTablesFile string
	ActiveWindow   time.Duration

	// Measurement publishing is enabled when KafkaBrokers is non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	MetricsTextfile string
	// StatusAddr enables the status server when non-empty.
	StatusAddr      string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	if batchSize > MaxNWISBatch {
		return nil, fmt.Errorf("BATCH_SIZE must be at most %d", MaxNWISBatch)
	}

	cdwrBatch, err := parsePositiveInt("CDWR_BATCH_SIZE", MaxCDWRBatch)
	if err != nil {
		return nil, err
	}
	if cdwrBatch > MaxCDWRBatch {
		return nil, fmt.Errorf("CDWR_BATCH_SIZE must be at most %d", MaxCDWRBatch)
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "300s")
	if err != nil {
		return nil, err
	}

	retries, err := parseNonNegativeInt("HTTP_RETRIES")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	windowDays, err := parsePositiveInt("ACTIVE_WINDOW_DAYS", 365)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:      strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		BatchSize:     batchSize,
		CDWRBatchSize: cdwrBatch,
		HTTPTimeout:   httpTimeout,
		HTTPRetries:   retries,

		NWISBaseURL:            sharedcfg.EnvOrDefault("NWIS_BASE_URL", "https://waterservices.usgs.gov/nwis"),
		OWRDBaseURL:            sharedcfg.EnvOrDefault("OWRD_BASE_URL", "https://apps.wrd.state.or.us/apps/gw/gw_data_rws/api"),
		CDWRBaseURL:            sharedcfg.EnvOrDefault("CDWR_BASE_URL", "https://data.cnra.ca.gov/api/3/action/datastore_search_sql"),
		CDWRPeriodicResource:   sharedcfg.EnvOrDefault("CDWR_PERIODIC_RESOURCE", "bfa9f262-24a1-45bd-8dc8-138bc8107266"),
		CDWRContinuousResource: sharedcfg.EnvOrDefault("CDWR_CONTINUOUS_RESOURCE", "84e02633-00ca-47e8-97ec-c0093313ddcd"),
		CDWRStationsResource:   sharedcfg.EnvOrDefault("CDWR_STATIONS_RESOURCE", "af157380-fb42-4abf-b72a-6f9f98868077"),
		CensusCountyURL:        sharedcfg.EnvOrDefault("CENSUS_COUNTY_URL", "https://www2.census.gov/geo/docs/reference/codes/files/national_county.txt"),

		CodeTablesFile: os.Getenv("CODE_TABLES_FILE"),
		ActiveWindow:   time.Duration(windowDays) * 24 * time.Hour,

		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "groundwater-levels"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		StatusAddr:      os.Getenv("STATUS_ADDR"),
		ShutdownTimeout: shutdownTimeout,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid LOG_LEVEL")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, errors.New("invalid LOG_FORMAT")
	}
	if cfg.CodeTablesFile != "" {
		if _, err := os.Stat(cfg.CodeTablesFile); err != nil {
			return nil, fmt.Errorf("CODE_TABLES_FILE: %w", err)
		}
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether surviving measurements go to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

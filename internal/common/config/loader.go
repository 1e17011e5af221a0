// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConferenceKeywords mark a calendar-derived need as a conference trip.
var DefaultConferenceKeywords = []string{
	"conference", "summit", "expo", "convention", "offsite",
	"kickoff", "meetup", "workshop", "retreat", "symposium",
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and
// lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile reads a single YAML file with the same env and default handling as Load.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindSecrets(v)
	return v
}

// bindSecrets maps the conventional env names onto their config keys.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("database.postgres.user", "DB_USER", "DATABASE_POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "DB_PASSWORD", "DATABASE_POSTGRES_PASSWORD")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD", "DATABASE_REDIS_PASSWORD")
	_ = v.BindEnv("apis.flight_search.api_key", "FLIGHT_SEARCH_API_KEY", "APIS_FLIGHT_SEARCH_API_KEY")
	_ = v.BindEnv("apis.travel_needs.api_key", "TRAVEL_NEEDS_API_KEY", "APIS_TRAVEL_NEEDS_API_KEY")
	_ = v.BindEnv("apis.calendar.api_key", "CALENDAR_API_KEY", "APIS_CALENDAR_API_KEY")
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "travel-workers"
	}
	if cfg.App.HealthPort == 0 {
		cfg.App.HealthPort = 8080
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.AirportIndex == "" {
		cfg.Database.Elasticsearch.AirportIndex = "airports"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	for _, api := range []*ServiceAPIConfig{&cfg.APIs.FlightSearch, &cfg.APIs.TravelNeeds, &cfg.APIs.Calendar} {
		if api.Timeout == 0 {
			api.Timeout = 10000
		}
	}

	if cfg.Engine.SearchTimeout == 0 {
		cfg.Engine.SearchTimeout = 15000
	}
	if cfg.Engine.MaxConcurrentSearches == 0 {
		cfg.Engine.MaxConcurrentSearches = 8
	}
	if cfg.Engine.SearchRatePerSecond == 0 {
		cfg.Engine.SearchRatePerSecond = 5
	}
	if cfg.Engine.SearchCacheTTL == 0 {
		cfg.Engine.SearchCacheTTL = 900
	}
	if cfg.Engine.FlowStateTTL == 0 {
		cfg.Engine.FlowStateTTL = 86400
	}
	if cfg.Engine.TopOffers == 0 {
		cfg.Engine.TopOffers = 5
	}
	if len(cfg.Engine.ConferenceKeywords) == 0 {
		cfg.Engine.ConferenceKeywords = append([]string(nil), DefaultConferenceKeywords...)
	}

	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "pkg/registry/activities.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.APIs.FlightSearch.BaseURL == "" {
		return fmt.Errorf("apis.flight_search.base_url is required")
	}
	if cfg.Engine.MaxConcurrentSearches < 0 {
		return fmt.Errorf("engine.max_concurrent_searches must not be negative")
	}
	if cfg.Engine.SearchRatePerSecond < 0 {
		return fmt.Errorf("engine.search_rate_per_second must not be negative")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

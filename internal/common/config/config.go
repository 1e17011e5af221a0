package config

import (
	"fmt"
	"time"
)

type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	APIs         APIsConfig              `mapstructure:"apis"`
	Engine       EngineConfig            `mapstructure:"engine"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HealthPort  int    `mapstructure:"health_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	AirportIndex string   `mapstructure:"airport_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// ServiceAPIConfig describes one HTTP collaborator.
type ServiceAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type APIsConfig struct {
	FlightSearch ServiceAPIConfig `mapstructure:"flight_search"`
	TravelNeeds  ServiceAPIConfig `mapstructure:"travel_needs"`
	Calendar     ServiceAPIConfig `mapstructure:"calendar"`
}

// EngineConfig tunes the travel-decision engine.
type EngineConfig struct {
	SearchTimeout         int      `mapstructure:"search_timeout"` // milliseconds
	MaxConcurrentSearches int      `mapstructure:"max_concurrent_searches"`
	SearchRatePerSecond   float64  `mapstructure:"search_rate_per_second"`
	SearchCacheTTL        int      `mapstructure:"search_cache_ttl"` // seconds
	FlowStateTTL          int      `mapstructure:"flow_state_ttl"`   // seconds
	TopOffers             int      `mapstructure:"top_offers"`
	ConferenceKeywords    []string `mapstructure:"conference_keywords"`
}

func (e EngineConfig) SearchTimeoutDuration() time.Duration {
	return GetDuration(e.SearchTimeout)
}

func (e EngineConfig) SearchCacheTTLDuration() time.Duration {
	return time.Duration(e.SearchCacheTTL) * time.Second
}

func (e EngineConfig) FlowStateTTLDuration() time.Duration {
	return time.Duration(e.FlowStateTTL) * time.Second
}

type IntegrationConfig struct {
	AWS AWSConfig `mapstructure:"aws"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled            bool   `mapstructure:"enabled"`
		DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
	} `mapstructure:"sns"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

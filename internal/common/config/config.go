// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Approval ApprovalConfig          `mapstructure:"approval"`
	Registry RegistryConfig          `mapstructure:"registry"`
	Server   ServerConfig            `mapstructure:"server"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress          string `mapstructure:"broker_address"`
	UsePlaintextConnection bool   `mapstructure:"use_plaintext_connection"`
	MaxJobsActive          int    `mapstructure:"max_jobs_active"`
	Timeout                int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout         int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// Criteria sources
const (
	CriteriaSourceConfig   = "config"
	CriteriaSourcePostgres = "postgres"
)

// ApprovalConfig holds settings for the card request pipeline.
type ApprovalConfig struct {
	HeaderSignature      string       `mapstructure:"header_signature"`
	StrictNumericParsing bool         `mapstructure:"strict_numeric_parsing"`
	DataDir              string       `mapstructure:"data_dir"`
	CriteriaSource       string       `mapstructure:"criteria_source"`
	CriteriaCacheTTL     int          `mapstructure:"criteria_cache_ttl"` // seconds
	Tiers                []TierConfig `mapstructure:"tiers"`
}

// CacheTTL returns the criteria cache TTL as a duration.
func (a ApprovalConfig) CacheTTL() time.Duration {
	return time.Duration(a.CriteriaCacheTTL) * time.Second
}

// TierConfig is one row of the card criteria table. Order is significant.
type TierConfig struct {
	CardType        string  `mapstructure:"card_type"`
	MinSalary       float64 `mapstructure:"min_salary"`
	MaxSalary       float64 `mapstructure:"max_salary"`
	RequiredEmpCert bool    `mapstructure:"required_emp_cert"`
}

// RegistryConfig points to the activity registry describing the task types.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

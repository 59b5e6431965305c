package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: card-approval-workers
  version: 1.2.0
camunda:
  broker_address: localhost:26500
workers:
  approve-card-requests:
    enabled: true
    max_jobs_active: 4
  reject-card-requests:
    enabled: false
approval:
  strict_numeric_parsing: true
  data_dir: /var/lib/card-requests
  tiers:
    - card_type: silver
      min_salary: 15000
      max_salary: 29999
      required_emp_cert: false
    - card_type: gold
      min_salary: 30000
      max_salary: 39999
      required_emp_cert: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, "1.2.0", cfg.App.Version)

	assert.True(t, cfg.Approval.StrictNumericParsing)
	assert.Equal(t, "/var/lib/card-requests", cfg.Approval.DataDir)
	require.Len(t, cfg.Approval.Tiers, 2)
	assert.Equal(t, TierConfig{CardType: "silver", MinSalary: 15000, MaxSalary: 29999}, cfg.Approval.Tiers[0])
	assert.Equal(t, "gold", cfg.Approval.Tiers[1].CardType)
	assert.True(t, cfg.Approval.Tiers[1].RequiredEmpCert)

	approve := GetWorkerConfig(cfg, "approve-card-requests")
	assert.True(t, approve.Enabled)
	assert.Equal(t, 4, approve.MaxJobsActive)
	assert.Equal(t, 30000, approve.Timeout)
	assert.False(t, GetWorkerConfig(cfg, "reject-card-requests").Enabled)
	assert.True(t, GetWorkerConfig(cfg, "unknown-worker").Enabled)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "camunda:\n  broker_address: zeebe:26500\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHeaderSignature, cfg.Approval.HeaderSignature)
	assert.Equal(t, CriteriaSourceConfig, cfg.Approval.CriteriaSource)
	assert.Equal(t, time.Hour, cfg.Approval.CacheTTL())
	assert.False(t, cfg.Approval.StrictNumericParsing)
	assert.Empty(t, cfg.Approval.Tiers)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.False(t, cfg.Database.Redis.Enabled())
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CARD_BROKER", "broker.internal:26500")

	cfg, err := LoadFromFile(writeConfig(t, "camunda:\n  broker_address: ${TEST_CARD_BROKER}\n"))
	require.NoError(t, err)
	assert.Equal(t, "broker.internal:26500", cfg.Camunda.BrokerAddress)
}

// unsetEnv removes name for the duration of the test.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

func TestLoadFromFile_UnsetPlaceholders(t *testing.T) {
	for _, name := range []string{"ZEEBE_ADDRESS", "TEST_CARD_BROKER", "TEST_CARD_DB_HOST", "TEST_CARD_REDIS"} {
		unsetEnv(t, name)
	}

	_, err := LoadFromFile(writeConfig(t, "camunda:\n  broker_address: ${TEST_CARD_BROKER}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camunda.broker_address is required")

	_, err = LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: ${TEST_CARD_DB_HOST}
    database: cards
    user: cards
approval:
  criteria_source: postgres
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.host is required")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: localhost:26500
database:
  redis:
    address: ${TEST_CARD_REDIS}
`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.Redis.Address)
	assert.False(t, cfg.Database.Redis.Enabled())
}

func TestLoadFromFile_UnsetBrokerFallsBackToZeebeAddress(t *testing.T) {
	unsetEnv(t, "TEST_CARD_BROKER")
	t.Setenv("ZEEBE_ADDRESS", "zeebe.internal:26500")

	cfg, err := LoadFromFile(writeConfig(t, "camunda:\n  broker_address: ${TEST_CARD_BROKER}\n"))
	require.NoError(t, err)
	assert.Equal(t, "zeebe.internal:26500", cfg.Camunda.BrokerAddress)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		errText string
	}{
		{
			name:    "missing broker",
			body:    "app:\n  name: x\n",
			errText: "camunda.broker_address is required",
		},
		{
			name: "postgres source without host",
			body: `
camunda:
  broker_address: localhost:26500
approval:
  criteria_source: postgres
`,
			errText: "database.postgres.host is required",
		},
		{
			name: "unknown criteria source",
			body: `
camunda:
  broker_address: localhost:26500
approval:
  criteria_source: etcd
`,
			errText: "approval.criteria_source",
		},
		{
			name: "inverted tier",
			body: `
camunda:
  broker_address: localhost:26500
approval:
  tiers:
    - card_type: gold
      min_salary: 40000
      max_salary: 30000
`,
			errText: "min_salary 40000.00 exceeds max_salary 30000.00",
		},
		{
			name: "unnamed tier",
			body: `
camunda:
  broker_address: localhost:26500
approval:
  tiers:
    - min_salary: 1
      max_salary: 2
`,
			errText: "approval.tiers[0].card_type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ZEEBE_ADDRESS", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cards", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cards sslmode=disable", p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

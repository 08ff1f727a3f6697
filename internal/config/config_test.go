package config

import (
	"runtime"
	"strings"
	"testing"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromYAML(t *testing.T, doc string) *Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "schema.yaml", cfg.Schema)
	assert.False(t, cfg.SeedSet)
	assert.Equal(t, 100, cfg.Count)
	assert.Equal(t, 10, cfg.MaxUniquenessRetries)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, Output{Format: "csv", Dir: "output"}, cfg.Output)
	assert.Equal(t, "postgresql", cfg.Database.Provider)
	assert.Equal(t, "DATABASE_URL", cfg.Database.URLEnv)
	assert.Equal(t, 500, cfg.Database.BatchSize)
	assert.Equal(t, Log{Level: "warn", Format: "console"}, cfg.Log)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	cfg := fromYAML(t, `
schema: db/schema.sql
seed: 42
count: 5
tables:
  Users: 3
cardinality:
  orders:
    customer_id: 2
output:
  format: JSON
  dir: out
database:
  provider: SQLite
  truncate: true
log:
  level: debug
  format: json
verify: true
`)

	assert.Equal(t, "db/schema.sql", cfg.Schema)
	assert.True(t, cfg.SeedSet)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 5, cfg.Count)
	assert.Equal(t, map[string]int{"users": 3}, cfg.Tables)
	assert.Equal(t, 2.0, cfg.Cardinality["orders"]["customer_id"])
	assert.Equal(t, Output{Format: "json", Dir: "out"}, cfg.Output)
	assert.Equal(t, "sqlite", cfg.Database.Provider)
	assert.True(t, cfg.Database.Truncate)
	assert.True(t, cfg.Verify)
	assert.Equal(t, "debug", cfg.Log.LoggerConfig().Level)
	assert.Equal(t, "json", cfg.Log.LoggerConfig().Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TABLEFAKER_COUNT", "7")
	t.Setenv("TABLEFAKER_SEED", "9")
	t.Setenv("TABLEFAKER_OUTPUT_FORMAT", "none")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Count)
	assert.True(t, cfg.SeedSet)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "none", cfg.Output.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no workers", func(c *Config) { c.Workers = 0 }, "Workers"},
		{"negative count", func(c *Config) { c.Count = -1 }, "Count"},
		{"negative table count", func(c *Config) { c.Tables = map[string]int{"users": -2} }, "Tables"},
		{"unknown output", func(c *Config) { c.Output.Format = "xml" }, "Format"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "loud"},
		{"unsupported provider", func(c *Config) {
			c.Output.Format = "sql"
			c.Database.Provider = "oracle"
		}, "unsupported database provider"},
		{"negative cardinality", func(c *Config) {
			c.Cardinality = map[string]map[string]float64{"orders": {"customer_id": -1}}
		}, "orders.customer_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(viper.New())
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: Database{URLEnv: "TABLEFAKER_TEST_DB"}}
	_, err := cfg.GetDatabaseURL()
	assert.ErrorContains(t, err, "TABLEFAKER_TEST_DB")

	t.Setenv("TABLEFAKER_TEST_DB", "sqlite://data.db")
	url, err := cfg.GetDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "sqlite://data.db", url)
}

func TestCardinalityHints(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{
		{Name: "Customers", Fields: []schema.Field{{Name: "ID", Type: schema.TypeInteger, PrimaryKey: true}}},
		{Name: "Orders", Fields: []schema.Field{
			{Name: "CustomerID", Type: schema.TypeInteger, References: &schema.Reference{Table: "Customers", Field: "ID"}},
		}},
	}}

	cfg := &Config{Cardinality: map[string]map[string]float64{"orders": {"customerid": 3}}}
	hints, err := cfg.CardinalityHints(s)
	require.NoError(t, err)
	assert.Equal(t, []CardinalityHint{{Table: "Orders", Field: "CustomerID", K: 3}}, hints)

	cfg.Cardinality["orders"]["total"] = 1
	cfg.Cardinality["invoices"] = map[string]float64{"customer_id": 1}
	_, err = cfg.CardinalityHints(s)
	assert.EqualError(t, err, "cardinality configured for unknown fields: invoices.customer_id, orders.total")

	hints, err = (&Config{}).CardinalityHints(s)
	assert.NoError(t, err)
	assert.Empty(t, hints)
}

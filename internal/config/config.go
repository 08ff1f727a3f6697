package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/logger"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultConfigName = "tablefaker.config"
	EnvPrefix         = "TABLEFAKER"
)

type Config struct {
	Schema               string                        `json:"schema" mapstructure:"schema" validate:"required"`
	Seed                 int64                         `json:"seed" mapstructure:"seed"`
	SeedSet              bool                          `json:"-" mapstructure:"-"`
	Count                int                           `json:"count" mapstructure:"count" validate:"gte=0"`
	Tables               map[string]int                `json:"tables,omitempty" mapstructure:"tables" validate:"dive,gte=0"`
	MaxUniquenessRetries int                           `json:"max_uniqueness_retries" mapstructure:"max_uniqueness_retries" validate:"gte=0"`
	Workers              int                           `json:"workers" mapstructure:"workers" validate:"gt=0"`
	BatchSize            int                           `json:"batch_size" mapstructure:"batch_size" validate:"gt=0"`
	Cardinality          map[string]map[string]float64 `json:"cardinality,omitempty" mapstructure:"cardinality"`
	Verify               bool                          `json:"verify" mapstructure:"verify"`
	Metrics              string                        `json:"metrics,omitempty" mapstructure:"metrics"`
	Output               Output                        `json:"output" mapstructure:"output"`
	Database             Database                      `json:"database" mapstructure:"database"`
	Log                  Log                           `json:"log" mapstructure:"log"`
}

type Output struct {
	Format string `json:"format" mapstructure:"format" validate:"oneof=csv json sql none"`
	Dir    string `json:"dir" mapstructure:"dir"`
}

type Database struct {
	Provider      string `json:"provider" mapstructure:"provider"`
	URLEnv        string `json:"url_env" mapstructure:"url_env"`
	Truncate      bool   `json:"truncate" mapstructure:"truncate"`
	BatchSize     int    `json:"batch_size" mapstructure:"batch_size" validate:"gt=0"`
	NoTransaction bool   `json:"no_transaction" mapstructure:"no_transaction"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format" validate:"oneof=console json"`
}

// LoggerConfig converts the log section for logger.New.
func (l Log) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	return cfg
}

// CardinalityHint is a configured cardinality for one foreign key field.
type CardinalityHint struct {
	Table string
	Field string
	K     float64
}

var (
	structValidator    = validator.New()
	supportedProviders = []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
)

// SetDefaults registers every key with v so that environment overrides reach
// nested settings during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schema", "schema.yaml")
	v.SetDefault("count", 100)
	v.SetDefault("max_uniqueness_retries", 10)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("batch_size", 1000)
	v.SetDefault("verify", false)
	v.SetDefault("metrics", "")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.dir", "output")
	v.SetDefault("database.provider", "postgresql")
	v.SetDefault("database.url_env", "DATABASE_URL")
	v.SetDefault("database.truncate", false)
	v.SetDefault("database.batch_size", 500)
	v.SetDefault("database.no_transaction", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}

// Load reads the run configuration from v, or from the global viper
// instance when v is nil.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// seed has no default; an unset seed is drawn by the caller and reported.
	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
		cfg.SeedSet = true
	}

	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Database.Provider = strings.ToLower(cfg.Database.Provider)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), tagWithParam(fe), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Output.Format == "sql" {
		supported := false
		for _, provider := range supportedProviders {
			if c.Database.Provider == provider {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
		}
		if c.Database.URLEnv == "" {
			return fmt.Errorf("database.url_env cannot be empty")
		}
	}

	for table, fields := range c.Cardinality {
		for field, k := range fields {
			if k < 0 {
				return fmt.Errorf("cardinality for %s.%s must not be negative, got %v", table, field, k)
			}
		}
	}
	return nil
}

func tagWithParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

// CardinalityHints matches the configured cardinality map against s. Viper
// folds keys to lower case, so names are compared case-insensitively. Hints
// are returned in schema order; a hint naming no field of s is an error.
func (c *Config) CardinalityHints(s *schema.Schema) ([]CardinalityHint, error) {
	if len(c.Cardinality) == 0 {
		return nil, nil
	}
	used := make(map[string]bool)
	var hints []CardinalityHint
	for _, t := range s.Tables {
		fields, tableKey := lookupFold(c.Cardinality, t.Name)
		if fields == nil {
			continue
		}
		for _, f := range t.Fields {
			for key, k := range fields {
				if strings.EqualFold(key, f.Name) {
					hints = append(hints, CardinalityHint{Table: t.Name, Field: f.Name, K: k})
					used[tableKey+"."+key] = true
				}
			}
		}
	}

	var unknown []string
	for table, fields := range c.Cardinality {
		for field := range fields {
			if !used[table+"."+field] {
				unknown = append(unknown, table+"."+field)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("cardinality configured for unknown fields: %s", strings.Join(unknown, ", "))
	}
	return hints, nil
}

func lookupFold(m map[string]map[string]float64, name string) (map[string]float64, string) {
	if v, ok := m[name]; ok {
		return v, name
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, k
		}
	}
	return nil, ""
}

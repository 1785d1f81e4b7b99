package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

const (
	// QuoteDeletePolicyPreserve leaves a deleted book's quotes in place.
	QuoteDeletePolicyPreserve = "preserve"
	// QuoteDeletePolicyCascade deletes a book's quotes along with the book.
	QuoteDeletePolicyCascade = "cascade"
)

const (
	environmentENV    = "ENVIRONMENT"
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/shelfmates.yaml"
)

type Config struct {
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5" validate:"min=1"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseDriver            string        `koanf:"database_driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required_if=DatabaseDriver sqlite"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5" validate:"min=0"`
	DatabaseURL               string        `koanf:"database_url" validate:"required_if=DatabaseDriver postgres"`

	CORSOrigins        []string `koanf:"cors_origins" default:"[\"*\"]"`
	Environment        string   `koanf:"-"`
	Hostname           string   `koanf:"-"`
	ListLimit          int      `koanf:"list_limit" default:"1000" validate:"min=1,max=1000"`
	QuoteDeletePolicy  string   `koanf:"quote_delete_policy" default:"preserve" validate:"oneof=preserve cascade"`
	RateLimitPerSecond float64  `koanf:"rate_limit_per_second" default:"20" validate:"min=0"`
	ServerHost         string   `koanf:"server_host" default:"0.0.0.0"`
	ServerPort         int      `koanf:"server_port" default:"8001" validate:"min=0,max=65535"`
	TracingEndpoint    string   `koanf:"tracing_endpoint"`
	TracingServiceName string   `koanf:"tracing_service_name" default:"shelfmates"`
}

// New loads the config from defaults, the YAML file named by CONFIG_FILE, and
// the environment, in increasing order of precedence.
func New() (*Config, error) {
	return NewWithFlags(nil)
}

// NewWithFlags is like New, but flags that were explicitly set on the command
// line take precedence over everything else. The "config" flag, when set,
// replaces CONFIG_FILE.
func NewWithFlags(fs *pflag.FlagSet) (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname
	cfg.Environment = os.Getenv(environmentENV)

	switch cfg.Environment {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			configFile = f.Value.String()
		}
	}
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	err = k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(key)
		if key == "cors_origins" {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if fs != nil {
		err = k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		}), nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config backed by an in-memory SQLite database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.Environment = "test"
	loadTestConfig(cfg)
	return cfg
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}

	fe := verrs[0]
	key := toSnakeCase(fe.StructField())
	switch fe.Tag() {
	case "required", "required_if":
		return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(key), key)
	default:
		return errors.Errorf("invalid config: %s (%s) failed %q validation", strings.ToUpper(key), key, fe.Tag())
	}
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

// Addr is the host:port the server listens on.
func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
}

// CascadeQuoteDeletes reports whether deleting a book also deletes its quotes.
func (cfg *Config) CascadeQuoteDeletes() bool {
	return cfg.QuoteDeletePolicy == QuoteDeletePolicyCascade
}

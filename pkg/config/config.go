package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	PolicyFailFast     = "fail_fast"
	PolicyTreatAsEmpty = "treat_as_empty"

	ModeFaithful   = "faithful"
	ModeReconciled = "reconciled"

	AuthHTTP     = "http"
	AuthFirebase = "firebase"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPPort int    `yaml:"http_port"`

	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Line    LineConfig    `yaml:"line"`
	Catalog []SeedProduct `yaml:"catalog"`
}

type StoreConfig struct {
	Driver          string         `yaml:"driver"`
	SQLitePath      string         `yaml:"sqlite_path"`
	MalformedPolicy string         `yaml:"malformed_policy"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"password"`
	DB      string `yaml:"db"`
	SSLMode string `yaml:"sslmode"`
}

type AuthConfig struct {
	Provider            string `yaml:"provider"`
	FirebaseCredentials string `yaml:"firebase_credentials"`

	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Username string `yaml:"username"`
}

type LineConfig struct {
	Mode string `yaml:"mode"`
}

// SeedProduct is a catalog entry loaded into the in-memory catalog at start.
// Price is kept as a string so YAML floats never round it.
type SeedProduct struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Price       string   `yaml:"price"`
	Description string   `yaml:"description"`
	Thumbnail   string   `yaml:"thumbnail"`
	Tags        []string `yaml:"tags"`
}

func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: "info",
		HTTPPort: 8080,
		Store: StoreConfig{
			Driver:          DriverMemory,
			SQLitePath:      "cartline.db",
			MalformedPolicy: PolicyFailFast,
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "shopping",
				Pass:    "shoppingpassword",
				DB:      "shopping_db",
				SSLMode: "disable",
			},
		},
		Auth: AuthConfig{Provider: AuthHTTP},
		Line: LineConfig{Mode: ModeFaithful},
	}
}

// Load reads defaults, then the YAML file named by CARTLINE_CONFIG (if any),
// then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CARTLINE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.MalformedPolicy = getEnv("MALFORMED_POLICY", cfg.Store.MalformedPolicy)

	pg := &cfg.Store.Postgres
	pg.Host = getEnv("POSTGRES_HOST", pg.Host)
	pg.Port = getEnvInt("POSTGRES_PORT", pg.Port)
	pg.User = getEnv("POSTGRES_USER", pg.User)
	pg.Pass = getEnv("POSTGRES_PASSWORD", pg.Pass)
	pg.DB = getEnv("POSTGRES_DB", pg.DB)
	pg.SSLMode = getEnv("POSTGRES_SSLMODE", pg.SSLMode)

	cfg.Auth.Provider = getEnv("AUTH_PROVIDER", cfg.Auth.Provider)
	cfg.Auth.FirebaseCredentials = getEnv("FIREBASE_CREDENTIALS", cfg.Auth.FirebaseCredentials)
	cfg.Auth.BaseURL = getEnv("AUTH_BASE_URL", cfg.Auth.BaseURL)
	cfg.Auth.APIKey = getEnv("AUTH_API_KEY", cfg.Auth.APIKey)
	cfg.Auth.Username = getEnv("AUTH_USERNAME", cfg.Auth.Username)

	cfg.Line.Mode = getEnv("LINE_MODE", cfg.Line.Mode)
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.MalformedPolicy {
	case PolicyFailFast, PolicyTreatAsEmpty:
	default:
		return fmt.Errorf("unknown malformed policy %q", c.Store.MalformedPolicy)
	}
	switch c.Line.Mode {
	case ModeFaithful, ModeReconciled:
	default:
		return fmt.Errorf("unknown line mode %q", c.Line.Mode)
	}
	switch c.Auth.Provider {
	case AuthHTTP:
	case AuthFirebase:
		if c.Auth.FirebaseCredentials == "" {
			return fmt.Errorf("firebase auth requires firebase_credentials")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	for i, p := range c.Catalog {
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("catalog[%d]: title is required", i)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

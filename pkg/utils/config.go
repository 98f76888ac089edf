package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"cinehub/internal/validation"
)

const (
	// EnvPrefix namespaces every variable read by Load. Nested keys use a
	// double underscore: CINEHUB_AUTH__JWT_SECRET -> auth.jwt_secret.
	EnvPrefix = "CINEHUB_"

	ConfigPathEnvVar = "CINEHUB_CONFIG"
)

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	SyncAddr        string        `koanf:"sync_addr"`
	NotifyAddr      string        `koanf:"notify_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	TrustedProxies  []string      `koanf:"trusted_proxies"`
}

type MongoConfig struct {
	URI      string        `koanf:"uri" validate:"required"`
	Database string        `koanf:"database" validate:"required"`
	Timeout  time.Duration `koanf:"timeout" validate:"min=0"`
}

type AuthConfig struct {
	JWTSecret   string        `koanf:"jwt_secret" validate:"required,min=16"`
	JWTIssuer   string        `koanf:"jwt_issuer"`
	JWTDuration time.Duration `koanf:"jwt_duration" validate:"required"`
	BcryptCost  int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=1"`
	Window   time.Duration `koanf:"window" validate:"required"`
}

type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			SyncAddr:        ":7070",
			NotifyAddr:      ":7071",
			ShutdownTimeout: 10 * time.Second,
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "cinehub",
			Timeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "cinehub",
			JWTDuration: 7 * 24 * time.Hour,
			BcryptCost:  12,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   15 * time.Minute,
		},
		CORS: CORSConfig{Origins: []string{"*"}},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// Load layers defaults, an optional YAML file and CINEHUB_* environment
// variables, in that order. An empty path falls back to $CINEHUB_CONFIG and
// then DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for _, key := range []string{"cors.origins", "server.trusted_proxies"} {
		splitList(k, key)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// legacyEnv maps the variable names used by older deployments.
var legacyEnv = map[string]string{
	"MONGODB_URI": "mongo.uri",
	"JWT_SECRET":  "auth.jwt_secret",
}

func envTransform(key string) string {
	if mapped, ok := legacyEnv[key]; ok {
		return mapped
	}
	if !strings.HasPrefix(key, EnvPrefix) || key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// splitList turns a comma separated env value into a list.
func splitList(k *koanf.Koanf, key string) {
	s, ok := k.Get(key).(string)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	_ = k.Set(key, out)
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Files     FilesConfig     `mapstructure:"files"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Meeting   MeetingConfig   `mapstructure:"meeting"`
	LiveKit   LiveKitConfig   `mapstructure:"livekit"`
	ICE       ICEConfig       `mapstructure:"ice"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	Mongo  MongoConfig `mapstructure:"mongo"`
}

type RedisConfig struct {
	// URI wins over Addr when set.
	URI       string        `mapstructure:"uri"`
	Addr      string        `mapstructure:"addr"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type FilesConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
	MaxSize int64  `mapstructure:"max_size"`
}

type ChatConfig struct {
	TypingTimeout time.Duration `mapstructure:"typing_timeout"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateInterval  time.Duration `mapstructure:"rate_interval"`
	HistoryLimit  int           `mapstructure:"history_limit"`
}

type LifecycleConfig struct {
	Grace time.Duration `mapstructure:"grace"`
}

type MeetingConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LiveKitConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ICEConfig struct {
	STUN     []string `mapstructure:"stun"`
	TURN     []string `mapstructure:"turn"`
	TURNUser string   `mapstructure:"turn_user"`
	TURNPass string   `mapstructure:"turn_pass"`
}

// Placeholder secrets so debug and test runs work without a config file.
// Release mode refuses to start with them.
const (
	defaultCookieSecret = "change-me"
	defaultJWTSecret    = "dev-secret"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", defaultCookieSecret)
	v.SetDefault("log_level", "info")

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.issuer", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.key_prefix", "meet:")
	v.SetDefault("store.redis.ttl", "168h")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "meet")

	v.SetDefault("files.dir", "./uploads")
	v.SetDefault("files.base_url", "/uploads")
	v.SetDefault("files.max_size", 10<<20)

	v.SetDefault("chat.typing_timeout", "5s")
	v.SetDefault("chat.rate_limit", 20)
	v.SetDefault("chat.rate_interval", "10s")
	v.SetDefault("chat.history_limit", 200)

	v.SetDefault("lifecycle.grace", "60s")
	v.SetDefault("meeting.cache_ttl", "30s")

	v.SetDefault("livekit.token_ttl", "1h")

	v.SetDefault("ice.stun", []string{"stun:stun.l.google.com:19302"})
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != "release" {
		return nil
	}
	if c.Secret == "" || c.Secret == defaultCookieSecret {
		return fmt.Errorf("secret must be set in release mode (MEET_SECRET)")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("auth.jwt_secret must be set in release mode (MEET_AUTH_JWT_SECRET)")
	}
	return nil
}

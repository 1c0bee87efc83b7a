package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type SecurityConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type StoreConfig struct {
	// Driver is "json" (single-document file store) or "sqlite".
	Driver string
	Path   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LimitsConfig struct {
	ChatPerMinute int
}

type EventsConfig struct {
	Retention time.Duration
}

type AppConfig struct {
	Environment      string
	BaseURL          string
	HTTP             HTTPConfig
	Security         SecurityConfig
	Store            StoreConfig
	Stripe           StripeConfig
	OpenAI           OpenAIConfig
	Redis            RedisConfig
	Limits           LimitsConfig
	Events           EventsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("INTEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects configurations that would silently weaken the service.
// The token signing secret in particular must never fall back to a default.
func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return fmt.Errorf("security.jwtsecret must be set")
	}
	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store.driver must be json or sqlite, got %q", c.Store.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("baseurl", "http://localhost:3000")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	// Secrets have no usable default, but viper only binds env vars for
	// keys it knows about, so each is registered empty here.
	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.jwtttl", "168h") // 7 days

	v.SetDefault("store.driver", "json")
	v.SetDefault("store.path", "db.json")

	v.SetDefault("stripe.secretkey", "")
	v.SetDefault("stripe.webhooksecret", "")

	v.SetDefault("openai.apikey", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.maxtokens", 500)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("limits.chatperminute", 60)

	v.SetDefault("allowcorsorigins", "")

	v.SetDefault("events.retention", "720h") // 30 days
}

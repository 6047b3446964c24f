package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "KRYTA"

type Config struct {
	HTTPAddr       string   `validate:"required"`
	AllowedOrigins []string `validate:"min=1"`

	DBDriver   string `validate:"oneof=sqlite postgres"`
	DBDSN      string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	LLMProvider string `validate:"oneof=openai ollama anthropic gemini"`
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	JudgmentTimeout time.Duration `validate:"gt=0"`
	RewardTimeout   time.Duration `validate:"gt=0"`

	JWTSecret string
	TokenTTL  time.Duration `validate:"gt=0"`
	LocalMode bool

	VerifyPerMinute int `validate:"gte=1"`
	VerifyBurst     int `validate:"gte=1"`

	PostHogKey      string
	PostHogEndpoint string
}

var validate = validator.New()

// Load reads .env (if any), then the optional config file, then KRYTA_* env vars.
func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		HTTPAddr:       v.GetString("http.addr"),
		AllowedOrigins: v.GetStringSlice("http.allowed_origins"),

		DBDriver:   strings.ToLower(v.GetString("db.driver")),
		DBDSN:      v.GetString("db.dsn"),
		DBHost:     v.GetString("db.host"),
		DBPort:     v.GetInt("db.port"),
		DBUser:     v.GetString("db.user"),
		DBPassword: v.GetString("db.password"),
		DBName:     v.GetString("db.name"),

		LLMProvider: strings.ToLower(v.GetString("llm.provider")),
		LLMModel:    v.GetString("llm.model"),
		LLMAPIKey:   strings.TrimSpace(v.GetString("llm.api_key")),
		LLMBaseURL:  v.GetString("llm.base_url"),

		JudgmentTimeout: v.GetDuration("verify.judgment_timeout"),
		RewardTimeout:   v.GetDuration("verify.reward_timeout"),

		JWTSecret: v.GetString("auth.jwt_secret"),
		TokenTTL:  v.GetDuration("auth.token_ttl"),
		LocalMode: v.GetBool("auth.local_mode"),

		VerifyPerMinute: v.GetInt("rate.verify_per_minute"),
		VerifyBurst:     v.GetInt("rate.burst"),

		PostHogKey:      v.GetString("analytics.posthog_key"),
		PostHogEndpoint: v.GetString("analytics.posthog_endpoint"),
	}

	if cfg.DBDriver == "sqlite" && cfg.DBDSN == "" {
		cfg.DBDSN = "kryta.db"
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = providerEnvKey(cfg.LLMProvider)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.LocalMode && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("invalid config: auth.jwt_secret is required when auth.local_mode is off")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.port", 5432)

	v.SetDefault("llm.provider", "openai")

	v.SetDefault("verify.judgment_timeout", 30*time.Second)
	v.SetDefault("verify.reward_timeout", 15*time.Second)

	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.local_mode", true)

	v.SetDefault("rate.verify_per_minute", 6)
	v.SetDefault("rate.burst", 3)
}

// providerEnvKey falls back to the vendor env vars people already have exported.
func providerEnvKey(provider string) string {
	var names []string
	switch provider {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic":
		names = []string{"ANTHROPIC_API_KEY"}
	case "gemini":
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range names {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// DSN returns the driver DSN. For postgres without an explicit db.dsn it is built from parts.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return c.ConnString()
	}
	return c.DBDSN
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

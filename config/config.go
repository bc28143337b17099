package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DB_URL"`

	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTExpiryHours int    `mapstructure:"JWT_EXPIRY_HOURS"`
	CORSOrigins    string `mapstructure:"CORS_ORIGINS"`

	TwilioAccountSID        string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken         string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber    string `mapstructure:"TWILIO_WHATSAPP_NUMBER"`
	TwilioValidateSignature bool   `mapstructure:"TWILIO_VALIDATE_SIGNATURE"`
	// PublicBaseURL is the externally visible origin used to rebuild the
	// webhook URL for signature validation.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	DefaultCountryCode   string `mapstructure:"DEFAULT_COUNTRY_CODE"`
	SchedulerCron        string `mapstructure:"SCHEDULER_CRON"`
	BookingDaysAhead     int    `mapstructure:"BOOKING_DAYS_AHEAD"`
	WebhookRatePerMinute int    `mapstructure:"WEBHOOK_RATE_PER_MINUTE"`
}

// Load reads .env (when present), an optional config.yaml and the
// environment, in increasing order of precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_WHATSAPP_NUMBER", "")
	v.SetDefault("TWILIO_VALIDATE_SIGNATURE", false)
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("DEFAULT_COUNTRY_CODE", "55")
	v.SetDefault("SCHEDULER_CRON", "0 * * * *")
	v.SetDefault("BOOKING_DAYS_AHEAD", 15)
	v.SetDefault("WEBHOOK_RATE_PER_MINUTE", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

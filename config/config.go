package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Escrow policy.
	PlatformFeePercent float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	AutoReleaseDays    int     `mapstructure:"AUTO_RELEASE_DAYS"`
	EscrowMinAmount    float64 `mapstructure:"ESCROW_MIN_AMOUNT"`
	EscrowMaxAmount    float64 `mapstructure:"ESCROW_MAX_AMOUNT"`

	// Engagement timing policy.
	StartGraceMinutes   int    `mapstructure:"START_GRACE_MINUTES"`
	ReminderLeadMinutes int    `mapstructure:"REMINDER_LEAD_MINUTES"`
	DefaultTimezone     string `mapstructure:"DEFAULT_TIMEZONE"`

	// Availability defaults.
	DefaultBufferMinutes      int `mapstructure:"DEFAULT_BUFFER_MINUTES"`
	DefaultAdvanceBookingDays int `mapstructure:"DEFAULT_ADVANCE_BOOKING_DAYS"`

	// External collaborators.
	StripeKey               string `mapstructure:"STRIPE_KEY"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "serviflex")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("PLATFORM_FEE_PERCENT", 10.0)
	viper.SetDefault("AUTO_RELEASE_DAYS", 7)
	viper.SetDefault("ESCROW_MIN_AMOUNT", 10.0)
	viper.SetDefault("ESCROW_MAX_AMOUNT", 50000.0)
	viper.SetDefault("START_GRACE_MINUTES", 15)
	viper.SetDefault("REMINDER_LEAD_MINUTES", 10)
	viper.SetDefault("DEFAULT_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("DEFAULT_BUFFER_MINUTES", 30)
	viper.SetDefault("DEFAULT_ADVANCE_BOOKING_DAYS", 30)
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// GetEnv returns the application environment
func GetEnv() string {
	return AppConfig.Env
}

// IsProduction checks if the environment is production
func IsProduction() bool {
	return GetEnv() == "production"
}

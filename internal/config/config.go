/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings. Amount-related knobs accept either minor-unit values
 * (*_CENTS) or whole currency units, mirroring how fees are configured across
 * the platform.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the checkout-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	JWKSURL     string `mapstructure:"JWKS_URL"`

	GatewayCachePrefix string `mapstructure:"GATEWAY_CACHE_PREFIX"`

	PaymentBackendURL    string `mapstructure:"PAYMENT_BACKEND_URL"`
	PaymentBackendAPIKey string `mapstructure:"PAYMENT_BACKEND_API_KEY"`

	CardProcessorURL        string `mapstructure:"CARD_PROCESSOR_URL"`
	CardProcessorAPIKey     string `mapstructure:"CARD_PROCESSOR_API_KEY"`
	RedirectProcessorURL    string `mapstructure:"REDIRECT_PROCESSOR_URL"`
	RedirectProcessorAPIKey string `mapstructure:"REDIRECT_PROCESSOR_API_KEY"`

	CallServiceURL    string `mapstructure:"CALL_SERVICE_URL"`
	CallServiceAPIKey string `mapstructure:"CALL_SERVICE_API_KEY"`

	MinAmountCents     int64 `mapstructure:"MIN_AMOUNT_CENTS"`
	MaxAmountCents     int64 `mapstructure:"MAX_AMOUNT_CENTS"`
	ConfirmAmountCents int64 `mapstructure:"CONFIRM_AMOUNT_CENTS"`

	ChallengeTimeoutMinutes int `mapstructure:"CHALLENGE_TIMEOUT_MINUTES"`
	RPCTimeoutSeconds       int `mapstructure:"RPC_TIMEOUT_SECONDS"`
	CallDelayMinutes        int `mapstructure:"CALL_DELAY_MINUTES"`

	NotificationLocale string `mapstructure:"NOTIFICATION_LOCALE"`

	StaleSweepSchedule string `mapstructure:"STALE_SWEEP_SCHEDULE"`
	StaleAgeMinutes    int    `mapstructure:"STALE_AGE_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GATEWAY_CACHE_PREFIX", "checkout:gateway")
	viper.SetDefault("MIN_AMOUNT_CENTS", 500)
	viper.SetDefault("MAX_AMOUNT_CENTS", 50000)
	viper.SetDefault("CONFIRM_AMOUNT_CENTS", 10000)
	viper.SetDefault("CHALLENGE_TIMEOUT_MINUTES", 10)
	viper.SetDefault("RPC_TIMEOUT_SECONDS", 30)
	viper.SetDefault("CALL_DELAY_MINUTES", 5)
	viper.SetDefault("NOTIFICATION_LOCALE", "fr")
	viper.SetDefault("STALE_SWEEP_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("STALE_AGE_MINUTES", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("GATEWAY_CACHE_PREFIX")
	_ = viper.BindEnv("PAYMENT_BACKEND_URL")
	_ = viper.BindEnv("PAYMENT_BACKEND_API_KEY")
	_ = viper.BindEnv("CARD_PROCESSOR_URL")
	_ = viper.BindEnv("CARD_PROCESSOR_API_KEY")
	_ = viper.BindEnv("REDIRECT_PROCESSOR_URL")
	_ = viper.BindEnv("REDIRECT_PROCESSOR_API_KEY")
	_ = viper.BindEnv("CALL_SERVICE_URL")
	_ = viper.BindEnv("CALL_SERVICE_API_KEY")
	_ = viper.BindEnv("MIN_AMOUNT_CENTS")
	_ = viper.BindEnv("MAX_AMOUNT_CENTS")
	_ = viper.BindEnv("CONFIRM_AMOUNT_CENTS")
	_ = viper.BindEnv("CONFIRM_AMOUNT")
	_ = viper.BindEnv("CHALLENGE_TIMEOUT_MINUTES")
	_ = viper.BindEnv("RPC_TIMEOUT_SECONDS")
	_ = viper.BindEnv("CALL_DELAY_MINUTES")
	_ = viper.BindEnv("NOTIFICATION_LOCALE")
	_ = viper.BindEnv("STALE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("STALE_AGE_MINUTES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.GatewayCachePrefix = strings.TrimSpace(config.GatewayCachePrefix)
	if config.GatewayCachePrefix == "" {
		config.GatewayCachePrefix = "checkout:gateway"
	}

	// Allow specifying the confirmation threshold in whole currency units.
	if viper.IsSet("CONFIRM_AMOUNT") {
		amountStr := strings.TrimSpace(viper.GetString("CONFIRM_AMOUNT"))
		if amountStr != "" {
			amountValue, parseErr := strconv.ParseFloat(amountStr, 64)
			if parseErr != nil {
				log.Printf("level=warn component=config msg=\"invalid CONFIRM_AMOUNT\" value=%q err=%v", amountStr, parseErr)
			} else {
				config.ConfirmAmountCents = int64(math.Round(amountValue * 100))
			}
		}
	}

	if config.MinAmountCents <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive minimum amount configured; using default\" min_cents=%d", config.MinAmountCents)
		config.MinAmountCents = 500
	}
	if config.MaxAmountCents <= config.MinAmountCents {
		log.Printf("level=warn component=config msg=\"maximum amount not above minimum; using default\" max_cents=%d", config.MaxAmountCents)
		config.MaxAmountCents = 50000
	}
	if config.ConfirmAmountCents < 0 {
		log.Printf("level=warn component=config msg=\"negative confirmation threshold configured; coercing to zero\" confirm_cents=%d", config.ConfirmAmountCents)
		config.ConfirmAmountCents = 0
	}
	if config.ChallengeTimeoutMinutes <= 0 {
		config.ChallengeTimeoutMinutes = 10
	}
	if config.RPCTimeoutSeconds <= 0 {
		config.RPCTimeoutSeconds = 30
	}
	if config.CallDelayMinutes <= 0 {
		config.CallDelayMinutes = 5
	}
	if config.StaleAgeMinutes <= 0 {
		config.StaleAgeMinutes = 30
	}

	return
}

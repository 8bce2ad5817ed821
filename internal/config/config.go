package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all settings for the ledger service, loaded from environment
// variables with an optional .env file for local development.
type Config struct {
	ServerAddr             string `mapstructure:"SERVER_ADDR"`
	MetricsAddr            string `mapstructure:"METRICS_ADDR"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	SigningKey             string `mapstructure:"SIGNING_KEY"`
	AlertWorkers           int    `mapstructure:"ALERT_WORKERS"`
	AlertEmail             string `mapstructure:"ALERT_EMAIL"`
	AlertWebhookTarget     string `mapstructure:"ALERT_WEBHOOK_TARGET"`
	DemoOpeningBalance     string `mapstructure:"DEMO_OPENING_BALANCE"`
	DemoDepositAmount      string `mapstructure:"DEMO_DEPOSIT_AMOUNT"`
	DemoWithdrawAmount     string `mapstructure:"DEMO_WITHDRAW_AMOUNT"`
	DemoFixedDepositAmount string `mapstructure:"DEMO_FIXED_DEPOSIT_AMOUNT"`
}

// LoadConfig reads configuration from environment variables, falling back to
// an optional .env file in the given path.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("METRICS_ADDR", ":9090")
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SIGNING_KEY", "dev-signing-key")
	viper.SetDefault("ALERT_WORKERS", 3)
	viper.SetDefault("ALERT_EMAIL", "ops@example.com")
	viper.SetDefault("ALERT_WEBHOOK_TARGET", "#ledger-alerts")
	viper.SetDefault("DEMO_OPENING_BALANCE", "100")
	viper.SetDefault("DEMO_DEPOSIT_AMOUNT", "1000")
	viper.SetDefault("DEMO_WITHDRAW_AMOUNT", "500")
	viper.SetDefault("DEMO_FIXED_DEPOSIT_AMOUNT", "5000")

	for _, key := range []string{
		"SERVER_ADDR", "METRICS_ADDR", "SHUTDOWN_TIMEOUT_SECONDS", "SIGNING_KEY",
		"ALERT_WORKERS", "ALERT_EMAIL", "ALERT_WEBHOOK_TARGET",
		"DEMO_OPENING_BALANCE", "DEMO_DEPOSIT_AMOUNT", "DEMO_WITHDRAW_AMOUNT",
		"DEMO_FIXED_DEPOSIT_AMOUNT",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		// The .env file is optional; only a malformed file is an error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

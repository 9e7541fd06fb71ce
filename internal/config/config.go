/**
 * @description
 * This file handles configuration management for the direct debit service.
 * It loads settings from environment variables, providing defaults for the
 * cron schedule and the batch tunables.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the direct debit service.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	MongoURI               string `mapstructure:"MONGO_URI"`
	MongoDatabase          string `mapstructure:"MONGO_DATABASE"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	NotificationExchange   string `mapstructure:"NOTIFICATION_EXCHANGE"`
	DirectDebitJobSchedule string `mapstructure:"DIRECT_DEBIT_JOB_SCHEDULE"`
	MaxParallelAccounts    int    `mapstructure:"MAX_PARALLEL_ACCOUNTS"`
	MaxConsecutiveFailures int    `mapstructure:"MAX_CONSECUTIVE_FAILURES"`
	RunLockTTLSeconds      int    `mapstructure:"RUN_LOCK_TTL_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("MONGO_DATABASE", "banking")
	viper.SetDefault("NOTIFICATION_EXCHANGE", "notification_events")
	viper.SetDefault("DIRECT_DEBIT_JOB_SCHEDULE", "0 * * * *") // Hourly, on the hour.
	viper.SetDefault("MAX_PARALLEL_ACCOUNTS", 4)
	viper.SetDefault("MAX_CONSECUTIVE_FAILURES", 5)
	viper.SetDefault("RUN_LOCK_TTL_SECONDS", 900)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("MONGO_URI")
	_ = viper.BindEnv("MONGO_DATABASE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("NOTIFICATION_EXCHANGE")
	_ = viper.BindEnv("DIRECT_DEBIT_JOB_SCHEDULE")
	_ = viper.BindEnv("MAX_PARALLEL_ACCOUNTS")
	_ = viper.BindEnv("MAX_CONSECUTIVE_FAILURES")
	_ = viper.BindEnv("RUN_LOCK_TTL_SECONDS")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if config.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required")
	}

	return &config, nil
}

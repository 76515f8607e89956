package config

import (
	"fmt"

	"github.com/caribe-transfers/service-transfer/internal/platform/config"
)

// ServiceConfig holds all configuration for the transfer service.
type ServiceConfig struct {
	Port         string
	AppEnv       string
	LogFile      string
	DBConfig     config.DatabaseConfig
	RedisConfig  config.RedisConfig
	JWTConfig    config.JWTConfig
	KafkaConfig  config.KafkaConfig
	NotifyConfig NotifyConfig
}

// NotifyConfig holds the operator notification channels. Each channel is
// disabled when its settings are empty.
type NotifyConfig struct {
	DiscordWebhookURL string
	TelegramToken     string
	TelegramChatID    int64
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("TRANSFER")
	if err != nil {
		return nil, err
	}

	chatID := v.GetInt64("TELEGRAM_CHAT_ID")
	if v.GetString("TELEGRAM_BOT_TOKEN") != "" && chatID == 0 {
		return nil, fmt.Errorf("TRANSFER_TELEGRAM_CHAT_ID is required when TRANSFER_TELEGRAM_BOT_TOKEN is set")
	}

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		LogFile:     v.GetString("LOG_FILE"),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		RedisConfig: config.LoadRedisConfig(v),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		NotifyConfig: NotifyConfig{
			DiscordWebhookURL: v.GetString("DISCORD_WEBHOOK_URL"),
			TelegramToken:     v.GetString("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:    chatID,
		},
	}, nil
}

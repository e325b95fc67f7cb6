package config

import (
	"os"
	"strconv"
)

// RelayConfig holds configuration for the outbox relay service.
// Telegram delivery is enabled only when TELEGRAM_BOT_TOKEN is set.
type RelayConfig struct {
	DatabaseURL           string
	RabbitMQURL           string
	NotificationQueueName string
	TelegramBotToken      string
	TelegramChatID        int64
	HealthAddr            string
	LogLevel              string
}

func LoadRelayConfig() *RelayConfig {
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	cfg := &RelayConfig{
		DatabaseURL:           dbURL,
		RabbitMQURL:           rabbitURL,
		NotificationQueueName: getEnv("NOTIFICATION_QUEUE_NAME", "blood-request-notifications"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		HealthAddr:            getEnv("RELAY_HEALTH_ADDR", ":8090"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	if cfg.TelegramBotToken != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			panic("TELEGRAM_CHAT_ID must be a numeric chat id when TELEGRAM_BOT_TOKEN is set")
		}
		cfg.TelegramChatID = chatID
	}

	return cfg
}

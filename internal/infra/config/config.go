package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates gateway configuration loaded from environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaGroupPrefix string
	MessagingBaseURL string
	MessagingTimeout time.Duration
	HistoryLimit     int
	ShutdownTimeout  time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		KafkaTopic:       getEnv("KAFKA_CHAT_TOPIC", "chat.events"),
		KafkaGroupPrefix: getEnv("KAFKA_GROUP_PREFIX", "homechat"),
		MessagingBaseURL: os.Getenv("MESSAGING_BASE_URL"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, raw := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(raw); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	timeout, err := parseDurationEnv("MESSAGING_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.MessagingTimeout = timeout

	shutdown, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout = shutdown

	historyLimit, err := parseIntEnv("HISTORY_LIMIT", 50)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit = historyLimit

	if cfg.MessagingBaseURL == "" {
		return Config{}, fmt.Errorf("MESSAGING_BASE_URL is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}

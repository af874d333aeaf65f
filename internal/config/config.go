package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ConductorURL  string
	InstanceID    string
	HTTPAddr      string
	RedisAddr     string
	CacheTTL      time.Duration
	KafkaBrokers  []string
	KafkaPrefix   string
	OtelEndpoint  string
	CallTimeout   time.Duration
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	conductorURL, ok := source.Lookup("CONDUCTOR_URL")
	if !ok || conductorURL == "" {
		return Config{}, errors.New("CONDUCTOR_URL is required")
	}

	cacheTTL, err := parseDurationEnv(source, "CACHE_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	callTimeout, err := parseDurationEnv(source, "CALL_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	var kafkaBrokers []string
	if raw, ok := source.Lookup("KAFKA_BROKERS"); ok && strings.TrimSpace(raw) != "" {
		for _, item := range strings.Split(raw, ",") {
			if value := strings.TrimSpace(item); value != "" {
				kafkaBrokers = append(kafkaBrokers, value)
			}
		}
	}

	return Config{
		ConductorURL:  conductorURL,
		InstanceID:    lookupDefault(source, "INSTANCE_ID", "holofuel"),
		HTTPAddr:      lookupDefault(source, "HTTP_ADDR", ":8910"),
		RedisAddr:     lookupDefault(source, "REDIS_ADDR", ""),
		CacheTTL:      cacheTTL,
		KafkaBrokers:  kafkaBrokers,
		KafkaPrefix:   lookupDefault(source, "KAFKA_TOPIC_PREFIX", "hfbridge"),
		OtelEndpoint:  lookupDefault(source, "OTEL_ENDPOINT", ""),
		CallTimeout:   callTimeout,
		LogLevel:      lookupDefault(source, "LOG_LEVEL", "info"),
		LogFormat:     lookupDefault(source, "LOG_FORMAT", "text"),
		LogFile:       lookupDefault(source, "LOG_FILE", ""),
		LogMaxSizeMB:  logMaxSize,
		LogMaxBackups: logMaxBackups,
	}, nil
}

func lookupDefault(source EnvSource, key, defaultValue string) string {
	if value, ok := source.Lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

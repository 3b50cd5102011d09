// File: backend/services/session-service/internal/config/config.go
package config

import (
	"time"
)

type Config struct {
	Server       ServerConfig    `mapstructure:"server"`
	Redis        RedisConfig     `mapstructure:"redis"`
	JWT          JWTConfig       `mapstructure:"jwt"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting"`
	WebSocket    WebSocketConfig `mapstructure:"websocket"`
	Logging      LoggingConfig   `mapstructure:"logging"`
	Metrics      MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// OpTimeout ограничивает каждое обращение к Redis, чтобы зависший
	// вызов не блокировал обработку запроса.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// RateLimitRule определяет конфигурацию для конкретного ограничения.
type RateLimitRule struct {
	Enabled  bool          `mapstructure:"enabled"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
	Strategy string        `mapstructure:"strategy"` // fixed | sliding | token_bucket
}

// RateLimitConfig содержит все настройки ограничения скорости запросов.
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	GlobalIP     RateLimitRule `mapstructure:"global_ip"`
	IssuePerIP   RateLimitRule `mapstructure:"issue_per_ip"`
	SocketEvents RateLimitRule `mapstructure:"socket_events"`
}

type WebSocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

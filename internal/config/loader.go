// File: backend/services/session-service/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig загружает конфигурацию из файла и переменных окружения
func LoadConfig() (*Config, error) {
	// Установка значений по умолчанию
	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/session-service")
	}

	// Чтение переменных окружения
	viper.SetEnvPrefix("SESSION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Чтение конфигурационного файла
	if err := viper.ReadInConfig(); err != nil {
		// Если файл не найден, используем только переменные окружения
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Загрузка конфигурации в структуру
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}

	return &config, nil
}

// setDefaults устанавливает значения по умолчанию для конфигурации
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "15s")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.op_timeout", "200ms")

	// Пустой default регистрирует ключ: без него Unmarshal не видит
	// значение из переменной окружения SESSION_JWT_SECRET.
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.access_token_ttl", "24h")
	viper.SetDefault("jwt.issuer", "session-service")

	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.global_ip.enabled", true)
	viper.SetDefault("rate_limiting.global_ip.limit", 100)
	viper.SetDefault("rate_limiting.global_ip.window", "1m")
	viper.SetDefault("rate_limiting.global_ip.strategy", "sliding")
	viper.SetDefault("rate_limiting.issue_per_ip.enabled", true)
	viper.SetDefault("rate_limiting.issue_per_ip.limit", 10)
	viper.SetDefault("rate_limiting.issue_per_ip.window", "1m")
	viper.SetDefault("rate_limiting.issue_per_ip.strategy", "fixed")
	viper.SetDefault("rate_limiting.socket_events.enabled", true)
	viper.SetDefault("rate_limiting.socket_events.limit", 30)
	viper.SetDefault("rate_limiting.socket_events.window", "1m")
	viper.SetDefault("rate_limiting.socket_events.strategy", "sliding")

	viper.SetDefault("websocket.write_wait", "10s")
	viper.SetDefault("websocket.ping_period", "60s")
	viper.SetDefault("websocket.max_message_size", 1024)
	viper.SetDefault("websocket.send_buffer_size", 256)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.environment", "development")

	viper.SetDefault("metrics.enabled", true)
}

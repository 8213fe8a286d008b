package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// StorageConfig — настройки движка хранения.
// Backend: "clickhouse" или "memory".
// Protocol: "native" или "http", имеет смысл только для clickhouse.
type StorageConfig struct {
	Backend  string `yaml:"Backend"`
	Address  string `yaml:"Address"`
	Username string `yaml:"Username"`
	Password string `yaml:"Password"`
	Database string `yaml:"Database"`
	Protocol string `yaml:"Protocol"`
}

// QueryLogConfig — настройки лога запросов.
// Database по умолчанию совпадает с базой движка хранения.
type QueryLogConfig struct {
	Database        string `yaml:"Database"`
	Table           string `yaml:"Table"`
	FlushIntervalMS int    `yaml:"FlushIntervalMS"`
	QueueSize       int    `yaml:"QueueSize"`
}

// LoggingConfig — настройки логирования и интеграции с Sentry.
type LoggingConfig struct {
	Level        string `yaml:"Level"`        // минимальный уровень консоли: debug, info, warn, error
	LogFile      string `yaml:"LogFile"`      // путь к файлу логов (Error+)
	SentryDSN    string `yaml:"SentryDSN"`    // DSN для Sentry
	EnableSentry bool   `yaml:"EnableSentry"` // включить отправку ошибок в Sentry
}

// TelemetryConfig — настройки экспорта метрик.
// Адрес OTLP-коллектора SDK берёт из стандартных переменных окружения OTel.
type TelemetryConfig struct {
	Enabled bool `yaml:"Enabled"`
}

// Config описывает основные настройки сервера.
type Config struct {
	Storage   StorageConfig   `yaml:"Storage"`
	QueryLog  QueryLogConfig  `yaml:"QueryLog"`
	Logging   LoggingConfig   `yaml:"Logging"`
	Telemetry TelemetryConfig `yaml:"Telemetry"`
}

// LoadConfig читает и парсит конфиг из YAML-файла по указанному пути.
// Шаги:
// 1. Чтение сырого файла
// 2. Очистка данных: удаление BOM, замена табуляций
// 3. Парсинг YAML в структуру Config
// 4. Подстановка значений по умолчанию и валидация
func LoadConfig(path string) (*Config, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	sanitized := sanitize(raw)

	cfg, err := parseYAML(sanitized)
	if err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// readFile читает все байты из файла по пути
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// sanitize удаляет BOM и табуляции
func sanitize(data []byte) []byte {
	// Удаляем UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	// Заменяем табы на два пробела
	data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	return data
}

// parseYAML парсит YAML-данные в структуру Config
func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults подставляет значения по умолчанию в незаполненные поля.
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Protocol == "" {
		c.Storage.Protocol = "native"
	}
	if c.QueryLog.Database == "" {
		c.QueryLog.Database = c.Storage.Database
	}
	if c.QueryLog.Table == "" {
		c.QueryLog.Table = "query_log"
	}
	if c.QueryLog.FlushIntervalMS == 0 {
		c.QueryLog.FlushIntervalMS = 7500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate проверяет обязательные поля конфигурации
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "clickhouse":
		if c.Storage.Address == "" {
			return fmt.Errorf("Storage.Address must not be empty")
		}
		if c.Storage.Database == "" {
			return fmt.Errorf("Storage.Database must not be empty")
		}
		if c.Storage.Protocol != "native" && c.Storage.Protocol != "http" {
			return fmt.Errorf("Storage.Protocol must be native or http")
		}
	default:
		return fmt.Errorf("Storage.Backend must be clickhouse or memory")
	}
	if c.QueryLog.Table == "" {
		return fmt.Errorf("QueryLog.Table must not be empty")
	}
	if c.QueryLog.FlushIntervalMS <= 0 {
		return fmt.Errorf("QueryLog.FlushIntervalMS must be positive")
	}
	if c.QueryLog.QueueSize < 0 {
		return fmt.Errorf("QueryLog.QueueSize must not be negative")
	}
	return nil
}

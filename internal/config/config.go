// Package config предоставляет структуры и функции для загрузки конфигурации
// серверных процессов (api, bot, scheduler) из YAML-файла и переменных окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Telegram                `yaml:"telegram"`
	GenAI                   `yaml:"genai"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":3000"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// WriteRateLimit — допустимое число запросов на запись в секунду.
	WriteRateLimit float64 `yaml:"write_rate_limit" env-default:"5"`
	WriteRateBurst int     `yaml:"write_rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1h"`
}

// JWTToken структура для работы с сессионным токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки брокера для уведомлений о списаниях.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Telegram настройки бота.
type Telegram struct {
	BotToken    string        `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	PollTimeout int           `yaml:"poll_timeout" env-default:"60"`
	PendingTTL  time.Duration `yaml:"pending_ttl" env-default:"30m"`
	MetricsAddr string        `yaml:"metrics_address" env:"BOT_METRICS_ADDRESS"`
}

// GenAI настройки языковой модели.
type GenAI struct {
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Model   string        `yaml:"model" env-default:"gemini-2.5-flash"`
	Timeout time.Duration `yaml:"timeout" env-default:"15s"`
}

// Scheduler настройки планировщика списаний.
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env-default:"1h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH, предварительно подхватывая .env.
// При ошибке завершает процесс.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг из файла path. Переменные окружения переопределяют значения из файла.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	if path == "" {
		return nil, fmt.Errorf("%s: CONFIG_PATH is not set", op)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"Redis: %s (db %d)\n"+
			"HTTPServer: %s timeout=%s idle=%s\n"+
			"RabbitMQ: %s\n"+
			"GenAI model: %s\n"+
			"Scheduler interval: %s\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.AddressRedis, c.DB,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		redact(c.RabbitMQURL),
		c.Model,
		c.Interval,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — настройки клиента. Источники по убыванию приоритета:
// флаги, переменные окружения SPESE_*, файл конфигурации, значения по умолчанию.
type Config struct {
	Server ServerConfig
	Cache  CacheConfig
	Poll   PollConfig
	GenAI  GenAIConfig
}

type ServerConfig struct {
	URL     string
	Timeout time.Duration
}

type CacheConfig struct {
	Path string
}

type PollConfig struct {
	Interval time.Duration
	Debounce time.Duration
}

type GenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string
	Timeout time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("server.url", "http://localhost:3000")
	v.SetDefault("server.timeout", 5*time.Second)
	v.SetDefault("cache.path", filepath.Join(home, ".local", "share", "spese", "cache.db"))
	v.SetDefault("poll.interval", 30*time.Second)
	v.SetDefault("poll.debounce", 60*time.Second)
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.timeout", 30*time.Second)

	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".config", "spese"))
	v.SetConfigName("config")

	v.SetEnvPrefix("SPESE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig читает файл (если указан или найден) и собирает Config.
func loadConfig(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken      string        `envconfig:"BOT_TOKEN" required:"true"`
	DBPath        string        `envconfig:"DB_PATH" default:"./data/remindarr.db"`
	DefaultChatID string        `envconfig:"DEFAULT_CHAT_ID" default:""`   // fallback delivery target
	DefaultTZ     string        `envconfig:"DEFAULT_TZ" default:"UTC"`     // display only
	RunMode       string        `envconfig:"RUN_MODE" default:"polling"`   // polling|webhook
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`    // webhook + control plane + healthz
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`     // debug|info|warn|error
	CheckInterval time.Duration `envconfig:"CHECK_INTERVAL" default:"60s"` // delivery engine cadence
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

package app

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the process reads from the environment.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// CORSAllow is a comma-separated origin allowlist for the HTTP
	// endpoints (health, metrics).
	CORSAllow []string `envconfig:"CORS_ALLOW" default:"*"`

	// Cities overrides the advertised city list; empty means the
	// built-in default list.
	Cities []string `envconfig:"CITIES"`

	// Per-connection inbound message rate limit.
	MessageRate  float64 `envconfig:"MESSAGE_RATE" default:"25"`
	MessageBurst int     `envconfig:"MESSAGE_BURST" default:"50"`
}

// LoadConfig reads the environment, with a local .env as a dev
// convenience (missing file is fine).
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Cities) == 0 {
		cfg.Cities = DefaultCities
	}
	return cfg, nil
}

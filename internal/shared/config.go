package shared

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"prod"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`

	// upstream provider
	EasyGDSBase     string        `envconfig:"EASYGDS_BASE_URL" default:"https://tripo.apps.easygds.com"`
	EasyGDSEmail    string        `envconfig:"EASYGDS_EMAIL"`
	EasyGDSPassword string        `envconfig:"EASYGDS_PASSWORD"`
	Territory       string        `envconfig:"TERRITORY"`
	LanguageCode    string        `envconfig:"LANGUAGE_CODE" default:"en-US"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"55m"`
	UpstreamRPS     int           `envconfig:"UPSTREAM_RPS" default:"10"`
	UpstreamTimeout int           `envconfig:"UPSTREAM_TIMEOUT_MS" default:"25000"`

	// credential cache backing store: redis | memory
	TokenStore string `envconfig:"TOKEN_STORE" default:"redis"`
	RedisAddr  string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPass  string `envconfig:"REDIS_PASSWORD"`
	RedisDB    int    `envconfig:"REDIS_DB" default:"0"`

	// shortlist persistence
	MySQLDSN string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/swipestay?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`

	DeckPageSize   int           `envconfig:"DECK_PAGE_SIZE" default:"15"`
	RateWorkers    int           `envconfig:"RATE_WORKERS" default:"4"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
}

func Load() Config {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatal().Err(err).Msg("invalid environment configuration")
	}
	if c.EasyGDSEmail == "" || c.EasyGDSPassword == "" {
		log.Warn().Msg("EASYGDS_EMAIL or EASYGDS_PASSWORD is empty")
	}
	return c
}

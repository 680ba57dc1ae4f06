package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Twitch    TwitchConfig    `mapstructure:"twitch"`
	IGDB      IGDBConfig      `mapstructure:"igdb"`
	Backloggd BackloggdConfig `mapstructure:"backloggd"`
	Export    ExportConfig    `mapstructure:"export"`
	Report    ReportConfig    `mapstructure:"report"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LibrarySync string `mapstructure:"library_sync"`
}

type TwitchConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	TokenURL     string        `mapstructure:"token_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type IGDBConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"`
	PaceInterval      time.Duration `mapstructure:"pace_interval"`
}

type BackloggdConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Usernames []string      `mapstructure:"usernames"`
}

type ExportConfig struct {
	Dir                 string `mapstructure:"dir"`
	RecommendationsPath string `mapstructure:"recommendations_path"`
}

type ReportConfig struct {
	NameSubstitutions map[string]string `mapstructure:"name_substitutions"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PGB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.path", "pg.db")
	v.SetDefault("db.max_open_conns", 1)
	v.SetDefault("db.max_idle_conns", 1)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.library_sync", "@daily")
	// Credentials normally arrive via PGB_TWITCH_CLIENT_ID and
	// PGB_TWITCH_CLIENT_SECRET; the defaults register the keys so
	// AutomaticEnv picks them up even when the file omits them.
	v.SetDefault("twitch.client_id", "")
	v.SetDefault("twitch.client_secret", "")
	v.SetDefault("twitch.token_url", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("twitch.timeout", "15s")
	v.SetDefault("igdb.base_url", "https://api.igdb.com/v4")
	v.SetDefault("igdb.timeout", "15s")
	v.SetDefault("igdb.max_retries", 3)
	v.SetDefault("igdb.default_retry_after", "5s")
	v.SetDefault("igdb.pace_interval", "1s")
	v.SetDefault("backloggd.base_url", "https://www.backloggd.com")
	v.SetDefault("backloggd.timeout", "15s")
	v.SetDefault("export.dir", "backloggd-export")
	v.SetDefault("export.recommendations_path", "game_recommendations.csv")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

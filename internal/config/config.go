package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"`      // current application environment (local, dev, production etc)
	HTTP     HTTP     `mapstructure:"http"`     // REST/websocket API section
	Telegram Telegram `mapstructure:"telegram"` // Telegram front-end section
	Storage  Storage  `mapstructure:"storage"`  // persistence backend selection
	DB       DB       `mapstructure:"database"` // database configuration section
	AI       AI       `mapstructure:"ai"`       // question provider section
	News     News     `mapstructure:"news"`     // news feed section
	Quiz     Quiz     `mapstructure:"quiz"`     // quiz flow limits
	Tracker  Tracker  `mapstructure:"tracker"`  // activity tracker section
	Chat     Chat     `mapstructure:"chat"`     // chat hub section
}

// HTTP contains API server parameters.
type HTTP struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Telegram contains bot parameters. The bot is disabled when Token is empty.
type Telegram struct {
	Token string `mapstructure:"-"` // Telegram API token loaded from environment
	Debug bool   `mapstructure:"debug"`
}

// Enabled reports whether the Telegram front-end should be started.
func (t Telegram) Enabled() bool {
	return t.Token != ""
}

// Storage selects where asked question ids and activity logs are persisted.
type Storage struct {
	Driver     string `mapstructure:"driver"`      // "postgres" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"` // database file used by the sqlite driver
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// AI contains generative text API parameters.
type AI struct {
	APIKey  string        `mapstructure:"-"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// News contains news API parameters.
type News struct {
	APIKey      string        `mapstructure:"-"`
	BaseURL     string        `mapstructure:"base_url"`
	Query       string        `mapstructure:"query"`
	PageSize    int           `mapstructure:"page_size"`
	TTL         time.Duration `mapstructure:"ttl"`
	RefreshCron string        `mapstructure:"refresh_cron"`
}

// Quiz contains limits of the question/answer flow.
type Quiz struct {
	MaxCount   int `mapstructure:"max_count"`   // largest batch a user may request
	AskedLimit int `mapstructure:"asked_limit"` // how many asked ids are remembered per user
}

// Tracker contains activity tracker parameters.
type Tracker struct {
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Chat contains chat hub parameters.
type Chat struct {
	EchoDelay  time.Duration `mapstructure:"echo_delay"`
	BufferSize int           `mapstructure:"buffer_size"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Local .env files are optional.
	_ = godotenv.Load()

	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("ai_api_key", "AI_API_KEY")
	_ = v.BindEnv("news_api_key", "NEWS_API_KEY")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.Telegram.Token = v.GetString("telegram_api_token")
	cfg.News.APIKey = v.GetString("news_api_key")

	cfg.AI.APIKey = v.GetString("ai_api_key")
	if cfg.AI.APIKey == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.DB.URL = v.GetString("database_url")
	if cfg.Storage.Driver == "postgres" && cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "90s")

	v.SetDefault("telegram.debug", false)

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.sqlite_path", "data/examprep.db")

	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")

	v.SetDefault("ai.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("ai.model", "deepseek-chat")
	v.SetDefault("ai.timeout", "60s")

	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("news.query", "exam OR recruitment OR education")
	v.SetDefault("news.page_size", 20)
	v.SetDefault("news.ttl", "30m")
	v.SetDefault("news.refresh_cron", "*/30 * * * *")

	v.SetDefault("quiz.max_count", 20)
	v.SetDefault("quiz.asked_limit", 500)

	v.SetDefault("tracker.queue_size", 256)
	v.SetDefault("tracker.write_timeout", "5s")

	v.SetDefault("chat.echo_delay", "1s")
	v.SetDefault("chat.buffer_size", 16)
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Quiz.MaxCount <= 0 {
		return fmt.Errorf("quiz.max_count must be positive, got %d", c.Quiz.MaxCount)
	}
	if c.Quiz.AskedLimit <= 0 {
		return fmt.Errorf("quiz.asked_limit must be positive, got %d", c.Quiz.AskedLimit)
	}

	return nil
}

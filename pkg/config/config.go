package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xaenox/gpt-vault/internal/storage"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Identity IdentityConfig `mapstructure:"identity"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type StorageConfig struct {
	Driver     string         `mapstructure:"driver"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   DatabaseConfig `mapstructure:"postgres"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ChatConfig struct {
	TypingDelay time.Duration `mapstructure:"typing_delay"`
}

type IdentityConfig struct {
	LoginDelay time.Duration `mapstructure:"login_delay"`
	HashCost   int           `mapstructure:"hash_cost"`
}

type ConsoleConfig struct {
	SessionKey string `mapstructure:"session_key"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Driver:     c.Storage.Driver,
		SQLitePath: c.Storage.SQLitePath,
		Postgres: storage.DatabaseConfig{
			Host:     c.Storage.Postgres.Host,
			Port:     c.Storage.Postgres.Port,
			User:     c.Storage.Postgres.User,
			Password: c.Storage.Postgres.Password,
			DBName:   c.Storage.Postgres.DBName,
			SSLMode:  c.Storage.Postgres.SSLMode,
		},
		Redis: storage.RedisConfig{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
		},
	}
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func parseRedisURL(redisURL string) (RedisConfig, error) {
	u, err := url.Parse(redisURL)
	if err != nil {
		return RedisConfig{}, err
	}

	password, _ := u.User.Password()
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &db); err != nil {
			return RedisConfig{}, fmt.Errorf("invalid redis db %q", p)
		}
	}

	return RedisConfig{
		Addr:     u.Host,
		Password: password,
		DB:       db,
	}, nil
}

// LoadConfig reads path if it exists; defaults and environment apply either
// way.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("storage.driver", storage.DriverSQLite)
	v.SetDefault("storage.sqlite_path", "gpt-vault.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.dbname", "gpt_vault")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("chat.typing_delay", 2*time.Second)
	v.SetDefault("identity.login_delay", time.Second)
	v.SetDefault("identity.hash_cost", 10)
	v.SetDefault("console.session_key", "gpt-user")
	v.SetDefault("log.development", false)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Storage.Postgres = dbConfig
		config.Storage.Driver = storage.DriverPostgres
	}

	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		redisConfig, err := parseRedisURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %v", err)
		}
		config.Storage.Redis = redisConfig
		config.Storage.Driver = storage.DriverRedis
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	return &config, nil
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int      `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int      `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int      `mapstructure:"idle_timeout_sec"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string // 为空不写文件
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int `mapstructure:"access_token_ttl_min"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	PrepareStmt        bool   `mapstructure:"prepare_stmt"`
	LogLevel           string `mapstructure:"log_level"`
}

// Limits HTTP 层保护参数
type Limits struct {
	RPS               float64
	Burst             int
	MaxConcurrent     int64 `mapstructure:"max_concurrent"`
	MaxBodyBytes      int64 `mapstructure:"max_body_bytes"`
	RequestTimeoutSec int   `mapstructure:"request_timeout_sec"`
}

type Listing struct {
	EnforceOwnership bool `mapstructure:"enforce_ownership"`
	CacheTTLSec      int  `mapstructure:"cache_ttl_sec"`
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Limits  Limits
	Listing Listing
}

// Default 非 bool 字段的默认值；bool 默认值走 viper.SetDefault（mergo 分不清显式 false）
func Default() Config {
	return Config{
		App: App{
			Name: "carbuy-api",
			Env:  "local",
			HTTP: HTTP{
				Host: "0.0.0.0", Port: 8000,
				ReadTimeoutSec: 5, WriteTimeoutSec: 10, IdleTimeoutSec: 60,
			},
			Admin: AdminHTTP{Host: "127.0.0.1", Port: 8001},
		},
		Log: Log{Level: "info", MaxSizeMB: 100, MaxBackups: 7, MaxAgeDays: 30},
		JWT: JWT{Issuer: "carbuy-admin", AccessTokenTTLMin: 60},
		DB: DB{
			Driver: "sqlite", DSN: "carbuy.db",
			MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetimeMin: 30, LogLevel: "warn",
		},
		Redis:   Redis{Addr: "127.0.0.1:6379", Prefix: "carbuy:"},
		Limits:  Limits{RPS: 200, Burst: 400, MaxConcurrent: 300, MaxBodyBytes: 1 << 20, RequestTimeoutSec: 10},
		Listing: Listing{CacheTTLSec: 300},
	}
}

func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("listing.enforce_ownership", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := mergo.Merge(&c, Default()); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustLoad 启动阶段用，失败直接退出
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("db.driver %q not supported", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.App.HTTP.Port <= 0 || c.App.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.http.port %d out of range", c.App.HTTP.Port))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	return errors.Join(errs...)
}

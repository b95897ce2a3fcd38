package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConn     int           `mapstructure:"MAX_OPEN_CONN"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Engine struct {
		WorkerConcurrency   int           `mapstructure:"WORKER_CONCURRENCY"`
		MaxRetry            int           `mapstructure:"MAX_RETRY"`
		RetryBaseDelay      time.Duration `mapstructure:"RETRY_BASE_DELAY"`
		DefaultGraceSeconds int           `mapstructure:"DEFAULT_GRACE_SECONDS"`
	} `mapstructure:"ENGINE"`
	Metrics struct {
		Enabled bool `mapstructure:"ENABLED"`
	} `mapstructure:"METRICS"`
}

// WorkerConcurrency returns the configured pipeline concurrency, defaulting
// to 30 in-flight invocations per node.
func (c *Config) WorkerConcurrency() int {
	if c.Engine.WorkerConcurrency <= 0 {
		return 30
	}
	return c.Engine.WorkerConcurrency
}

// MaxRetry returns the per-job attempt ceiling, defaulting to 5.
func (c *Config) MaxRetry() int {
	if c.Engine.MaxRetry <= 0 {
		return 5
	}
	return c.Engine.MaxRetry
}

// RetryBaseDelay returns the base delay for exponential backoff, defaulting
// to one second.
func (c *Config) RetryBaseDelay() time.Duration {
	if c.Engine.RetryBaseDelay <= 0 {
		return time.Second
	}
	return c.Engine.RetryBaseDelay
}

// DefaultGraceSeconds returns the streak grace window applied by the
// pipeline, defaulting to one hour.
func (c *Config) DefaultGraceSeconds() int {
	if c.Engine.DefaultGraceSeconds <= 0 {
		return 3600
	}
	return c.Engine.DefaultGraceSeconds
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() (*Config, error) {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		zap.L().Warn("config file not found, relying on environment", zap.Error(err))
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

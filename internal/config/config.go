// Package config собирает настройки сервиса из .env, переменных окружения
// (префикс VQ_) и необязательного конфигурационного файла.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"virtual_queue/internal/queue"
)

const EnvPrefix = "VQ"

// Config хранит настройки сервиса.
type Config struct {
	HTTPAddr      string
	LogLevel      string
	StorageDriver string
	CORSOrigins   []string

	DB    DBConfig
	Redis RedisConfig
	AMQP  AMQPConfig

	JWTSecret string

	Engine          queue.Config
	SweepInterval   time.Duration
	ArchiveInterval time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN собирает строку подключения для gorm.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig — pub/sub для событий. Пустой Addr отключает публикацию.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// AMQPConfig — публикация событий в RabbitMQ. Пустой URL отключает её.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// LoadDotEnv подгружает .env, если не задан ENV_CHEK (так запускается контейнер).
func LoadDotEnv() error {
	if os.Getenv("ENV_CHEK") != "" {
		return nil
	}
	return godotenv.Load()
}

// New возвращает viper с умолчаниями и привязкой к окружению.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := queue.DefaultConfig()
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel_prefix", "vq:events")
	v.SetDefault("amqp.exchange", "virtual_queue.events")
	v.SetDefault("engine.tick_interval", def.TickInterval)
	v.SetDefault("engine.lock_timeout", def.LockTimeout)
	v.SetDefault("engine.no_show_timeout", def.NoShowTimeout)
	v.SetDefault("engine.service_duration", def.ServiceDuration)
	v.SetDefault("engine.terminal_retention", def.TerminalRetention)
	v.SetDefault("engine.outbox_size", def.OutboxSize)
	v.SetDefault("engine.persist_attempts", def.PersistAttempts)
	v.SetDefault("engine.persist_timeout", def.PersistTimeout)
	v.SetDefault("engine.tick_concurrency", def.TickConcurrency)
	v.SetDefault("tasks.sweep_interval", 15*time.Second)
	v.SetDefault("tasks.archive_interval", time.Minute)

	// Старые имена переменных из docker-compose продолжают работать.
	legacy := map[string]string{
		"db.host":         "DB_HOST",
		"db.port":         "DB_PORT",
		"db.user":         "DB_USER",
		"db.password":     "DB_PASSWORD",
		"db.name":         "DB_NAME",
		"auth.jwt_secret": "JWT_ACCESS_SECRET",
	}
	for key, env := range legacy {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env)
	}
	return v
}

// Load читает конфигурацию. Если задан путь к файлу, он читается поверх умолчаний.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg := &Config{
		HTTPAddr:      v.GetString("http.addr"),
		LogLevel:      v.GetString("log.level"),
		StorageDriver: strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		CORSOrigins:   v.GetStringSlice("cors.origins"),
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("redis.addr"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			ChannelPrefix: v.GetString("redis.channel_prefix"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("amqp.url"),
			Exchange: v.GetString("amqp.exchange"),
		},
		JWTSecret: v.GetString("auth.jwt_secret"),
		Engine: queue.Config{
			TickInterval:      v.GetDuration("engine.tick_interval"),
			LockTimeout:       v.GetDuration("engine.lock_timeout"),
			NoShowTimeout:     v.GetDuration("engine.no_show_timeout"),
			ServiceDuration:   v.GetDuration("engine.service_duration"),
			TerminalRetention: v.GetDuration("engine.terminal_retention"),
			OutboxSize:        v.GetInt("engine.outbox_size"),
			PersistAttempts:   v.GetInt("engine.persist_attempts"),
			PersistTimeout:    v.GetDuration("engine.persist_timeout"),
			TickConcurrency:   v.GetInt("engine.tick_concurrency"),
		},
		SweepInterval:   v.GetDuration("tasks.sweep_interval"),
		ArchiveInterval: v.GetDuration("tasks.archive_interval"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные поля.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("db.host and db.name are required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Engine.TickInterval < time.Second {
		errs = append(errs, fmt.Errorf("engine.tick_interval must be at least 1s, got %s", c.Engine.TickInterval))
	}
	if c.Engine.LockTimeout <= 0 {
		errs = append(errs, errors.New("engine.lock_timeout must be positive"))
	}
	if c.SweepInterval < time.Second || c.ArchiveInterval < time.Second {
		errs = append(errs, errors.New("task intervals must be at least 1s"))
	}
	return errors.Join(errs...)
}

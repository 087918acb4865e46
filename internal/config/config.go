package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"

	NotifierRedis = "redis"
	NotifierLog   = "log"
)

type Config struct {
	LogLevel     string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Storage      string   `yaml:"storage" env:"STORAGE" env-default:"redis"`
	Redis        Redis    `yaml:"redis"`
	SQLitePath   string   `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"data/matches.db"`
	Notifier     Notifier `yaml:"notifier"`
	JWTSecretKey string   `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	Policy       Policy   `yaml:"policy"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	DB   int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Notifier struct {
	Driver  string `yaml:"driver" env:"NOTIFIER_DRIVER" env-default:"log"`
	Channel string `yaml:"channel" env:"NOTIFIER_CHANNEL" env-default:"match:reminders"`
}

// Policy holds the lifecycle thresholds of a match.
type Policy struct {
	WaitingExpiry  time.Duration `yaml:"waiting-expiry" env:"POLICY_WAITING_EXPIRY" env-default:"72h"`
	ReminderAfter  time.Duration `yaml:"reminder-after" env:"POLICY_REMINDER_AFTER" env-default:"15m"`
	ReminderEvery  time.Duration `yaml:"reminder-every" env:"POLICY_REMINDER_EVERY" env-default:"5m"`
	ArchiveEvery   time.Duration `yaml:"archive-every" env:"POLICY_ARCHIVE_EVERY" env-default:"3h"`
	CodeAlphabet   string        `yaml:"code-alphabet" env:"POLICY_CODE_ALPHABET" env-default:"ABCDEFGHJKLMNPQRSTUVWXYZ23456789"`
	CodeLength     int           `yaml:"code-length" env:"POLICY_CODE_LENGTH" env-default:"6"`
	CodeMaxRetries int           `yaml:"code-max-retries" env:"POLICY_CODE_MAX_RETRIES" env-default:"16"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads path, falling back to environment variables only when path is empty.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage %q", that.Storage)
	}

	switch that.Notifier.Driver {
	case NotifierRedis, NotifierLog:
	default:
		return fmt.Errorf("unknown notifier %q", that.Notifier.Driver)
	}

	if that.Policy.CodeLength <= 0 || len(that.Policy.CodeAlphabet) < 2 {
		return fmt.Errorf("join code needs a positive length and an alphabet of at least 2 characters")
	}

	if that.Policy.ReminderEvery <= 0 || that.Policy.ArchiveEvery <= 0 {
		return fmt.Errorf("sweep periods must be positive")
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

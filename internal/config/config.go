package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	BlobBackendRedis    = "redis"
	BlobBackendPostgres = "postgres"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL"  envDefault:"http://localhost:8085" validate:"required,url"`

	DefaultRoom         string `env:"DEFAULT_ROOM"          envDefault:"General" validate:"required,max=100"`
	MessageHistoryLimit int    `env:"MESSAGE_HISTORY_LIMIT" envDefault:"200"     validate:"min=1,max=100000"`

	WsSendBuffer int           `env:"WS_SEND_BUFFER" envDefault:"256"   validate:"min=1"`
	WsReadLimit  int64         `env:"WS_READ_LIMIT"  envDefault:"65536" validate:"min=512"`
	WsPingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"30s"   validate:"gt=0,ltfield=WsPongWait"`
	WsPongWait   time.Duration `env:"WS_PONG_WAIT"   envDefault:"60s"   validate:"gt=0"`

	BlobBackend       string        `env:"BLOB_BACKEND"        envDefault:"redis"    validate:"oneof=redis postgres"`
	BlobTTL           time.Duration `env:"BLOB_TTL"            envDefault:"24h"      validate:"gt=0"`
	BlobMaxBytes      int64         `env:"BLOB_MAX_BYTES"      envDefault:"10485760" validate:"min=1"`
	BlobSweepInterval time.Duration `env:"BLOB_SWEEP_INTERVAL" envDefault:"10m"      validate:"gt=0"`

	RedisHost     string `env:"REDIS_HOST"     envDefault:"localhost"`
	RedisPort     uint16 `env:"REDIS_PORT"     envDefault:"6379" validate:"min=1000,max=65535"`
	RedisPassword string `env:"REDIS_PASSWORD" json:"-"`
	RedisDb       int    `env:"REDIS_DB"       envDefault:"0"    validate:"min=0,max=15"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"chat_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"chat_password" json:"-"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"chat_db"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"3000"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:5173"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Auth struct {
		JWTSecret    string        `env:"JWT_SECRET,required"`
		TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
		AdminAddress string        `env:"ADMIN_ADDRESS" envDefault:""`
	}

	Chain struct {
		// WebSocket endpoint; log subscriptions are not available over plain HTTP.
		RPCEndpoint   string `env:"CHAIN_RPC_WS,required"`
		TokenContract string `env:"TOKEN_CONTRACT,required"`
	}

	Kafka struct {
		// Empty broker disables the fan-out emitter.
		Broker string `env:"KAFKA_BROKER" envDefault:""`
		Topic  string `env:"KAFKA_TOPIC" envDefault:"token-transfers"`
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// Ignore a missing .env file; in production the variables
		// are set directly in the environment.
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DBDriver    string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN       string        `env:"DB_DSN" envDefault:"chat.db"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"168h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`

	// InboundQueueSize bounds the router's event queue; a full queue
	// backpressures connection read pumps.
	InboundQueueSize int `env:"INBOUND_QUEUE_SIZE" envDefault:"256"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

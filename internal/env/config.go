package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Host     string `env:"AMI_HOST,default=localhost"`
	Port     int    `env:"AMI_PORT,default=5038"`
	Username string `env:"AMI_USERNAME"`
	Secret   string `env:"AMI_SECRET"`

	// Events is the event mask sent on login, e.g. "on", "off" or "call,system"
	Events string `env:"AMI_EVENTS,default=on"`

	TLS         bool `env:"AMI_TLS"`
	TLSInsecure bool `env:"AMI_TLS_INSECURE"`

	ResponseTimeout time.Duration `env:"AMI_RESPONSE_TIMEOUT,default=2s"`
	DialTimeout     time.Duration `env:"AMI_DIAL_TIMEOUT,default=5s"`

	LogLevel  string `env:"AMICTL_LOG_LEVEL,default=info"`
	DebugHTTP bool   `env:"AMICTL_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}

// Redacted returns a copy of c that is safe to log.
func (c Config) Redacted() Config {
	if c.Secret != "" {
		c.Secret = "******"
	}

	return c
}

package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int           `env:"PORT" envDefault:"8080"`
	APIBaseURL          string        `env:"API_BASE_URL" envDefault:"http://localhost:3000"`
	APITimeout          time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	RequestSource       string        `env:"REQUEST_SOURCE" envDefault:"bookgroups-web"`
	PageLimit           int           `env:"PAGE_LIMIT" envDefault:"5"`
	QueryStaleTime      time.Duration `env:"QUERY_STALE_TIME" envDefault:"1m"`
	QueryGCTime         time.Duration `env:"QUERY_GC_TIME" envDefault:"5m"`
	Dsn                 string        `env:"DSN"`
	JwtSecret           string        `env:"JWT_SECRET"`
	AuthUnverified      bool          `env:"AUTH_UNVERIFIED"`
	LoginURL            string        `env:"LOGIN_URL" envDefault:"/"`
	CloudinaryCloudName string        `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string        `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string        `env:"CLOUDINARY_API_SECRET"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}

// Validate rejects settings the server cannot run with. Access tokens are only
// trusted without a JWT secret when AUTH_UNVERIFIED is set explicitly.
func (c *Config) Validate() error {
	if c.JwtSecret == "" && !c.AuthUnverified {
		return errors.New("JWT_SECRET is required unless AUTH_UNVERIFIED=true")
	}
	return nil
}

package global

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"chatwire/logger"
)

// Config holds all process-level settings, loaded from the environment
// (optionally seeded from a local .env file during development).
type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":5000"`
	ClientURL string `envconfig:"CLIENT_URL" default:"*"`

	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://127.0.0.1:27017"`
	MongoDB  string `envconfig:"MONGO_DB" default:"chatwire"`

	// Redis is optional: when Addr is empty the presence mirror and the
	// cross-instance bridge stay disabled and the relay runs purely in-process.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"dev-only-secret"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"720h"`

	GatewayID string `envconfig:"GATEWAY_ID" default:"chatwire-gw-1"`
	NodeID    int64  `envconfig:"NODE_ID" default:"1"`
}

var conf Config

// Load reads the configuration once at startup.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using process environment")
	}
	if err := envconfig.Process("", &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Conf returns the loaded configuration.
func Conf() *Config { return &conf }

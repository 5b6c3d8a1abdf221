package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var rdb *redis.Client

// InitRedis connects the shared client. Redis is an optional collaborator:
// when it is not configured the presence mirror and bridge are simply skipped.
func InitRedis(ctx context.Context, c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(ctx).Err()
}

func Enabled() bool { return rdb != nil }

func Client() *redis.Client { return rdb }

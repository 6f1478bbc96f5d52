package config

// Redis backs the response cache and the rate limiter.  Both degrade
// to pass-through when the server is unreachable at startup, so a
// failed ping yields a nil client rather than an error.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection settings.  Addr, when set, takes
// precedence over Host and Port.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// Address returns host:port for the client.
func (r RedisConfig) Address() string {
	if r.Addr != "" {
		return r.Addr
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func setRedisDefaults(v *viper.Viper) {
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TLS", false)
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		TLS:      v.GetBool("REDIS_TLS"),
	}
}

// NewRedisClient connects to Redis and pings it with a short timeout.
// It returns nil when Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, cache and rate limit disabled",
			zap.String("addr", cfg.Address()), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

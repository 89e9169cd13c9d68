package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk/internal/appointments"
	appconfig "github.com/wolfman30/frontdesk/internal/config"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectPostgres opens a pool, or returns nil when no URL is configured.
func ConnectPostgres(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return pool, nil
}

// BuildRules turns configuration into booking rules. Unparseable hours fall back to
// the defaults with a warning.
func BuildRules(cfg *appconfig.Config, logger *logging.Logger) appointments.Rules {
	if logger == nil {
		logger = logging.Default()
	}
	rules := appointments.DefaultRules(cfg.Location())
	if cfg.BookingWindowDays > 0 {
		rules.WindowDays = cfg.BookingWindowDays
	}
	if t, err := appointments.ParseTimeOfDay(cfg.OpeningTime); err == nil {
		rules.Opening = t
	} else if cfg.OpeningTime != "" {
		logger.Warn("invalid OPENING_TIME, using default", "value", cfg.OpeningTime, "default", rules.Opening.String())
	}
	if t, err := appointments.ParseTimeOfDay(cfg.ClosingTime); err == nil {
		rules.Closing = t
	} else if cfg.ClosingTime != "" {
		logger.Warn("invalid CLOSING_TIME, using default", "value", cfg.ClosingTime, "default", rules.Closing.String())
	}
	if rules.Closing.Minutes() < rules.Opening.Minutes() {
		logger.Warn("closing time before opening time, using defaults")
		def := appointments.DefaultRules(cfg.Location())
		rules.Opening, rules.Closing = def.Opening, def.Closing
	}
	return rules
}

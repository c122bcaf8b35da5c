package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/JonMunkholm/custingest/internal/config"
)

const rateKeyPrefix = "custingest:upload"

var errRateLimited = errors.New("rate limit exceeded")

// RateStore is a rate-limit store plus whatever must be closed with it.
type RateStore struct {
	limiter.Store
	client *redis.Client
}

// Close releases the redis connection, if any.
func (s *RateStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// NewRateStore builds the upload rate-limit store from cfg. With storage
// "redis" it falls back to memory when the server cannot be reached.
func NewRateStore(ctx context.Context, cfg config.RateLimitConfig) *RateStore {
	if cfg.Storage == "redis" {
		s, err := newRedisRateStore(ctx, cfg.RedisURL)
		if err == nil {
			return s
		}
		slog.Warn("rate limit: redis unavailable, using memory store", "error", err)
	}
	return &RateStore{
		Store: memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateKeyPrefix,
			CleanUpInterval: time.Minute,
		}),
	}
}

func newRedisRateStore(ctx context.Context, url string) (*RateStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   rateKeyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis rate store: %w", err)
	}
	return &RateStore{Store: store, client: client}, nil
}

// uploadRateLimit allows perMinute requests per client IP. It runs after
// TrustedRealIP, so RemoteAddr already holds the client address.
func uploadRateLimit(store limiter.Store, perMinute int64) func(http.Handler) http.Handler {
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	m := stdlib.NewMiddleware(limiter.New(store, rate),
		stdlib.WithKeyGetter(clientKey),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			respondError(w, r, fmt.Errorf("rate limit store: %w", err), http.StatusInternalServerError)
		}),
	)
	return m.Handler
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

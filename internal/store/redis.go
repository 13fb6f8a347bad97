package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisOptions configures the connection made by Connect.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, opts RedisOptions, log zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("address", opts.Addr).Msg("redis connection failed")
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("address", opts.Addr).Msg("redis connection successful")
	return rdb, nil
}

// Redis stores records as JSON strings under "<namespace>:<id>" with a TTL.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedis creates a Redis store. A non-positive ttl defaults to 24 hours
// and an empty namespace to "parkscan:analysis".
func NewRedis(client *redis.Client, ttl time.Duration, namespace string) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "parkscan:analysis"
	}
	return &Redis{client: client, ttl: ttl, namespace: namespace}
}

func (r *Redis) key(id string) string {
	return fmt.Sprintf("%s:%s", r.namespace, id)
}

// Save stores rec, replacing any record with the same ID.
func (r *Redis) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("failed to save analysis: record has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	if err := r.client.Set(ctx, r.key(rec.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (r *Redis) Get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &rec, nil
}

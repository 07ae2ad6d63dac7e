// Package promocache caches the active promo in Redis in front of another
// store.Store.
package promocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/rs/zerolog/log"
)

const activeKey = "active"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// MustEstablishConn connects to Redis and fails hard when it is unreachable.
func MustEstablishConn(cfg Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping().Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("redis ping failed")
	}
	return client
}

// Store decorates a store.Store. Every method except the promo ones passes
// straight through.
type Store struct {
	store.Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(next store.Store, client *redis.Client, cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		Store:  next,
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
	}
}

func (s *Store) key(k string) string {
	if s.prefix != "" {
		return s.prefix + ":" + k
	}
	return k
}

// GetActivePromo serves from Redis when possible. Cache errors fall back to
// the underlying store.
func (s *Store) GetActivePromo(ctx context.Context) (*models.Promo, error) {
	val, err := s.client.Get(s.key(activeKey)).Result()
	switch {
	case err == nil:
		var p models.Promo
		if err := json.Unmarshal([]byte(val), &p); err == nil {
			return &p, nil
		}
		log.Warn().Msg("discarding undecodable cached promo")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Msg("promo cache read failed")
	}

	p, err := s.Store.GetActivePromo(ctx)
	if err != nil {
		return nil, err
	}
	s.put(p)
	return p, nil
}

// CreatePromo writes through and refreshes the cached value.
func (s *Store) CreatePromo(ctx context.Context, promo *models.Promo) error {
	if err := s.Store.CreatePromo(ctx, promo); err != nil {
		return err
	}
	if err := s.client.Del(s.key(activeKey)).Err(); err != nil {
		log.Warn().Err(err).Msg("promo cache invalidation failed")
	}
	return nil
}

func (s *Store) put(p *models.Promo) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode promo for cache")
		return
	}
	if err := s.client.Set(s.key(activeKey), string(data), s.ttl).Err(); err != nil {
		log.Warn().Err(fmt.Errorf("set %s: %w", s.key(activeKey), err)).Msg("promo cache write failed")
	}
}

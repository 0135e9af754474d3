package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type Config struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

func (c *Config) ApplyDefaults() {
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 600
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "grill"
	}
}

func (c Config) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// setter is the slice of the redis client the sink needs; *redis.Client
// satisfies it.
type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Sink keeps the last-known reading per probe in Redis so the web UI and
// other services read current state without touching the upstream API.
type Sink struct {
	rdb    setter
	prefix string
	ttl    time.Duration
}

func NewSink(rdb setter, cfg Config) *Sink {
	cfg.ApplyDefaults()
	return &Sink{rdb: rdb, prefix: cfg.KeyPrefix, ttl: cfg.TTL()}
}

// Dial connects a redis client and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Sink) Name() string { return "redis" }

func (s *Sink) Deliver(ctx context.Context, r *domain.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return ports.Permanent(err)
	}
	key := fmt.Sprintf("%s:%s:%s:latest", s.prefix, r.DeviceID, r.ProbeID)
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

var _ ports.Sink = (*Sink)(nil)

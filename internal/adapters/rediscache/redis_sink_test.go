package rediscache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

type fakeSetter struct {
	key   string
	value []byte
	ttl   time.Duration
	err   error
}

func (f *fakeSetter) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.key = key
	f.value = value.([]byte)
	f.ttl = expiration
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	}
	return cmd
}

func TestRedisSinkDeliver(t *testing.T) {
	fake := &fakeSetter{}
	sink := NewSink(fake, Config{KeyPrefix: "grill", TTLSeconds: 300})

	r := &domain.Reading{
		DeviceID:   "grill-1",
		ProbeID:    "probe-2",
		Value:      180.25,
		Unit:       "F",
		ObservedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	if err := sink.Deliver(context.Background(), r); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if fake.key != "grill:grill-1:probe-2:latest" {
		t.Fatalf("unexpected key %q", fake.key)
	}
	if fake.ttl != 5*time.Minute {
		t.Fatalf("unexpected ttl %s", fake.ttl)
	}

	var got domain.Reading
	if err := json.Unmarshal(fake.value, &got); err != nil {
		t.Fatalf("unmarshal stored value: %v", err)
	}
	if got.Value != 180.25 || got.ProbeID != "probe-2" {
		t.Fatalf("unexpected stored reading: %+v", got)
	}
}

func TestRedisSinkDefaults(t *testing.T) {
	sink := NewSink(&fakeSetter{}, Config{})
	if sink.prefix != "grill" {
		t.Fatalf("expected default prefix grill, got %q", sink.prefix)
	}
	if sink.ttl != 10*time.Minute {
		t.Fatalf("expected default ttl 10m, got %s", sink.ttl)
	}
	if sink.Name() != "redis" {
		t.Fatalf("unexpected sink name %s", sink.Name())
	}
}

package utils

import (
	"context"
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 20 || got.MaxIdleConns != 20 {
		t.Fatalf("unexpected pool sizes: %+v", got)
	}
	if got.PingTimeout != 5*time.Second || got.ConnMaxLifetime != 30*time.Minute || got.PingAttempts != 5 {
		t.Fatalf("unexpected timeouts: %+v", got)
	}
}

func TestPostgresPoolConfig_IdleCappedByOpen(t *testing.T) {
	got := PostgresPoolConfig{MaxOpenConns: 4, MaxIdleConns: 10}.withDefaults()
	if got.MaxIdleConns != 4 {
		t.Fatalf("expected idle capped at 4, got %d", got.MaxIdleConns)
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	got := RedisConfig{Addr: "localhost:6379", PoolSize: 5}.withDefaults()
	if got.PoolSize != 5 {
		t.Fatalf("explicit pool size overwritten: %d", got.PoolSize)
	}
	if got.DialTimeout != 3*time.Second || got.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: %+v", got)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}

func TestRedisHealthCheck_NilClient(t *testing.T) {
	if err := RedisHealthCheck(context.Background(), nil, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

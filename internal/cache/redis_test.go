package cache

import (
	"context"
	"testing"
	"time"

	"netgdp/config"
)

func TestDialRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := DialRedis(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatalf("expected error dialing a closed port")
	}
}

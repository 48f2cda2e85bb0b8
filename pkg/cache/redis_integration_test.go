//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/trackview/internal/testsupport"
	"github.com/matzehuels/trackview/pkg/cache"
)

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	c, err := testsupport.SetupRedis(ctx)
	if err != nil {
		t.Fatalf("SetupRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: c.Endpoint})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer rc.Close()

	if _, hit, err := rc.Get(ctx, "frame:missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v; want miss", hit, err)
	}

	if err := rc.Set(ctx, "frame:a", []byte("png"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := rc.Get(ctx, "frame:a")
	if err != nil || !hit || string(data) != "png" {
		t.Fatalf("Get = %q, %v, %v; want png hit", data, hit, err)
	}

	if err := rc.Delete(ctx, "frame:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := rc.Get(ctx, "frame:a"); hit {
		t.Error("Get after Delete returned a hit")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("NewRedisCache on a closed port succeeded")
	}
}

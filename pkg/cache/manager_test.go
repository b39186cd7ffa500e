package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when
// none is reachable. Integration tests use testcontainers instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 0)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", manager.TTL(), DefaultTTL)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Minute)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	key := CacheKey{Method: "POST", Path: "/businesses/match", Body: []byte(`{"a":1}`)}
	entry := NewEntry([]byte(`{"matched_businesses":[]}`), 200, 5*time.Minute)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode = %d, want %d", retrieved.StatusCode, entry.StatusCode)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)

	_, err := manager.Get(context.Background(), CacheKey{Method: "GET", Path: "/nonexistent"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Set_ExpiredEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	key := CacheKey{Method: "GET", Path: "/expired"}

	entry := &CacheEntry{
		Data:    []byte(`{}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	key := CacheKey{Method: "GET", Path: "/delete-me"}

	if err := manager.Set(ctx, key, NewEntry([]byte(`{}`), 200, time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)

	if err := manager.Set(context.Background(), CacheKey{Path: "/x"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_GetOrFetch(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	key := CacheKey{Method: "POST", Path: "/prospects", Body: []byte(`{"page":1}`)}

	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]byte, int, error) {
		calls.Add(1)
		return []byte(`{"data":[{"prospect_id":"p1"}]}`), 200, nil
	}

	entry, hit, err := manager.GetOrFetch(ctx, key, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if hit {
		t.Error("first GetOrFetch should be a miss")
	}
	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}

	entry, hit, err = manager.GetOrFetch(ctx, key, fetch)
	if err != nil {
		t.Fatalf("second GetOrFetch failed: %v", err)
	}
	if !hit {
		t.Error("second GetOrFetch should be a hit")
	}
	if string(entry.Data) != `{"data":[{"prospect_id":"p1"}]}` {
		t.Errorf("Data = %s", entry.Data)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestManager_GetOrFetch_ErrorNotCached(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	key := CacheKey{Method: "POST", Path: "/failing"}
	wantErr := errors.New("boom")

	_, _, err := manager.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, int, error) {
		return nil, 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("failed fetch should not be cached, got %v", err)
	}
}

func TestManager_GetOrFetch_CollapsesConcurrentMisses(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()
	key := CacheKey{Method: "POST", Path: "/slow"}

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, int, error) {
		calls.Add(1)
		<-release
		return []byte(`{}`), 200, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := manager.GetOrFetch(ctx, key, fetch); err != nil {
				t.Errorf("GetOrFetch failed: %v", err)
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

// unreachableRedis returns a client whose commands fail fast, so the
// manager degrades to fetching without the cache.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestManager_GetOrFetch_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	manager := NewManager(unreachableRedis(t), time.Minute)
	key := CacheKey{Method: "POST", Path: "/shared"}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetchErr := make(chan error, 1)
	fetch := func(ctx context.Context) ([]byte, int, error) {
		calls.Add(1)
		close(started)
		<-release
		fetchErr <- ctx.Err()
		return []byte(`{"ok":true}`), 200, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, _, err := manager.GetOrFetch(leaderCtx, key, fetch)
		leaderDone <- err
	}()
	<-started

	type result struct {
		entry *CacheEntry
		err   error
	}
	waiterDone := make(chan result, 1)
	go func() {
		entry, _, err := manager.GetOrFetch(context.Background(), key, fetch)
		waiterDone <- result{entry, err}
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-leaderDone:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("leader err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled leader did not return")
	}

	close(release)

	select {
	case res := <-waiterDone:
		if res.err != nil {
			t.Fatalf("waiter err = %v, want nil", res.err)
		}
		if string(res.entry.Data) != `{"ok":true}` {
			t.Errorf("waiter Data = %s", res.entry.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter did not return")
	}

	if err := <-fetchErr; err != nil {
		t.Errorf("fetch ctx err = %v, want nil", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

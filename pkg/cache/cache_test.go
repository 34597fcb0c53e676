package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/fieldtrial/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "table:abc"); hit {
		t.Error("empty cache should miss")
	}
	if err := c.Set(ctx, "table:abc", []byte("B1,0,0"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "table:abc")
	if err != nil || !hit || string(data) != "B1,0,0" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "table:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "table:abc"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "table:abc"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl should never expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	entries, size, err := c.Usage()
	if err != nil || entries != 3 || size == 0 {
		t.Errorf("Usage() = %d, %d, %v; want 3 entries", entries, size, err)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("cleared entry should miss")
	}
	if entries, _, _ := c.Usage(); entries != 0 {
		t.Errorf("Usage() after Clear = %d entries", entries)
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisOptions{Addr: mr.Addr(), Prefix: "fieldtrial:"})
	if err != nil {
		t.Fatalf("NewRedisCache() error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "table:x"); hit || err != nil {
		t.Errorf("empty redis: hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, "table:x", []byte("data"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if !mr.Exists("fieldtrial:table:x") {
		t.Error("key should be stored with prefix")
	}
	if ttl := mr.TTL("fieldtrial:table:x"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	data, hit, err := c.Get(ctx, "table:x")
	if err != nil || !hit || string(data) != "data" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "table:x"); hit {
		t.Error("expired redis key should miss")
	}

	if err := c.Set(ctx, "artifact:y", []byte("svg"), 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "artifact:y"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if mr.Exists("fieldtrial:artifact:y") {
		t.Error("deleted key still present")
	}
}

func TestRedisCacheFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "")
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("stored value = %q, want v", got)
	}
}

func TestNewRedisCacheUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRedisCache(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache() error = %v, want ErrUnavailable", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("trial"))
	if h1 != Hash([]byte("trial")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("field")) {
		t.Error("different inputs should hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}

	type cfg struct {
		Rows, Cols int
	}
	a, err := HashJSON(cfg{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := HashJSON(cfg{3, 4})
	c, _ := HashJSON(cfg{4, 3})
	if a != b || a == c {
		t.Error("HashJSON should depend only on the value")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	t1 := k.TableKey("cfg", TableKeyOpts{Seed: 1, Strategy: "rejection"})
	t2 := k.TableKey("cfg", TableKeyOpts{Seed: 2, Strategy: "rejection"})
	if t1 == t2 {
		t.Error("different seeds should give different table keys")
	}
	if !strings.HasPrefix(t1, "table:") {
		t.Errorf("TableKey = %q, want table: prefix", t1)
	}

	a1 := k.ArtifactKey("tbl", ArtifactKeyOpts{Format: "svg"})
	a2 := k.ArtifactKey("tbl", ArtifactKeyOpts{Format: "pdf"})
	if a1 == a2 {
		t.Error("different formats should give different artifact keys")
	}
	if !strings.HasPrefix(a1, "artifact:") {
		t.Errorf("ArtifactKey = %q, want artifact: prefix", a1)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "scn:")
	key := scoped.TableKey("cfg", TableKeyOpts{})
	if !strings.HasPrefix(key, "scn:table:") {
		t.Errorf("scoped key = %q", key)
	}
	if NewScopedKeyer(nil, "p:").ArtifactKey("h", ArtifactKeyOpts{}) != "p:"+NewDefaultKeyer().ArtifactKey("h", ArtifactKeyOpts{}) {
		t.Error("nil inner keyer should fall back to DefaultKeyer")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Delay: time.Millisecond}
	errTransient := errors.New("connection refused")

	calls := 0
	err := RetryWithBackoff(ctx, fast, func() error {
		calls++
		if calls < 2 {
			return Retryable(errTransient)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err=%v calls=%d, want nil after 2", err, calls)
	}

	calls = 0
	errFatal := errors.New("auth failed")
	err = RetryWithBackoff(ctx, fast, func() error {
		calls++
		return errFatal
	})
	if err != errFatal || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, fast, func() error {
		calls++
		return Retryable(errTransient)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d, want retryable after 3", err, calls)
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("retryable error message = %q", err)
	}
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, Backoff{Attempts: 3, Delay: time.Hour}, func() error {
		return Retryable(ErrUnavailable)
	})
	if err != context.Canceled {
		t.Errorf("RetryWithBackoff() error = %v, want context.Canceled", err)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets map[string]int
}

func (h *countingHooks) OnCacheHit(_ context.Context, kt string) {
	h.hits[kt]++
}

func (h *countingHooks) OnCacheMiss(_ context.Context, kt string) {
	h.misses[kt]++
}

func (h *countingHooks) OnCacheSet(_ context.Context, kt string, _ int) {
	h.sets[kt]++
}

func TestInstrumented(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	h := &countingHooks{hits: map[string]int{}, misses: map[string]int{}, sets: map[string]int{}}
	observability.SetCacheHooks(h)

	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := Instrument(fc)
	key := NewScopedKeyer(nil, "scn:").TableKey("cfg", TableKeyOpts{})

	c.Get(ctx, key)
	c.Set(ctx, key, []byte("x"), 0)
	c.Get(ctx, key)
	c.Get(ctx, "artifact:zzz")

	if h.misses[KeyTypeTable] != 1 || h.sets[KeyTypeTable] != 1 || h.hits[KeyTypeTable] != 1 {
		t.Errorf("table events: hits=%v misses=%v sets=%v", h.hits, h.misses, h.sets)
	}
	if h.misses[KeyTypeArtifact] != 1 {
		t.Errorf("artifact misses = %d, want 1", h.misses[KeyTypeArtifact])
	}
}

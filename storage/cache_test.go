package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

type stubBackend struct {
	fetchCalls int
	saveCalls  int
	settings   domain.Settings
	fetchErr   error
	saveErr    error
}

func (s *stubBackend) FetchSettings(ctx context.Context, userID string) (domain.Settings, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return domain.Settings{}, s.fetchErr
	}
	return s.settings, nil
}

func (s *stubBackend) SaveSettings(ctx context.Context, userID string, settings domain.Settings) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.settings = settings
	return nil
}

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.Theme = "dark"
	s.PageSize = 50
	return s
}

func newTestCache(t *testing.T, base backend) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	return NewCache(base, rc, time.Hour), mr
}

func TestFetchSettingsCachesAfterFirstRead(t *testing.T) {
	base := &stubBackend{settings: testSettings()}
	cache, _ := newTestCache(t, base)
	ctx := context.Background()

	first, err := cache.FetchSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cache.FetchSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first != second {
		t.Fatalf("fetches disagree: %+v != %+v", first, second)
	}
	if base.fetchCalls != 1 {
		t.Fatalf("expected one backend read, got %d", base.fetchCalls)
	}
}

func TestFetchSettingsServesCachedEntry(t *testing.T) {
	base := &stubBackend{settings: testSettings()}
	cache, mr := newTestCache(t, base)

	cached := testSettings()
	cached.Theme = "from-cache"
	data, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mr.Set(settingsCacheKey("user-1"), string(data))

	got, err := cache.FetchSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Theme != "from-cache" {
		t.Fatalf("expected the cached entry, got %+v", got)
	}
	if base.fetchCalls != 0 {
		t.Fatalf("backend must not be read on a cache hit, got %d calls", base.fetchCalls)
	}
}

func TestSaveSettingsEvictsCache(t *testing.T) {
	base := &stubBackend{settings: testSettings()}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchSettings(ctx, "user-1"); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	if !mr.Exists(settingsCacheKey("user-1")) {
		t.Fatal("expected the fetch to populate the cache")
	}

	updated := testSettings()
	updated.Theme = "light"
	if err := cache.SaveSettings(ctx, "user-1", updated); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists(settingsCacheKey("user-1")) {
		t.Fatal("expected save to evict the cached entry")
	}

	got, err := cache.FetchSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("fetch after save: %v", err)
	}
	if got.Theme != "light" {
		t.Fatalf("expected updated settings, got %+v", got)
	}
}

func TestSaveSettingsErrorKeepsCache(t *testing.T) {
	base := &stubBackend{settings: testSettings()}
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	if _, err := cache.FetchSettings(ctx, "user-1"); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	base.saveErr = errors.New("table unavailable")
	if err := cache.SaveSettings(ctx, "user-1", testSettings()); err == nil {
		t.Fatal("expected save error")
	}
	if !mr.Exists(settingsCacheKey("user-1")) {
		t.Fatal("failed save must not evict the cached entry")
	}
}

func TestFetchSettingsCorruptedEntryFallsBack(t *testing.T) {
	base := &stubBackend{settings: testSettings()}
	cache, mr := newTestCache(t, base)
	mr.Set(settingsCacheKey("user-1"), "{ not json")

	got, err := cache.FetchSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != testSettings() {
		t.Fatalf("expected backend settings, got %+v", got)
	}
	if base.fetchCalls != 1 {
		t.Fatalf("expected one backend read, got %d", base.fetchCalls)
	}
}

func TestFetchSettingsBackendError(t *testing.T) {
	base := &stubBackend{fetchErr: errors.New("boom")}
	cache, _ := newTestCache(t, base)

	if _, err := cache.FetchSettings(context.Background(), "user-1"); err == nil {
		t.Fatal("expected backend error to surface")
	}
}

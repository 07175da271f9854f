package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"improbable-love/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryObject struct {
	data     []byte
	modified time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	now     func() time.Time
	failDel bool
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{objects: map[string]memoryObject{}, now: now}
}

func (m *memoryStore) PutObject(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), modified: m.now()}
	return nil
}

func (m *memoryStore) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return obj.data, nil
}

func (m *memoryStore) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errors.New("delete failed")
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, LastModified: obj.modified})
		}
	}
	return out, nil
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCache(ttl time.Duration) (*CityCache, *memoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)}
	store := newMemoryStore(clock.Now)
	cache := NewCityCache(store, ttl, zap.NewNop())
	cache.now = clock.Now
	return cache, store, clock
}

func TestCityCache_PutGet(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "london")
	require.NoError(t, err)
	assert.False(t, ok)

	cities := []models.City{{Name: "London", Country: "GB", Population: 8961989, Latitude: 51.5072, Longitude: -0.1275, IsCapital: true}}
	require.NoError(t, cache.Put(ctx, "london", cities))

	got, ok, err := cache.Get(ctx, "london")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cities, got)
}

func TestCityCache_EmptyResultIsCached(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "zzqx", nil))
	got, ok, err := cache.Get(ctx, "zzqx")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCityCache_Expiry(t *testing.T) {
	cache, _, clock := newTestCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "paris", []models.City{{Name: "Paris", Country: "FR"}}))
	clock.t = clock.t.Add(61 * time.Minute)

	_, ok, err := cache.Get(ctx, "paris")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCityCache_CorruptEntryIsMiss(t *testing.T) {
	cache, store, _ := newTestCache(time.Hour)
	ctx := context.Background()
	require.NoError(t, store.PutObject(ctx, cityKey("rome"), []byte("{not json"), "application/json"))

	_, ok, err := cache.Get(ctx, "rome")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCityCache_Prune(t *testing.T) {
	cache, store, clock := newTestCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "old", nil))
	clock.t = clock.t.Add(2 * time.Hour)
	require.NoError(t, cache.Put(ctx, "fresh", nil))
	require.NoError(t, store.PutObject(ctx, "other/keep.bin", []byte("x"), "application/octet-stream"))

	deleted, err := cache.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.GetObject(ctx, cityKey("old"))
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.GetObject(ctx, cityKey("fresh"))
	assert.NoError(t, err)
	_, err = store.GetObject(ctx, "other/keep.bin")
	assert.NoError(t, err)
}

func TestCityCache_PruneContinuesOnDeleteError(t *testing.T) {
	cache, store, clock := newTestCache(time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "a", nil))
	clock.t = clock.t.Add(time.Hour)
	store.failDel = true

	deleted, err := cache.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestCityCache_Delete(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "oslo", []models.City{{Name: "Oslo", Country: "NO"}}))

	require.NoError(t, cache.Delete(ctx, "Oslo"))
	_, ok, err := cache.Get(ctx, "oslo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCityKey(t *testing.T) {
	assert.Equal(t, "cities/london.json", cityKey("London"))
	assert.Equal(t, "cities/s%C3%A3o.json", cityKey("são"))
	assert.Equal(t, "cities/a%2Fb.json", cityKey("a/b"))
}

func TestParseEndpoint(t *testing.T) {
	host, secure, err := parseEndpoint("https://minio.example.com:9000")
	require.NoError(t, err)
	assert.Equal(t, "minio.example.com:9000", host)
	assert.True(t, secure)

	host, secure, err = parseEndpoint("http://localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, _, err = parseEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
}

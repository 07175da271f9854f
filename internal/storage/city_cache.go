package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"improbable-love/internal/models"

	"go.uber.org/zap"
)

const cityPrefix = "cities/"

// ObjectStore 是城市缓存使用的对象存储，MinioClient 实现了该接口
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

type cityEntry struct {
	Query    string        `json:"query"`
	StoredAt time.Time     `json:"storedAt"`
	Cities   []models.City `json:"cities"`
}

// CityCache 按规范化后的查询词缓存城市查询结果，只保存公开的地理数据
type CityCache struct {
	store  ObjectStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewCityCache 创建城市缓存
func NewCityCache(store ObjectStore, ttl time.Duration, logger *zap.Logger) *CityCache {
	return &CityCache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Get 读取缓存，未命中或已过期时 ok=false
func (c *CityCache) Get(ctx context.Context, query string) ([]models.City, bool, error) {
	data, err := c.store.GetObject(ctx, cityKey(query))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cityEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("城市缓存内容损坏，忽略", zap.String("query", query), zap.Error(err))
		return nil, false, nil
	}
	if c.expired(entry.StoredAt) {
		return nil, false, nil
	}
	if entry.Cities == nil {
		entry.Cities = []models.City{}
	}
	return entry.Cities, true, nil
}

// Put 写入缓存
func (c *CityCache) Put(ctx context.Context, query string, cities []models.City) error {
	data, err := json.Marshal(cityEntry{Query: query, StoredAt: c.now().UTC(), Cities: cities})
	if err != nil {
		return fmt.Errorf("序列化城市缓存失败: %w", err)
	}
	return c.store.PutObject(ctx, cityKey(query), data, "application/json")
}

// Delete 删除某个查询词的缓存
func (c *CityCache) Delete(ctx context.Context, query string) error {
	return c.store.DeleteObject(ctx, cityKey(query))
}

// Prune 删除所有过期的缓存对象，返回删除数量
func (c *CityCache) Prune(ctx context.Context) (int, error) {
	objects, err := c.store.ListObjects(ctx, cityPrefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, obj := range objects {
		if !c.expired(obj.LastModified) {
			continue
		}
		if err := c.store.DeleteObject(ctx, obj.Key); err != nil {
			c.logger.Error("删除过期城市缓存失败", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		deleted++
	}

	c.logger.Info("城市缓存清理完成", zap.Int("scanned", len(objects)), zap.Int("deleted", deleted))
	return deleted, nil
}

func (c *CityCache) expired(t time.Time) bool {
	return c.ttl > 0 && c.now().Sub(t) > c.ttl
}

func cityKey(query string) string {
	return cityPrefix + url.PathEscape(strings.ToLower(query)) + ".json"
}

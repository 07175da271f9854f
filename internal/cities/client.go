package cities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"improbable-love/config"
	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/models"

	"go.uber.org/zap"
)

// DefaultPopulation 是上游缺少人口数据时的默认值
const DefaultPopulation = 1000000

// Cache 缓存规范化查询词对应的结果
type Cache interface {
	Get(ctx context.Context, query string) ([]models.City, bool, error)
	Put(ctx context.Context, query string, cities []models.City) error
}

// Client 是城市查询接口的客户端
type Client struct {
	httpClient *http.Client
	config     *config.CityConfig
	cache      Cache
	logger     *zap.Logger
}

// NewClient 创建城市查询客户端，cache 可以为 nil
func NewClient(cfg *config.CityConfig, cache Cache, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		cache:      cache,
		logger:     logger,
	}
}

// Search 按城市名查询，去空白后少于 MinQuery 个字符时直接返回空结果
func (c *Client) Search(ctx context.Context, query string) ([]models.City, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < c.config.MinQuery {
		return []models.City{}, nil
	}

	normalized := NormalizeQuery(trimmed)
	if normalized == "" {
		return []models.City{}, nil
	}

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, normalized)
		if err != nil {
			c.logger.Warn("读取城市缓存失败", zap.String("query", normalized), zap.Error(err))
		} else if ok {
			return limit(cached, c.config.MaxResults), nil
		}
	}

	cities, err := c.fetch(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, normalized, cities); err != nil {
			c.logger.Warn("写入城市缓存失败", zap.String("query", normalized), zap.Error(err))
		}
	}
	return cities, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]models.City, error) {
	reqURL := c.config.BaseURL + "?name=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("X-Api-Key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewLookupError("城市查询请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewLookupError(fmt.Sprintf("API Error: %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewLookupError("解析城市查询响应失败", err)
	}
	entries, ok := payload.([]any)
	if !ok {
		return nil, apperrors.NewLookupError("Invalid API response format", nil)
	}

	cities := make([]models.City, 0, len(entries))
	for _, entry := range entries {
		city, ok := toCity(entry)
		if !ok {
			continue
		}
		cities = append(cities, city)
		if len(cities) == c.config.MaxResults {
			break
		}
	}

	c.logger.Debug("城市查询完成", zap.String("query", query), zap.Int("upstream", len(entries)), zap.Int("results", len(cities)))
	return cities, nil
}

// NormalizeQuery 规范化查询词：转小写，去掉字母、数字、下划线、空白和连字符以外的字符，只取第一个词
func NormalizeQuery(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' || r == '-' {
			return r
		}
		return -1
	}, strings.ToLower(strings.TrimSpace(query)))

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// toCity 校验单条上游数据，缺少 name 或 country 的条目丢弃，其余字段缺失时填默认值
func toCity(entry any) (models.City, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return models.City{}, false
	}
	name, _ := obj["name"].(string)
	country, _ := obj["country"].(string)
	if name == "" || country == "" {
		return models.City{}, false
	}

	city := models.City{
		Name:       name,
		Country:    country,
		Population: DefaultPopulation,
		IsCapital:  truthy(obj["is_capital"]),
	}
	if p, ok := obj["population"].(float64); ok {
		city.Population = int64(p)
	}
	if lat, ok := obj["latitude"].(float64); ok {
		city.Latitude = lat
	}
	if lon, ok := obj["longitude"].(float64); ok {
		city.Longitude = lon
	}
	return city, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

func limit(cities []models.City, n int) []models.City {
	if n > 0 && len(cities) > n {
		return cities[:n]
	}
	return cities
}

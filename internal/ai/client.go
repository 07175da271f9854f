package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"improbable-love/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrAIGenerationFailed 表示调用语言模型失败
var ErrAIGenerationFailed = errors.New("AI内容生成失败")

// ErrEmptyCompletion 表示模型返回了空内容
var ErrEmptyCompletion = errors.New("AI响应中没有内容")

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "love_odds_ai_requests_total",
			Help: "Total number of chat completion requests.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "love_odds_ai_request_duration_seconds",
			Help:    "Chat completion request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiTotalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "love_odds_ai_total_tokens",
			Help:    "Prompt plus completion tokens per request.",
			Buckets: prometheus.LinearBuckets(500, 500, 16),
		},
		[]string{"model"},
	)
)

// Client 是语言模型接口的客户端
type Client struct {
	client    *openai.Client
	config    *config.OpenAIConfig
	maxTokens int
	logger    *zap.Logger
}

// NewClient 创建一个新的AI客户端
func NewClient(cfg *config.OpenAIConfig, logger *zap.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// GenerateAnalysis 按分析提示词生成 JSON 格式的概率分解
func (c *Client) GenerateAnalysis(ctx context.Context, storyText string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: AnalysisPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: c.storyContent(storyText),
			},
		},
		MaxTokens: c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	return c.generateText(ctx, req)
}

// storyContent 按 MaxInputBytes 截断故事，截断时记录警告
func (c *Client) storyContent(storyText string) string {
	content := truncate(storyText, c.config.MaxInputBytes)
	if len(content) < len(storyText) {
		c.logger.Warn("故事过长，已截断",
			zap.Int("original_bytes", len(storyText)),
			zap.Int("sent_bytes", len(content)),
		)
	}
	return content
}

// generateText 发送AI请求并获取生成的文本，不做重试
func (c *Client) generateText(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	aiRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return "", fmt.Errorf("%w: %w", ErrAIGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.WithLabelValues(req.Model, "error_empty_response").Inc()
		return "", ErrEmptyCompletion
	}

	aiRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	aiTotalTokens.WithLabelValues(req.Model).Observe(float64(resp.Usage.TotalTokens))
	c.logger.Info("AI内容生成成功",
		zap.String("model", req.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// truncate 按字节上限截断文本，不拆分多字节字符
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"improbable-love/config"

	"github.com/sashabaranov/go-openai"
)

// OpenAIWhisper 使用 OpenAI 的 Whisper 接口进行转写
type OpenAIWhisper struct {
	client *openai.Client
	config *config.SpeechConfig
}

// NewOpenAIWhisper 创建 OpenAI 转写服务，与对话模型共用 API Key 和 BaseURL
func NewOpenAIWhisper(cfg *config.SpeechConfig, openaiCfg *config.OpenAIConfig) (*OpenAIWhisper, error) {
	if openaiCfg == nil || openaiCfg.APIKey == "" {
		return nil, errors.New("OpenAI 转写需要 OPENAI_API_KEY")
	}

	clientConfig := openai.DefaultConfig(openaiCfg.APIKey)
	if openaiCfg.BaseURL != "" {
		clientConfig.BaseURL = openaiCfg.BaseURL
	}

	return &OpenAIWhisper{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Transcribe 将音频转换为文本
func (o *OpenAIWhisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("音频为空")
	}
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.config.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("转写请求失败: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Provider 返回转写服务提供商名称
func (o *OpenAIWhisper) Provider() string {
	return ProviderOpenAI
}

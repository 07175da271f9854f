package speech

import (
	"context"
	"fmt"

	"improbable-love/config"
)

// 支持的转写服务
const (
	ProviderOpenAI      = "openai"
	ProviderWhisperHTTP = "whisper-http"
)

// Service 定义语音转文字服务接口
type Service interface {
	// Transcribe 将一段音频转换为文本，filename 的扩展名决定音频格式
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	// Provider 返回转写服务提供商名称
	Provider() string
}

// Factory 根据配置创建转写服务
func Factory(cfg *config.SpeechConfig, openaiCfg *config.OpenAIConfig) (Service, error) {
	switch cfg.Provider {
	case ProviderWhisperHTTP:
		return NewWhisperHTTP(cfg)
	case ProviderOpenAI, "":
		return NewOpenAIWhisper(cfg, openaiCfg)
	default:
		return nil, fmt.Errorf("未知的转写服务: %s", cfg.Provider)
	}
}

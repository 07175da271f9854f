package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"improbable-love/config"
)

// WhisperHTTP 调用兼容 Whisper 的自建转写服务
type WhisperHTTP struct {
	config *config.SpeechConfig
	client *http.Client
}

// NewWhisperHTTP 创建自建转写服务客户端
func NewWhisperHTTP(cfg *config.SpeechConfig) (*WhisperHTTP, error) {
	if cfg.URL == "" {
		return nil, errors.New("whisper-http 转写需要 SPEECH_URL")
	}
	return &WhisperHTTP{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Transcribe 以 multipart 表单上传音频并返回纯文本结果
func (w *WhisperHTTP) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("音频为空")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("写入音频失败: %w", err)
	}
	if w.config.Model != "" {
		_ = writer.WriteField("model", w.config.Model)
	}
	_ = writer.WriteField("response_format", "text")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("关闭表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, &body)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("转写请求失败，状态码: %d, 响应: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return strings.TrimSpace(string(respBody)), nil
}

// Provider 返回转写服务提供商名称
func (w *WhisperHTTP) Provider() string {
	return ProviderWhisperHTTP
}

package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"improbable-love/internal/ai"
	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/models"
)

// ErrSubmissionInFlight 表示上一次提交尚未完成
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Client 调用 POST /api/analyze，同一时间只允许一个提交
type Client struct {
	baseURL    string
	httpClient *http.Client
	inFlight   atomic.Bool
}

// New 创建分析客户端，超时由传入的 http.Client 决定
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// InFlight 返回是否有提交在途
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

// Submit 提交一个故事并等待分析结果，不做重试
func (c *Client) Submit(ctx context.Context, input models.StoryInput) (*models.AnalyzeResponse, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	body, err := EncodeRequest(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewNetworkError("创建请求失败", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("Failed to reach the analysis service", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("读取响应失败", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(resp.StatusCode, payload)
	}

	return decodeResponse(payload)
}

// decodeResponse 解析成功响应，analysis 按模型输出的同一套规则重新校验
func decodeResponse(payload []byte) (*models.AnalyzeResponse, error) {
	var raw struct {
		Transcription string          `json:"transcription"`
		Analysis      json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperrors.NewMalformedResponseError("Unexpected response from the analysis service", err)
	}
	analysis := bytes.TrimSpace(raw.Analysis)
	if len(analysis) == 0 || bytes.Equal(analysis, []byte("null")) {
		return nil, apperrors.NewMalformedResponseError("Analysis service response has no analysis", nil)
	}

	result, err := ai.ParseAnalysis(string(analysis))
	if err != nil {
		return nil, apperrors.NewMalformedResponseError("Analysis service returned an invalid analysis", err)
	}
	return &models.AnalyzeResponse{Transcription: raw.Transcription, Analysis: *result}, nil
}

// EncodeRequest 将故事编码为请求体，录音以 base64 data URL 发送
func EncodeRequest(input models.StoryInput) ([]byte, error) {
	var req models.AnalyzeRequest
	switch input.Kind {
	case models.InputText:
		if strings.TrimSpace(input.Text) == "" {
			return nil, apperrors.NewBadRequestError("story text is empty", nil)
		}
		req.Text = input.Text
	case models.InputAudio:
		if len(input.Audio) == 0 {
			return nil, apperrors.NewBadRequestError("recording is empty", nil)
		}
		mimeType := input.MimeType
		if mimeType == "" {
			mimeType = "audio/webm"
		}
		req.AudioData = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(input.Audio)
	default:
		return nil, apperrors.NewBadRequestError("unknown story input", nil)
	}
	return json.Marshal(req)
}

func serverError(status int, payload []byte) error {
	var body models.ErrorResponse
	msg := fmt.Sprintf("analysis service returned %d", status)
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	appErr := apperrors.NewServerError(msg, nil)
	appErr.Code = fmt.Sprintf("HTTP_%d", status)
	return appErr
}

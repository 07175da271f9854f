package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"improbable-love/config"
	"improbable-love/internal/ai"
	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/models"

	"go.uber.org/zap"
)

// Transcriber 将录音转为文本
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Generator 调用语言模型生成概率分解的原始 JSON
type Generator interface {
	GenerateAnalysis(ctx context.Context, storyText string) (string, error)
}

// Service 处理一次故事分析：可选转写，然后生成并校验分析结果。
// 服务本身无状态，依赖在 main 中构造后注入。
type Service struct {
	transcriber Transcriber
	generator   Generator
	config      config.AnalysisConfig
	logger      *zap.Logger
}

// NewService 创建分析服务
func NewService(transcriber Transcriber, generator Generator, cfg config.AnalysisConfig, logger *zap.Logger) *Service {
	return &Service{
		transcriber: transcriber,
		generator:   generator,
		config:      cfg,
		logger:      logger,
	}
}

// Analyze 处理 POST /api/analyze 的请求体，audioData 与 text 必须且只能提供一个
func (s *Service) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	text := strings.TrimSpace(req.Text)
	audioData := strings.TrimSpace(req.AudioData)

	switch {
	case text != "" && audioData != "":
		return nil, apperrors.NewBadRequestError("Provide either audioData or text, not both", nil)
	case text == "" && audioData == "":
		return nil, apperrors.NewBadRequestError("Either audioData or text is required", nil)
	case audioData != "":
		audio, mimeType, err := DecodeAudioData(audioData, s.config.MaxAudioBytes)
		if err != nil {
			return nil, err
		}
		return s.AnalyzeStory(ctx, models.AudioStory(audio, mimeType))
	default:
		return s.AnalyzeStory(ctx, models.TextStory(text))
	}
}

// AnalyzeStory 分析一个已采集的故事
func (s *Service) AnalyzeStory(ctx context.Context, input models.StoryInput) (*models.AnalyzeResponse, error) {
	start := time.Now()

	storyText, err := s.storyText(ctx, input)
	if err != nil {
		return nil, err
	}

	content, err := s.generator.GenerateAnalysis(ctx, storyText)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyCompletion) {
			return nil, apperrors.NewMalformedOutputError("模型输出为空", err)
		}
		return nil, apperrors.NewGenerationError("生成概率分析失败", err)
	}

	result, err := ai.ParseAnalysis(content)
	if err != nil {
		s.logger.Warn("模型输出校验失败", zap.Int("content_length", len(content)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("故事分析完成",
		zap.Int("events", len(result.Events)),
		zap.Float64("final_one_in_x", result.FinalOneInX),
		zap.Duration("latency", time.Since(start)),
	)

	return &models.AnalyzeResponse{
		Transcription: storyText,
		Analysis:      *result,
	}, nil
}

func (s *Service) storyText(ctx context.Context, input models.StoryInput) (string, error) {
	switch input.Kind {
	case models.InputText:
		text := strings.TrimSpace(input.Text)
		if text == "" {
			return "", apperrors.NewBadRequestError("Either audioData or text is required", nil)
		}
		return text, nil
	case models.InputAudio:
		if len(input.Audio) == 0 {
			return "", apperrors.NewBadRequestError("audioData 为空", nil)
		}
		if s.config.MaxAudioBytes > 0 && len(input.Audio) > s.config.MaxAudioBytes {
			return "", apperrors.NewBadRequestError(fmt.Sprintf("音频超过 %d 字节上限", s.config.MaxAudioBytes), nil)
		}
		if s.transcriber == nil {
			return "", apperrors.NewConfigurationError("未配置转写服务", nil)
		}
		filename := FilenameForMime(input.MimeType)
		text, err := s.transcriber.Transcribe(ctx, input.Audio, filename)
		if err != nil {
			return "", apperrors.NewTranscriptionError("录音转写失败", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", apperrors.NewTranscriptionError("转写结果为空", nil)
		}
		s.logger.Info("录音转写完成", zap.String("file", filename), zap.Int("bytes", len(input.Audio)), zap.Int("chars", len(text)))
		return text, nil
	default:
		return "", apperrors.NewBadRequestError("未知的故事输入类型", nil)
	}
}

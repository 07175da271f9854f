package models

import "fmt"

// InputKind 表示故事的输入方式
type InputKind int

const (
	InputText InputKind = iota
	InputAudio
)

// StoryInput 表示一次待分析的故事（文本或录音）
type StoryInput struct {
	Kind     InputKind
	Text     string
	Audio    []byte
	MimeType string
}

// TextStory 创建文本输入
func TextStory(text string) StoryInput {
	return StoryInput{Kind: InputText, Text: text}
}

// AudioStory 创建录音输入
func AudioStory(audio []byte, mimeType string) StoryInput {
	return StoryInput{Kind: InputAudio, Audio: audio, MimeType: mimeType}
}

// Condition 表示一个概率因素，OneInX=365 即 "1/365 的机会"
type Condition struct {
	Description string  `json:"description"`
	OneInX      float64 `json:"oneInX"`
}

// Event 表示促成两人相遇的一个现实事件
type Event struct {
	Circumstance string      `json:"circumstance"`
	Conditions   []Condition `json:"conditions"`
}

// AnalysisResult 表示模型生成的概率分解
type AnalysisResult struct {
	Events      []Event `json:"events"`
	FinalOneInX float64 `json:"finalOneInX"`
	Summary     string  `json:"summary"`
}

// AnalyzeRequest 是 POST /api/analyze 的请求体，两个字段只能提供一个
type AnalyzeRequest struct {
	AudioData string `json:"audioData,omitempty"`
	Text      string `json:"text,omitempty"`
}

// AnalyzeResponse 是 POST /api/analyze 的成功响应
type AnalyzeResponse struct {
	Transcription string         `json:"transcription"`
	Analysis      AnalysisResult `json:"analysis"`
}

// ErrorResponse 是所有失败响应的统一格式
type ErrorResponse struct {
	Error string `json:"error"`
}

// City 表示城市查询结果
type City struct {
	Name       string  `json:"name" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	Population int64   `json:"population"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	IsCapital  bool    `json:"is_capital"`
}

// Label 返回用于展示的城市名称
func (c City) Label() string {
	label := fmt.Sprintf("%s, %s", c.Name, c.Country)
	if c.IsCapital {
		label += " (Capital)"
	}
	return label
}

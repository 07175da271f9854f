package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Transcriber mock
type Transcriber struct {
	mock.Mock
}

func (m *Transcriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	args := m.Called(ctx, audio, filename)
	return args.String(0), args.Error(1)
}

// Generator mock
type Generator struct {
	mock.Mock
}

func (m *Generator) GenerateAnalysis(ctx context.Context, storyText string) (string, error) {
	args := m.Called(ctx, storyText)
	return args.String(0), args.Error(1)
}

package capture

import (
	"errors"
	"strings"
	"sync"

	"improbable-love/internal/models"
)

// ErrEmptyStory 表示文本故事为空
var ErrEmptyStory = errors.New("story text is empty")

// TextBuffer 是文本输入的缓冲区，没有状态机
type TextBuffer struct {
	mu   sync.Mutex
	text strings.Builder
}

// Set 替换全部内容
func (b *TextBuffer) Set(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.Reset()
	b.text.WriteString(text)
}

// Append 追加内容
func (b *TextBuffer) Append(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(text)
}

func (b *TextBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Artifact 返回待提交的文本故事
func (b *TextBuffer) Artifact() (models.StoryInput, error) {
	text := strings.TrimSpace(b.String())
	if text == "" {
		return models.StoryInput{}, ErrEmptyStory
	}
	return models.TextStory(text), nil
}

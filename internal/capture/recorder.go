package capture

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"improbable-love/internal/models"
)

// State 是录音状态
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// ErrInvalidTransition 表示当前状态不允许该操作
var ErrInvalidTransition = errors.New("invalid recorder transition")

// ErrNoAudio 表示停止时没有采集到任何音频
var ErrNoAudio = errors.New("no audio captured")

// ErrTooLarge 表示录音超过了大小上限
var ErrTooLarge = errors.New("recording exceeds the size limit")

// Ticker 抽象每秒一次的计时源，便于测试注入
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// NewTicker 返回基于 time.Ticker 的实现
func NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

// Recorder 管理一次录音会话：idle → recording → stopped，
// recording 可以 Restart 回到 idle（丢弃音频），stopped 可以 Reset 回到 idle。
type Recorder struct {
	mimeType  string
	newTicker func() Ticker
	onTick    func(time.Duration)
	maxBytes  int

	mu      sync.Mutex
	state   State
	buf     bytes.Buffer
	elapsed time.Duration
	ticker  Ticker
	done    chan struct{}
}

// Option 配置 Recorder
type Option func(*Recorder)

// WithTicker 替换计时源
func WithTicker(factory func() Ticker) Option {
	return func(r *Recorder) { r.newTicker = factory }
}

// WithOnTick 在录音中每秒回调一次当前时长
func WithOnTick(fn func(time.Duration)) Option {
	return func(r *Recorder) { r.onTick = fn }
}

// WithMaxBytes 限制录音总字节数，<= 0 不限制
func WithMaxBytes(n int) Option {
	return func(r *Recorder) { r.maxBytes = n }
}

// NewRecorder 创建录音器，mimeType 为空时使用 audio/webm
func NewRecorder(mimeType string, opts ...Option) *Recorder {
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	r := &Recorder{
		mimeType:  mimeType,
		newTicker: func() Ticker { return NewTicker(time.Second) },
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State 返回当前状态
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Duration 返回已录制时长
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Size 返回已采集的音频字节数
func (r *Recorder) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// MimeType 返回录音格式
func (r *Recorder) MimeType() string {
	return r.mimeType
}

// Start 开始录音
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return r.transitionError("start")
	}

	r.buf.Reset()
	r.elapsed = 0
	r.state = StateRecording
	r.ticker = r.newTicker()
	r.done = make(chan struct{})
	go r.count(r.ticker, r.done)
	return nil
}

// Write 追加一段音频，只在录音中有效；超过上限的分片整体丢弃
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return 0, r.transitionError("write")
	}
	if r.maxBytes > 0 && r.buf.Len()+len(p) > r.maxBytes {
		return 0, ErrTooLarge
	}
	return r.buf.Write(p)
}

// Stop 结束录音，之后可以通过 Artifact 取得音频
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return r.transitionError("stop")
	}
	r.stopTicker()
	r.state = StateStopped
	return nil
}

// Restart 放弃当前录音回到 idle，不产生任何音频
func (r *Recorder) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return r.transitionError("restart")
	}
	r.stopTicker()
	r.clear()
	return nil
}

// Reset 丢弃已完成的录音回到 idle
func (r *Recorder) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateStopped {
		return r.transitionError("reset")
	}
	r.clear()
	return nil
}

// Artifact 返回录好的音频，只在 stopped 状态可用
func (r *Recorder) Artifact() (models.StoryInput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateStopped {
		return models.StoryInput{}, r.transitionError("artifact")
	}
	if r.buf.Len() == 0 {
		return models.StoryInput{}, ErrNoAudio
	}
	audio := append([]byte(nil), r.buf.Bytes()...)
	return models.AudioStory(audio, r.mimeType), nil
}

// Close 停止计时，用于连接断开等场景
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTicker()
}

func (r *Recorder) count(ticker Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			r.mu.Lock()
			if r.done != done {
				r.mu.Unlock()
				return
			}
			r.elapsed += time.Second
			elapsed := r.elapsed
			onTick := r.onTick
			r.mu.Unlock()

			if onTick != nil {
				onTick(elapsed)
			}
		}
	}
}

func (r *Recorder) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
}

func (r *Recorder) clear() {
	r.buf.Reset()
	r.elapsed = 0
	r.state = StateIdle
}

func (r *Recorder) transitionError(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, r.state)
}

// FormatDuration 以 m:ss 格式显示时长
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

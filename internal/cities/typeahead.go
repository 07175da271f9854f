package cities

import (
	"context"
	"sync"
	"time"

	"improbable-love/internal/models"
)

// DefaultDebounce 是输入停止后发起查询前的等待时间
const DefaultDebounce = 750 * time.Millisecond

// Searcher 执行一次城市查询
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.City, error)
}

// Result 是一次输入最终对应的查询结果
type Result struct {
	Query  string
	Cities []models.City
	Err    error
}

// Typeahead 对连续输入做防抖，同一时间最多一个查询在途。
// 新输入会取消尚未触发的计时器和在途查询，被取代的结果不会回调。
// onResult 在锁外串行调用，阻塞时不影响 Input；不能在其中调用 Close。
type Typeahead struct {
	searcher Searcher
	delay    time.Duration
	onResult func(Result)

	// deliver 保证回调串行且按查询顺序送达
	deliver sync.Mutex

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

// NewTypeahead 创建 Typeahead，delay <= 0 时使用 DefaultDebounce
func NewTypeahead(searcher Searcher, delay time.Duration, onResult func(Result)) *Typeahead {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Typeahead{
		searcher: searcher,
		delay:    delay,
		onResult: onResult,
	}
}

// Input 记录一次新的输入
func (t *Typeahead) Input(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.supersede()
	seq := t.seq
	t.timer = time.AfterFunc(t.delay, func() { t.fire(seq, query) })
}

// Close 取消计时器和在途查询，等待正在执行的回调返回，之后的输入被忽略
func (t *Typeahead) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.supersede()
	t.mu.Unlock()

	t.deliver.Lock()
	t.deliver.Unlock()
}

// supersede 作废当前计时器和在途查询，调用方需持有锁
func (t *Typeahead) supersede() {
	t.seq++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Typeahead) fire(seq uint64, query string) {
	t.mu.Lock()
	if seq != t.seq || t.closed {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.timer = nil
	t.mu.Unlock()

	cities, err := t.searcher.Search(ctx, query)
	cancel()

	t.deliver.Lock()
	defer t.deliver.Unlock()

	t.mu.Lock()
	if seq != t.seq || t.closed {
		t.mu.Unlock()
		return
	}
	t.cancel = nil
	t.mu.Unlock()

	if err != nil {
		cities = []models.City{}
	}
	t.onResult(Result{Query: query, Cities: cities, Err: err})
}

package cities

import (
	"context"
	"sync"
	"testing"
	"time"

	"improbable-love/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSearcher 每次查询都会阻塞，直到测试放行对应查询词
type blockingSearcher struct {
	mu       sync.Mutex
	started  chan string
	release  map[string]chan struct{}
	canceled map[string]bool
}

func newBlockingSearcher() *blockingSearcher {
	return &blockingSearcher{
		started:  make(chan string, 10),
		release:  map[string]chan struct{}{},
		canceled: map[string]bool{},
	}
}

func (b *blockingSearcher) gate(query string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.release[query]
	if !ok {
		ch = make(chan struct{})
		b.release[query] = ch
	}
	return ch
}

func (b *blockingSearcher) Search(ctx context.Context, query string) ([]models.City, error) {
	gate := b.gate(query)
	b.started <- query
	select {
	case <-gate:
	case <-ctx.Done():
		b.mu.Lock()
		b.canceled[query] = true
		b.mu.Unlock()
		<-gate
	}
	return []models.City{{Name: query, Country: "GB"}}, nil
}

func (b *blockingSearcher) wasCanceled(query string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canceled[query]
}

type resultRecorder struct {
	mu      sync.Mutex
	results []Result
	got     chan struct{}
}

func newResultRecorder() *resultRecorder {
	return &resultRecorder{got: make(chan struct{}, 10)}
}

func (r *resultRecorder) record(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *resultRecorder) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func waitStarted(t *testing.T, s *blockingSearcher) string {
	t.Helper()
	select {
	case q := <-s.started:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("search never started")
		return ""
	}
}

func TestTypeahead_Debounce(t *testing.T) {
	searcher := newBlockingSearcher()
	recorder := newResultRecorder()
	ta := NewTypeahead(searcher, 30*time.Millisecond, recorder.record)
	defer ta.Close()

	ta.Input("l")
	ta.Input("lo")
	ta.Input("lon")

	assert.Equal(t, "lon", waitStarted(t, searcher))
	close(searcher.gate("lon"))

	select {
	case <-recorder.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	results := recorder.all()
	require.Len(t, results, 1)
	assert.Equal(t, "lon", results[0].Query)

	select {
	case q := <-searcher.started:
		t.Fatalf("unexpected extra search %q", q)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTypeahead_NewInputCancelsInFlight(t *testing.T) {
	searcher := newBlockingSearcher()
	recorder := newResultRecorder()
	ta := NewTypeahead(searcher, 10*time.Millisecond, recorder.record)
	defer ta.Close()

	ta.Input("lon")
	require.Equal(t, "lon", waitStarted(t, searcher))

	ta.Input("london")
	require.Equal(t, "london", waitStarted(t, searcher))
	assert.Eventually(t, func() bool { return searcher.wasCanceled("lon") }, time.Second, 5*time.Millisecond)

	// 旧查询晚于新查询返回也不能覆盖结果
	close(searcher.gate("london"))
	<-recorder.got
	close(searcher.gate("lon"))

	time.Sleep(50 * time.Millisecond)
	results := recorder.all()
	require.Len(t, results, 1)
	assert.Equal(t, "london", results[0].Query)
	assert.Equal(t, "london", results[0].Cities[0].Name)
}

func TestTypeahead_CloseDropsPending(t *testing.T) {
	searcher := newBlockingSearcher()
	recorder := newResultRecorder()
	ta := NewTypeahead(searcher, 10*time.Millisecond, recorder.record)

	ta.Input("paris")
	require.Equal(t, "paris", waitStarted(t, searcher))
	ta.Close()
	assert.Eventually(t, func() bool { return searcher.wasCanceled("paris") }, time.Second, 5*time.Millisecond)
	close(searcher.gate("paris"))

	ta.Input("rome")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, recorder.all())
}

type instantSearcher struct{}

func (instantSearcher) Search(_ context.Context, query string) ([]models.City, error) {
	return []models.City{{Name: query, Country: "FR"}}, nil
}

func TestTypeahead_SlowCallbackDoesNotBlockInput(t *testing.T) {
	entered := make(chan string, 10)
	release := make(chan struct{})
	ta := NewTypeahead(instantSearcher{}, 10*time.Millisecond, func(res Result) {
		entered <- res.Query
		<-release
	})

	ta.Input("nice")
	select {
	case q := <-entered:
		assert.Equal(t, "nice", q)
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	// 回调仍阻塞时，新输入应立即返回
	done := make(chan struct{})
	go func() {
		ta.Input("nantes")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Input blocked behind a running callback")
	}

	close(release)
	select {
	case q := <-entered:
		assert.Equal(t, "nantes", q)
	case <-time.After(2 * time.Second):
		t.Fatal("second result never delivered")
	}
	ta.Close()
}

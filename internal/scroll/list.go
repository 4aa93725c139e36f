// Package scroll drives an infinite list: the first page is fetched on mount,
// later pages when the client reports that the end of the list is visible.
// Loaded pages live in the shared query cache; the next page number lives in a
// PageCounter so it survives between requests of the same session.
package scroll

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/internal/query"
	"github.com/bwise1/bookgroups/pkg/logger"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle         State = "idle"
	StateLoadingFirst State = "loading-first-page"
	StateHasResults   State = "has-results"
	StateEmpty        State = "empty"
	StateLoadingNext  State = "loading-next-page"
	StateExhausted    State = "exhausted"
	StateFailed       State = "failed"
)

// FetchFunc loads one page of results. keyword is empty for lists that do not
// search.
type FetchFunc[T any] func(ctx context.Context, keyword string, page int) (model.Page[T], error)

// PageCounter holds the number of the next page to request. Page numbers
// start at 1.
type PageCounter interface {
	Page() int
	SetPage(n int)
}

type List[T any] struct {
	mu sync.Mutex

	name    string
	path    string
	cache   *query.Client
	fetch   FetchFunc[T]
	counter PageCounter

	requireKeyword bool
	keyword        string

	state    State
	retry    State
	err      error
	inFlight bool
	gen      uint64
}

type Option func(*listOptions)

type listOptions struct {
	requireKeyword bool
	keyword        string
}

// RequireKeyword keeps the list idle until a non-empty keyword is set.
func RequireKeyword() Option {
	return func(o *listOptions) { o.requireKeyword = true }
}

// WithKeyword sets the initial keyword without resetting the counter.
func WithKeyword(keyword string) Option {
	return func(o *listOptions) { o.keyword = strings.TrimSpace(keyword) }
}

// NewList binds a list named name at path to cache. The list starts idle;
// call Load to mount it.
func NewList[T any](name, path string, cache *query.Client, counter PageCounter, fetch FetchFunc[T], opts ...Option) *List[T] {
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}
	if counter == nil {
		counter = NewCounter()
	}
	return &List[T]{
		name:           name,
		path:           path,
		cache:          cache,
		fetch:          fetch,
		counter:        counter,
		requireKeyword: o.requireKeyword,
		keyword:        o.keyword,
		state:          StateIdle,
		retry:          StateIdle,
	}
}

// Key is the cache key of the current keyword.
func (l *List[T]) Key() query.Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key()
}

func (l *List[T]) key() query.Key {
	return query.Key{l.name, "search", "result", "list", l.keyword, l.path}
}

func (l *List[T]) Keyword() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keyword
}

// SetKeyword switches the list to keyword. On a change the counter is reset
// to 1 and the list returns to idle; a fetch still running for the old
// keyword is dropped when it completes. It reports whether the keyword
// changed.
func (l *List[T]) SetKeyword(keyword string) bool {
	keyword = strings.TrimSpace(keyword)

	l.mu.Lock()
	defer l.mu.Unlock()

	if keyword == l.keyword {
		return false
	}
	l.keyword = keyword
	l.gen++
	l.counter.SetPage(1)
	l.state = StateIdle
	l.retry = StateIdle
	l.err = nil
	l.inFlight = false
	return true
}

// Load mounts the list. Cached pages are reused without a network call and
// the counter is moved past them; otherwise the first page is fetched.
func (l *List[T]) Load(ctx context.Context) error {
	l.mu.Lock()

	if l.inFlight || (l.requireKeyword && l.keyword == "") {
		l.mu.Unlock()
		return nil
	}

	if pages, ok := query.GetQueryData[[]model.Page[T]](l.cache, l.key()); ok && len(pages) > 0 {
		l.counter.SetPage(len(pages) + 1)
		l.state = stateOf(pages)
		l.err = nil
		l.mu.Unlock()
		return nil
	}

	l.counter.SetPage(1)
	_, err := l.load(ctx, 1, StateLoadingFirst, StateIdle)
	return err
}

// LoadNext returns the page the counter points at, the next page this
// session has not seen yet. A page already in the shared cache is served from
// it; otherwise it is fetched, with concurrent fetches of the same page
// sharing one upstream call. Nothing is returned after the end of the list or
// while a fetch of this list is in flight. ok reports whether a page was
// returned or a request made.
func (l *List[T]) LoadNext(ctx context.Context) (page model.Page[T], ok bool, err error) {
	l.mu.Lock()

	if l.inFlight || l.state == StateEmpty || l.state == StateExhausted ||
		(l.requireKeyword && l.keyword == "") {
		l.mu.Unlock()
		return page, false, nil
	}

	n := l.counter.Page()
	pages, _ := query.GetQueryData[[]model.Page[T]](l.cache, l.key())
	if n > 1 && len(pages) >= n-1 {
		if prev := pages[n-2]; prev.IsEnd || len(prev.Documents) == 0 {
			l.state = stateOf(pages[:n-1])
			l.mu.Unlock()
			return page, false, nil
		}
	}
	if len(pages) >= n {
		l.counter.SetPage(n + 1)
		l.state = stateOf(pages[:n])
		l.err = nil
		l.mu.Unlock()
		return pages[n-1], true, nil
	}

	loading := StateLoadingNext
	if n == 1 {
		loading = StateLoadingFirst
	}
	retry := l.state
	if retry == StateFailed {
		retry = l.retry
	}
	page, err = l.load(ctx, n, loading, retry)
	return page, true, err
}

// load is entered with l.mu held and releases it. It returns the fetched
// page; the page is appended to the cache only when it directly follows the
// cached ones.
func (l *List[T]) load(ctx context.Context, page int, loading, retry State) (model.Page[T], error) {
	l.state = loading
	l.inFlight = true
	gen := l.gen
	key := l.key()
	keyword := l.keyword
	l.mu.Unlock()

	pageKey := append(append(query.Key{}, key...), strconv.Itoa(page))
	p, err := query.Do(ctx, l.cache, pageKey, func(ctx context.Context) (model.Page[T], error) {
		return l.fetch(ctx, keyword, page)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		logger.FromContext(ctx).Debug("dropping page of previous keyword",
			zap.String("key", key.String()), zap.Int("page", page))
		return model.Page[T]{}, nil
	}
	l.inFlight = false

	if err != nil {
		l.state = StateFailed
		l.retry = retry
		l.err = err
		return model.Page[T]{}, err
	}

	pages, stored := query.UpdateQueryData(l.cache, key, func(old []model.Page[T], _ bool) ([]model.Page[T], bool) {
		if len(old) != page-1 {
			return old, false
		}
		next := make([]model.Page[T], 0, len(old)+1)
		next = append(next, old...)
		return append(next, p), true
	})

	l.counter.SetPage(page + 1)
	switch {
	case stored:
		l.state = stateOf(pages)
	case len(pages) >= page:
		l.state = stateOf(pages[:page])
	default:
		// the cached sequence was evicted or is behind this session
		logger.FromContext(ctx).Debug("page not cached",
			zap.String("key", key.String()), zap.Int("page", page))
		l.state = stateOf([]model.Page[T]{p})
		if l.state == StateEmpty && page > 1 {
			l.state = StateExhausted
		}
	}
	l.retry = StateIdle
	l.err = nil
	return p, nil
}

// Pages returns the cached pages of the current keyword in order.
func (l *List[T]) Pages() []model.Page[T] {
	l.mu.Lock()
	key := l.key()
	l.mu.Unlock()

	pages, _ := query.GetQueryData[[]model.Page[T]](l.cache, key)
	return pages
}

// Items returns every loaded document in page order.
func (l *List[T]) Items() []T {
	return model.Flatten(l.Pages())
}

func (l *List[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err is the error of the last failed fetch, nil otherwise.
func (l *List[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// HasNextPage reports whether the list continues after the cached pages.
func (l *List[T]) HasNextPage() bool {
	l.mu.Lock()
	st := l.state
	if st == StateFailed {
		st = l.retry
	}
	l.mu.Unlock()

	if st != StateHasResults {
		return false
	}
	pages := l.Pages()
	return len(pages) > 0 && !pages[len(pages)-1].IsEnd
}

func stateOf[T any](pages []model.Page[T]) State {
	switch {
	case len(pages) == 0:
		return StateIdle
	case len(pages) == 1 && len(pages[0].Documents) == 0:
		return StateEmpty
	case pages[len(pages)-1].IsEnd:
		return StateExhausted
	default:
		return StateHasResults
	}
}

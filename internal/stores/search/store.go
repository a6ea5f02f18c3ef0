// Package search coordinates the search box: debounce, a single cancellable
// in-flight request, grouped results and keyboard navigation.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
	"whiterabbit/internal/eventbus"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLimit    = 10
)

// Options configures a Store
type Options struct {
	Debounce time.Duration
	Limit    int
	Logger   *zap.Logger
	Bus      eventbus.EventBus
	// OnChange is called after every transition, outside the store lock
	OnChange func(State)
}

// Store is the search coordination store. It is safe for concurrent use.
//
// Only the most recently issued request may change results or error state:
// issuing a request cancels the previous one, and a request whose
// generation is stale when it settles is discarded.
type Store struct {
	mu       sync.Mutex
	searcher Searcher
	debounce time.Duration
	limit    int
	logger   *zap.Logger
	bus      eventbus.EventBus
	onChange func(State)
	after    afterFunc

	state    State
	timer    timer
	timerSeq uint64
	reqSeq   uint64
	cancel   context.CancelFunc

	ctx      context.Context
	stop     context.CancelFunc
	closed   bool
	inFlight sync.WaitGroup
}

// New creates a store that searches through searcher
func New(searcher Searcher, opts Options) *Store {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Store{
		searcher: searcher,
		debounce: opts.Debounce,
		limit:    opts.Limit,
		logger:   opts.Logger.Named("search"),
		bus:      opts.Bus,
		onChange: opts.OnChange,
		after: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		state: State{ActiveIndex: -1},
		ctx:   ctx,
		stop:  stop,
	}
}

// FromClient adapts the API client to a Searcher
func FromClient(c *apiclient.Client) Searcher {
	return SearcherFunc(func(ctx context.Context, query string, limit int) ([]domain.ResultItem, error) {
		resp, err := c.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		return resp.Results, nil
	})
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetQuery records new input. A blank query resets the store to idle;
// anything else (re)starts the debounce timer and supersedes any request
// issued for an older query.
func (s *Store) SetQuery(query string) {
	s.mu.Lock()
	if s.closed || query == s.state.Query {
		s.mu.Unlock()
		return
	}

	s.state.Query = query
	if strings.TrimSpace(query) == "" {
		s.resetLocked()
		snap := s.bumpLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	s.stopTimerLocked()
	s.supersedeLocked()
	s.state.Phase = PhaseDebouncing
	s.state.ActiveIndex = -1

	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.after(s.debounce, func() { s.fire(seq) })

	snap := s.bumpLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Flush fires a pending debounce immediately
func (s *Store) Flush() {
	s.mu.Lock()
	if s.state.Phase != PhaseDebouncing {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	seq := s.timerSeq
	s.mu.Unlock()

	s.fire(seq)
}

// fire moves debouncing to fetching if seq still names the latest timer
func (s *Store) fire(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.timerSeq || s.state.Phase != PhaseDebouncing {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.supersedeLocked()

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	req := s.reqSeq
	query := strings.TrimSpace(s.state.Query)
	s.state.Phase = PhaseFetching

	s.inFlight.Add(1)
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.logger.Debug("issuing search", zap.String("query", query), zap.Uint64("request", req))
	s.notify(snap)

	go s.run(ctx, req, query)
}

func (s *Store) run(ctx context.Context, req uint64, query string) {
	defer s.inFlight.Done()

	items, err := s.searcher.Search(ctx, query, s.limit)

	s.mu.Lock()
	if req != s.reqSeq || ctx.Err() != nil || errors.Is(err, context.Canceled) {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded search", zap.String("query", query), zap.Uint64("request", req))
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	settled := domain.SearchSettledEvent{Query: query}
	if err != nil {
		s.state.Phase = PhaseSettledError
		s.state.Error = userMessage(err)
		s.state.Results = nil
		s.state.ActiveIndex = -1
		s.state.Open = true
		settled.Err = s.state.Error
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
	} else {
		s.state.Phase = PhaseSettledOK
		s.state.Error = ""
		s.state.Results = OrderResults(items)
		s.state.ActiveIndex = -1
		s.state.Open = true
		settled.ResultCount = len(s.state.Results)
	}
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.publish(settled)
}

// Next highlights the following result, wrapping to the first
func (s *Store) Next() {
	s.navigate(func(i, n int) int { return (i + 1) % n })
}

// Previous highlights the preceding result, wrapping to the last
func (s *Store) Previous() {
	s.navigate(func(i, n int) int {
		if i <= 0 {
			return n - 1
		}
		return i - 1
	})
}

func (s *Store) navigate(step func(i, n int) int) {
	s.mu.Lock()
	n := len(s.state.Results)
	if s.state.Phase != PhaseSettledOK || n == 0 {
		s.mu.Unlock()
		return
	}
	s.state.ActiveIndex = step(s.state.ActiveIndex, n)
	s.state.Open = true
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetActive highlights index directly, e.g. from a mouse hover.
// Out-of-range values clear the highlight.
func (s *Store) SetActive(index int) {
	s.mu.Lock()
	if s.state.Phase != PhaseSettledOK {
		s.mu.Unlock()
		return
	}
	if index < 0 || index >= len(s.state.Results) {
		index = -1
	}
	s.state.ActiveIndex = index
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SelectCurrent returns the highlighted item and resets the query and
// dropdown. It returns false when nothing is highlighted.
func (s *Store) SelectCurrent() (domain.ResultItem, bool) {
	s.mu.Lock()
	item, ok := s.state.Active()
	if !ok {
		s.mu.Unlock()
		return domain.ResultItem{}, false
	}
	s.state.Query = ""
	s.resetLocked()
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.publish(domain.ResultSelectedEvent{Item: item})
	return item, true
}

// SetOpen shows or hides the dropdown without touching results
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	if open && len(s.state.Results) == 0 && s.state.Error == "" {
		open = false
	}
	if s.state.Open == open {
		s.mu.Unlock()
		return
	}
	s.state.Open = open
	snap := s.bumpLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Close cancels any pending timer and in-flight request and waits for
// request goroutines to exit. The store ignores input afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.supersedeLocked()
	s.stop()
	s.mu.Unlock()

	s.inFlight.Wait()
}

// resetLocked returns to idle, cancelling timer and request
func (s *Store) resetLocked() {
	s.stopTimerLocked()
	s.supersedeLocked()
	s.state.Phase = PhaseIdle
	s.state.Results = nil
	s.state.ActiveIndex = -1
	s.state.Open = false
	s.state.Error = ""
}

// supersedeLocked cancels the in-flight request and invalidates its generation
func (s *Store) supersedeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.reqSeq++
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// a timer that already fired will see a stale seq
	s.timerSeq++
}

func (s *Store) bumpLocked() State {
	s.state.Version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	snap := s.state
	if s.state.Results != nil {
		snap.Results = make([]domain.ResultItem, len(s.state.Results))
		copy(snap.Results, s.state.Results)
	}
	return snap
}

func (s *Store) notify(snap State) {
	if s.onChange != nil {
		s.onChange(snap)
	}
	s.publish(domain.SearchChangedEvent{
		Version: snap.Version,
		Phase:   snap.Phase.String(),
		Query:   snap.Query,
	})
}

func (s *Store) publish(event domain.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// userMessage turns a search failure into text for the dropdown
func userMessage(err error) string {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		if apiErr.StatusCode == 0 {
			return "Search is unavailable. Check your connection and try again."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Search failed"
}

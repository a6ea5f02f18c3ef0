package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeClock hands out timers that only fire when the test says so
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) after(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fire runs the most recent timer, as if it elapsed
func (c *fakeClock) fire() {
	c.timer(c.count() - 1).f()
}

type reply struct {
	items []domain.ResultItem
	err   error
}

type call struct {
	ctx   context.Context
	query string
	limit int
	reply chan reply
}

// fakeSearcher blocks each request until the test replies. It deliberately
// ignores ctx so late settlement of cancelled requests can be simulated.
type fakeSearcher struct {
	calls chan *call
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{calls: make(chan *call, 8)}
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]domain.ResultItem, error) {
	c := &call{ctx: ctx, query: query, limit: limit, reply: make(chan reply, 1)}
	f.calls <- c
	r := <-c.reply
	return r.items, r.err
}

func (f *fakeSearcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a search request")
		return nil
	}
}

func (f *fakeSearcher) requireNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected search request for %q", c.query)
	case <-time.After(20 * time.Millisecond):
	}
}

func newTestStore(t *testing.T) (*Store, *fakeClock, *fakeSearcher) {
	t.Helper()
	fs := newFakeSearcher()
	clock := &fakeClock{}
	st := New(fs, Options{Debounce: 300 * time.Millisecond, Limit: 7})
	st.after = clock.after
	t.Cleanup(st.Close)
	return st, clock, fs
}

func waitPhase(t *testing.T, st *Store, phase Phase) State {
	t.Helper()
	require.Eventually(t, func() bool {
		return st.Snapshot().Phase == phase
	}, time.Second, 2*time.Millisecond, "store never reached %s", phase)
	return st.Snapshot()
}

func item(id string, c domain.Category) domain.ResultItem {
	return domain.ResultItem{ID: id, Category: c, Text: id, Score: 0.5}
}

// settle drives the store through one full request for query
func settle(t *testing.T, st *Store, clock *fakeClock, fs *fakeSearcher, query string, items ...domain.ResultItem) State {
	t.Helper()
	st.SetQuery(query)
	clock.fire()
	c := fs.next(t)
	require.Equal(t, query, c.query)
	c.reply <- reply{items: items}
	return waitPhase(t, st, PhaseSettledOK)
}

func TestQueryChangeStartsDebounce(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("atl")
	snap := st.Snapshot()
	assert.Equal(t, PhaseDebouncing, snap.Phase)
	require.Equal(t, 1, clock.count())
	assert.Equal(t, 300*time.Millisecond, clock.timer(0).d)
	fs.requireNoCall(t)

	clock.fire()
	c := fs.next(t)
	assert.Equal(t, "atl", c.query)
	assert.Equal(t, 7, c.limit)
	assert.Equal(t, PhaseFetching, st.Snapshot().Phase)
	c.reply <- reply{}
}

func TestQueryChangeRestartsTimer(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("a")
	st.SetQuery("at")
	require.Equal(t, 2, clock.count())
	assert.True(t, clock.timer(0).stopped)

	// a stale timer that raced past Stop must not issue a request
	clock.timer(0).f()
	fs.requireNoCall(t)

	clock.fire()
	c := fs.next(t)
	assert.Equal(t, "at", c.query)
	c.reply <- reply{}
}

func TestBlankQueryReturnsToIdle(t *testing.T) {
	st, clock, fs := newTestStore(t)

	settle(t, st, clock, fs, "bermuda", item("m-1", domain.CategoryMystery))

	st.SetQuery("   ")
	snap := st.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Results)
	assert.False(t, snap.Open)
	assert.Equal(t, -1, snap.ActiveIndex)
	fs.requireNoCall(t)
}

func TestBlankQueryCancelsPendingTimerAndRequest(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("a")
	clock.fire()
	c := fs.next(t)

	st.SetQuery("")
	require.Error(t, c.ctx.Err(), "in-flight request should be cancelled")

	// cancellation surfacing as an error must be ignored
	c.reply <- reply{err: context.Canceled}
	st.Close()

	snap := st.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Error)
}

func TestLastIssuedWinsRegardlessOfCompletionOrder(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("a")
	clock.fire()
	first := fs.next(t)

	st.SetQuery("ab")
	clock.fire()
	second := fs.next(t)
	require.Error(t, first.ctx.Err(), "superseded request should be cancelled")

	second.reply <- reply{items: []domain.ResultItem{item("m-ab", domain.CategoryMystery)}}
	waitPhase(t, st, PhaseSettledOK)

	// "a" resolves late, successfully
	first.reply <- reply{items: []domain.ResultItem{item("m-a", domain.CategoryMystery)}}
	st.Close()

	snap := st.Snapshot()
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "m-ab", snap.Results[0].ID)
	assert.Equal(t, "ab", snap.Query)
}

func TestSupersededFailureDoesNotSetError(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("a")
	clock.fire()
	first := fs.next(t)

	st.SetQuery("ab")
	clock.fire()
	second := fs.next(t)

	second.reply <- reply{items: []domain.ResultItem{item("m-ab", domain.CategoryMystery)}}
	waitPhase(t, st, PhaseSettledOK)

	first.reply <- reply{err: &apiclient.APIError{StatusCode: 500, Message: "late failure"}}
	st.Close()

	snap := st.Snapshot()
	assert.Equal(t, PhaseSettledOK, snap.Phase)
	assert.Empty(t, snap.Error)
}

func TestQueryChangeWhileFetchingCancelsRequest(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("a")
	clock.fire()
	c := fs.next(t)

	st.SetQuery("ab")
	require.Error(t, c.ctx.Err())
	assert.Equal(t, PhaseDebouncing, st.Snapshot().Phase)

	c.reply <- reply{items: []domain.ResultItem{item("m-a", domain.CategoryMystery)}}
	fs.requireNoCall(t)
	assert.Equal(t, PhaseDebouncing, st.Snapshot().Phase)
	assert.Empty(t, st.Snapshot().Results)
}

func TestFailureSettlesWithMessage(t *testing.T) {
	st, clock, fs := newTestStore(t)

	settle(t, st, clock, fs, "old", item("m-1", domain.CategoryMystery))

	st.SetQuery("broken")
	clock.fire()
	c := fs.next(t)
	c.reply <- reply{err: &apiclient.APIError{
		Kind:       apiclient.KindDatabaseQuery,
		StatusCode: 500,
		Message:    "Database query failed",
	}}

	snap := waitPhase(t, st, PhaseSettledError)
	assert.Equal(t, "Database query failed", snap.Error)
	assert.Empty(t, snap.Results)
}

func TestNetworkFailureMessage(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("offline")
	clock.fire()
	c := fs.next(t)
	c.reply <- reply{err: &apiclient.APIError{Name: apiclient.NetworkErrorName, Message: "dial tcp: refused"}}

	snap := waitPhase(t, st, PhaseSettledError)
	assert.Contains(t, snap.Error, "unavailable")
}

func TestResultsAreGroupedAndIndexReset(t *testing.T) {
	st, clock, fs := newTestStore(t)

	snap := settle(t, st, clock, fs, "ancient",
		item("c-1", domain.CategoryCategory),
		item("m-1", domain.CategoryMystery),
		item("tp-1", domain.CategoryTimePeriod),
		item("l-1", domain.CategoryLocation),
		item("m-2", domain.CategoryMystery),
	)
	assert.True(t, snap.Open)
	assert.Equal(t, -1, snap.ActiveIndex)

	var ids []string
	for _, r := range snap.Results {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"m-1", "m-2", "l-1", "tp-1", "c-1"}, ids)

	st.Next()
	st.Next()
	require.Equal(t, 1, st.Snapshot().ActiveIndex)

	snap = settle(t, st, clock, fs, "ancient egypt", item("l-2", domain.CategoryLocation))
	assert.Equal(t, -1, snap.ActiveIndex)
}

func TestNavigationWraps(t *testing.T) {
	st, clock, fs := newTestStore(t)

	settle(t, st, clock, fs, "x",
		item("m-1", domain.CategoryMystery),
		item("m-2", domain.CategoryMystery),
		item("l-1", domain.CategoryLocation),
	)

	st.Previous()
	assert.Equal(t, 2, st.Snapshot().ActiveIndex, "previous from nothing goes to last")

	st.Next()
	assert.Equal(t, 0, st.Snapshot().ActiveIndex, "next from last wraps to first")

	st.Previous()
	assert.Equal(t, 2, st.Snapshot().ActiveIndex, "previous from first wraps to last")

	st.Next()
	st.Next()
	assert.Equal(t, 1, st.Snapshot().ActiveIndex)
}

func TestNavigationOnEmptyResultsIsNoop(t *testing.T) {
	st, clock, fs := newTestStore(t)

	before := settle(t, st, clock, fs, "nothing")
	st.Next()
	st.Previous()

	after := st.Snapshot()
	assert.Equal(t, -1, after.ActiveIndex)
	assert.Equal(t, before.Version, after.Version)
}

func TestNavigationOutsideSettledOKIsNoop(t *testing.T) {
	st, _, _ := newTestStore(t)

	st.SetQuery("typing")
	st.Next()
	assert.Equal(t, -1, st.Snapshot().ActiveIndex)
}

func TestSelectCurrent(t *testing.T) {
	st, clock, fs := newTestStore(t)

	settle(t, st, clock, fs, "bermuda",
		item("m-1", domain.CategoryMystery),
		item("l-1", domain.CategoryLocation),
	)

	_, ok := st.SelectCurrent()
	assert.False(t, ok, "nothing highlighted yet")
	assert.True(t, st.Snapshot().Open)

	st.Next()
	st.Next()
	got, ok := st.SelectCurrent()
	require.True(t, ok)
	assert.Equal(t, "l-1", got.ID)

	snap := st.Snapshot()
	assert.Empty(t, snap.Query)
	assert.False(t, snap.Open)
	assert.Equal(t, -1, snap.ActiveIndex)
}

func TestSetOpen(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetOpen(true)
	assert.False(t, st.Snapshot().Open, "nothing to show")

	settle(t, st, clock, fs, "q", item("m-1", domain.CategoryMystery))
	st.SetOpen(false)
	assert.False(t, st.Snapshot().Open)
	assert.Len(t, st.Snapshot().Results, 1)
	st.SetOpen(true)
	assert.True(t, st.Snapshot().Open)
}

func TestFlushSkipsDebounce(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("now")
	st.Flush()
	c := fs.next(t)
	assert.Equal(t, "now", c.query)
	assert.True(t, clock.timer(0).stopped)

	// the stopped timer firing late is harmless
	clock.fire()
	fs.requireNoCall(t)
	c.reply <- reply{}
	waitPhase(t, st, PhaseSettledOK)
}

func TestQueryIsTrimmedForRequest(t *testing.T) {
	st, clock, fs := newTestStore(t)

	st.SetQuery("  loch ness  ")
	clock.fire()
	c := fs.next(t)
	assert.Equal(t, "loch ness", c.query)
	c.reply <- reply{}
}

func TestOnChangeReceivesIncreasingVersions(t *testing.T) {
	fs := newFakeSearcher()
	var mu sync.Mutex
	var versions []uint64
	st := New(fs, Options{
		Debounce: 5 * time.Millisecond,
		OnChange: func(s State) {
			mu.Lock()
			versions = append(versions, s.Version)
			mu.Unlock()
		},
	})
	defer st.Close()

	// real timer
	st.SetQuery("yeti")
	c := fs.next(t)
	c.reply <- reply{items: []domain.ResultItem{item("m-yeti", domain.CategoryMystery)}}
	waitPhase(t, st, PhaseSettledOK)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(versions), 3)
	seen := map[uint64]bool{}
	for _, v := range versions {
		assert.False(t, seen[v], "version %d reported twice", v)
		seen[v] = true
	}
	assert.True(t, seen[st.Snapshot().Version])
}

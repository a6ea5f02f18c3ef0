// Package detail caches fetched mystery records by id.
package detail

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
	"whiterabbit/internal/eventbus"
)

// NotFoundMessage is shown when the backend has no mystery for an id
const NotFoundMessage = "Mystery not found"

// Fetcher loads one mystery
type Fetcher interface {
	GetMystery(ctx context.Context, id string) (*domain.MysteryDetail, error)
}

// DefaultTimeout bounds one shared fetch
const DefaultTimeout = 10 * time.Second

// State is what the detail panel renders. ID is the most recently
// requested id; Loading stays set while any fetch is pending.
type State struct {
	ID      string
	Current *domain.MysteryDetail
	Loading bool
	Error   string
}

// Options configures a Store
type Options struct {
	// Timeout bounds each shared fetch; zero means DefaultTimeout
	Timeout  time.Duration
	Logger   *zap.Logger
	Bus      eventbus.EventBus
	OnChange func(State)
}

// Store caches mystery details. Entries are written once per id and never
// invalidated; concurrent fetches of one id share a single request.
type Store struct {
	mu       sync.Mutex
	fetcher  Fetcher
	group    singleflight.Group
	cache    map[string]*domain.MysteryDetail
	state    State
	pending  int
	timeout  time.Duration
	logger   *zap.Logger
	bus      eventbus.EventBus
	onChange func(State)
}

// New creates an empty store
func New(fetcher Fetcher, opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		fetcher:  fetcher,
		timeout:  opts.Timeout,
		cache:    make(map[string]*domain.MysteryDetail),
		logger:   opts.Logger.Named("detail"),
		bus:      opts.Bus,
		onChange: opts.OnChange,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cached returns the cached record for id without touching the network
func (s *Store) Cached(id string) (*domain.MysteryDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.cache[id]
	return d, ok
}

// Get returns the mystery for id, from cache when possible. Only the most
// recently requested id becomes State.Current.
//
// Concurrent callers for one id share a single fetch. The fetch is detached
// from any one caller and bounded by the store timeout; each caller stops
// waiting when its own ctx is done.
func (s *Store) Get(ctx context.Context, id string) (*domain.MysteryDetail, error) {
	s.mu.Lock()
	s.state.ID = id
	if d, ok := s.cache[id]; ok {
		s.state.Current = d
		s.state.Error = ""
		snap := s.state
		s.mu.Unlock()

		s.notify(snap)
		s.publish(domain.DetailLoadedEvent{ID: id, Cached: true})
		return d, nil
	}
	s.pending++
	s.state.Loading = true
	s.state.Error = ""
	snap := s.state
	s.mu.Unlock()

	s.notify(snap)
	s.publish(domain.DetailLoadingEvent{ID: id})

	var (
		v         any
		err       error
		shared    bool
		abandoned bool
	)
	ch := s.group.DoChan(id, func() (any, error) {
		return s.load(ctx, id)
	})
	select {
	case res := <-ch:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
		abandoned = true
	}

	s.mu.Lock()
	s.pending--
	s.state.Loading = s.pending > 0
	latest := s.state.ID == id
	var detail *domain.MysteryDetail
	var msg string
	switch {
	case err == nil:
		detail = v.(*domain.MysteryDetail)
		if latest {
			s.state.Current = detail
			s.state.Error = ""
		}
	case abandoned, errors.Is(err, context.Canceled):
	default:
		msg = Message(err)
		if latest {
			s.state.Current = nil
			s.state.Error = msg
		}
	}
	snap = s.state
	s.mu.Unlock()

	s.notify(snap)
	switch {
	case err == nil:
		s.logger.Debug("loaded mystery", zap.String("id", id), zap.Bool("shared", shared))
		s.publish(domain.DetailLoadedEvent{ID: id})
	case msg != "":
		s.logger.Warn("mystery fetch failed", zap.String("id", id), zap.Error(err))
		s.publish(domain.DetailFailedEvent{ID: id, Message: msg})
	}
	return detail, err
}

// load runs one shared fetch. A flight that finished between the caller's
// cache miss and this call has already filled the cache.
func (s *Store) load(ctx context.Context, id string) (any, error) {
	s.mu.Lock()
	d, ok := s.cache[id]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	d, err := s.fetcher.GetMystery(fctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[id] = d
	s.mu.Unlock()
	return d, nil
}

// Message turns a fetch failure into the text shown to the user
func Message(err error) string {
	if apiclient.IsNotFound(err) {
		return NotFoundMessage
	}
	if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func (s *Store) notify(snap State) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Store) publish(event domain.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// Package filter lists the mysteries attached to a selected graph node.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
	"whiterabbit/internal/eventbus"
	"whiterabbit/internal/stores/detail"
)

// ErrUnknownNodePrefix is returned for node ids that are not a category,
// location or time period
var ErrUnknownNodePrefix = errors.New("unknown node id prefix")

// Node id prefixes and the list parameter each one filters on
const (
	PrefixCategory   = "c-"
	PrefixLocation   = "l-"
	PrefixTimePeriod = "tp-"
)

// Lister fetches a page of mysteries
type Lister interface {
	ListMysteries(ctx context.Context, p apiclient.ListParams) (*domain.MysteryList, error)
}

// ParamsFor maps a node id onto list parameters
func ParamsFor(nodeID string) (apiclient.ListParams, error) {
	var p apiclient.ListParams
	switch {
	case strings.HasPrefix(nodeID, PrefixCategory):
		p.Category = nodeID
	case strings.HasPrefix(nodeID, PrefixLocation):
		p.Location = nodeID
	case strings.HasPrefix(nodeID, PrefixTimePeriod):
		p.TimePeriod = nodeID
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownNodePrefix, nodeID)
	}
	return p, nil
}

// State is the current filtered list
type State struct {
	NodeID    string
	Mysteries []domain.MysteryListItem
	Total     int
	Loading   bool
	Error     string
}

// Options configures a Store. A zero Limit leaves the page size to the backend.
type Options struct {
	Limit    int
	Logger   *zap.Logger
	Bus      eventbus.EventBus
	OnChange func(State)
}

// Store holds the list for the most recent selection. There is no cache;
// every selection re-fetches, and a newer selection cancels an older one.
type Store struct {
	mu       sync.Mutex
	lister   Lister
	limit    int
	state    State
	seq      uint64
	cancel   context.CancelFunc
	logger   *zap.Logger
	bus      eventbus.EventBus
	onChange func(State)
}

// New creates a store with no selection
func New(lister Lister, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		lister:   lister,
		limit:    opts.Limit,
		logger:   opts.Logger.Named("filter"),
		bus:      opts.Bus,
		onChange: opts.OnChange,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Mysteries = append([]domain.MysteryListItem(nil), s.state.Mysteries...)
	return snap
}

// Select fetches the mysteries for nodeID and replaces the list
func (s *Store) Select(ctx context.Context, nodeID string) error {
	params, err := ParamsFor(nodeID)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	seq := s.seq
	s.state.NodeID = nodeID

	if err != nil {
		s.state.Loading = false
		s.state.Error = err.Error()
		snap := s.state
		s.mu.Unlock()

		s.notify(snap)
		s.publish(domain.FilterFailedEvent{NodeID: nodeID, Message: snap.Error})
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.state.Loading = true
	s.state.Error = ""
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)

	params.Limit = s.limit
	list, err := s.lister.ListMysteries(ctx, params)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded filter", zap.String("node", nodeID))
		return context.Canceled
	}
	s.cancel = nil
	s.state.Loading = false
	switch {
	case err == nil:
		s.state.Mysteries = list.Mysteries
		s.state.Total = list.Total
	case errors.Is(err, context.Canceled):
	default:
		s.state.Error = detail.Message(err)
	}
	snap = s.state
	s.mu.Unlock()

	s.notify(snap)
	switch {
	case err == nil:
		s.publish(domain.FilterLoadedEvent{NodeID: nodeID, Count: len(list.Mysteries)})
	case snap.Error != "":
		s.logger.Warn("filter fetch failed", zap.String("node", nodeID), zap.Error(err))
		s.publish(domain.FilterFailedEvent{NodeID: nodeID, Message: snap.Error})
	}
	return err
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

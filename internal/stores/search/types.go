package search

import (
	"context"
	"time"

	"whiterabbit/internal/domain"
)

// Phase is a state of the search coordination machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseFetching
	PhaseSettledOK
	PhaseSettledError
)

func (p Phase) String() string {
	switch p {
	case PhaseDebouncing:
		return "debouncing"
	case PhaseFetching:
		return "fetching"
	case PhaseSettledOK:
		return "settled-ok"
	case PhaseSettledError:
		return "settled-error"
	default:
		return "idle"
	}
}

// Searcher performs the actual search request. Implementations must
// honour ctx cancellation.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ResultItem, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query string, limit int) ([]domain.ResultItem, error)

func (f SearcherFunc) Search(ctx context.Context, query string, limit int) ([]domain.ResultItem, error) {
	return f(ctx, query, limit)
}

// State holds search state. Results is stored flat in display order;
// Groups derives the grouped view from it.
type State struct {
	Phase       Phase
	Query       string
	Results     []domain.ResultItem
	ActiveIndex int // -1 when nothing is highlighted
	Open        bool
	Error       string
	Version     uint64
}

// Active returns the highlighted item, if any
func (s State) Active() (domain.ResultItem, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Results) {
		return domain.ResultItem{}, false
	}
	return s.Results[s.ActiveIndex], true
}

// Groups returns the results grouped by category precedence
func (s State) Groups() []Group {
	return GroupResults(s.Results)
}

// timer is the subset of *time.Timer the store needs
type timer interface {
	Stop() bool
}

// afterFunc schedules f after d; it matches time.AfterFunc
type afterFunc func(d time.Duration, f func()) timer

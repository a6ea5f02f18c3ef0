package ui

import (
	"whiterabbit/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event eventbus.DomainEvent
}

// detailDoneMsg is sent when a detail fetch returns
type detailDoneMsg struct {
	id  string
	err error
}

// filterDoneMsg is sent when a filter fetch returns
type filterDoneMsg struct {
	nodeID string
	err    error
}

// quoteDoneMsg is sent when quote generation returns
type quoteDoneMsg struct {
	mysteryID string
	err       error
}

// pagerMsg is sent when the pager exits
type pagerMsg struct {
	err error
}

package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventSearchChanged  EventType = "SearchChanged"
	EventSearchSettled  EventType = "SearchSettled"
	EventResultSelected EventType = "ResultSelected"
	EventDetailLoading  EventType = "DetailLoading"
	EventDetailLoaded   EventType = "DetailLoaded"
	EventDetailFailed   EventType = "DetailFailed"
	EventFilterLoaded   EventType = "FilterLoaded"
	EventFilterFailed   EventType = "FilterFailed"
	EventQuoteReady     EventType = "QuoteReady"
	EventQuoteFailed    EventType = "QuoteFailed"
	EventError          EventType = "Error"
	EventConfigLoaded   EventType = "ConfigLoaded"
	EventConfigSaved    EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// SearchChangedEvent is emitted on every search store transition.
// Version increases monotonically so late subscribers can drop stale copies.
type SearchChangedEvent struct {
	Version uint64
	Phase   string
	Query   string
}

func (e SearchChangedEvent) Type() EventType { return EventSearchChanged }

// SearchSettledEvent is emitted when the latest search request settles
type SearchSettledEvent struct {
	Query       string
	ResultCount int
	Err         string
}

func (e SearchSettledEvent) Type() EventType { return EventSearchSettled }

// ResultSelectedEvent is emitted when the user picks a search result
type ResultSelectedEvent struct {
	Item ResultItem
}

func (e ResultSelectedEvent) Type() EventType { return EventResultSelected }

// DetailLoadingEvent is emitted when a detail fetch starts
type DetailLoadingEvent struct {
	ID string
}

func (e DetailLoadingEvent) Type() EventType { return EventDetailLoading }

// DetailLoadedEvent is emitted when a detail is available, fetched or cached
type DetailLoadedEvent struct {
	ID     string
	Cached bool
}

func (e DetailLoadedEvent) Type() EventType { return EventDetailLoaded }

// DetailFailedEvent is emitted when a detail fetch fails
type DetailFailedEvent struct {
	ID      string
	Message string
}

func (e DetailFailedEvent) Type() EventType { return EventDetailFailed }

// FilterLoadedEvent is emitted when a filtered list replaces the previous one
type FilterLoadedEvent struct {
	NodeID string
	Count  int
}

func (e FilterLoadedEvent) Type() EventType { return EventFilterLoaded }

// FilterFailedEvent is emitted when a filter fetch fails
type FilterFailedEvent struct {
	NodeID  string
	Message string
}

func (e FilterFailedEvent) Type() EventType { return EventFilterFailed }

// QuoteReadyEvent is emitted when quote audio is available
type QuoteReadyEvent struct {
	MysteryID string
	AudioURL  string
	Cached    bool
}

func (e QuoteReadyEvent) Type() EventType { return EventQuoteReady }

// QuoteFailedEvent is emitted when quote generation fails
type QuoteFailedEvent struct {
	MysteryID string
	Message   string
}

func (e QuoteFailedEvent) Type() EventType { return EventQuoteFailed }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path    string
	BaseURL string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }

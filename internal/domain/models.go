package domain

// Category is the node type a search result belongs to.
// The set is closed; CategoryOrder is also the display precedence.
type Category string

const (
	CategoryMystery    Category = "Mystery"
	CategoryLocation   Category = "Location"
	CategoryTimePeriod Category = "TimePeriod"
	CategoryCategory   Category = "Category"
)

// CategoryOrder is the fixed precedence used when grouping search results
var CategoryOrder = []Category{
	CategoryMystery,
	CategoryLocation,
	CategoryTimePeriod,
	CategoryCategory,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return c.Rank() >= 0
}

// Rank returns the position of c in CategoryOrder, or -1 if unknown
func (c Category) Rank() int {
	for i, known := range CategoryOrder {
		if known == c {
			return i
		}
	}
	return -1
}

// ResultItem is a single search hit. Immutable once received.
type ResultItem struct {
	ID       string   `json:"id"`
	Category Category `json:"type"`
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
}

// SearchResponse is the search endpoint payload
type SearchResponse struct {
	Query   string       `json:"query"`
	Total   int          `json:"total"`
	Results []ResultItem `json:"results"`
}

// MysteryStatus is the resolution status of a mystery
type MysteryStatus string

const (
	StatusUnresolved        MysteryStatus = "unresolved"
	StatusResolved          MysteryStatus = "resolved"
	StatusPartiallyResolved MysteryStatus = "partially_resolved"
	StatusDebunked          MysteryStatus = "debunked"
)

// Valid reports whether s is a known status
func (s MysteryStatus) Valid() bool {
	switch s {
	case StatusUnresolved, StatusResolved, StatusPartiallyResolved, StatusDebunked:
		return true
	}
	return false
}

// MysteryListItem is a mystery as it appears in list responses
type MysteryListItem struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Status            MysteryStatus `json:"status"`
	ImageSource       *string       `json:"image_source,omitempty"`
	VideoSource       *string       `json:"video_source,omitempty"`
	ConfidenceScore   *float64      `json:"confidence_score,omitempty"`
	FirstReportedYear *int          `json:"first_reported_year,omitempty"`
	LastReportedYear  *int          `json:"last_reported_year,omitempty"`
}

// MysteryList is a page of mysteries
type MysteryList struct {
	Mysteries []MysteryListItem `json:"mysteries"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// Location is a place associated with a mystery
type Location struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Country   *string  `json:"country,omitempty"`
}

// TimePeriod is an era associated with a mystery
type TimePeriod struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartYear *int   `json:"start_year,omitempty"`
	EndYear   *int   `json:"end_year,omitempty"`
}

// CategoryNode is a category associated with a mystery
type CategoryNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SimilarMystery links to a related mystery
type SimilarMystery struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// MysteryDetail is the fully-fetched mystery record
type MysteryDetail struct {
	MysteryListItem
	Locations        []Location       `json:"locations"`
	TimePeriods      []TimePeriod     `json:"time_periods"`
	Categories       []CategoryNode   `json:"categories"`
	SimilarMysteries []SimilarMystery `json:"similar_mysteries"`
}

// GraphNode is a node in the visualization graph
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       Category       `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphRelationship is an edge in the visualization graph
type GraphRelationship struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Graph is the graph endpoint payload
type Graph struct {
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
	Metadata      map[string]int      `json:"metadata"`
}

// GenericNode is a node returned by the by-type endpoint
type GenericNode struct {
	ID         string         `json:"id"`
	Type       Category       `json:"type"`
	Properties map[string]any `json:"properties"`
}

// NodeList is the by-type endpoint payload
type NodeList struct {
	Nodes []GenericNode `json:"nodes"`
	Total int           `json:"total"`
	Type  Category      `json:"type"`
}

// TTSRequest asks the backend to voice a quote
type TTSRequest struct {
	MysteryID string `json:"mystery_id"`
	Text      string `json:"text"`
	VoiceID   string `json:"voice_id,omitempty"`
}

// TTSResult points at generated audio
type TTSResult struct {
	AudioURL string `json:"audio_url"`
	Cached   bool   `json:"cached"`
}

// Health is the backend liveness payload
type Health struct {
	Status string `json:"status"`
}

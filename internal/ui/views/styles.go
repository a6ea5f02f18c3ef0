package views

import (
	"github.com/charmbracelet/lipgloss"

	"whiterabbit/internal/domain"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title         lipgloss.Style
	Dim           lipgloss.Style
	Status        lipgloss.Style
	Help          lipgloss.Style
	Main          lipgloss.Style
	Panel         lipgloss.Style
	PanelFocused  lipgloss.Style
	GroupHeader   lipgloss.Style
	Highlight     lipgloss.Style
	HighlightBg   lipgloss.Style
	Score         lipgloss.Style
	Label         lipgloss.Style
	StatusError   lipgloss.Style
	StatusLoading lipgloss.Style
	StatusSuccess lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Dim: lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Help: lipgloss.NewStyle().Faint(true),
		Main: lipgloss.NewStyle().Padding(1, 2),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("241")),
		PanelFocused: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("99")),
		GroupHeader:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Highlight:     lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		HighlightBg:   lipgloss.NewStyle().Background(lipgloss.Color("238")),
		Score:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Label:         lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("241")), // gray
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
	}
}

// StatusColor returns the colour for a mystery status
func StatusColor(status domain.MysteryStatus) string {
	switch status {
	case domain.StatusResolved:
		return "78" // green
	case domain.StatusPartiallyResolved:
		return "33" // blue
	case domain.StatusDebunked:
		return "241" // gray
	default:
		return "214" // yellow for unresolved
	}
}

// GroupTitle is the dropdown heading for a category
func GroupTitle(c domain.Category) string {
	switch c {
	case domain.CategoryMystery:
		return "Mysteries"
	case domain.CategoryLocation:
		return "Locations"
	case domain.CategoryTimePeriod:
		return "Time periods"
	case domain.CategoryCategory:
		return "Categories"
	default:
		return string(c)
	}
}

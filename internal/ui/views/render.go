package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"whiterabbit/internal/domain"
	"whiterabbit/internal/stores/detail"
	"whiterabbit/internal/stores/filter"
	"whiterabbit/internal/stores/quote"
	"whiterabbit/internal/stores/search"
)

// Renderer draws the browse screen panels
type Renderer struct {
	styles     *Styles
	showScores bool
}

// NewRenderer creates a new renderer
func NewRenderer(showScores bool) *Renderer {
	return &Renderer{styles: NewStyles(), showScores: showScores}
}

func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Dropdown renders grouped search results. The highlighted row is found
// through search.FlatIndex so it always matches the store's ActiveIndex.
func (r *Renderer) Dropdown(st search.State, spinner string) string {
	if !st.Open {
		switch st.Phase {
		case search.PhaseDebouncing, search.PhaseFetching:
			return r.styles.StatusLoading.Render(spinner + " searching…")
		}
		return ""
	}
	if st.Phase == search.PhaseSettledError {
		return r.styles.StatusError.Render(st.Error)
	}
	if len(st.Results) == 0 {
		return r.styles.Dim.Render(fmt.Sprintf("No results for %q", st.Query))
	}

	groups := st.Groups()
	var b strings.Builder
	for gi, g := range groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.styles.GroupHeader.Render(GroupTitle(g.Category)))
		b.WriteString("\n")
		for pi, item := range g.Items {
			line := "  " + item.Text
			if r.showScores {
				line += " " + r.styles.Score.Render(fmt.Sprintf("%.2f", item.Score))
			}
			if search.FlatIndex(groups, gi, pi) == st.ActiveIndex {
				line = r.styles.HighlightBg.Render(r.styles.Highlight.Render("› " + item.Text))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Detail renders the selected mystery and its quote state
func (r *Renderer) Detail(st detail.State, q quote.State, spinner string) string {
	switch {
	case st.Loading && st.Current == nil:
		return r.styles.StatusLoading.Render(spinner + " loading mystery…")
	case st.Error != "":
		return r.styles.StatusError.Render(st.Error)
	case st.Current == nil:
		return r.styles.Dim.Render("Select a mystery to see its details")
	}

	d := st.Current
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(d.Title))
	b.WriteString("\n")
	status := lipgloss.NewStyle().Foreground(lipgloss.Color(StatusColor(d.Status))).Render(string(d.Status))
	b.WriteString(r.styles.Label.Render("Status ") + status + "\n")
	if years := reportedYears(d.MysteryListItem); years != "" {
		b.WriteString(r.styles.Label.Render("Reported ") + years + "\n")
	}
	if len(d.Locations) > 0 {
		names := make([]string, len(d.Locations))
		for i, l := range d.Locations {
			names[i] = l.Name
		}
		b.WriteString(r.styles.Label.Render("Where ") + strings.Join(names, ", ") + "\n")
	}
	if len(d.TimePeriods) > 0 {
		labels := make([]string, len(d.TimePeriods))
		for i, tp := range d.TimePeriods {
			labels[i] = tp.Label
		}
		b.WriteString(r.styles.Label.Render("When ") + strings.Join(labels, ", ") + "\n")
	}
	if len(d.Categories) > 0 {
		names := make([]string, len(d.Categories))
		for i, c := range d.Categories {
			names[i] = c.Name
		}
		b.WriteString(r.styles.Label.Render("Kind ") + strings.Join(names, ", ") + "\n")
	}

	switch {
	case q.MysteryID != d.ID:
	case q.Loading:
		b.WriteString(r.styles.StatusLoading.Render(spinner+" voicing quote…") + "\n")
	case q.Error != "":
		b.WriteString(r.styles.StatusError.Render(q.Error) + "\n")
	case q.AudioURL != "":
		b.WriteString(r.styles.StatusSuccess.Render("♪ "+q.AudioURL) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FilterList renders the mysteries attached to the selected node
func (r *Renderer) FilterList(st filter.State, selected int, spinner string) string {
	switch {
	case st.NodeID == "":
		return r.styles.Dim.Render("Pick a location, time period or category to list its mysteries")
	case st.Loading:
		return r.styles.StatusLoading.Render(spinner + " loading " + st.NodeID + "…")
	case st.Error != "":
		return r.styles.StatusError.Render(st.Error)
	case len(st.Mysteries) == 0:
		return r.styles.Dim.Render("No mysteries for " + st.NodeID)
	}

	var b strings.Builder
	b.WriteString(r.styles.GroupHeader.Render(fmt.Sprintf("%s (%d)", st.NodeID, st.Total)))
	for i, m := range st.Mysteries {
		b.WriteString("\n")
		line := "  " + m.Title
		if i == selected {
			line = r.styles.HighlightBg.Render(r.styles.Highlight.Render("› " + m.Title))
		}
		b.WriteString(line)
	}
	return b.String()
}

// DetailText is a plain-text rendering of a mystery for the pager
func DetailText(d *domain.MysteryDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", d.Title, strings.Repeat("=", len(d.Title)))
	fmt.Fprintf(&b, "Status:     %s\n", d.Status)
	if years := reportedYears(d.MysteryListItem); years != "" {
		fmt.Fprintf(&b, "Reported:   %s\n", years)
	}
	if d.ConfidenceScore != nil {
		fmt.Fprintf(&b, "Confidence: %.2f\n", *d.ConfidenceScore)
	}
	if d.ImageSource != nil {
		fmt.Fprintf(&b, "Image:      %s\n", *d.ImageSource)
	}
	if d.VideoSource != nil {
		fmt.Fprintf(&b, "Video:      %s\n", *d.VideoSource)
	}

	if len(d.Locations) > 0 {
		b.WriteString("\nLocations\n")
		for _, l := range d.Locations {
			line := "  " + l.Name
			if l.Country != nil {
				line += ", " + *l.Country
			}
			if l.Latitude != nil && l.Longitude != nil {
				line += fmt.Sprintf(" (%.4f, %.4f)", *l.Latitude, *l.Longitude)
			}
			b.WriteString(line + "\n")
		}
	}
	if len(d.TimePeriods) > 0 {
		b.WriteString("\nTime periods\n")
		for _, tp := range d.TimePeriods {
			line := "  " + tp.Label
			if tp.StartYear != nil && tp.EndYear != nil {
				line += fmt.Sprintf(" (%d to %d)", *tp.StartYear, *tp.EndYear)
			}
			b.WriteString(line + "\n")
		}
	}
	if len(d.Categories) > 0 {
		b.WriteString("\nCategories\n")
		for _, c := range d.Categories {
			b.WriteString("  " + c.Name + "\n")
		}
	}
	if len(d.SimilarMysteries) > 0 {
		b.WriteString("\nSimilar mysteries\n")
		for _, s := range d.SimilarMysteries {
			fmt.Fprintf(&b, "  %s (%.2f)", s.Title, s.Score)
			if len(s.Reasons) > 0 {
				b.WriteString(": " + strings.Join(s.Reasons, "; "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func reportedYears(m domain.MysteryListItem) string {
	switch {
	case m.FirstReportedYear != nil && m.LastReportedYear != nil && *m.FirstReportedYear != *m.LastReportedYear:
		return fmt.Sprintf("%d to %d", *m.FirstReportedYear, *m.LastReportedYear)
	case m.FirstReportedYear != nil:
		return fmt.Sprintf("%d", *m.FirstReportedYear)
	case m.LastReportedYear != nil:
		return fmt.Sprintf("%d", *m.LastReportedYear)
	}
	return ""
}

package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	currentStyle  = lipgloss.NewStyle().Bold(true).Reverse(true)
	disabledStyle = lipgloss.NewStyle().Faint(true)
	barStyle      = lipgloss.NewStyle().MarginTop(1)
)

// RenderPage renders a page as a numbered list followed by its pagination bar.
func RenderPage(p Page) string {
	var b strings.Builder

	b.WriteString(headingStyle.Render(p.Query.Title()))
	b.WriteString(" ")
	b.WriteString(metaStyle.Render(fmt.Sprintf("(%d titles, page %d of %d)", p.TotalItems, p.Page, p.TotalPages)))
	b.WriteString("\n")

	if p.Degraded {
		b.WriteString(warnStyle.Render("TMDB is unavailable right now; showing no results."))
		b.WriteString("\n")
	} else if len(p.Items) == 0 {
		b.WriteString(metaStyle.Render("No titles."))
		b.WriteString("\n")
	}

	first := (p.Page-1)*p.Query.PageSize + 1
	width := len(strconv.Itoa(first + len(p.Items)))
	for i, item := range p.Items {
		line := fmt.Sprintf("%*d. %s", width, first+i, item.DisplayTitle())
		if year := item.Year(); year != "" {
			line += " " + metaStyle.Render("("+year+")")
		}
		if item.VoteAverage > 0 {
			line += " " + metaStyle.Render(fmt.Sprintf("★ %.1f", item.VoteAverage))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(barStyle.Render(RenderPlan(p.Plan)))
	return b.String()
}

// RenderPlan renders a pagination bar such as "‹ Prev  1 … 4 5 [6] 7 8 … 20  Next ›".
func RenderPlan(plan pagination.Plan) string {
	parts := make([]string, 0, len(plan.Controls)+2)
	parts = append(parts, navLabel("‹ Prev", plan.Prev))

	for _, c := range plan.Controls {
		switch {
		case c.Kind == pagination.ControlEllipsis:
			parts = append(parts, "…")
		case c.Current:
			parts = append(parts, currentStyle.Render("["+strconv.Itoa(c.Page)+"]"))
		default:
			parts = append(parts, strconv.Itoa(c.Page))
		}
	}

	parts = append(parts, navLabel("Next ›", plan.Next))
	return strings.Join(parts, " ")
}

func navLabel(label string, nav pagination.NavControl) string {
	if nav.Disabled {
		return disabledStyle.Render(label)
	}
	return label
}

package pagination

// windowRadius is the number of page buttons shown on each side of the current page.
const windowRadius = 2

// Window is the range of page numbers rendered around the current page.
type Window struct {
	From    int `json:"from"`
	To      int `json:"to"`
	Current int `json:"current"`
	Total   int `json:"total"`
}

// TotalPages returns the number of virtual pages for totalItems, at least 1.
func TotalPages(totalItems, pageSize int) int {
	if pageSize < 1 || totalItems <= 0 {
		return 1
	}
	return (totalItems + pageSize - 1) / pageSize
}

// ClampPage clamps page into [1, total]. A total below 1 is treated as 1.
func ClampPage(page, total int) int {
	total = max(total, 1)
	return min(max(page, 1), total)
}

// NewWindow returns the window around current. Out of range inputs are
// clamped rather than rejected.
func NewWindow(current, total int) Window {
	total = max(total, 1)
	current = ClampPage(current, total)
	return Window{
		From:    max(1, current-windowRadius),
		To:      min(total, current+windowRadius),
		Current: current,
		Total:   total,
	}
}

// Pages returns the page numbers From..To.
func (w Window) Pages() []int {
	pages := make([]int, 0, w.To-w.From+1)
	for p := w.From; p <= w.To; p++ {
		pages = append(pages, p)
	}
	return pages
}

// ShowFirst reports whether a separate first-page button is needed.
func (w Window) ShowFirst() bool { return w.From > 1 }

// LeadingEllipsis reports whether pages are skipped between 1 and From.
func (w Window) LeadingEllipsis() bool { return w.From > 2 }

// TrailingEllipsis reports whether pages are skipped between To and Total.
func (w Window) TrailingEllipsis() bool { return w.To < w.Total-1 }

// ShowLast reports whether a separate last-page button is needed.
func (w Window) ShowLast() bool { return w.To < w.Total }

// ControlKind identifies an entry of the page bar.
type ControlKind string

const (
	// ControlPage is a page-number button.
	ControlPage ControlKind = "page"

	// ControlEllipsis marks skipped pages.
	ControlEllipsis ControlKind = "ellipsis"
)

// Control is one entry of the page bar.
type Control struct {
	Kind    ControlKind `json:"kind"`
	Page    int         `json:"page,omitempty"`
	Current bool        `json:"current,omitempty"`
}

// NavControl is the Prev or Next button.
type NavControl struct {
	Page     int  `json:"page"`
	Disabled bool `json:"disabled"`
}

// Plan is the full rendering plan of the pagination bar.
type Plan struct {
	Window   Window     `json:"window"`
	Prev     NavControl `json:"prev"`
	Next     NavControl `json:"next"`
	Controls []Control  `json:"controls"`
}

// NewPlan builds the rendering plan for current out of total pages.
func NewPlan(current, total int) Plan {
	w := NewWindow(current, total)

	controls := make([]Control, 0, w.To-w.From+5)
	if w.ShowFirst() {
		controls = append(controls, Control{Kind: ControlPage, Page: 1})
		if w.LeadingEllipsis() {
			controls = append(controls, Control{Kind: ControlEllipsis})
		}
	}
	for _, p := range w.Pages() {
		controls = append(controls, Control{Kind: ControlPage, Page: p, Current: p == w.Current})
	}
	if w.ShowLast() {
		if w.TrailingEllipsis() {
			controls = append(controls, Control{Kind: ControlEllipsis})
		}
		controls = append(controls, Control{Kind: ControlPage, Page: w.Total})
	}

	return Plan{
		Window: w,
		Prev: NavControl{
			Page:     ClampPage(w.Current-1, w.Total),
			Disabled: w.Current <= 1,
		},
		Next: NavControl{
			Page:     ClampPage(w.Current+1, w.Total),
			Disabled: w.Current >= w.Total,
		},
		Controls: controls,
	}
}

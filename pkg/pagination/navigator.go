package pagination

// Navigator holds the current virtual page. Navigation is always clamped
// into [1, total]; it never fails.
//
// A Navigator is not safe for concurrent use; it belongs to one view.
type Navigator struct {
	current int
	total   int
}

// NewNavigator creates a navigator positioned at current (clamped).
func NewNavigator(current, total int) *Navigator {
	total = max(total, 1)
	return &Navigator{current: ClampPage(current, total), total: total}
}

// Current returns the current page.
func (n *Navigator) Current() int { return n.current }

// Total returns the total page count.
func (n *Navigator) Total() int { return n.total }

// SetTotal updates the total page count and re-clamps the current page.
func (n *Navigator) SetTotal(total int) {
	n.total = max(total, 1)
	n.current = ClampPage(n.current, n.total)
}

// GoTo moves to page, clamped into [1, total]. It reports whether the
// current page changed.
func (n *Navigator) GoTo(page int) bool {
	next := ClampPage(page, n.total)
	if next == n.current {
		return false
	}
	n.current = next
	return true
}

// Prev moves one page back. It is a no-op on the first page.
func (n *Navigator) Prev() bool { return n.GoTo(n.current - 1) }

// Next moves one page forward. It is a no-op on the last page.
func (n *Navigator) Next() bool { return n.GoTo(n.current + 1) }

// Window returns the page window around the current page.
func (n *Navigator) Window() Window { return NewWindow(n.current, n.total) }

// Plan returns the rendering plan for the current page.
func (n *Navigator) Plan() Plan { return NewPlan(n.current, n.total) }

package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		totalItems int
		pageSize   int
		want       int
	}{
		{0, 18, 1},
		{-4, 18, 1},
		{5, 18, 1},
		{18, 18, 1},
		{19, 18, 2},
		{36, 18, 2},
		{37, 18, 3},
		{10000, 18, 556},
		{10, 0, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.totalItems, tt.pageSize), "TotalPages(%d, %d)", tt.totalItems, tt.pageSize)
	}
}

func TestNewWindow_Law(t *testing.T) {
	for total := -1; total <= 30; total++ {
		for current := -3; current <= 35; current++ {
			w := NewWindow(current, total)

			require.GreaterOrEqual(t, w.From, 1, "current=%d total=%d", current, total)
			require.LessOrEqual(t, w.From, w.Current, "current=%d total=%d", current, total)
			require.LessOrEqual(t, w.Current, w.To, "current=%d total=%d", current, total)
			require.LessOrEqual(t, w.To, w.Total, "current=%d total=%d", current, total)
			require.LessOrEqual(t, w.To-w.From, 4, "current=%d total=%d", current, total)
		}
	}
}

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    Window
	}{
		{name: "clipped at start", current: 1, total: 10, want: Window{From: 1, To: 3, Current: 1, Total: 10}},
		{name: "clipped at end", current: 10, total: 10, want: Window{From: 8, To: 10, Current: 10, Total: 10}},
		{name: "middle", current: 5, total: 10, want: Window{From: 3, To: 7, Current: 5, Total: 10}},
		{name: "single page", current: 1, total: 1, want: Window{From: 1, To: 1, Current: 1, Total: 1}},
		{name: "current above total", current: 12, total: 10, want: Window{From: 8, To: 10, Current: 10, Total: 10}},
		{name: "zero total", current: 2, total: 0, want: Window{From: 1, To: 1, Current: 1, Total: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewWindow(tt.current, tt.total))
		})
	}
}

// render flattens a plan into a compact string like "1 2 [3] … 10".
func render(p Plan) []string {
	out := make([]string, 0, len(p.Controls))
	for _, c := range p.Controls {
		switch {
		case c.Kind == ControlEllipsis:
			out = append(out, "…")
		case c.Current:
			out = append(out, "["+itoa(c.Page)+"]")
		default:
			out = append(out, itoa(c.Page))
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    []string
	}{
		{name: "first of ten", current: 1, total: 10, want: []string{"[1]", "2", "3", "…", "10"}},
		{name: "last of ten", current: 10, total: 10, want: []string{"1", "…", "8", "9", "[10]"}},
		{name: "middle of ten", current: 5, total: 10, want: []string{"1", "2", "3", "4", "[5]", "6", "7", "…", "10"}},
		{name: "no leading gap", current: 4, total: 10, want: []string{"1", "2", "3", "[4]", "5", "6", "…", "10"}},
		{name: "no trailing gap", current: 7, total: 10, want: []string{"1", "…", "5", "6", "[7]", "8", "9", "10"}},
		{name: "single page", current: 1, total: 1, want: []string{"[1]"}},
		{name: "three pages", current: 2, total: 3, want: []string{"1", "[2]", "3"}},
		{name: "out of range", current: 99, total: 4, want: []string{"1", "2", "3", "[4]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(NewPlan(tt.current, tt.total)))
		})
	}
}

func TestNewPlan_NavControls(t *testing.T) {
	first := NewPlan(1, 10)
	assert.True(t, first.Prev.Disabled)
	assert.False(t, first.Next.Disabled)
	assert.Equal(t, 2, first.Next.Page)

	last := NewPlan(10, 10)
	assert.False(t, last.Prev.Disabled)
	assert.True(t, last.Next.Disabled)
	assert.Equal(t, 9, last.Prev.Page)

	only := NewPlan(1, 1)
	assert.True(t, only.Prev.Disabled)
	assert.True(t, only.Next.Disabled)
}

package pagination

import "sync/atomic"

// Generation identifies one issued load.
type Generation uint64

// Generations issues monotonically increasing load tokens. Only the most
// recently issued token is current; results carrying an older token are stale.
type Generations struct {
	latest atomic.Uint64
}

// Next issues a new token, superseding all earlier ones.
func (g *Generations) Next() Generation {
	return Generation(g.latest.Add(1))
}

// Latest returns the most recently issued token.
func (g *Generations) Latest() Generation {
	return Generation(g.latest.Load())
}

// IsCurrent reports whether gen is the most recently issued token.
func (g *Generations) IsCurrent(gen Generation) bool {
	return g.latest.Load() == uint64(gen)
}

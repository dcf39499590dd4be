package parser

// Registry holds the strategies in selection order plus the fallback.
type Registry struct {
	specific []Strategy
	fallback Strategy
}

// NewRegistry returns a registry that tries specific in order and falls
// back to fallback.
func NewRegistry(fallback Strategy, specific ...Strategy) *Registry {
	return &Registry{specific: specific, fallback: fallback}
}

// DefaultRegistry registers the bank layouts ahead of the generic one.
func DefaultRegistry() *Registry {
	return NewRegistry(GenericStrategy{}, NubankStrategy{}, InterStrategy{})
}

// Select returns the first specific strategy that can handle text, or the
// fallback.
func (r *Registry) Select(text string, sep rune) Strategy {
	for _, s := range r.specific {
		if s.CanHandle(text, sep) {
			return s
		}
	}
	return r.fallback
}

// strategies lists every registered strategy, fallback last.
func (r *Registry) strategies() []Strategy {
	out := make([]Strategy, 0, len(r.specific)+1)
	out = append(out, r.specific...)
	return append(out, r.fallback)
}

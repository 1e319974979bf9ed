package presence

// Registry is the fixed list of channels announced to clients.
type Registry struct {
	names []string
	index map[string]bool
}

func NewRegistry(names []string) *Registry {
	r := &Registry{index: make(map[string]bool)}
	for _, n := range names {
		if n == "" || r.index[n] {
			continue
		}
		r.index[n] = true
		r.names = append(r.names, n)
	}
	return r
}

func (r *Registry) Has(name string) bool {
	return r.index[name]
}

// Names returns the registered channels in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

package lod

import (
	"slices"
	"sync"
)

// Registry keeps registered inputs per category and routes them to LOD
// slices by wavelength. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	inputs map[int][]Input
}

var _ Registrar = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{inputs: make(map[int][]Input)}
}

// Add registers in under category. Adding the same input twice is a no-op.
func (r *Registry) Add(category int, in Input) {
	if in == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputs == nil {
		r.inputs = make(map[int][]Input)
	}
	if slices.Contains(r.inputs[category], in) {
		return
	}
	r.inputs[category] = append(r.inputs[category], in)
}

// Remove unregisters in from every category.
func (r *Registry) Remove(in Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c, list := range r.inputs {
		r.inputs[c] = slices.DeleteFunc(list, func(x Input) bool { return x == in })
	}
}

// Len returns the number of inputs registered under category.
func (r *Registry) Len(category int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputs[category])
}

// Inputs returns a snapshot of the inputs registered under category.
func (r *Registry) Inputs(category int) []Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.inputs[category])
}

// DrawLod draws the inputs of category that belong in LOD lodIdx, whose
// smallest resolvable wavelength is minWl. An input belongs when
// minWl <= λ < 2·minWl. LOD 0 also takes everything shorter and the last
// LOD everything longer, flagged as a transition. It returns the number of
// inputs drawn.
func (r *Registry) DrawLod(target DrawTarget, category, lodIdx, lodCount int, minWl float32) int {
	isLast := lodIdx == lodCount-1
	drawn := 0
	for _, in := range r.Inputs(category) {
		if !in.Enabled() {
			continue
		}
		wl := in.Wavelength()
		if !belongs(wl, minWl, lodIdx == 0, isLast) {
			continue
		}
		in.Draw(target, 1, isLast, lodIdx)
		drawn++
	}
	return drawn
}

func belongs(wl, minWl float32, first, last bool) bool {
	if wl < minWl {
		return first
	}
	if wl >= 2*minWl {
		return last
	}
	return true
}

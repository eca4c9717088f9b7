// Package effect computes per-frame LED colors from elapsed time and key
// state. Effects are deterministic: the same delta-time sequence over the
// same key state reproduces the same frames.
package effect

import (
	"fmt"
	"sort"

	"kskhost/internal/state"
)

// Effect recomputes LED colors for one frame. Implementations may keep
// phase or per-key state of their own but must not consult the wall clock.
type Effect interface {
	Update(dt float64, leds []state.LedSlot, keys *state.Matrix)
}

// Pipeline runs effects in registration order once per frame. Later effects
// overwrite earlier ones where they touch the same slot.
type Pipeline struct {
	effects []Effect
}

func NewPipeline(effects ...Effect) *Pipeline {
	return &Pipeline{effects: effects}
}

func (p *Pipeline) Add(e Effect) {
	p.effects = append(p.effects, e)
}

func (p *Pipeline) Update(dt float64, leds []state.LedSlot, keys *state.Matrix) {
	for _, e := range p.effects {
		e.Update(dt, leds, keys)
	}
}

// Registry maps effect names to constructors so pipelines can be assembled
// from config.
type Registry struct {
	m map[string]func() Effect
}

func NewRegistry() *Registry {
	return &Registry{m: map[string]func() Effect{}}
}

func (r *Registry) Register(name string, ctor func() Effect) {
	r.m[name] = ctor
}

func (r *Registry) New(name string) (Effect, bool) {
	ctor, ok := r.m[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default returns a registry holding the built-in effects.
func Default() *Registry {
	r := NewRegistry()
	r.Register("rainbow", func() Effect { return NewRainbow() })
	r.Register("keysplash", func() Effect { return NewKeySplash() })
	return r
}

// Build assembles a pipeline from effect names, in order.
func Build(reg *Registry, names []string) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range names {
		e, ok := reg.New(name)
		if !ok {
			return nil, fmt.Errorf("unknown effect %q (have %v)", name, reg.List())
		}
		p.Add(e)
	}
	return p, nil
}

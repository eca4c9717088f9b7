package effect

import "kskhost/internal/state"

// seconds from full flash back to the underlying color
const splashFade = 0.5

// KeySplash flashes a key's LED toward white when it goes down and fades it
// back out. It layers over whatever ran earlier in the pipeline, so it pairs
// with a base effect like Rainbow. Time is tracked on its own dt-accumulated
// clock to stay reproducible.
type KeySplash struct {
	clock float64
	held  map[[2]uint8]bool
	start map[[2]uint8]float64
}

func NewKeySplash() *KeySplash {
	return &KeySplash{
		held:  map[[2]uint8]bool{},
		start: map[[2]uint8]float64{},
	}
}

func (e *KeySplash) Update(dt float64, leds []state.LedSlot, keys *state.Matrix) {
	e.clock += dt

	for i := range leds {
		key := leds[i].Key
		if key == nil {
			continue
		}
		pos := [2]uint8{key.Row, key.Col}
		ks := keys.At(int(key.Row), int(key.Col))

		if ks.IsPressed && !e.held[pos] {
			e.start[pos] = e.clock
		}
		e.held[pos] = ks.IsPressed

		at, ok := e.start[pos]
		if !ok {
			continue
		}
		age := e.clock - at
		if age >= splashFade {
			if !ks.IsPressed {
				delete(e.start, pos)
			}
			continue
		}

		// Blend the slot toward white, strongest right at the press.
		strength := 1 - age/splashFade
		c := leds[i].Color
		leds[i].Color = state.HSVA{
			H: c.H,
			S: c.S * (1 - strength),
			V: c.V + (1-c.V)*strength,
			A: 1,
		}
	}
}

package effect

import (
	"math"

	"kskhost/internal/state"
)

const (
	// hue degrees per second
	rainbowSpeed = 36.0
	// hue degrees per key unit
	rainbowFactor = 4.0
)

// Rainbow sweeps a hue gradient diagonally across the board, full
// saturation and value. Slots without a bound key are left alone.
type Rainbow struct {
	phase float64 // degrees, wrapped into [0,360)
}

func NewRainbow() *Rainbow { return &Rainbow{} }

func (e *Rainbow) Update(dt float64, leds []state.LedSlot, _ *state.Matrix) {
	for i := range leds {
		key := leds[i].Key
		if key == nil {
			continue
		}
		hue := math.Mod(e.phase+(key.X+key.Y)*rainbowFactor, 360)
		leds[i].Color = state.HSVA{H: hue, S: 1, V: 1, A: 1}
	}
	e.phase = math.Mod(e.phase+rainbowSpeed*dt, 360)
}

package state

import "github.com/lucasb-eyer/go-colorful"

// HSVA is a hue (degrees, 0..360), saturation, value, alpha color. The zero
// value is black.
type HSVA struct {
	H, S, V, A float64
}

// RGB255 converts to 8-bit RGB with value premultiplied by alpha. Channels
// are truncated, not rounded; the firmware expects the exact bytes the
// reference host produced.
func (c HSVA) RGB255() (r, g, b uint8) {
	col := colorful.Hsv(c.H, c.S, c.V*c.A)
	return uint8(col.R * 255), uint8(col.G * 255), uint8(col.B * 255)
}

// KeyInfo describes the key a LED sits under: board position in key units
// plus the matrix coordinates.
type KeyInfo struct {
	Label    string
	X, Y     float64
	W, H     float64
	Row, Col uint8
}

// LedSlot is one controllable LED. Key is nil for slots the layout maps no
// key onto; position-aware effects leave those alone.
type LedSlot struct {
	Key   *KeyInfo
	Color HSVA
}

// Leds is the fixed-size LED model, indexed by the firmware's LED index.
type Leds struct {
	slots []LedSlot
}

func NewLeds(count int) *Leds {
	return &Leds{slots: make([]LedSlot, count)}
}

func (l *Leds) Count() int { return len(l.slots) }

// Slots exposes the mutable slot slice for the effect pipeline.
func (l *Leds) Slots() []LedSlot { return l.slots }

// Bind attaches a key to a slot. Indices outside the strip are ignored.
func (l *Leds) Bind(index int, key *KeyInfo) {
	if index < 0 || index >= len(l.slots) {
		return
	}
	l.slots[index].Key = key
}

// Colors returns an independent copy of the current colors.
func (l *Leds) Colors() []HSVA {
	out := make([]HSVA, len(l.slots))
	for i := range l.slots {
		out[i] = l.slots[i].Color
	}
	return out
}

// LedChange is one slot whose color differs between two frames.
type LedChange struct {
	Index uint8
	Color HSVA
}

// DiffBatches compares two equal-length color snapshots and groups the
// changed indices, ascending, into batches of at most max entries. Every
// changed index appears in exactly one batch.
func DiffBatches(pre, post []HSVA, max int) [][]LedChange {
	var batches [][]LedChange
	var cur []LedChange
	for i := range post {
		if post[i] == pre[i] {
			continue
		}
		cur = append(cur, LedChange{Index: uint8(i), Color: post[i]})
		if len(cur) == max {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

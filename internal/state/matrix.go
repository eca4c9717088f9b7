package state

import "time"

// KeyState records press timing for one matrix position. The zero value is a
// key that has never been observed.
type KeyState struct {
	IsPressed bool
	// LastDown is set only on an up->down transition.
	LastDown time.Time
	// LastPressed is refreshed on every observation with the key held.
	LastPressed time.Time
}

// Matrix is the authoritative key grid, rows x cols, fixed at construction.
// Exactly one goroutine mutates it; everyone else gets deep copies.
type Matrix struct {
	rows, cols int
	keys       [][]KeyState
}

func NewMatrix(rows, cols int) *Matrix {
	keys := make([][]KeyState, rows)
	for r := range keys {
		keys[r] = make([]KeyState, cols)
	}
	return &Matrix{rows: rows, cols: cols, keys: keys}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// At returns the state of one key. Out-of-range positions read as the zero
// KeyState.
func (m *Matrix) At(row, col int) KeyState {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return KeyState{}
	}
	return m.keys[row][col]
}

// ApplyPress records a press or release event at now. Positions outside the
// grid are dropped; the firmware should never send them.
func (m *Matrix) ApplyPress(row, col int, pressed bool, now time.Time) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return
	}
	k := &m.keys[row][col]
	if pressed {
		if !k.IsPressed {
			k.LastDown = now
		}
		k.LastPressed = now
	}
	k.IsPressed = pressed
}

// Snapshot returns an independent deep copy safe to hand to other
// goroutines.
func (m *Matrix) Snapshot() [][]KeyState {
	out := make([][]KeyState, m.rows)
	for r := range out {
		out[r] = make([]KeyState, m.cols)
		copy(out[r], m.keys[r])
	}
	return out
}

package ws_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kskhost/internal/state"
	"kskhost/internal/ws"
)

func TestNewFrame(t *testing.T) {
	m := state.NewMatrix(2, 3)
	m.ApplyPress(1, 0, true, time.Unix(5, 0))

	snap := state.Snapshot{
		DeltaUpdate: 0.004,
		DeltaFrame:  0.051,
		Matrix:      m.Snapshot(),
		LedColors: []state.HSVA{
			{H: 0, S: 1, V: 1, A: 1}, // red
			{},                       // black
		},
		LayerState: 3,
	}

	f := ws.NewFrame(7, snap)
	assert.Equal(t, uint64(7), f.FrameID)
	assert.Equal(t, uint8(3), f.Layer)
	assert.Equal(t, [][]bool{{false, false, false}, {true, false, false}}, f.Pressed)
	assert.Equal(t, []byte{255, 0, 0, 0, 0, 0}, f.RGB)
	assert.Equal(t, 0.051, f.DeltaFrame)
}

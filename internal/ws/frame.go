package ws

import (
	"time"

	"kskhost/internal/state"
)

// Frame is the wire shape one snapshot takes toward clients. RGB holds
// three bytes per LED, same truncated conversion the device receives.
type Frame struct {
	T           int64    `json:"t"`
	FrameID     uint64   `json:"frame_id"`
	Layer       uint8    `json:"layer"`
	DeltaUpdate float64  `json:"delta_update"`
	DeltaFrame  float64  `json:"delta_frame"`
	Pressed     [][]bool `json:"pressed"`
	RGB         []byte   `json:"rgb"`
}

func NewFrame(id uint64, snap state.Snapshot) Frame {
	pressed := make([][]bool, len(snap.Matrix))
	for r, row := range snap.Matrix {
		pressed[r] = make([]bool, len(row))
		for c, k := range row {
			pressed[r][c] = k.IsPressed
		}
	}
	rgb := make([]byte, 0, len(snap.LedColors)*3)
	for _, c := range snap.LedColors {
		r, g, b := c.RGB255()
		rgb = append(rgb, r, g, b)
	}
	return Frame{
		T:           time.Now().UnixNano(),
		FrameID:     id,
		Layer:       snap.LayerState,
		DeltaUpdate: snap.DeltaUpdate,
		DeltaFrame:  snap.DeltaFrame,
		Pressed:     pressed,
		RGB:         rgb,
	}
}

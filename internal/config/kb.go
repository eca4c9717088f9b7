package config

import "fmt"

// KB is the derived, immutable view of one keyboard: host config plus QMK
// metadata with matrix dimensions, LED count and board extents computed
// once. It is read-only after construction and safe to share by reference
// with the worker.
type KB struct {
	Config *Config
	Info   *Info
	Matrix LedMatrix

	layout        []Key
	rows, cols    uint8
	ledCount      int
	width, height float64
}

func NewKB(cfg *Config, info *Info, matrix LedMatrix) (*KB, error) {
	layout, ok := info.Layouts[cfg.Layout]
	if !ok {
		return nil, fmt.Errorf("layout %q not in info.json", cfg.Layout)
	}

	kb := &KB{Config: cfg, Info: info, Matrix: matrix, layout: layout.Layout}
	for _, key := range kb.layout {
		if key.X+key.W > kb.width {
			kb.width = key.X + key.W
		}
		if key.Y+key.H > kb.height {
			kb.height = key.Y + key.H
		}
		if key.Matrix[0]+1 > kb.rows {
			kb.rows = key.Matrix[0] + 1
		}
		if key.Matrix[1]+1 > kb.cols {
			kb.cols = key.Matrix[1] + 1
		}
		if kb.LedIndex(key.Matrix[0], key.Matrix[1]) >= 0 {
			kb.ledCount++
		}
	}
	return kb, nil
}

func (kb *KB) Layout() []Key   { return kb.layout }
func (kb *KB) Rows() uint8     { return kb.rows }
func (kb *KB) Cols() uint8     { return kb.cols }
func (kb *KB) LedCount() int   { return kb.ledCount }
func (kb *KB) Width() float64  { return kb.width }
func (kb *KB) Height() float64 { return kb.height }

// LedIndex returns the firmware LED index under a matrix position, or -1
// when the key is unmapped or out of range.
func (kb *KB) LedIndex(row, col uint8) int {
	if int(row) >= len(kb.Matrix) || int(col) >= len(kb.Matrix[row]) {
		return -1
	}
	if idx := kb.Matrix[row][col]; idx >= 0 {
		return int(idx)
	}
	return -1
}

// VIDPID parses the USB ids from info.json.
func (kb *KB) VIDPID() (vid, pid uint16, err error) {
	vid, err = ParseHex(kb.Info.USB.VID)
	if err != nil {
		return 0, 0, fmt.Errorf("usb vid: %w", err)
	}
	pid, err = ParseHex(kb.Info.USB.PID)
	if err != nil {
		return 0, 0, fmt.Errorf("usb pid: %w", err)
	}
	return vid, pid, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Info mirrors the slice of a QMK info.json this host needs.
type Info struct {
	KeyboardName string            `json:"keyboard_name"`
	Manufacturer string            `json:"manufacturer"`
	USB          USBInfo           `json:"usb"`
	Layouts      map[string]Layout `json:"layouts"`
}

type USBInfo struct {
	VID           string `json:"vid"` // hex string
	PID           string `json:"pid"`
	DeviceVersion string `json:"device_version"`
}

type Layout struct {
	Layout []Key `json:"layout"`
}

// Key is one physical key: board position in key units and its matrix
// coordinates.
type Key struct {
	Label  string   `json:"label"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	W      float64  `json:"w"`
	H      float64  `json:"h"`
	Matrix [2]uint8 `json:"matrix"`
}

// LedMatrix maps matrix position -> firmware LED index; negative means the
// key has no LED.
type LedMatrix [][]int16

func LoadInfo(path string) (*Info, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// QMK omits w/h for 1u keys.
	for name, layout := range info.Layouts {
		for i := range layout.Layout {
			if layout.Layout[i].W == 0 {
				layout.Layout[i].W = 1
			}
			if layout.Layout[i].H == 0 {
				layout.Layout[i].H = 1
			}
		}
		info.Layouts[name] = layout
	}
	return &info, nil
}

func LoadLedMatrix(path string) (LedMatrix, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m LedMatrix
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// LoadKB reads the keyboard's info.json and matrix.json from a qmk_firmware
// checkout and derives the KB view.
func LoadKB(cfg *Config, qmkRoot string) (*KB, error) {
	dir := filepath.Join(qmkRoot, "keyboards", cfg.Keyboard)
	info, err := LoadInfo(filepath.Join(dir, "info.json"))
	if err != nil {
		return nil, err
	}
	matrix, err := LoadLedMatrix(filepath.Join(dir, "matrix.json"))
	if err != nil {
		return nil, err
	}
	return NewKB(cfg, info, matrix)
}

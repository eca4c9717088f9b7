package hid

import (
	"fmt"
	"time"

	hidapi "github.com/sstallion/go-hid"
)

type device struct {
	h *hidapi.Device
}

// Open finds and opens the keyboard's raw endpoint. A QMK board exposes
// several HID interfaces; the usage page/usage pair picks out the raw one.
func Open(vid, pid, usagePage, usage uint16) (Transport, error) {
	if err := hidapi.Init(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}

	var path string
	err := hidapi.Enumerate(vid, pid, func(info *hidapi.DeviceInfo) error {
		if info.UsagePage == usagePage && info.Usage == usage {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hid enumerate: %w", err)
	}
	if path == "" {
		return nil, fmt.Errorf("no hid interface matches vid=%04x pid=%04x usage_page=%04x usage=%04x",
			vid, pid, usagePage, usage)
	}

	h, err := hidapi.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("hid open %s: %w", path, err)
	}
	return &device{h: h}, nil
}

func (d *device) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	return d.h.ReadWithTimeout(buf, timeout)
}

func (d *device) Write(data []byte) (int, error) {
	return d.h.Write(data)
}

func (d *device) Close() error {
	return d.h.Close()
}

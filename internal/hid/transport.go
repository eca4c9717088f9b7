// Package hid provides the raw-HID transport to the keyboard: the Transport
// contract the realtime loop runs over, the hidapi-backed implementation,
// and an in-memory fake for tests and the simulator.
package hid

import "time"

// Transport is one open raw-HID connection. Once the loop starts it is the
// transport's only user; the caller opens it before and closes it after the
// loop's lifetime.
type Transport interface {
	// ReadTimeout reads one inbound report into buf. A zero timeout is a
	// non-blocking poll returning n == 0 when nothing is pending.
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
	// Write sends one outbound report, report-id byte included.
	Write(data []byte) (int, error)
	Close() error
}

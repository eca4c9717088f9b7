// Package protocol implements the ksk raw-HID side channel spoken by the
// keyboard firmware: fixed-size reports carrying key press and layer events
// inbound, and LED color updates outbound.
package protocol

import (
	"fmt"

	"kskhost/internal/state"
)

// Opcodes, firmware-defined.
const (
	OpPress  = 0x0
	OpLayer  = 0x1
	OpRgbSet = 0x2
)

// RawEpSize is the report body size of the raw-HID endpoint. Outbound writes
// carry one extra leading report-id byte, so ReportSize is the hard cap on
// anything Encode produces.
const (
	RawEpSize  = 32
	ReportSize = RawEpSize + 1
)

// MaxRgbEntries is the most (index, color) pairs one RgbSet report can
// carry; the 4-bit count field and the report body both cap it at 7.
// Callers split larger updates across reports.
const MaxRgbEntries = 7

var magic = [3]byte{0x6b, 0x73, 0x6b} // "ksk"

// Press reports a key going down or up at a matrix position. Inbound only.
type Press struct {
	Pressed bool
	Keycode uint16
	Col     uint8
	Row     uint8
}

// Layer reports the firmware's active layer state. Inbound only.
type Layer struct {
	LayerState uint8
}

// RgbEntry pairs a LED index with its new color.
type RgbEntry struct {
	Index uint8
	Color state.HSVA
}

// RgbSet updates up to MaxRgbEntries individual LEDs. Outbound only.
type RgbSet struct {
	Entries []RgbEntry
}

// RgbSetFull paints every LED the same color device-side. Outbound only.
type RgbSetFull struct {
	Color state.HSVA
}

// Message is one side-channel message. Press and Layer only ever arrive
// from the device; RgbSet and RgbSetFull only ever go to it.
type Message interface {
	isMessage()
}

func (Press) isMessage()      {}
func (Layer) isMessage()      {}
func (RgbSet) isMessage()     {}
func (RgbSetFull) isMessage() {}

// Decode parses an inbound report of n valid bytes. It returns nil for
// anything that is not a well-formed ksk message: short reads, foreign
// traffic on the endpoint, and opcodes this host does not know.
func Decode(buf []byte, n int) Message {
	if n < 4 || len(buf) < 4 {
		return nil
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] {
		return nil
	}
	op := buf[3] >> 4
	flag := buf[3] & 0x0f

	switch op {
	case OpPress:
		if len(buf) < 8 {
			return nil
		}
		return Press{
			Pressed: flag == 1,
			// The firmware packs keycodes as b4 | b5<<4. This is not a
			// little-endian u16; it must stay bit-for-bit as the firmware
			// writes it.
			Keycode: uint16(buf[4]) | uint16(buf[5])<<4,
			Col:     buf[6],
			Row:     buf[7],
		}
	case OpLayer:
		if len(buf) < 5 {
			return nil
		}
		return Layer{LayerState: buf[4]}
	default:
		return nil
	}
}

// Encode serializes an outbound message, leading report-id byte included.
// Only RgbSet and RgbSetFull are sendable; encoding anything else, more than
// MaxRgbEntries entries, or past ReportSize panics: those are caller
// contract violations, not runtime conditions.
func Encode(m Message) []byte {
	buf := make([]byte, 0, ReportSize)
	buf = append(buf, 0x00, magic[0], magic[1], magic[2])

	switch msg := m.(type) {
	case RgbSet:
		if len(msg.Entries) > MaxRgbEntries {
			panic(fmt.Sprintf("protocol: rgb batch of %d exceeds %d entries", len(msg.Entries), MaxRgbEntries))
		}
		buf = append(buf, OpRgbSet<<4|byte(len(msg.Entries)))
		for _, e := range msg.Entries {
			buf = append(buf, e.Index)
			buf = appendRGB(buf, e.Color)
		}
	case RgbSetFull:
		buf = append(buf, OpRgbSet<<4)
		buf = appendRGB(buf, msg.Color)
	default:
		panic(fmt.Sprintf("protocol: %T is inbound-only and cannot be encoded", m))
	}

	if len(buf) > ReportSize {
		panic(fmt.Sprintf("protocol: encoded %d bytes, report capacity is %d", len(buf), ReportSize))
	}
	return buf
}

func appendRGB(buf []byte, c state.HSVA) []byte {
	r, g, b := c.RGB255()
	return append(buf, r, g, b)
}

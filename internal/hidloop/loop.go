// Package hidloop runs the realtime cycle against the keyboard: poll the
// device, apply decoded events to the key matrix, re-render LED effects on
// frame boundaries, push color diffs back out, and publish snapshots.
package hidloop

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"kskhost/internal/config"
	"kskhost/internal/effect"
	"kskhost/internal/hid"
	"kskhost/internal/protocol"
	"kskhost/internal/state"
)

// Loop owns the device connection and the authoritative key/LED state and
// runs the read -> mutate -> render -> publish cycle on its own goroutine.
// The matrix and LED model never leave that goroutine; consumers only see
// snapshot copies through the mailbox.
type Loop struct {
	kb       *config.KB
	dev      hid.Transport
	pipeline *effect.Pipeline
	mailbox  *state.Mailbox
	log      zerolog.Logger

	cancel atomic.Bool
	done   chan struct{}
	runErr error
}

// New wires a loop over an open transport. The caller keeps ownership of
// the transport and must close it only after Stop has returned; the worker
// never outlives the handle it reads from.
func New(kb *config.KB, dev hid.Transport, pipeline *effect.Pipeline, logger zerolog.Logger) *Loop {
	return &Loop{
		kb:       kb,
		dev:      dev,
		pipeline: pipeline,
		mailbox:  state.NewMailbox(),
		log:      logger,
	}
}

// Mailbox is where the loop publishes its per-tick snapshots.
func (l *Loop) Mailbox() *state.Mailbox { return l.mailbox }

// Start spawns the worker. updateRate is loop iterations per second,
// frameRate LED frames per second.
func (l *Loop) Start(updateRate, frameRate float64) {
	if l.done != nil {
		panic("hidloop: started twice")
	}
	l.done = make(chan struct{})
	waitUpdate := time.Duration(float64(time.Second) / updateRate)
	waitFrame := time.Duration(float64(time.Second) / frameRate)
	go func() {
		defer close(l.done)
		l.runErr = l.run(waitUpdate, waitFrame)
	}()
}

// Stop requests cancellation, waits for the worker to exit and reports the
// terminal LED-clear failure if there was one. Worst-case latency is one
// update period plus the zero-timeout device read.
func (l *Loop) Stop() error {
	if l.done == nil {
		return errors.New("hidloop: not started")
	}
	l.cancel.Store(true)
	<-l.done
	return l.runErr
}

func (l *Loop) run(waitUpdate, waitFrame time.Duration) error {
	matrix := state.NewMatrix(int(l.kb.Rows()), int(l.kb.Cols()))
	leds := l.bindLeds()
	var layer uint8

	recv := make([]byte, protocol.RawEpSize)
	lastUpdate := time.Now()
	lastFrame := time.Now()
	deltaFrame := waitFrame.Seconds()

	for !l.cancel.Load() {
		deltaUpdate := time.Since(lastUpdate).Seconds()

		if n, err := l.dev.ReadTimeout(recv, 0); err == nil && n > 0 {
			switch msg := protocol.Decode(recv, n).(type) {
			case protocol.Press:
				matrix.ApplyPress(int(msg.Row), int(msg.Col), msg.Pressed, time.Now())
			case protocol.Layer:
				layer = msg.LayerState
			}
		}

		if time.Since(lastFrame) >= waitFrame {
			// Record the actual elapsed time; drift is absorbed here, not
			// corrected.
			deltaFrame = time.Since(lastFrame).Seconds()
			l.renderFrame(deltaFrame, leds, matrix)
			lastFrame = time.Now()
		}

		l.mailbox.Publish(state.Snapshot{
			DeltaUpdate: deltaUpdate,
			DeltaFrame:  deltaFrame,
			Matrix:      matrix.Snapshot(),
			LedColors:   leds.Colors(),
			LayerState:  layer,
		})

		lastUpdate = time.Now()
		time.Sleep(waitUpdate)
	}

	// Last chance to leave the board dark; no later frame will run, so a
	// failure here goes to the owner.
	if _, err := l.dev.Write(protocol.Encode(protocol.RgbSetFull{Color: state.HSVA{}})); err != nil {
		return fmt.Errorf("clear leds on shutdown: %w", err)
	}
	return nil
}

// renderFrame runs the pipeline and pushes every changed color to the
// device in batches of at most MaxRgbEntries. Sends are fire and forget:
// the device never acks, and a later frame that differs repaints whatever a
// failed send missed.
func (l *Loop) renderFrame(dt float64, leds *state.Leds, matrix *state.Matrix) {
	pre := leds.Colors()
	l.pipeline.Update(dt, leds.Slots(), matrix)

	for _, batch := range state.DiffBatches(pre, leds.Colors(), protocol.MaxRgbEntries) {
		entries := make([]protocol.RgbEntry, len(batch))
		for i, ch := range batch {
			entries[i] = protocol.RgbEntry{Index: ch.Index, Color: ch.Color}
		}
		if _, err := l.dev.Write(protocol.Encode(protocol.RgbSet{Entries: entries})); err != nil {
			l.log.Warn().Err(err).Int("leds", len(entries)).Msg("rgb update dropped")
		}
	}
}

// bindLeds builds the LED model and attaches each slot to the key sitting
// over it, per matrix.json. Slots no key maps to stay unbound.
func (l *Loop) bindLeds() *state.Leds {
	leds := state.NewLeds(l.kb.LedCount())
	layout := l.kb.Layout()
	for i := range layout {
		key := layout[i]
		idx := l.kb.LedIndex(key.Matrix[0], key.Matrix[1])
		if idx < 0 {
			continue
		}
		leds.Bind(idx, &state.KeyInfo{
			Label: key.Label,
			X:     key.X,
			Y:     key.Y,
			W:     key.W,
			H:     key.H,
			Row:   key.Matrix[0],
			Col:   key.Matrix[1],
		})
	}
	return leds
}

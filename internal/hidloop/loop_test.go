package hidloop_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kskhost/internal/config"
	"kskhost/internal/effect"
	"kskhost/internal/hid"
	"kskhost/internal/hidloop"
	"kskhost/internal/state"
)

// rates high enough that tests converge quickly
const (
	testUpdateRate = 2000
	testFrameRate  = 500
)

// gridKB fabricates a rows x cols board with every key 1u and a row-major
// LED under each.
func gridKB(t *testing.T, rows, cols int) *config.KB {
	t.Helper()
	keys := make([]config.Key, 0, rows*cols)
	matrix := make(config.LedMatrix, rows)
	for r := 0; r < rows; r++ {
		matrix[r] = make([]int16, cols)
		for c := 0; c < cols; c++ {
			matrix[r][c] = int16(r*cols + c)
			keys = append(keys, config.Key{
				Label:  fmt.Sprintf("k%d%d", r, c),
				X:      float64(c),
				Y:      float64(r),
				W:      1,
				H:      1,
				Matrix: [2]uint8{uint8(r), uint8(c)},
			})
		}
	}
	cfg := &config.Config{Layout: "LAYOUT_grid"}
	info := &config.Info{Layouts: map[string]config.Layout{"LAYOUT_grid": {Layout: keys}}}
	kb, err := config.NewKB(cfg, info, matrix)
	require.NoError(t, err)
	return kb
}

func pressReport(pressed bool, keycode uint16, col, row uint8) []byte {
	flag := byte(0)
	if pressed {
		flag = 1
	}
	return []byte{0x6b, 0x73, 0x6b, flag, byte(keycode & 0x0f), byte(keycode >> 4), col, row}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// paintOnce colors its first n bound slots distinctly on the first frame and
// never touches them again, producing exactly one diff.
type paintOnce struct {
	n    int
	done bool
}

func (p *paintOnce) Update(_ float64, leds []state.LedSlot, _ *state.Matrix) {
	if p.done {
		return
	}
	p.done = true
	for i := 0; i < p.n && i < len(leds); i++ {
		leds[i].Color = state.HSVA{H: float64(i), S: 1, V: 1, A: 1}
	}
}

func TestLoopAppliesPressAndLayer(t *testing.T) {
	fake := hid.NewFake()
	loop := hidloop.New(gridKB(t, 4, 12), fake, effect.NewPipeline(), zerolog.Nop())

	fake.QueueReport(pressReport(true, 0x2a, 3, 1))
	fake.QueueReport([]byte{0x6b, 0x73, 0x6b, 0x10, 0x02}) // layer 2

	loop.Start(testUpdateRate, testFrameRate)

	var snap state.Snapshot
	waitFor(t, "press and layer to surface in a snapshot", func() bool {
		s, ok := loop.Mailbox().Poll()
		if !ok {
			return false
		}
		snap = s
		return s.Matrix[1][3].IsPressed && s.LayerState == 2
	})
	assert.False(t, snap.Matrix[1][3].LastDown.IsZero())
	assert.False(t, snap.Matrix[0][0].IsPressed)

	require.NoError(t, loop.Stop())
}

func TestLoopIgnoresMalformedReports(t *testing.T) {
	fake := hid.NewFake()
	loop := hidloop.New(gridKB(t, 2, 2), fake, effect.NewPipeline(), zerolog.Nop())

	fake.QueueReport([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00, 0x00, 0x00})
	fake.QueueReport([]byte{0x6b, 0x73, 0x6b, 0x70})  // unknown opcode
	fake.QueueReport(pressReport(true, 1, 1, 1))

	loop.Start(testUpdateRate, testFrameRate)
	waitFor(t, "the valid press to land", func() bool {
		s, ok := loop.Mailbox().Poll()
		return ok && s.Matrix[1][1].IsPressed
	})
	require.NoError(t, loop.Stop())
}

func TestLoopBatchesLedDiffs(t *testing.T) {
	const changed = 9 // -> ceil(9/7) = 2 reports

	fake := hid.NewFake()
	loop := hidloop.New(gridKB(t, 2, 6), fake, effect.NewPipeline(&paintOnce{n: changed}), zerolog.Nop())
	loop.Start(testUpdateRate, testFrameRate)

	waitFor(t, "both rgb reports", func() bool { return len(fake.Writes()) >= 2 })
	require.NoError(t, loop.Stop())

	var entries []byte // index bytes, in send order
	rgbReports := 0
	for _, w := range fake.Writes() {
		require.GreaterOrEqual(t, len(w), 5)
		assert.Equal(t, []byte{0x00, 0x6b, 0x73, 0x6b}, w[:4])
		require.Equal(t, byte(0x2), w[4]>>4)
		count := int(w[4] & 0x0f)
		if count == 0 {
			continue // terminal full clear
		}
		rgbReports++
		assert.LessOrEqual(t, count, 7)
		require.Len(t, w, 5+count*4)
		for e := 0; e < count; e++ {
			entries = append(entries, w[5+e*4])
		}
	}

	assert.Equal(t, 2, rgbReports)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8}, entries)
}

func TestLoopStopClearsLeds(t *testing.T) {
	fake := hid.NewFake()
	loop := hidloop.New(gridKB(t, 2, 2), fake, effect.NewPipeline(), zerolog.Nop())
	loop.Start(testUpdateRate, testFrameRate)
	require.NoError(t, loop.Stop())

	writes := fake.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, []byte{0x00, 0x6b, 0x73, 0x6b, 0x20, 0x00, 0x00, 0x00}, writes[len(writes)-1])

	clears := 0
	for _, w := range writes {
		if w[4] == 0x20 {
			clears++
		}
	}
	assert.Equal(t, 1, clears, "exactly one terminal full clear")
}

func TestLoopStopReportsTerminalClearFailure(t *testing.T) {
	fake := hid.NewFake()
	fake.FailWrites(errors.New("unplugged"))
	loop := hidloop.New(gridKB(t, 2, 2), fake, effect.NewPipeline(), zerolog.Nop())
	loop.Start(testUpdateRate, testFrameRate)

	err := loop.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear leds")
}

func TestLoopSurvivesFrameSendFailures(t *testing.T) {
	fake := hid.NewFake()
	fake.FailWrites(errors.New("busy"))
	loop := hidloop.New(gridKB(t, 2, 6), fake, effect.NewPipeline(&paintOnce{n: 3}), zerolog.Nop())
	loop.Start(testUpdateRate, testFrameRate)

	// frame sends fail but the loop keeps publishing
	waitFor(t, "snapshots despite failed sends", func() bool {
		_, ok := loop.Mailbox().Poll()
		return ok
	})

	fake.FailWrites(nil)
	require.NoError(t, loop.Stop())
}

func TestLoopRunsWithoutAConsumer(t *testing.T) {
	fake := hid.NewFake()
	loop := hidloop.New(gridKB(t, 2, 2), fake, effect.NewPipeline(), zerolog.Nop())
	loop.Start(testUpdateRate, testFrameRate)

	// nobody ever polls the mailbox
	time.Sleep(100 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- loop.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop; publish must never block the producer")
	}
}

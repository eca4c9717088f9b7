// ksksim runs the full host loop against a fake transport: a synthetic
// rows x cols board with scripted key traffic, no hardware needed. Useful
// for eyeballing effect output and loop health from the logs.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kskhost/internal/config"
	"kskhost/internal/effect"
	"kskhost/internal/hid"
	"kskhost/internal/hidloop"
)

func main() {
	var (
		rows     = flag.Int("rows", 4, "matrix rows")
		cols     = flag.Int("cols", 12, "matrix columns")
		duration = flag.Duration("duration", 10*time.Second, "how long to run")
		seed     = flag.Int64("seed", 1, "key traffic seed")
		effects  = flag.String("effects", "rainbow,keysplash", "comma-separated effect pipeline")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	kb, err := gridKB(*rows, *cols)
	if err != nil {
		log.Fatal().Err(err).Msg("build synthetic keyboard")
	}

	pipeline, err := effect.Build(effect.Default(), splitList(*effects))
	if err != nil {
		log.Fatal().Err(err).Msg("build effect pipeline")
	}

	fake := hid.NewFake()
	loop := hidloop.New(kb, fake, pipeline, log.Logger)
	loop.Start(240, 20)

	stopTyping := make(chan struct{})
	go typeRandomly(fake, *rows, *cols, *seed, stopTyping)

	deadline := time.After(*duration)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	reports := 0
	for running := true; running; {
		select {
		case <-deadline:
			running = false
		case <-tick.C:
			writes := fake.Writes()
			snap, ok := loop.Mailbox().Poll()
			ev := log.Info().Int("reports_out", len(writes)-reports)
			if ok {
				ev = ev.Uint8("layer", snap.LayerState).
					Float64("delta_update_ms", snap.DeltaUpdate*1000).
					Float64("delta_frame_ms", snap.DeltaFrame*1000)
			}
			ev.Msg("tick")
			reports = len(writes)
		}
	}

	close(stopTyping)
	if err := loop.Stop(); err != nil {
		log.Fatal().Err(err).Msg("loop shutdown")
	}
	log.Info().Int("reports_total", len(fake.Writes())).Msg("done")
}

// gridKB fabricates a dense rows x cols board: every key 1u at (col, row),
// LED index row-major.
func gridKB(rows, cols int) (*config.KB, error) {
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
	info := &config.Info{
		KeyboardName: "ksksim",
		Layouts:      map[string]config.Layout{"LAYOUT_grid": {Layout: keys}},
	}
	return config.NewKB(cfg, info, matrix)
}

// typeRandomly queues press/release pairs at a human-ish cadence.
func typeRandomly(fake *hid.Fake, rows, cols int, seed int64, stop <-chan struct{}) {
	rng := rand.New(rand.NewSource(seed))
	for {
		select {
		case <-stop:
			return
		case <-time.After(time.Duration(50+rng.Intn(200)) * time.Millisecond):
		}
		r := uint8(rng.Intn(rows))
		c := uint8(rng.Intn(cols))
		kc := uint16(rng.Intn(256))
		fake.QueueReport(pressReport(true, kc, c, r))
		fake.QueueReport(pressReport(false, kc, c, r))
	}
}

// pressReport builds the raw inbound report the firmware would send,
// including its b4 | b5<<4 keycode packing.
func pressReport(pressed bool, keycode uint16, col, row uint8) []byte {
	flag := byte(0)
	if pressed {
		flag = 1
	}
	return []byte{
		0x6b, 0x73, 0x6b,
		flag, // opcode 0 in the high nibble
		byte(keycode & 0x0f),
		byte(keycode >> 4),
		col, row,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

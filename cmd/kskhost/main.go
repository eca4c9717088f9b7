package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kskhost/internal/config"
	"kskhost/internal/effect"
	"kskhost/internal/hid"
	"kskhost/internal/hidloop"
	"kskhost/internal/ws"
)

func main() {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to host config yaml")
		qmkRoot    = flag.String("qmk", defaultQMKRoot(), "qmk_firmware checkout holding the keyboard's info.json/matrix.json")
		addr       = flag.String("addr", "", "websocket listen address (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	kb, err := config.LoadKB(cfg, *qmkRoot)
	if err != nil {
		log.Fatal().Err(err).Str("keyboard", cfg.Keyboard).Msg("load keyboard metadata")
	}
	log.Info().
		Str("keyboard", kb.Info.KeyboardName).
		Uint8("rows", kb.Rows()).Uint8("cols", kb.Cols()).
		Int("leds", kb.LedCount()).
		Msg("keyboard loaded")

	vid, pid, err := kb.VIDPID()
	if err != nil {
		log.Fatal().Err(err).Msg("usb ids")
	}
	page, usage, err := cfg.UsageIDs()
	if err != nil {
		log.Fatal().Err(err).Msg("hid usage ids")
	}
	dev, err := hid.Open(vid, pid, page, usage)
	if err != nil {
		log.Fatal().Err(err).Msg("open device")
	}

	pipeline, err := effect.Build(effect.Default(), cfg.Effects)
	if err != nil {
		log.Fatal().Err(err).Msg("build effect pipeline")
	}

	loop := hidloop.New(kb, dev, pipeline, log.Logger)
	loop.Start(cfg.UpdateRate, cfg.FrameRate)

	listen := cfg.Addr
	if *addr != "" {
		listen = *addr
	}
	server := ws.NewServer(loop.Mailbox(), log.Logger)
	done := make(chan struct{})
	go server.Run(time.Duration(float64(time.Second)/cfg.FrameRate), done)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	mux.HandleFunc("/health", server.HandleHealth)
	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			log.Warn().Err(err).Str("addr", listen).Msg("http server stopped")
		}
	}()
	log.Info().Str("addr", listen).Msg("serving snapshots")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	close(done)
	stopErr := loop.Stop()
	if err := dev.Close(); err != nil {
		log.Warn().Err(err).Msg("close device")
	}
	if stopErr != nil {
		log.Fatal().Err(stopErr).Msg("loop shutdown")
	}
	log.Info().Msg("stopped")
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "kskhost", "config.yaml")
}

func defaultQMKRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "qmk_firmware"
	}
	return filepath.Join(home, "qmk_firmware")
}

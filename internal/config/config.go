// Package config loads the host configuration and the QMK keyboard
// metadata (info.json, matrix.json) and derives the immutable per-keyboard
// view the rest of the host runs on.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the host-side yaml config.
type Config struct {
	Keyboard  string `yaml:"keyboard"`   // QMK keyboard path, e.g. "splitkb/kyria/rev1"
	Layout    string `yaml:"layout"`     // layout name inside info.json
	UsagePage string `yaml:"usage_page"` // hex, e.g. "0xFF60"
	Usage     string `yaml:"usage"`      // hex, e.g. "0x61"

	UpdateRate float64  `yaml:"update_rate"` // loop iterations per second
	FrameRate  float64  `yaml:"frame_rate"`  // LED frames per second
	Addr       string   `yaml:"addr"`        // websocket listen address
	Effects    []string `yaml:"effects"`     // pipeline, in order
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) applyDefaults() {
	if c.UpdateRate <= 0 {
		c.UpdateRate = 240 // <5 ms per update
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 20
	}
	if c.Addr == "" {
		c.Addr = ":8337"
	}
	if len(c.Effects) == 0 {
		c.Effects = []string{"rainbow"}
	}
}

// UsageIDs parses the hex usage page/usage pair.
func (c *Config) UsageIDs() (page, usage uint16, err error) {
	page, err = ParseHex(c.UsagePage)
	if err != nil {
		return 0, 0, fmt.Errorf("usage_page: %w", err)
	}
	usage, err = ParseHex(c.Usage)
	if err != nil {
		return 0, 0, fmt.Errorf("usage: %w", err)
	}
	return page, usage, nil
}

// ParseHex parses a 16-bit hex id, with or without a 0x prefix. QMK files
// write these as strings.
func ParseHex(s string) (uint16, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad hex id %q", s)
	}
	return uint16(v), nil
}

// Command h2probe drives an in-process client and server Connection
// directly against each other (one side's TakeOutbound feeding the
// other's FeedBytes), purely to exercise the http2 package end to end
// (handshake, one request/response) from a YAML-configured settings
// file. YAML parsing is kept entirely out of the http2 and hpack
// packages, following CuteTenshii-iridium's config.go pattern of
// unmarshaling a small settings struct with gopkg.in/yaml.v3.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mt21625457/http2-parse/http2"
)

// ProbeConfig is the on-disk shape of a probe's settings file.
type ProbeConfig struct {
	Settings struct {
		HeaderTableSize      uint32 `yaml:"header_table_size"`
		InitialWindowSize    uint32 `yaml:"initial_window_size"`
		MaxFrameSize         uint32 `yaml:"max_frame_size"`
		MaxConcurrentStreams uint32 `yaml:"max_concurrent_streams"`
		MaxHeaderListSize    uint32 `yaml:"max_header_list_size"`
		EnablePush           bool   `yaml:"enable_push"`
	} `yaml:"settings"`
	Request struct {
		Method    string            `yaml:"method"`
		Path      string            `yaml:"path"`
		Authority string            `yaml:"authority"`
		Headers   map[string]string `yaml:"headers"`
	} `yaml:"request"`
}

const defaultProbeConfig = `settings:
  header_table_size: 4096
  initial_window_size: 65535
  max_frame_size: 16384
  max_concurrent_streams: 100
  max_header_list_size: 0
  enable_push: false
request:
  method: GET
  path: /
  authority: localhost
  headers: {}
`

func loadProbeConfig(path string) (ProbeConfig, error) {
	var cfg ProbeConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("h2probe: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("h2probe: parse config: %w", err)
	}
	return cfg, nil
}

func (p ProbeConfig) toHTTP2Settings() http2.Settings {
	return http2.Settings{
		HeaderTableSize:      p.Settings.HeaderTableSize,
		EnablePush:           p.Settings.EnablePush,
		MaxConcurrentStreams: p.Settings.MaxConcurrentStreams,
		InitialWindowSize:    p.Settings.InitialWindowSize,
		MaxFrameSize:         p.Settings.MaxFrameSize,
		MaxHeaderListSize:    p.Settings.MaxHeaderListSize,
	}
}

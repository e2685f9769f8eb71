package main

import (
	"os"

	"github.com/vearne/simplelog"

	"github.com/mt21625457/http2-parse/hpack"
	"github.com/mt21625457/http2-parse/http2"
)

// h2probe wires a client and a server Connection directly together in
// process, one side's TakeOutbound() feeding the other's FeedBytes, to
// exercise a full handshake and request/response without ever opening
// a socket: the library under test is I/O-free, so its demonstration
// driver doesn't need to be anything more than this loopback.
func main() {
	path := "h2probe.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(defaultProbeConfig), 0644); err != nil {
			simplelog.Error("h2probe: could not write default config: %v", err)
			os.Exit(1)
		}
		simplelog.Info("h2probe: wrote default config to %s", path)
	}

	cfg, err := loadProbeConfig(path)
	if err != nil {
		simplelog.Error("h2probe: %v", err)
		os.Exit(1)
	}

	var respHeaders []hpack.HeaderField
	client := http2.NewConnection(http2.Config{
		Role:          http2.RoleClient,
		LocalSettings: cfg.toHTTP2Settings(),
	}, http2.Callbacks{
		OnHeaders: func(streamID uint32, fields []hpack.HeaderField, endStream bool) {
			respHeaders = fields
		},
	})

	var requestSeen bool
	var server *http2.Connection
	server = http2.NewConnection(http2.Config{
		Role:          http2.RoleServer,
		LocalSettings: cfg.toHTTP2Settings(),
	}, http2.Callbacks{
		OnHeaders: func(streamID uint32, fields []hpack.HeaderField, endStream bool) {
			if !endStream {
				return
			}
			requestSeen = true
			reply := []hpack.HeaderField{
				{Name: ":status", Value: "200"},
				{Name: "content-type", Value: "text/plain"},
			}
			if err := server.Send.Headers(streamID, reply, true); err != nil {
				simplelog.Error("h2probe: server send headers: %v", err)
			}
		},
	})

	client.SendInitialSettings()
	server.SendInitialSettings()

	exchange := func() {
		for {
			progressed := false
			if out := client.TakeOutbound(); len(out) > 0 {
				if _, err := server.FeedBytes(out); err != nil {
					simplelog.Error("h2probe: server feed: %v", err)
				}
				progressed = true
			}
			if out := server.TakeOutbound(); len(out) > 0 {
				if _, err := client.FeedBytes(out); err != nil {
					simplelog.Error("h2probe: client feed: %v", err)
				}
				progressed = true
			}
			if !progressed {
				return
			}
		}
	}
	exchange() // settles the SETTINGS handshake both ways

	fields := []hpack.HeaderField{
		{Name: ":method", Value: cfg.Request.Method},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: cfg.Request.Path},
		{Name: ":authority", Value: cfg.Request.Authority},
	}
	for k, v := range cfg.Request.Headers {
		fields = append(fields, hpack.HeaderField{Name: k, Value: v})
	}
	if err := client.Send.Headers(1, fields, true); err != nil {
		simplelog.Error("h2probe: client send headers: %v", err)
		os.Exit(1)
	}
	exchange()

	if !requestSeen {
		simplelog.Error("h2probe: server never observed a complete request")
		os.Exit(1)
	}
	simplelog.Info("h2probe: request %s %s -> response headers:", cfg.Request.Method, cfg.Request.Path)
	for _, f := range respHeaders {
		simplelog.Info("h2probe:   %s: %s", f.Name, f.Value)
	}
}

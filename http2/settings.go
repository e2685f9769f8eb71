package http2

// SettingID names one of the six RFC 7540 §6.5.2 SETTINGS parameters.
// Unknown IDs received on the wire are ignored per spec, not an error
// (mirrors gorox's http2Setting* + http2InitialSettings shape in
// web_proto_http2.go, generalized beyond gorox's hardcoded push-disabled
// single instance).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// Settings holds one peer's view of all six parameters. Zero value is
// not valid; use DefaultSettings.
type Settings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32 // 0 here means "unbounded" (no ceiling was ever sent)
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32 // 0 here means "unbounded"
}

// DefaultSettings are RFC 7540's initial values, in effect for both
// ends of a connection until a SETTINGS frame changes them.
func DefaultSettings() Settings {
	return Settings{
		HeaderTableSize:      4096,
		EnablePush:           true,
		MaxConcurrentStreams: 0,
		InitialWindowSize:    65535,
		MaxFrameSize:         16384,
		MaxHeaderListSize:    0,
	}
}

const (
	minMaxFrameSize = 16384
	maxMaxFrameSize = 1<<24 - 1
	maxWindowSize   = 1<<31 - 1
)

// applySetting validates and applies one (id, value) pair, returning a
// ConnError for a value RFC 7540 §6.5.2 forbids. Unknown ids are
// accepted as no-ops.
func (s *Settings) applySetting(id SettingID, value uint32) error {
	switch id {
	case SettingHeaderTableSize:
		s.HeaderTableSize = value
	case SettingEnablePush:
		if value > 1 {
			return &ConnError{Code: ErrCodeProtocol, Reason: "SETTINGS_ENABLE_PUSH must be 0 or 1"}
		}
		s.EnablePush = value == 1
	case SettingMaxConcurrentStreams:
		s.MaxConcurrentStreams = value
	case SettingInitialWindowSize:
		if value > maxWindowSize {
			return &ConnError{Code: ErrCodeFlowControl, Reason: "SETTINGS_INITIAL_WINDOW_SIZE exceeds 2^31-1"}
		}
		s.InitialWindowSize = value
	case SettingMaxFrameSize:
		if value < minMaxFrameSize || value > maxMaxFrameSize {
			return &ConnError{Code: ErrCodeProtocol, Reason: "SETTINGS_MAX_FRAME_SIZE out of range"}
		}
		s.MaxFrameSize = value
	case SettingMaxHeaderListSize:
		s.MaxHeaderListSize = value
	}
	return nil
}

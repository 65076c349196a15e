package presence

import "time"

// Config controls how the SDK connects and how often it reports.
type Config struct {
	// URL is the base websocket endpoint, e.g. "wss://host/ws". The
	// conversation path and auth token are appended on connect.
	URL string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// ThrottleInterval is the minimum interval between scroll reports for an
	// unchanged position, and the upper bound on how long a scroll burst may
	// defer a report.
	ThrottleInterval time.Duration

	// SettleDelay is how long scrolling must pause before the settled
	// position is reported.
	SettleDelay time.Duration

	AutoReconnect     bool
	ReconnectInterval time.Duration
	MaxReconnectDelay time.Duration
	MaxReconnectTries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		// Read timeout stays disabled: the server handles idle detection
		// with ping/pong, and a quiet conversation is not an error.
		ReadTimeout:       0,
		WriteTimeout:      10 * time.Second,
		ThrottleInterval:  1500 * time.Millisecond,
		SettleDelay:       250 * time.Millisecond,
		AutoReconnect:     true,
		ReconnectInterval: 2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		MaxReconnectTries: 5,
	}
}

package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// LiveKit credentials for the media adapter (internal/callengine/livekit).
	LiveKitAPIKey    string `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret string `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`
	LiveKitURL       string `mapstructure:"livekit_url" yaml:"livekit_url"`

	// CallTimeout bounds how long an outbound invite rings before the engine
	// gives up (§4.6 calling timer).
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	// CallFirstFrameWaitDisabled skips the first-frame rendezvous and moves
	// straight to Connected as soon as the call is accepted. Useful for
	// audio-only deployments or environments without a real decoder.
	CallFirstFrameWaitDisabled bool `mapstructure:"call_first_frame_wait_disabled" yaml:"call_first_frame_wait_disabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,

		DatabasePath: "wirechat.db",

		JWTSecret:   "change-me-in-production",
		JWTIssuer:   "wirechat-server",
		JWTAudience: "wirechat-clients",

		LiveKitAPIKey:    "",
		LiveKitAPISecret: "",
		LiveKitURL:       "ws://localhost:7880",

		CallTimeout:                30 * time.Second,
		CallFirstFrameWaitDisabled: false,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.LiveKitAPIKey != "" {
		c.LiveKitAPIKey = other.LiveKitAPIKey
	}
	if other.LiveKitAPISecret != "" {
		c.LiveKitAPISecret = other.LiveKitAPISecret
	}
	if other.LiveKitURL != "" {
		c.LiveKitURL = other.LiveKitURL
	}
	if other.CallTimeout != 0 {
		c.CallTimeout = other.CallTimeout
	}
	if other.CallFirstFrameWaitDisabled {
		c.CallFirstFrameWaitDisabled = other.CallFirstFrameWaitDisabled
	}
}

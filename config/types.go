package config

// RPC controls the JSON-RPC listener.
type RPC struct {
	// AuthToken, when set, is required as a bearer token on
	// prize_sendTransaction.
	AuthToken          string  `toml:"AuthToken"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	ReadHeaderTimeout  int     `toml:"ReadHeaderTimeout"` // seconds
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For from any peer.
	TrustProxyHeaders bool `toml:"TrustProxyHeaders"`
	// TrustedProxies lists peer IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `toml:"TrustedProxies"`
}

// Logging configures optional file output. An empty File logs to stdout only.
type Logging struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

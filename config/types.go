package config

import "time"

// Admin seeds the administrative collaborator at genesis.
type Admin struct {
	Owner  string `toml:"Owner"`
	FeeBps uint32 `toml:"FeeBps"`
}

// Auth configures bearer token verification for mutating API routes. With an
// empty HMACSecret the API trusts the X-Caller header instead.
type Auth struct {
	HMACSecret string   `toml:"HMACSecret"`
	Issuer     string   `toml:"Issuer"`
	Audience   string   `toml:"Audience"`
	ClockSkew  Duration `toml:"ClockSkew"`
}

// Enabled reports whether tokens are required.
func (a Auth) Enabled() bool { return a.HMACSecret != "" }

// RateLimit bounds requests per client address. Enable TrustProxyHeaders only
// behind a reverse proxy that overwrites X-Real-IP and X-Forwarded-For.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
	TrustProxyHeaders bool    `toml:"TrustProxyHeaders"`
}

// Logging controls the structured logger and its optional rotated file.
type Logging struct {
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Telemetry configures the OTLP/HTTP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// GenesisAccount is an initial balance allocation. Balance is a base-10
// integer string so it can exceed 64 bits.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

// Duration decodes TOML strings such as "2m" into a time.Duration.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

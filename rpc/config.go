// Package rpc implements the control-plane HTTP+JSON server: session-id
// CSRF protection, remote-address and host whitelisting, anti-brute-force
// lockout, CORS, gzip response compression and static web-UI serving.
package rpc

import "time"

// BasicAuth holds optional HTTP basic-auth credentials gating the RPC
// surface. A zero value disables basic auth entirely.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// BruteForce bounds the number of failed basic-auth attempts before a
// remote address is locked out with 403s regardless of credentials.
type BruteForce struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// BindRetry bounds the bind-retry schedule used when the listener address
// is temporarily unavailable (e.g. TIME_WAIT from a just-stopped process).
type BindRetry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Base        time.Duration `yaml:"base"`
	Max         time.Duration `yaml:"max"`
}

func (c BindRetry) applyDefaults() BindRetry {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.Base == 0 {
		c.Base = 5 * time.Second
	}
	if c.Max == 0 {
		c.Max = 60 * time.Second
	}
	return c
}

// Config configures the RPC server.
type Config struct {
	// Address is the "host:port" to bind, e.g. ":9091". Ignored if
	// UnixSocket is set.
	Address string `yaml:"address"`

	// UnixSocket, if set, takes precedence over Address.
	UnixSocket string `yaml:"unix_socket"`

	// URL is the path prefix under which /web and /rpc are served, e.g.
	// "/transmission/".
	URL string `yaml:"url"`

	// WebUIDir is the directory serving /<url>/web/... static assets.
	WebUIDir string `yaml:"web_ui_dir"`

	// Whitelist is the set of wildmat patterns a remote address's
	// dotted-quad text must match (step 2 of the pipeline). It is checked
	// only when WhitelistEnabled is set; an enabled empty list rejects
	// every address.
	Whitelist []string `yaml:"rpc_whitelist"`
	WhitelistEnabled bool `yaml:"rpc_whitelist_enabled"`

	// HostWhitelist is the set of wildmat patterns a Host header must
	// match when basic auth is disabled (step 5). It is checked only when
	// HostWhitelistEnabled is set; localhost and IP literals always pass,
	// and an enabled empty list rejects every other host.
	HostWhitelist []string `yaml:"rpc_host_whitelist"`
	HostWhitelistEnabled bool `yaml:"rpc_host_whitelist_enabled"`

	Auth       BasicAuth  `yaml:"rpc_auth"`
	BruteForce BruteForce `yaml:"rpc_brute_force"`
	BindRetry  BindRetry  `yaml:"bind_retry"`
}

func (c Config) applyDefaults() Config {
	if c.URL == "" {
		c.URL = "/transmission"
	}
	c.BindRetry = c.BindRetry.applyDefaults()
	return c
}

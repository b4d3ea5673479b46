package config

import (
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Config represents the configuration of the STS daemon.
type Config struct {
	// Version represent the configuration file version.
	Version string `yaml:"version"`

	// Server represent the STS server and health check server configuration.
	Server Server `yaml:"server"`

	// STS represent the token issuance policy configuration shared by every tenant.
	STS STS `yaml:"sts"`
}

// Server represent STS server and health check server configuration.
type Server struct {
	// Port represent the STS server port.
	Port int `yaml:"port"`

	// HealthzPort represent health check server port for K8s.
	HealthzPort int `yaml:"health_check_port"`

	// HealthzPath represent the server path (pattern) for health check server.
	HealthzPath string `yaml:"health_check_path"`

	// Timeout represent the STS server timeout value.
	Timeout string `yaml:"timeout"`

	// ShutdownDuration represent the parse duration before the server shutdown.
	ShutdownDuration string `yaml:"shutdown_duration"`

	// ProbeWaitTime represent the parse duration between health check server and STS server shutdown.
	ProbeWaitTime string `yaml:"probe_wait_time"`

	// TLS represent the TLS configuration for the STS server.
	TLS TLS `yaml:"tls"`
}

// TLS represent the TLS configuration for the STS server.
type TLS struct {
	// Enabled represent whether the STS server serves TLS or not.
	Enabled bool `yaml:"enabled"`

	// CertKey represent the certificate environment variable key used to start the STS server.
	CertKey string `yaml:"cert_key"`

	// KeyKey represent the private key environment variable key used to start the STS server.
	KeyKey string `yaml:"key_key"`

	// CAKey represent the CA certificate environment variable key used to start the STS server.
	CAKey string `yaml:"ca_key"`
}

// STS represent the protocol engine policy knobs.
type STS struct {
	// ClockTolerance represent the allowed clock drift between client and server, applied on both ends of a request validity window.
	ClockTolerance string `yaml:"clock_tolerance"`

	// SessionCacheSize represent the capacity of the in-flight negotiation session cache.
	SessionCacheSize int `yaml:"session_cache_size"`

	// InstanceExpiry represent the TTL of a cached per-tenant STS instance.
	InstanceExpiry string `yaml:"instance_expiry"`

	// MaxChallengeRounds represent how many incomplete challenge rounds re-save the negotiation session.
	MaxChallengeRounds int `yaml:"max_challenge_rounds"`
}

const (
	currentVersion = "v2.0.0"
)

// New returns the decoded configuration from the given file path, or any error occurred.
func New(path string) (*Config, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := new(Config)
	err = yaml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetVersion returns the daemon configuration version.
func GetVersion() string {
	return currentVersion
}

// GetActualValue returns the environment variable value if the given value is surrounded by "_", otherwise the value itself.
func GetActualValue(val string) string {
	if checkPrefixAndSuffix(val, "_", "_") {
		return os.Getenv(strings.TrimPrefix(strings.TrimSuffix(val, "_"), "_"))
	}
	return val
}

// checkPrefixAndSuffix checks if the given string has the given prefix and suffix.
func checkPrefixAndSuffix(str, pref, suf string) bool {
	return strings.HasPrefix(str, pref) && strings.HasSuffix(str, suf)
}

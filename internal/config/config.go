// config.go — Recognized configuration options and defaults.
package config

import (
	"fmt"
	"time"

	"github.com/monitorcore/monitorcore/internal/sampler"
	"gopkg.in/yaml.v3"
)

// Features toggles whole capture subsystems on or off.
type Features struct {
	Performance bool `yaml:"performance" json:"performance"`
	Errors      bool `yaml:"errors" json:"errors"`
	Behavior    bool `yaml:"behavior" json:"behavior"`
	Replay      bool `yaml:"replay" json:"replay"`
}

// DefaultFeatures enables performance/errors/behavior capture and
// leaves replay off.
func DefaultFeatures() Features {
	return Features{Performance: true, Errors: true, Behavior: true, Replay: false}
}

// Reporting configures the HTTP sender.
type Reporting struct {
	BatchSize     int           `yaml:"batchSize" json:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval" json:"flushInterval"`
	MaxRetries    int           `yaml:"maxRetries" json:"maxRetries"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// UnmarshalYAML reads batchSize/flushInterval/maxRetries/timeout with
// flushInterval and timeout expressed as plain millisecond integers
// rather than Go's default duration encoding.
func (r *Reporting) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BatchSize     int `yaml:"batchSize"`
		FlushInterval int `yaml:"flushInterval"`
		MaxRetries    int `yaml:"maxRetries"`
		Timeout       int `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.BatchSize = raw.BatchSize
	r.FlushInterval = time.Duration(raw.FlushInterval) * time.Millisecond
	r.MaxRetries = raw.MaxRetries
	r.Timeout = time.Duration(raw.Timeout) * time.Millisecond
	return nil
}

// DefaultReporting returns batchSize=50, flushInterval=5s, maxRetries=3, timeout=10s.
func DefaultReporting() Reporting {
	return Reporting{
		BatchSize:     50,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		Timeout:       10 * time.Second,
	}
}

// Privacy configures masking and domain/element allow-lists.
type Privacy struct {
	MaskSensitiveData bool     `yaml:"maskSensitiveData" json:"maskSensitiveData"`
	AllowedDomains    []string `yaml:"allowedDomains" json:"allowedDomains"`
	BlockedElements   []string `yaml:"blockedElements" json:"blockedElements"`
}

// DefaultPrivacy enables masking by default.
func DefaultPrivacy() Privacy {
	return Privacy{MaskSensitiveData: true}
}

// Config holds every recognized SDK option.
type Config struct {
	AppID       string
	APIKey      string
	Endpoint    string
	Features    Features
	Sampling    sampler.Rates
	Reporting   Reporting
	Privacy     Privacy
	Debug       bool
	Environment string

	// PageLoadThresholdMS forces sampling to admit any performance event
	// whose PageLoadTime exceeds this value, regardless of the
	// performance sampling rate. 0 disables the override.
	PageLoadThresholdMS float64 `yaml:"pageLoadThresholdMs" json:"pageLoadThresholdMs"`

	// SpillStorePath names a sqlite file for a durable backing store.
	// Nothing in this module reads it: orchestrator.New backs the spill
	// and identity stores with whichever store.KV it is given, and
	// store.OpenDurable is the constructor that opens a sqlite KV for a
	// path.
	SpillStorePath string
}

// Default returns a Config with every optional field at its default
// value. Callers must still set AppID/APIKey/Endpoint.
func Default() Config {
	return Config{
		Features:            DefaultFeatures(),
		Sampling:            sampler.DefaultRates(),
		Reporting:           DefaultReporting(),
		Privacy:             DefaultPrivacy(),
		PageLoadThresholdMS: DefaultPageLoadThresholdMS,
	}
}

// DefaultPageLoadThresholdMS forces admission of any performance event
// whose page load exceeds 3s, a commonly used "slow load" boundary.
const DefaultPageLoadThresholdMS = 3000

// Validate enforces that appId, apiKey, endpoint are required
// non-empty strings. Configuration failures are raised at construction;
// the core refuses to initialize.
func (c Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("config: appId is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("config: apiKey is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("config: endpoint is required")
	}
	return nil
}

// yaml.go — Optional YAML config file loading, layered over programmatic defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileShape mirrors Config but with plain fields so zero values can be
// told apart from "not set in the file" via pointers where it matters.
type fileShape struct {
	AppID               string     `yaml:"appId"`
	APIKey              string     `yaml:"apiKey"`
	Endpoint            string     `yaml:"endpoint"`
	Features            *Features  `yaml:"features"`
	Reporting           *Reporting `yaml:"reporting"`
	Privacy             *Privacy   `yaml:"privacy"`
	Debug               bool       `yaml:"debug"`
	Environment         string     `yaml:"environment"`
	PageLoadThresholdMS float64    `yaml:"pageLoadThresholdMs"`
}

// LoadYAML reads a YAML config file and layers it over Default(),
// returning a fully-populated Config. Missing sections keep their
// programmatic defaults.
func LoadYAML(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied at startup
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fs fileShape
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg.AppID = fs.AppID
	cfg.APIKey = fs.APIKey
	cfg.Endpoint = fs.Endpoint
	cfg.Debug = fs.Debug
	cfg.Environment = fs.Environment
	if fs.PageLoadThresholdMS > 0 {
		cfg.PageLoadThresholdMS = fs.PageLoadThresholdMS
	}
	if fs.Features != nil {
		cfg.Features = *fs.Features
	}
	if fs.Reporting != nil {
		r := *fs.Reporting
		if r.FlushInterval == 0 {
			r.FlushInterval = cfg.Reporting.FlushInterval
		}
		if r.Timeout == 0 {
			r.Timeout = cfg.Reporting.Timeout
		}
		cfg.Reporting = r
	}
	if fs.Privacy != nil {
		cfg.Privacy = *fs.Privacy
	}

	return cfg, cfg.Validate()
}

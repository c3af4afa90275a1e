// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gogama/httpasync/timeout"
	"github.com/gogama/httpasync/transport"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Config is the asyncpost configuration file.
type Config struct {
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	Path      string            `yaml:"path"`
	UserAgent string            `yaml:"user_agent"`
	Proxy     string            `yaml:"proxy"`
	Headers   map[string]string `yaml:"headers"`
	// Body is encoded as JSON and sent with every attempt.
	Body interface{} `yaml:"body"`
	// CAFile names a PEM bundle trusted instead of the system roots.
	CAFile   string         `yaml:"ca_file"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	LogLevel string         `yaml:"log_level"`
	// Listen is the address of the metrics and profiling server. Empty
	// disables it.
	Listen string `yaml:"listen"`
}

// TimeoutsConfig sets the per-stage I/O deadlines. Zero keeps the
// transport default for that stage.
type TimeoutsConfig struct {
	Connect time.Duration `yaml:"connect"`
	Send    time.Duration `yaml:"send"`
	Receive time.Duration `yaml:"receive"`
}

func defaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     transport.DefaultHTTPSPort,
		Path:     "/",
		Proxy:    transport.NoProxy.String(),
		LogLevel: "info",
		Body: map[string]interface{}{
			"type":    "broadcast",
			"message": "realtime rest check",
		},
	}
}

// loadConfig reads the YAML file at path over the defaults. An empty
// path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asyncpost: read config: %w", err)
	}
	if err = yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("asyncpost: parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Host == "" {
		return errors.New("asyncpost: host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("asyncpost: invalid port: %d", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("asyncpost: path must begin with /: %q", c.Path)
	}
	if _, err := c.proxyPolicy(); err != nil {
		return err
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Send < 0 || c.Timeouts.Receive < 0 {
		return errors.New("asyncpost: timeouts must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("asyncpost: invalid log level: %s", c.LogLevel)
	}
	return nil
}

func (c *Config) proxyPolicy() (transport.ProxyPolicy, error) {
	switch strings.ToLower(c.Proxy) {
	case "", transport.NoProxy.String():
		return transport.NoProxy, nil
	case transport.AutomaticProxy.String():
		return transport.AutomaticProxy, nil
	default:
		return 0, fmt.Errorf("asyncpost: invalid proxy policy: %s", c.Proxy)
	}
}

func (c *Config) timeouts() timeout.Policy {
	t := c.Timeouts
	if t.Connect == 0 && t.Send == 0 && t.Receive == 0 {
		return nil
	}
	def := timeout.DefaultPolicy
	pick := func(d time.Duration, s timeout.Stage) time.Duration {
		if d == 0 {
			return def.Timeout(s)
		}
		return d
	}
	return timeout.Stages(
		pick(t.Connect, timeout.Connect),
		pick(t.Send, timeout.Send),
		pick(t.Receive, timeout.Receive),
	)
}

func (c *Config) tlsConfig() (*tls.Config, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("asyncpost: read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("asyncpost: no certificates in %s", c.CAFile)
	}
	return &tls.Config{RootCAs: pool}, nil
}

func (c *Config) header() http.Header {
	h := http.Header{}
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return h
}

func (c *Config) payload() ([]byte, error) {
	if c.Body == nil {
		return nil, nil
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(c.Body)
	if err != nil {
		return nil, fmt.Errorf("asyncpost: encode body: %w", err)
	}
	return b, nil
}

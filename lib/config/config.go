// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the ringlink daemon configuration from YAML.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "RINGLINK_CONFIG"

// Config is the daemon configuration.
type Config struct {
	// SigningKeyFile holds the hex Ed25519 seed identifying this
	// node.
	SigningKeyFile string `yaml:"signing_key_file"`

	// SealedKeyFile holds the age identity used to open relayed
	// message bodies sealed to this node.
	SealedKeyFile string `yaml:"sealed_key_file"`

	Signaling SignalingConfig `yaml:"signaling"`
	ICE       ICEConfig       `yaml:"ice"`
	Backend   BackendConfig   `yaml:"backend"`
}

// SignalingConfig locates the rendezvous hub.
type SignalingConfig struct {
	// URL is the hub's WebSocket endpoint, e.g.
	// "wss://signal.example.org/ws". Empty selects the in-process
	// signaler, which only connects nodes inside one process.
	URL string `yaml:"url"`
}

// ICEConfig lists STUN/TURN servers for candidate gathering. Empty
// means host candidates only.
type ICEConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

// BackendConfig enables tunneled service execution.
type BackendConfig struct {
	// HTTPServer, when set, exposes the local HTTP service on the
	// given port to requests tunneled from remote peers. Nil disables
	// tunneling.
	HTTPServer *HTTPServerConfig `yaml:"http_server"`
}

type HTTPServerConfig struct {
	Port int `yaml:"port"`
}

// ResolvePath picks the config file path: the flag value if non-empty,
// otherwise the RINGLINK_CONFIG environment variable.
func ResolvePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no config file: pass --config or set %s", EnvConfigPath)
}

// Load reads and validates a config file. Unknown fields are an error,
// so a typo fails loudly instead of silently disabling a feature.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SigningKeyFile == "" {
		return fmt.Errorf("signing_key_file is required")
	}
	if c.SealedKeyFile == "" {
		return fmt.Errorf("sealed_key_file is required")
	}
	if c.Backend.HTTPServer != nil {
		port := c.Backend.HTTPServer.Port
		if port < 1 || port > 65535 {
			return fmt.Errorf("backend.http_server.port %d out of range", port)
		}
	}
	return nil
}

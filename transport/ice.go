// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/pion/webrtc/v4"

// ICEConfig holds the ICE server configuration a Negotiator passes to
// its PeerConnection. Order matters: pion tries servers in sequence.
type ICEConfig struct {
	Servers []webrtc.ICEServer
}

// ICEConfigFromSTUN builds a config from plain STUN/TURN URLs (for
// example "stun:stun.example.org:3478"). With no URLs the connection
// gathers host candidates only — sufficient for same-machine and
// same-LAN use, which is also how the tests run.
func ICEConfigFromSTUN(urls ...string) ICEConfig {
	if len(urls) == 0 {
		return ICEConfig{}
	}
	return ICEConfig{
		Servers: []webrtc.ICEServer{
			{URLs: urls},
		},
	}
}

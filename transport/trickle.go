// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/ringlink-foundation/ringlink/envelope"
)

// iceGatherTimeout bounds the wait for local candidate gathering before
// a handshake snapshot is taken. Gathering on a host-only config
// finishes in milliseconds; a STUN server that never answers must not
// stall the handshake, so after the timeout the snapshot ships with
// whatever candidates exist.
const iceGatherTimeout = 15 * time.Second

// TricklePayload is the signed unit of handshake exchange: one SDP
// description plus the local ICE candidates gathered alongside it.
// Signing the pair as a whole binds the candidates to the description
// and its signer; a relay cannot inject, drop, or reorder candidates
// without breaking the signature.
type TricklePayload struct {
	SDP        string   `cbor:"sdp"`
	Candidates []string `cbor:"candidates"`
}

// marshalDescription renders an SDP description as a JSON string so the
// type (offer/answer) travels with the SDP text.
func marshalDescription(desc webrtc.SessionDescription) (string, error) {
	encoded, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("encoding session description: %w", err)
	}
	return string(encoded), nil
}

func unmarshalDescription(encoded string) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal([]byte(encoded), &desc); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("decoding session description: %w", err)
	}
	return desc, nil
}

// HandshakeInfo produces this side's signed handshake envelope. kind
// selects offer or answer creation (anything else is an error), the
// description is set as the local description, and once candidate
// gathering settles the description and candidate snapshot are sealed
// into a signed envelope under key.
func (n *Negotiator) HandshakeInfo(key ed25519.PrivateKey, kind webrtc.SDPType) (string, error) {
	var (
		desc webrtc.SessionDescription
		err  error
	)
	switch kind {
	case webrtc.SDPTypeOffer:
		desc, err = n.CreateOffer()
	case webrtc.SDPTypeAnswer:
		desc, err = n.CreateAnswer()
	default:
		return "", fmt.Errorf("unsupported handshake SDP type %q", kind)
	}
	if err != nil {
		return "", err
	}

	select {
	case <-n.GatheringComplete():
	case <-time.After(iceGatherTimeout):
		n.logger.Warn("ICE gathering did not settle before handshake snapshot")
	}

	sdp, err := marshalDescription(desc)
	if err != nil {
		return "", err
	}

	payload := TricklePayload{
		SDP:        sdp,
		Candidates: n.PendingCandidates(),
	}
	sealed, err := envelope.Seal(key, payload)
	if err != nil {
		return "", fmt.Errorf("sealing handshake payload: %w", err)
	}
	return sealed, nil
}

// RegisterRemoteInfo verifies and applies the remote side's handshake
// envelope: the signature is checked first, then the SDP becomes the
// remote description and each candidate is applied in order. The first
// failing candidate aborts registration, because a partially applied
// candidate set would leave the connection in a state neither side can
// reason about. Returns the verified signer key so the caller can bind
// the connection to a peer identity.
func (n *Negotiator) RegisterRemoteInfo(sealed string) (ed25519.PublicKey, error) {
	var payload TricklePayload
	signer, err := envelope.Open(sealed, &payload)
	if err != nil {
		return nil, fmt.Errorf("opening handshake envelope: %w", err)
	}

	desc, err := unmarshalDescription(payload.SDP)
	if err != nil {
		return nil, err
	}
	if err := n.SetRemoteDescription(desc); err != nil {
		return nil, err
	}

	for _, candidate := range payload.Candidates {
		if err := n.AddICECandidate(candidate); err != nil {
			return nil, fmt.Errorf("applying remote candidate: %w", err)
		}
	}

	return signer, nil
}

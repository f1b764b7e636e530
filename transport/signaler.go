// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"time"
)

// signalKeySeparator joins the two fingerprints that key an exchange
// slot. Fingerprints are lowercase hex, so the separator can never
// appear inside one.
const signalKeySeparator = "|"

// SignalMessage is one handshake envelope retrieved from a signaling
// channel. Envelope is the base64 signed-envelope form produced by
// HandshakeInfo; the signaling layer never looks inside it.
type SignalMessage struct {
	// PeerFingerprint identifies the counterparty: the offerer for a
	// polled offer, the answerer for a polled answer. Advisory only;
	// the envelope signature is the authority on who sent it.
	PeerFingerprint string

	Envelope string

	Timestamp time.Time
}

// Signaler exchanges handshake envelopes between peers that cannot yet
// talk directly. Implementations must let a node publish an offer
// toward a named peer, publish an answer back to an offerer, and poll
// for envelopes addressed to it. Polling returns each message at most
// once per signaler instance.
type Signaler interface {
	// PublishOffer makes an offer envelope from local available to
	// target. Publishing again for the same pair replaces the
	// previous offer.
	PublishOffer(ctx context.Context, local, target, envelope string) error

	// PublishAnswer makes an answer envelope from local available to
	// the offerer it answers.
	PublishAnswer(ctx context.Context, offerer, local, envelope string) error

	// PollOffers returns offers addressed to local that arrived since
	// the previous poll.
	PollOffers(ctx context.Context, local string) ([]SignalMessage, error)

	// PollAnswers returns answers to offers local published that
	// arrived since the previous poll.
	PollAnswers(ctx context.Context, local string) ([]SignalMessage, error)

	Close() error
}

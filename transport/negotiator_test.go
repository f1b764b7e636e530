// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestNegotiator returns a started negotiator using host candidates
// only, plus the receiving side of its event channel.
func newTestNegotiator(t *testing.T) (*Negotiator, *Receiver) {
	t.Helper()
	sender, receiver := NewChannel(16)
	negotiator := NewNegotiator(sender, testLogger())
	if err := negotiator.Start(ICEConfig{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		negotiator.Close()
		receiver.Close()
	})
	return negotiator, receiver
}

func TestNegotiatorStartTwiceFails(t *testing.T) {
	t.Parallel()
	negotiator, _ := newTestNegotiator(t)
	if err := negotiator.Start(ICEConfig{}); err == nil {
		t.Fatal("second Start succeeded, want error")
	}
}

func TestNegotiatorCreateOfferSetsLocalDescription(t *testing.T) {
	t.Parallel()
	negotiator, _ := newTestNegotiator(t)

	offer, err := negotiator.CreateOffer()
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	if offer.SDP == "" {
		t.Fatal("CreateOffer returned empty SDP")
	}

	local := negotiator.LocalDescription()
	if local == nil {
		t.Fatal("LocalDescription is nil after CreateOffer")
	}
}

func TestNegotiatorOperationsRequireStart(t *testing.T) {
	t.Parallel()
	sender, receiver := NewChannel(1)
	defer receiver.Close()
	negotiator := NewNegotiator(sender, testLogger())

	if _, err := negotiator.CreateOffer(); err == nil {
		t.Error("CreateOffer before Start succeeded, want error")
	}
	if err := negotiator.AddICECandidate("candidate:0 1 UDP 1 127.0.0.1 9 typ host"); err == nil {
		t.Error("AddICECandidate before Start succeeded, want error")
	}
	if err := negotiator.Send([]byte("x")); err == nil {
		t.Error("Send before Start succeeded, want error")
	}
}

func TestNegotiatorRecordsCandidatesInOrder(t *testing.T) {
	t.Parallel()
	sender, receiver := NewChannel(1)
	defer receiver.Close()
	defer sender.Close()
	negotiator := NewNegotiator(sender, testLogger())

	candidates := []string{"candidate-a", "candidate-b", "candidate-c"}
	for _, candidate := range candidates {
		negotiator.recordCandidate(candidate)
	}

	pending := negotiator.PendingCandidates()
	if len(pending) != len(candidates) {
		t.Fatalf("got %d pending candidates, want %d", len(pending), len(candidates))
	}
	for i, candidate := range candidates {
		if pending[i] != candidate {
			t.Fatalf("pending[%d] = %q, want %q", i, pending[i], candidate)
		}
	}

	// Snapshots are copies; mutating one must not affect recording.
	pending[0] = "mutated"
	if negotiator.PendingCandidates()[0] != "candidate-a" {
		t.Fatal("PendingCandidates snapshot shares backing storage")
	}
}

func TestNegotiatorCandidateHandlerStillRecords(t *testing.T) {
	t.Parallel()
	sender, receiver := NewChannel(1)
	defer receiver.Close()
	defer sender.Close()
	negotiator := NewNegotiator(sender, testLogger())

	var handled []string
	negotiator.OnICECandidate(func(candidate string) {
		handled = append(handled, candidate)
	})

	negotiator.recordCandidate("candidate-x")

	if len(handled) != 1 || handled[0] != "candidate-x" {
		t.Fatalf("handler saw %v, want [candidate-x]", handled)
	}
	if pending := negotiator.PendingCandidates(); len(pending) != 1 {
		t.Fatalf("got %d pending candidates with handler installed, want 1", len(pending))
	}
}

func TestNegotiatorReplacesDataChannel(t *testing.T) {
	t.Parallel()
	negotiator, _ := newTestNegotiator(t)

	first := negotiator.channel
	if first == nil {
		t.Fatal("Start did not create a data channel")
	}

	negotiator.mu.Lock()
	err := negotiator.setupDataChannelLocked()
	second := negotiator.channel
	negotiator.mu.Unlock()
	if err != nil {
		t.Fatalf("second data channel setup failed: %v", err)
	}
	if second == first {
		t.Fatal("data channel was not replaced")
	}
}

func TestNegotiatorCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	sender, receiver := NewChannel(1)
	defer receiver.Close()
	negotiator := NewNegotiator(sender, testLogger())
	if err := negotiator.Start(ICEConfig{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := negotiator.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := negotiator.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ringlink-foundation/ringlink/lib/identity"
	"github.com/ringlink-foundation/ringlink/lib/testutil"
)

// newTestConnector builds a connector with a fresh identity on the
// shared signaler. Discovered peers land on the returned channel.
func newTestConnector(t *testing.T, signaler Signaler) (*Connector, chan *Peer) {
	t.Helper()
	key := testSigningKey(t)

	peers := make(chan *Peer, 4)
	connector := NewConnector(signaler, key, ICEConfig{}, func(peer *Peer) {
		peers <- peer
	}, testLogger())
	t.Cleanup(func() { connector.Close() })
	return connector, peers
}

func TestConnectorRefusesSelfDial(t *testing.T) {
	t.Parallel()
	connector, _ := newTestConnector(t, NewMemorySignaler())

	if _, err := connector.Dial(context.Background(), connector.LocalFingerprint()); err == nil {
		t.Fatal("dialing own fingerprint succeeded, want error")
	}
}

func TestConnectorDialEstablishesAndDelivers(t *testing.T) {
	signaler := NewMemorySignaler()
	dialer, _ := newTestConnector(t, signaler)
	responder, responderPeers := newTestConnector(t, signaler)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	go responder.Serve(ctx)

	peer, err := dialer.Dial(ctx, responder.LocalFingerprint())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if peer.Fingerprint != responder.LocalFingerprint() {
		t.Fatalf("dialed peer fingerprint = %s, want %s", peer.Fingerprint, responder.LocalFingerprint())
	}
	if identity.Fingerprint(peer.PublicKey) != peer.Fingerprint {
		t.Fatal("peer public key does not match its fingerprint")
	}

	responderPeer := testutil.RequireReceive(t, responderPeers, "inbound peer")
	if responderPeer.Fingerprint != dialer.LocalFingerprint() {
		t.Fatalf("responder peer fingerprint = %s, want %s", responderPeer.Fingerprint, dialer.LocalFingerprint())
	}

	testutil.RequireClosed(t, responderPeer.Established(), "responder peer establishment")

	// One message across the freshly dialed channel.
	message := []byte("dialed and delivered")
	deadline := time.Now().Add(10 * time.Second)
	for {
		if err := peer.Negotiator.Send(message); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("data channel never became sendable")
		}
		time.Sleep(50 * time.Millisecond)
	}

	for {
		event, err := responderPeer.Events.Recv(ctx)
		if err != nil {
			t.Fatalf("waiting for delivery: %v", err)
		}
		if msg, ok := event.(ReceiveMsg); ok {
			if !bytes.Equal(msg.Data, message) {
				t.Fatalf("received %q, want %q", msg.Data, message)
			}
			return
		}
	}
}

func TestConnectorCoalescesRepeatDials(t *testing.T) {
	signaler := NewMemorySignaler()
	dialer, _ := newTestConnector(t, signaler)
	responder, _ := newTestConnector(t, signaler)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	go responder.Serve(ctx)

	first, err := dialer.Dial(ctx, responder.LocalFingerprint())
	if err != nil {
		t.Fatalf("first Dial failed: %v", err)
	}
	second, err := dialer.Dial(ctx, responder.LocalFingerprint())
	if err != nil {
		t.Fatalf("second Dial failed: %v", err)
	}
	if first != second {
		t.Fatal("repeat dial created a second peer instead of reusing the connection")
	}
}

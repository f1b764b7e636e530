// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ringlink-foundation/ringlink/signaling"
)

func newTestHub(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(signaling.NewHub(testLogger()))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTestSignaler(t *testing.T, url, fingerprint string) *WebSocketSignaler {
	t.Helper()
	signaler, err := DialSignaler(context.Background(), url, fingerprint, testLogger())
	if err != nil {
		t.Fatalf("DialSignaler(%s) failed: %v", fingerprint, err)
	}
	t.Cleanup(func() { signaler.Close() })
	return signaler
}

// pollUntil polls fn until it yields a message or the deadline passes.
func pollUntil(t *testing.T, what string, fn func() ([]SignalMessage, error)) []SignalMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		messages, err := fn()
		if err != nil {
			t.Fatalf("polling %s: %v", what, err)
		}
		if len(messages) > 0 {
			return messages
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out polling %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketSignalerOfferAnswerExchange(t *testing.T) {
	t.Parallel()
	url := newTestHub(t)
	ctx := context.Background()

	alice := dialTestSignaler(t, url, "aaaa")
	bob := dialTestSignaler(t, url, "bbbb")

	if err := alice.PublishOffer(ctx, "aaaa", "bbbb", "offer-envelope"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	offers := pollUntil(t, "offers", func() ([]SignalMessage, error) {
		return bob.PollOffers(ctx, "bbbb")
	})
	if offers[0].PeerFingerprint != "aaaa" || offers[0].Envelope != "offer-envelope" {
		t.Fatalf("unexpected offer %+v", offers[0])
	}
	if offers[0].Timestamp.IsZero() {
		t.Fatal("hub did not stamp the offer")
	}

	if err := bob.PublishAnswer(ctx, "aaaa", "bbbb", "answer-envelope"); err != nil {
		t.Fatalf("PublishAnswer failed: %v", err)
	}

	answers := pollUntil(t, "answers", func() ([]SignalMessage, error) {
		return alice.PollAnswers(ctx, "aaaa")
	})
	if answers[0].PeerFingerprint != "bbbb" || answers[0].Envelope != "answer-envelope" {
		t.Fatalf("unexpected answer %+v", answers[0])
	}
}

func TestWebSocketSignalerQueuesForOfflinePeer(t *testing.T) {
	t.Parallel()
	url := newTestHub(t)
	ctx := context.Background()

	alice := dialTestSignaler(t, url, "aaaa")
	if err := alice.PublishOffer(ctx, "aaaa", "bbbb", "early-offer"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	// Give the hub time to queue the frame before the target appears.
	time.Sleep(50 * time.Millisecond)

	bob := dialTestSignaler(t, url, "bbbb")
	offers := pollUntil(t, "queued offers", func() ([]SignalMessage, error) {
		return bob.PollOffers(ctx, "bbbb")
	})
	if offers[0].Envelope != "early-offer" {
		t.Fatalf("unexpected queued offer %+v", offers[0])
	}
}

func TestWebSocketSignalerPollFailsAfterDisconnect(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(signaling.NewHub(testLogger()))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	signaler := dialTestSignaler(t, url, "aaaa")
	server.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := signaler.PollOffers(context.Background(), "aaaa"); err != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("PollOffers never surfaced the lost connection")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

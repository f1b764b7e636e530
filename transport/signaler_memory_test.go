// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"
	"time"
)

func TestMemorySignalerOfferRoundTrip(t *testing.T) {
	t.Parallel()
	signaler := NewMemorySignaler()
	ctx := context.Background()

	if err := signaler.PublishOffer(ctx, "aaaa", "bbbb", "offer-envelope"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	offers, err := signaler.PollOffers(ctx, "bbbb")
	if err != nil {
		t.Fatalf("PollOffers failed: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}
	if offers[0].PeerFingerprint != "aaaa" || offers[0].Envelope != "offer-envelope" {
		t.Fatalf("unexpected offer %+v", offers[0])
	}

	// Offers addressed to someone else stay invisible.
	offers, err = signaler.PollOffers(ctx, "cccc")
	if err != nil {
		t.Fatalf("PollOffers failed: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("got %d offers for uninvolved peer, want 0", len(offers))
	}
}

func TestMemorySignalerDoesNotReplay(t *testing.T) {
	t.Parallel()
	signaler := NewMemorySignaler()
	ctx := context.Background()

	if err := signaler.PublishOffer(ctx, "aaaa", "bbbb", "offer-envelope"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	if offers, _ := signaler.PollOffers(ctx, "bbbb"); len(offers) != 1 {
		t.Fatalf("first poll got %d offers, want 1", len(offers))
	}
	if offers, _ := signaler.PollOffers(ctx, "bbbb"); len(offers) != 0 {
		t.Fatalf("second poll got %d offers, want 0", len(offers))
	}
}

func TestMemorySignalerRepublishReplacesOffer(t *testing.T) {
	t.Parallel()
	signaler := NewMemorySignaler()
	now := time.Now()
	signaler.clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	ctx := context.Background()

	if err := signaler.PublishOffer(ctx, "aaaa", "bbbb", "first"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}
	if err := signaler.PublishOffer(ctx, "aaaa", "bbbb", "second"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	offers, err := signaler.PollOffers(ctx, "bbbb")
	if err != nil {
		t.Fatalf("PollOffers failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Envelope != "second" {
		t.Fatalf("got %+v, want single offer with envelope \"second\"", offers)
	}
}

func TestMemorySignalerDeliversEqualTimestampMessages(t *testing.T) {
	t.Parallel()
	signaler := NewMemorySignaler()

	// A frozen clock stamps every publish with the same instant, the
	// way a coarse system clock can in real runs. Freshness must not
	// depend on timestamps advancing.
	instant := time.Now()
	signaler.clock = func() time.Time { return instant }
	ctx := context.Background()

	if err := signaler.PublishOffer(ctx, "aaaa", "dddd", "from-aaaa"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}
	if err := signaler.PublishOffer(ctx, "bbbb", "dddd", "from-bbbb"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}

	offers, err := signaler.PollOffers(ctx, "dddd")
	if err != nil {
		t.Fatalf("PollOffers failed: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want both same-instant offers", len(offers))
	}

	// A later publish at the same instant still reaches the poller.
	if err := signaler.PublishOffer(ctx, "cccc", "dddd", "from-cccc"); err != nil {
		t.Fatalf("PublishOffer failed: %v", err)
	}
	offers, err = signaler.PollOffers(ctx, "dddd")
	if err != nil {
		t.Fatalf("PollOffers failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Envelope != "from-cccc" {
		t.Fatalf("got %+v, want single offer with envelope \"from-cccc\"", offers)
	}
}

func TestMemorySignalerAnswerRoutesToOfferer(t *testing.T) {
	t.Parallel()
	signaler := NewMemorySignaler()
	ctx := context.Background()

	if err := signaler.PublishAnswer(ctx, "aaaa", "bbbb", "answer-envelope"); err != nil {
		t.Fatalf("PublishAnswer failed: %v", err)
	}

	answers, err := signaler.PollAnswers(ctx, "aaaa")
	if err != nil {
		t.Fatalf("PollAnswers failed: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1", len(answers))
	}
	if answers[0].PeerFingerprint != "bbbb" || answers[0].Envelope != "answer-envelope" {
		t.Fatalf("unexpected answer %+v", answers[0])
	}

	// The answerer itself polls nothing back.
	answers, err = signaler.PollAnswers(ctx, "bbbb")
	if err != nil {
		t.Fatalf("PollAnswers failed: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("answerer polled %d answers, want 0", len(answers))
	}
}

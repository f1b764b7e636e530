// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memorySignal pairs a stored message with its publish sequence number.
// Poll cursors compare sequence numbers, not timestamps: a coarse clock
// can stamp two publishes with the same instant, and a timestamp cursor
// would silently drop the second.
type memorySignal struct {
	message SignalMessage
	seq     uint64
}

// MemorySignaler is an in-process Signaler for tests and single-process
// setups. All nodes share one instance; isolation between poll cursors
// comes from per-node last-seen sequence numbers.
type MemorySignaler struct {
	mu sync.Mutex

	// seq increments on every publish, giving each stored message a
	// total order independent of clock resolution.
	seq uint64

	// offers and answers are keyed "offerer|target". A republish
	// overwrites the slot.
	offers  map[string]memorySignal
	answers map[string]memorySignal

	// lastSeen tracks, per polling node and direction, the newest
	// sequence number already returned, so a poll never replays a
	// message.
	lastSeenOffers  map[string]uint64
	lastSeenAnswers map[string]uint64

	clock func() time.Time
}

var _ Signaler = (*MemorySignaler)(nil)

func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:          make(map[string]memorySignal),
		answers:         make(map[string]memorySignal),
		lastSeenOffers:  make(map[string]uint64),
		lastSeenAnswers: make(map[string]uint64),
		clock:           time.Now,
	}
}

func (s *MemorySignaler) PublishOffer(ctx context.Context, local, target, envelope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.offers[local+signalKeySeparator+target] = memorySignal{
		message: SignalMessage{
			PeerFingerprint: local,
			Envelope:        envelope,
			Timestamp:       s.clock(),
		},
		seq: s.seq,
	}
	return nil
}

func (s *MemorySignaler) PublishAnswer(ctx context.Context, offerer, local, envelope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.answers[offerer+signalKeySeparator+local] = memorySignal{
		message: SignalMessage{
			PeerFingerprint: local,
			Envelope:        envelope,
			Timestamp:       s.clock(),
		},
		seq: s.seq,
	}
	return nil
}

func (s *MemorySignaler) PollOffers(ctx context.Context, local string) ([]SignalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []SignalMessage
	cursor := s.lastSeenOffers[local]
	for key, stored := range s.offers {
		if !strings.HasSuffix(key, signalKeySeparator+local) {
			continue
		}
		if stored.seq <= cursor {
			continue
		}
		fresh = append(fresh, stored.message)
		if stored.seq > s.lastSeenOffers[local] {
			s.lastSeenOffers[local] = stored.seq
		}
	}
	return fresh, nil
}

func (s *MemorySignaler) PollAnswers(ctx context.Context, local string) ([]SignalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []SignalMessage
	cursor := s.lastSeenAnswers[local]
	for key, stored := range s.answers {
		if !strings.HasPrefix(key, local+signalKeySeparator) {
			continue
		}
		if stored.seq <= cursor {
			continue
		}
		fresh = append(fresh, stored.message)
		if stored.seq > s.lastSeenAnswers[local] {
			s.lastSeenAnswers[local] = stored.seq
		}
	}
	return fresh, nil
}

func (s *MemorySignaler) Close() error {
	return nil
}

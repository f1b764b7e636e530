// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"
)

// Event is the tagged variant carried between native-callback contexts
// and the owning consumer loop. Events are immutable once constructed.
type Event interface {
	event()
}

// ConnectFailed reports that the peer connection entered the failed
// state. The negotiation instance that produced it is dead; the owner
// decides whether to re-establish.
type ConnectFailed struct{}

func (ConnectFailed) event() {}

// ReceiveMsg carries one raw inbound data channel message.
type ReceiveMsg struct {
	Data []byte
}

func (ReceiveMsg) event() {}

// Channel errors. Operations on a channel degrade to errors, never
// panics: native callbacks may fire after their negotiator is closed,
// and a late Send must be a no-op with an error, not a crash.
var (
	ErrNoReceivers    = errors.New("transport: all event receivers closed")
	ErrNoSenders      = errors.New("transport: all event senders closed")
	ErrSenderClosed   = errors.New("transport: event sender is closed")
	ErrReceiverClosed = errors.New("transport: event receiver is closed")
)

// channelCore is the state shared by all handles of one event channel.
// The queue channel itself is never closed — closing it would race
// in-flight Sends from callback goroutines. Side-wide shutdown is
// signaled through noSenders/noReceivers instead.
type channelCore struct {
	queue chan Event

	mu        sync.Mutex
	senders   int
	receivers int

	// noSenders is closed when the sender count reaches zero. Queued
	// events still drain to receivers; an empty queue with no senders
	// fails Recv. noReceivers is closed when the receiver count
	// reaches zero, failing any blocked or future Send.
	noSenders   chan struct{}
	noReceivers chan struct{}
}

// Sender is a cloneable producing handle on an event channel.
type Sender struct {
	core *channelCore

	mu sync.Mutex
	// done is closed by Close, unblocking any Send waiting on a full
	// queue through this handle.
	done   chan struct{}
	closed bool
}

// Receiver is a cloneable consuming handle on an event channel.
type Receiver struct {
	core *channelCore

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewChannel creates a bounded event channel with one sender and one
// receiver handle. Additional handles come from Clone; the channel
// lives until every handle on a side is closed. Delivery is FIFO
// across all producers.
func NewChannel(capacity int) (*Sender, *Receiver) {
	core := &channelCore{
		queue:       make(chan Event, capacity),
		senders:     1,
		receivers:   1,
		noSenders:   make(chan struct{}),
		noReceivers: make(chan struct{}),
	}
	sender := &Sender{core: core, done: make(chan struct{})}
	receiver := &Receiver{core: core, done: make(chan struct{})}
	return sender, receiver
}

// Clone returns a new independent sender handle on the same queue.
func (s *Sender) Clone() *Sender {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("transport: clone of closed event sender")
	}

	s.core.mu.Lock()
	s.core.senders++
	s.core.mu.Unlock()

	return &Sender{core: s.core, done: make(chan struct{})}
}

// Send enqueues an event, blocking while the queue is full. Fails with
// ErrSenderClosed once this handle is closed (including a Send already
// blocked when Close arrives), with ErrNoReceivers when every receiver
// handle has been closed, or with the context error.
func (s *Sender) Send(ctx context.Context, event Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSenderClosed
	}
	s.mu.Unlock()

	select {
	case s.core.queue <- event:
		return nil
	case <-s.done:
		return ErrSenderClosed
	case <-s.core.noReceivers:
		return ErrNoReceivers
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops this sender handle, failing any Send blocked on it. When
// the last sender closes, receivers drain any queued events and then
// Recv returns ErrNoSenders. Idempotent.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)

	s.core.mu.Lock()
	s.core.senders--
	if s.core.senders == 0 {
		close(s.core.noSenders)
	}
	s.core.mu.Unlock()
}

// Clone returns a new independent receiver handle on the same queue.
func (r *Receiver) Clone() *Receiver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		panic("transport: clone of closed event receiver")
	}

	r.core.mu.Lock()
	r.core.receivers++
	r.core.mu.Unlock()

	return &Receiver{core: r.core, done: make(chan struct{})}
}

// Recv dequeues the next event, blocking while the queue is empty.
// Queued events are delivered even after the last sender closes; only
// a drained queue with no senders fails with ErrNoSenders. Fails with
// ErrReceiverClosed once this handle is closed.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrReceiverClosed
	}
	r.mu.Unlock()

	// Queued events win over the no-senders signal, so the tail of the
	// stream is never lost to shutdown ordering.
	select {
	case event := <-r.core.queue:
		return event, nil
	default:
	}

	select {
	case event := <-r.core.queue:
		return event, nil
	case <-r.core.noSenders:
		select {
		case event := <-r.core.queue:
			return event, nil
		default:
			return nil, ErrNoSenders
		}
	case <-r.done:
		return nil, ErrReceiverClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close drops this receiver handle, failing any Recv blocked on it.
// When the last receiver closes, blocked and future Sends fail with
// ErrNoReceivers. Idempotent.
func (r *Receiver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)

	r.core.mu.Lock()
	r.core.receivers--
	if r.core.receivers == 0 {
		close(r.core.noReceivers)
	}
	r.core.mu.Unlock()
}

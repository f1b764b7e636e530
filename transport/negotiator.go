// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// dataChannelLabel names the single negotiated data channel. Both
// sides agree on it implicitly: the offerer creates it, the answerer
// adopts whatever channel arrives.
const dataChannelLabel = "ringlink"

// Negotiator owns one PeerConnection through its lifecycle: created by
// Start, described by CreateOffer/CreateAnswer, completed by
// SetRemoteDescription and AddICECandidate, and torn down by Close.
//
// Callback registration is last-writer-wins: each On* method installs
// exactly one handler, replacing any previous one. Start installs
// defaults that feed the event channel (inbound messages become
// ReceiveMsg, a failed connection becomes ConnectFailed); registering
// a handler replaces the default for that callback. Local ICE
// candidate recording is built in and survives OnICECandidate
// registration, because the handshake snapshot depends on it.
type Negotiator struct {
	events *Sender
	logger *slog.Logger

	mu      sync.Mutex
	conn    *webrtc.PeerConnection
	channel *webrtc.DataChannel

	// pending accumulates gathered local candidates in discovery
	// order. Append-only until Close.
	pending []string

	// gathered is closed when pion signals end of candidate
	// gathering (a nil candidate).
	gathered     chan struct{}
	gatheredOnce sync.Once

	onICECandidate func(candidate string)
}

// NewNegotiator creates an unstarted negotiator. Events produced by the
// connection are sent through events; the negotiator takes ownership of
// the handle and closes it on Close.
func NewNegotiator(events *Sender, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		events:   events,
		logger:   logger,
		gathered: make(chan struct{}),
	}
}

// Start creates the underlying PeerConnection with the given ICE
// servers and the outbound data channel, and installs the default
// callbacks. Calling Start twice is an error; create a fresh
// negotiator to reconnect.
func (n *Negotiator) Start(config ICEConfig) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil {
		return fmt.Errorf("negotiator already started")
	}

	// Loopback candidates let two nodes on one machine reach each
	// other without any STUN server.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))

	conn, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: config.Servers,
	})
	if err != nil {
		return fmt.Errorf("creating peer connection: %w", err)
	}
	n.conn = conn

	conn.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			n.gatheredOnce.Do(func() { close(n.gathered) })
			return
		}
		n.recordCandidate(candidate.ToJSON().Candidate)
	})

	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		n.logger.Debug("peer connection state changed", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			if err := n.events.Send(context.Background(), ConnectFailed{}); err != nil {
				n.logger.Debug("dropping connect-failed event", "error", err)
			}
		}
	})

	// The answerer never calls setupDataChannel; it adopts the
	// offerer's channel here instead.
	conn.OnDataChannel(func(channel *webrtc.DataChannel) {
		n.adoptChannel(channel)
	})

	return n.setupDataChannelLocked()
}

// setupDataChannelLocked creates the outbound data channel, replacing
// and closing any existing one. A negotiator has at most one live
// channel. Caller holds n.mu.
func (n *Negotiator) setupDataChannelLocked() error {
	if n.conn == nil {
		return fmt.Errorf("negotiator not started")
	}

	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			n.logger.Debug("closing replaced data channel", "error", err)
		}
	}

	ordered := true
	channel, err := n.conn.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fmt.Errorf("creating data channel: %w", err)
	}

	n.channel = channel
	n.wireChannel(channel)
	return nil
}

// adoptChannel takes ownership of an inbound data channel, replacing
// the locally created one (the answerer side discards its own channel
// in favor of the offerer's).
func (n *Negotiator) adoptChannel(channel *webrtc.DataChannel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil && n.channel != channel {
		if err := n.channel.Close(); err != nil {
			n.logger.Debug("closing replaced data channel", "error", err)
		}
	}
	n.channel = channel
	n.wireChannel(channel)
}

// wireChannel installs the default message and open callbacks on a
// data channel. Inbound messages flow into the event channel; the
// bounded queue provides backpressure against a slow consumer.
func (n *Negotiator) wireChannel(channel *webrtc.DataChannel) {
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		if err := n.events.Send(context.Background(), ReceiveMsg{Data: message.Data}); err != nil {
			n.logger.Debug("dropping inbound message event", "error", err)
		}
	})
	channel.OnOpen(func() {
		n.logger.Debug("data channel open", "label", channel.Label())
	})
}

// recordCandidate appends one gathered local candidate. Recording is
// not subject to callback replacement.
func (n *Negotiator) recordCandidate(candidate string) {
	n.mu.Lock()
	n.pending = append(n.pending, candidate)
	handler := n.onICECandidate
	n.mu.Unlock()

	n.logger.Debug("gathered local ICE candidate", "candidate", candidate)
	if handler != nil {
		handler(candidate)
	}
}

// CreateOffer creates an SDP offer and sets it as the local
// description, which starts ICE candidate gathering.
func (n *Negotiator) CreateOffer() (webrtc.SessionDescription, error) {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return webrtc.SessionDescription{}, fmt.Errorf("negotiator not started")
	}

	offer, err := conn.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("creating offer: %w", err)
	}
	if err := conn.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("setting local offer: %w", err)
	}
	return offer, nil
}

// CreateAnswer creates an SDP answer to a previously registered remote
// offer and sets it as the local description.
func (n *Negotiator) CreateAnswer() (webrtc.SessionDescription, error) {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return webrtc.SessionDescription{}, fmt.Errorf("negotiator not started")
	}

	answer, err := conn.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("creating answer: %w", err)
	}
	if err := conn.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("setting local answer: %w", err)
	}
	return answer, nil
}

// SetLocalDescription applies a locally produced SDP. CreateOffer and
// CreateAnswer already couple creation with this call; it exists
// separately for callers re-applying a stored description.
func (n *Negotiator) SetLocalDescription(desc webrtc.SessionDescription) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("negotiator not started")
	}
	if err := conn.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}
	return nil
}

// SetRemoteDescription applies the remote peer's SDP.
func (n *Negotiator) SetRemoteDescription(desc webrtc.SessionDescription) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("negotiator not started")
	}
	if err := conn.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

// AddICECandidate applies one remote candidate in attribute form.
func (n *Negotiator) AddICECandidate(candidate string) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("negotiator not started")
	}
	if err := conn.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate}); err != nil {
		return fmt.Errorf("adding ICE candidate: %w", err)
	}
	return nil
}

// PendingCandidates returns a snapshot of the local candidates gathered
// so far, in discovery order.
func (n *Negotiator) PendingCandidates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.pending...)
}

// GatheringComplete is closed once local candidate gathering has
// finished for the current description.
func (n *Negotiator) GatheringComplete() <-chan struct{} {
	return n.gathered
}

// OnICECandidate installs a handler invoked for each gathered local
// candidate, replacing any previous handler. Candidates are recorded
// for PendingCandidates either way.
func (n *Negotiator) OnICECandidate(handler func(candidate string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onICECandidate = handler
}

// OnConnectionStateChange installs a handler for connection state
// transitions, replacing the default installed by Start. A replacement
// handler takes over producing ConnectFailed events if it wants them.
func (n *Negotiator) OnConnectionStateChange(handler func(state webrtc.PeerConnectionState)) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("negotiator not started")
	}
	conn.OnConnectionStateChange(handler)
	return nil
}

// OnDataChannel installs a handler for inbound data channels, replacing
// the default that adopts them as this negotiator's channel.
func (n *Negotiator) OnDataChannel(handler func(channel *webrtc.DataChannel)) error {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("negotiator not started")
	}
	conn.OnDataChannel(handler)
	return nil
}

// OnMessage installs a handler for inbound messages on the current data
// channel, replacing the default that produces ReceiveMsg events.
func (n *Negotiator) OnMessage(handler func(data []byte)) error {
	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("no data channel")
	}
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		handler(message.Data)
	})
	return nil
}

// OnOpen installs a handler invoked when the current data channel
// opens, replacing any previous open handler.
func (n *Negotiator) OnOpen(handler func()) error {
	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("no data channel")
	}
	channel.OnOpen(handler)
	return nil
}

// Send transmits one binary message over the data channel. The channel
// must be open; pion reports an error otherwise.
func (n *Negotiator) Send(data []byte) error {
	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("no data channel")
	}
	if err := channel.Send(data); err != nil {
		return fmt.Errorf("sending on data channel: %w", err)
	}
	return nil
}

// ConnectionState reports the current connection state. An unstarted or
// closed negotiator reports closed.
func (n *Negotiator) ConnectionState() webrtc.PeerConnectionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return webrtc.PeerConnectionStateClosed
	}
	return n.conn.ConnectionState()
}

// LocalDescription returns the current local description, or nil before
// CreateOffer/CreateAnswer.
func (n *Negotiator) LocalDescription() *webrtc.SessionDescription {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.LocalDescription()
}

// Close tears down the data channel, the peer connection, and this
// negotiator's event sender handle. Idempotent.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	channel := n.channel
	conn := n.conn
	n.channel = nil
	n.conn = nil
	n.mu.Unlock()

	var firstErr error
	if channel != nil {
		if err := channel.Close(); err != nil {
			firstErr = fmt.Errorf("closing data channel: %w", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing peer connection: %w", err)
		}
	}
	n.events.Close()
	return firstErr
}

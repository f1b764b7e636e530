// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/ringlink-foundation/ringlink/lib/identity"
)

const (
	// signalingPollInterval paces the inbound offer poller.
	signalingPollInterval = 2 * time.Second

	// answerPollInterval paces a dialer waiting for its answer.
	answerPollInterval = 500 * time.Millisecond

	// answerTimeout bounds how long a dialer waits for the peer to
	// answer its offer.
	answerTimeout = 30 * time.Second

	// connectTimeout bounds the ICE connectivity phase after the
	// handshake envelopes have been exchanged.
	connectTimeout = 30 * time.Second

	// eventQueueCapacity sizes each peer's event channel. Deep enough
	// to absorb bursts, small enough that a wedged consumer exerts
	// backpressure instead of hoarding memory.
	eventQueueCapacity = 64
)

// Peer is one established (or establishing) connection to a remote
// node, bound to the identity that signed its handshake.
type Peer struct {
	Fingerprint string

	// PublicKey is the verified Ed25519 key behind Fingerprint,
	// available once the remote handshake envelope has been opened.
	PublicKey ed25519.PublicKey

	Negotiator *Negotiator

	// Events receives this peer's ConnectFailed and ReceiveMsg
	// events. Ownership passes to whoever consumes the peer,
	// typically via the connector's OnPeer callback.
	Events *Receiver

	// established is closed when the connection reaches the
	// connected state.
	established     chan struct{}
	establishedOnce sync.Once
}

// Established is closed once the peer connection reaches the connected
// state.
func (p *Peer) Established() <-chan struct{} {
	return p.established
}

// PeerHandler is invoked once per new peer, before the connection is
// necessarily established. The handler owns the peer's event receiver
// from that point on.
type PeerHandler func(peer *Peer)

// Connector establishes authenticated peer connections over a
// signaling channel. Dial runs the offerer side; Serve polls for
// inbound offers and answers them. Concurrent dials to one peer
// coalesce onto a single negotiation, and a simultaneous dial between
// two nodes is broken by fingerprint order: the lexicographically
// smaller fingerprint wins the offerer role.
type Connector struct {
	signaler Signaler
	key      ed25519.PrivateKey
	local    string
	ice      ICEConfig
	onPeer   PeerHandler
	logger   *slog.Logger

	mu    sync.Mutex
	peers map[string]*Peer
}

// NewConnector creates a connector dialing as the identity behind key.
// onPeer may be nil when the caller manages peers through Dial return
// values only.
func NewConnector(signaler Signaler, key ed25519.PrivateKey, ice ICEConfig, onPeer PeerHandler, logger *slog.Logger) *Connector {
	return &Connector{
		signaler: signaler,
		key:      key,
		local:    identity.Fingerprint(key.Public().(ed25519.PublicKey)),
		ice:      ice,
		onPeer:   onPeer,
		logger:   logger,
		peers:    make(map[string]*Peer),
	}
}

// LocalFingerprint returns this connector's own fingerprint.
func (c *Connector) LocalFingerprint() string {
	return c.local
}

// Peer returns the tracked peer for a fingerprint, or nil.
func (c *Connector) Peer(fingerprint string) *Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peers[fingerprint]
}

// newPeer creates and tracks an unconnected peer with a started
// negotiator. Caller holds c.mu.
func (c *Connector) newPeerLocked(fingerprint string) (*Peer, error) {
	sender, receiver := NewChannel(eventQueueCapacity)
	negotiator := NewNegotiator(sender, c.logger.With("peer", fingerprint))
	if err := negotiator.Start(c.ice); err != nil {
		sender.Close()
		receiver.Close()
		return nil, fmt.Errorf("starting negotiation with %s: %w", fingerprint, err)
	}

	peer := &Peer{
		Fingerprint: fingerprint,
		Negotiator:  negotiator,
		Events:      receiver,
		established: make(chan struct{}),
	}
	if err := negotiator.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			peer.establishedOnce.Do(func() { close(peer.established) })
		case webrtc.PeerConnectionStateFailed:
			c.logger.Warn("peer connection failed", "peer", fingerprint)
			if err := sender.Send(context.Background(), ConnectFailed{}); err != nil {
				c.logger.Debug("dropping connect-failed event", "peer", fingerprint, "error", err)
			}
		}
	}); err != nil {
		return nil, err
	}

	c.peers[fingerprint] = peer
	return peer, nil
}

// dropPeerLocked removes and tears down a tracked peer. Caller holds
// c.mu.
func (c *Connector) dropPeerLocked(peer *Peer) {
	if c.peers[peer.Fingerprint] == peer {
		delete(c.peers, peer.Fingerprint)
	}
	if err := peer.Negotiator.Close(); err != nil {
		c.logger.Debug("closing peer negotiator", "peer", peer.Fingerprint, "error", err)
	}
}

// Dial connects to the peer with the given fingerprint, reusing an
// existing live connection or negotiation when one exists. It returns
// once the connection is established or ctx/timeout expires.
func (c *Connector) Dial(ctx context.Context, fingerprint string) (*Peer, error) {
	if fingerprint == c.local {
		return nil, fmt.Errorf("refusing to dial own fingerprint %s", fingerprint)
	}

	c.mu.Lock()
	if existing, ok := c.peers[fingerprint]; ok {
		state := existing.Negotiator.ConnectionState()
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			c.dropPeerLocked(existing)
		} else {
			c.mu.Unlock()
			return c.awaitEstablished(ctx, existing)
		}
	}

	peer, err := c.newPeerLocked(fingerprint)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if err := c.establishOutbound(ctx, peer); err != nil {
		c.mu.Lock()
		c.dropPeerLocked(peer)
		c.mu.Unlock()
		return nil, err
	}

	if c.onPeer != nil {
		c.onPeer(peer)
	}
	return c.awaitEstablished(ctx, peer)
}

// establishOutbound runs the offerer side of the handshake: publish a
// signed offer, wait for the signed answer, verify the answerer is who
// we dialed, and apply its description and candidates.
func (c *Connector) establishOutbound(ctx context.Context, peer *Peer) error {
	offer, err := peer.Negotiator.HandshakeInfo(c.key, webrtc.SDPTypeOffer)
	if err != nil {
		return fmt.Errorf("preparing offer for %s: %w", peer.Fingerprint, err)
	}
	if err := c.signaler.PublishOffer(ctx, c.local, peer.Fingerprint, offer); err != nil {
		return fmt.Errorf("publishing offer for %s: %w", peer.Fingerprint, err)
	}

	answer, err := c.waitForAnswer(ctx, peer.Fingerprint)
	if err != nil {
		return err
	}

	signer, err := peer.Negotiator.RegisterRemoteInfo(answer.Envelope)
	if err != nil {
		return fmt.Errorf("registering answer from %s: %w", peer.Fingerprint, err)
	}
	if got := identity.Fingerprint(signer); got != peer.Fingerprint {
		return fmt.Errorf("answer signed by %s, expected %s", got, peer.Fingerprint)
	}
	peer.PublicKey = signer
	return nil
}

// waitForAnswer polls the signaler until an answer from the target
// fingerprint arrives. Answers from other peers polled along the way
// are discarded; their dials re-publish on their own schedule.
func (c *Connector) waitForAnswer(ctx context.Context, fingerprint string) (SignalMessage, error) {
	deadline := time.NewTimer(answerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(answerPollInterval)
	defer ticker.Stop()

	for {
		messages, err := c.signaler.PollAnswers(ctx, c.local)
		if err != nil {
			return SignalMessage{}, fmt.Errorf("polling answers: %w", err)
		}
		for _, message := range messages {
			if message.PeerFingerprint == fingerprint {
				return message, nil
			}
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return SignalMessage{}, fmt.Errorf("timed out waiting for answer from %s", fingerprint)
		case <-ctx.Done():
			return SignalMessage{}, ctx.Err()
		}
	}
}

// awaitEstablished blocks until the peer connects or the attempt times
// out.
func (c *Connector) awaitEstablished(ctx context.Context, peer *Peer) (*Peer, error) {
	select {
	case <-peer.Established():
		return peer, nil
	case <-time.After(connectTimeout):
		return nil, fmt.Errorf("timed out establishing connection to %s", peer.Fingerprint)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve polls the signaler for inbound offers and answers them until
// ctx is cancelled. Run it in its own goroutine alongside Dial use.
func (c *Connector) Serve(ctx context.Context) {
	ticker := time.NewTicker(signalingPollInterval)
	defer ticker.Stop()

	for {
		c.processInboundOffers(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Connector) processInboundOffers(ctx context.Context) {
	offers, err := c.signaler.PollOffers(ctx, c.local)
	if err != nil {
		c.logger.Warn("polling offers failed", "error", err)
		return
	}

	for _, offer := range offers {
		if err := c.answerOffer(ctx, offer); err != nil {
			c.logger.Warn("answering inbound offer failed",
				"offerer", offer.PeerFingerprint,
				"error", err,
			)
		}
	}
}

// answerOffer runs the answerer side for one inbound offer. On a
// simultaneous dial the lexicographically smaller fingerprint keeps
// its offerer role: the larger side abandons its own attempt and
// answers instead, so exactly one connection survives.
func (c *Connector) answerOffer(ctx context.Context, offer SignalMessage) error {
	offerer := offer.PeerFingerprint
	if offerer == c.local {
		return nil
	}

	c.mu.Lock()
	if existing, ok := c.peers[offerer]; ok {
		state := existing.Negotiator.ConnectionState()
		if state == webrtc.PeerConnectionStateConnected {
			c.mu.Unlock()
			return nil
		}
		if c.local < offerer && state != webrtc.PeerConnectionStateFailed && state != webrtc.PeerConnectionStateClosed {
			c.mu.Unlock()
			c.logger.Debug("ignoring inbound offer during own dial", "offerer", offerer)
			return nil
		}
		c.dropPeerLocked(existing)
	}

	peer, err := c.newPeerLocked(offerer)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	signer, err := peer.Negotiator.RegisterRemoteInfo(offer.Envelope)
	if err != nil {
		c.mu.Lock()
		c.dropPeerLocked(peer)
		c.mu.Unlock()
		return fmt.Errorf("registering offer: %w", err)
	}
	if got := identity.Fingerprint(signer); got != offerer {
		c.mu.Lock()
		c.dropPeerLocked(peer)
		c.mu.Unlock()
		return fmt.Errorf("offer signed by %s, announced as %s", got, offerer)
	}
	peer.PublicKey = signer

	answer, err := peer.Negotiator.HandshakeInfo(c.key, webrtc.SDPTypeAnswer)
	if err != nil {
		c.mu.Lock()
		c.dropPeerLocked(peer)
		c.mu.Unlock()
		return fmt.Errorf("preparing answer: %w", err)
	}
	if err := c.signaler.PublishAnswer(ctx, offerer, c.local, answer); err != nil {
		c.mu.Lock()
		c.dropPeerLocked(peer)
		c.mu.Unlock()
		return fmt.Errorf("publishing answer: %w", err)
	}

	if c.onPeer != nil {
		c.onPeer(peer)
	}
	return nil
}

// Close tears down all tracked peers.
func (c *Connector) Close() error {
	c.mu.Lock()
	peers := make([]*Peer, 0, len(c.peers))
	for _, peer := range c.peers {
		peers = append(peers, peer)
	}
	c.peers = make(map[string]*Peer)
	c.mu.Unlock()

	for _, peer := range peers {
		if err := peer.Negotiator.Close(); err != nil {
			c.logger.Debug("closing peer", "peer", peer.Fingerprint, "error", err)
		}
	}
	return nil
}

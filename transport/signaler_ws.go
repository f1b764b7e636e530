// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ringlink-foundation/ringlink/signaling"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketSignaler exchanges handshake envelopes through a signaling
// hub. Inbound frames are collected by a background reader into offer
// and answer inboxes which Poll drains, preserving the poll-based
// Signaler contract over a push transport.
type WebSocketSignaler struct {
	local  string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	offers  []SignalMessage
	answers []SignalMessage
	readErr error

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Signaler = (*WebSocketSignaler)(nil)

// DialSignaler connects to the hub at url (a ws:// or wss:// endpoint)
// and registers local as this node's fingerprint.
func DialSignaler(ctx context.Context, url, local string, logger *slog.Logger) (*WebSocketSignaler, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing signaling hub %s: %w", url, err)
	}

	s := &WebSocketSignaler{
		local:  local,
		conn:   conn,
		logger: logger,
		closed: make(chan struct{}),
	}

	if err := s.writeFrame(signaling.Frame{Type: signaling.FrameRegister, From: local}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registering with signaling hub: %w", err)
	}

	go s.readLoop()
	return s, nil
}

func (s *WebSocketSignaler) writeFrame(frame signaling.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

// readLoop files inbound frames into the inboxes until the connection
// dies. The terminal error is surfaced by the next Poll call.
func (s *WebSocketSignaler) readLoop() {
	for {
		var frame signaling.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			s.closeOnce.Do(func() { close(s.closed) })
			return
		}

		message := SignalMessage{
			PeerFingerprint: frame.From,
			Envelope:        frame.Envelope,
			Timestamp:       frame.Timestamp,
		}

		s.mu.Lock()
		switch frame.Type {
		case signaling.FrameOffer:
			s.offers = append(s.offers, message)
		case signaling.FrameAnswer:
			s.answers = append(s.answers, message)
		case signaling.FrameError:
			s.logger.Warn("signaling hub reported an error", "error", frame.Error)
		}
		s.mu.Unlock()
	}
}

func (s *WebSocketSignaler) PublishOffer(ctx context.Context, local, target, envelope string) error {
	err := s.writeFrame(signaling.Frame{
		Type:     signaling.FrameOffer,
		From:     local,
		To:       target,
		Envelope: envelope,
	})
	if err != nil {
		return fmt.Errorf("publishing offer to %s: %w", target, err)
	}
	return nil
}

func (s *WebSocketSignaler) PublishAnswer(ctx context.Context, offerer, local, envelope string) error {
	err := s.writeFrame(signaling.Frame{
		Type:     signaling.FrameAnswer,
		From:     local,
		To:       offerer,
		Envelope: envelope,
	})
	if err != nil {
		return fmt.Errorf("publishing answer to %s: %w", offerer, err)
	}
	return nil
}

func (s *WebSocketSignaler) PollOffers(ctx context.Context, local string) ([]SignalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.offers) == 0 && s.readErr != nil {
		return nil, fmt.Errorf("signaling connection lost: %w", s.readErr)
	}
	messages := s.offers
	s.offers = nil
	return messages, nil
}

func (s *WebSocketSignaler) PollAnswers(ctx context.Context, local string) ([]SignalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 && s.readErr != nil {
		return nil, fmt.Errorf("signaling connection lost: %w", s.readErr)
	}
	messages := s.answers
	s.answers = nil
	return messages, nil
}

func (s *WebSocketSignaler) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return s.conn.Close()
}

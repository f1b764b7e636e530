// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second

	// maxFrameSize bounds one signaling frame. Handshake envelopes
	// are a few kilobytes of SDP and candidates; a megabyte leaves
	// generous headroom.
	maxFrameSize = 1 << 20

	// maxPendingFrames caps the frames held for a fingerprint that
	// has not connected yet. Oldest frames are dropped first; a stale
	// offer is worthless anyway.
	maxPendingFrames = 64
)

// client is one registered signaling connection. gorilla allows a
// single concurrent writer, so every write goes through writeMu.
type client struct {
	fingerprint string
	conn        *websocket.Conn

	writeMu sync.Mutex
}

func (c *client) writeFrame(frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}

// Hub routes handshake frames between registered clients. Frames for a
// fingerprint that is not connected are held and delivered on
// registration, so a dialer may publish an offer before its peer comes
// online.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	pending map[string][]Frame
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Clients are daemons, not browsers; origin checks do not
			// apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		pending: make(map[string][]Frame),
	}
}

var _ http.Handler = (*Hub)(nil)

// ServeHTTP upgrades the request to a WebSocket and serves the
// connection until it closes. The first frame must be a register frame
// naming the client's fingerprint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	var register Frame
	if err := conn.ReadJSON(&register); err != nil {
		h.logger.Debug("closing connection before registration", "remote", r.RemoteAddr, "error", err)
		return
	}
	if register.Type != FrameRegister || register.From == "" {
		_ = conn.WriteJSON(Frame{Type: FrameError, Error: "first frame must register a fingerprint"})
		return
	}

	c := &client{fingerprint: register.From, conn: conn}
	queued := h.register(c)
	defer h.unregister(c)

	h.logger.Info("signaling client registered",
		"fingerprint", c.fingerprint,
		"remote", r.RemoteAddr,
		"queued_frames", len(queued),
	)

	for _, frame := range queued {
		if err := c.writeFrame(frame); err != nil {
			h.logger.Debug("delivering queued frame failed", "fingerprint", c.fingerprint, "error", err)
			return
		}
	}

	h.readLoop(c)
}

// register adds the client and returns any frames queued for its
// fingerprint. A reconnect replaces the previous connection.
func (h *Hub) register(c *client) []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	if previous, ok := h.clients[c.fingerprint]; ok {
		previous.conn.Close()
	}
	h.clients[c.fingerprint] = c

	queued := h.pending[c.fingerprint]
	delete(h.pending, c.fingerprint)
	return queued
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.fingerprint] == c {
		delete(h.clients, c.fingerprint)
	}
}

func (h *Hub) readLoop(c *client) {
	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			h.logger.Debug("signaling client disconnected", "fingerprint", c.fingerprint, "error", err)
			return
		}

		switch frame.Type {
		case FrameOffer, FrameAnswer:
			if frame.To == "" {
				_ = c.writeFrame(Frame{Type: FrameError, Error: "frame has no destination"})
				continue
			}
			// The sender does not get to impersonate anyone at the
			// routing layer either.
			frame.From = c.fingerprint
			frame.Timestamp = time.Now().UTC()
			h.route(frame)

		default:
			_ = c.writeFrame(Frame{Type: FrameError, Error: "unexpected frame type " + string(frame.Type)})
		}
	}
}

// route delivers a frame to its destination, queueing it if the
// destination is offline.
func (h *Hub) route(frame Frame) {
	h.mu.Lock()
	target, online := h.clients[frame.To]
	if !online {
		queue := append(h.pending[frame.To], frame)
		if len(queue) > maxPendingFrames {
			queue = queue[len(queue)-maxPendingFrames:]
		}
		h.pending[frame.To] = queue
		h.mu.Unlock()
		h.logger.Debug("queued frame for offline peer", "to", frame.To, "type", frame.Type)
		return
	}
	h.mu.Unlock()

	if err := target.writeFrame(frame); err != nil {
		h.logger.Debug("forwarding frame failed", "to", frame.To, "type", frame.Type, "error", err)
	}
}

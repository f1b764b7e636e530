// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"log/slog"

	"github.com/ringlink-foundation/ringlink/lib/sealed"
	"github.com/ringlink-foundation/ringlink/relay"
)

// Dispatcher turns decrypted relayed application messages into local
// side effects and correlated replies. One dispatcher serves all peer
// channels of a node; it holds no per-peer state.
type Dispatcher struct {
	identity *sealed.Identity
	http     *HTTPService // nil when HTTP tunneling is disabled
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher that decrypts inbound bodies with
// identity. httpService may be nil, in which case tunneled HTTP
// requests are logged and dropped without a reply (the sender times
// out, matching a node that never received the request).
func NewDispatcher(identity *sealed.Identity, httpService *HTTPService, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		identity: identity,
		http:     httpService,
		logger:   logger,
	}
}

// OnCustomMessage handles one relayed payload arriving over an
// established channel. Undecryptable or unparseable input is dropped
// silently: on a best-effort overlay channel it is indistinguishable
// from corruption, and answering it would turn noise into a protocol
// conversation. Every well-formed request produces exactly one reply
// through sender.
func (d *Dispatcher) OnCustomMessage(ctx context.Context, sender relay.Sender, payload *relay.Payload) {
	reply := payload.Reply()

	plaintext, err := sealed.Decrypt(payload.Body, d.identity)
	if err != nil {
		d.logger.Debug("dropping undecryptable relay payload", "tx_id", payload.TxID, "error", err)
		return
	}

	message, err := DecodeMessage(plaintext)
	if err != nil {
		d.logger.Debug("dropping unparseable relay payload", "tx_id", payload.TxID, "error", err)
		return
	}

	switch message.Kind {
	case KindHTTPServer:
		d.onHTTPServerMessage(ctx, sender, payload, reply, message.HTTPServer)
	}
}

// onHTTPServerMessage dispatches a tunneled HTTP request or response.
func (d *Dispatcher) onHTTPServerMessage(ctx context.Context, sender relay.Sender, payload, reply *relay.Payload, message *HTTPServerMessage) {
	switch {
	case message.Request != nil:
		if d.http == nil {
			d.logger.Warn("tunneled HTTP request received but no local HTTP service is configured",
				"tx_id", payload.TxID,
			)
			return
		}
		d.executeAndReply(ctx, sender, payload, reply, message.Request)

	case message.Response != nil:
		// A reply to a request this node issued earlier. Handing it to
		// the original caller is the overlay's job, not the
		// dispatcher's.
		d.logger.Info("tunneled HTTP response received",
			"tx_id", payload.TxID,
			"status", message.Response.Status,
		)
	}
}

// executeAndReply runs the request against the local service and sends
// the response back along the reversed relay path, sealed to the
// origin's public key and tagged with the original transaction id.
func (d *Dispatcher) executeAndReply(ctx context.Context, sender relay.Sender, payload, reply *relay.Payload, request *HTTPServerRequest) {
	response, err := d.http.Execute(ctx, request)
	if err != nil {
		// The remote peer issued a request and deserves a terminating
		// reply, not a timeout. Local failure becomes a 500 with the
		// cause as the body.
		d.logger.Warn("tunneled request execution failed",
			"tx_id", payload.TxID,
			"method", request.Method,
			"path", request.Path,
			"error", err,
		)
		response = &HTTPServerResponse{
			Status:  500,
			Headers: []Header{},
			Body:    []byte(err.Error()),
		}
	}

	packed, err := EncodeMessage(NewResponseMessage(response))
	if err != nil {
		d.logger.Error("encoding tunneled response failed", "tx_id", payload.TxID, "error", err)
		return
	}

	body, err := sealed.Encrypt(packed, payload.Origin)
	if err != nil {
		d.logger.Error("sealing tunneled response failed", "tx_id", payload.TxID, "error", err)
		return
	}

	reply.Origin = d.identity.PublicKey
	reply.Body = body

	if err := sender.SendReply(ctx, reply); err != nil {
		d.logger.Error("sending tunneled response failed", "tx_id", payload.TxID, "error", err)
	}
}

// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"

	"github.com/ringlink-foundation/ringlink/lib/codec"
	"github.com/ringlink-foundation/ringlink/relay"
)

// Message kinds. One kind per tunneled protocol; HTTP is the only one
// today.
const (
	KindHTTPServer = "http_server"
)

// Message is the tagged union of tunneled protocol messages. Exactly
// one variant field is set, selected by Kind.
type Message struct {
	Kind string `cbor:"kind"`

	HTTPServer *HTTPServerMessage `cbor:"http_server,omitempty"`
}

// HTTPServerMessage is either a tunneled request or its response.
type HTTPServerMessage struct {
	Request  *HTTPServerRequest  `cbor:"request,omitempty"`
	Response *HTTPServerResponse `cbor:"response,omitempty"`
}

// Header is one HTTP header pair. Headers travel as an ordered slice,
// not a map, so their order survives the round trip.
type Header struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value"`
}

// HTTPServerRequest is a request a remote peer asks this node to
// execute against its configured local HTTP service.
type HTTPServerRequest struct {
	Method  string   `cbor:"method"`
	Path    string   `cbor:"path"`
	Headers []Header `cbor:"headers"`
	Body    []byte   `cbor:"body,omitempty"`
}

// HTTPServerResponse is the result of executing a tunneled request.
// Status is always set: local execution failure synthesizes a 500
// rather than omitting it.
type HTTPServerResponse struct {
	Status  int      `cbor:"status"`
	Headers []Header `cbor:"headers"`
	Body    []byte   `cbor:"body,omitempty"`
}

// NewRequestMessage wraps a tunneled HTTP request as a Message.
func NewRequestMessage(request *HTTPServerRequest) *Message {
	return &Message{
		Kind:       KindHTTPServer,
		HTTPServer: &HTTPServerMessage{Request: request},
	}
}

// NewResponseMessage wraps a tunneled HTTP response as a Message.
func NewResponseMessage(response *HTTPServerResponse) *Message {
	return &Message{
		Kind:       KindHTTPServer,
		HTTPServer: &HTTPServerMessage{Response: response},
	}
}

// EncodeMessage serializes and packs a message for sealing.
func EncodeMessage(message *Message) ([]byte, error) {
	encoded, err := codec.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encoding backend message: %w", err)
	}
	return relay.Pack(encoded), nil
}

// DecodeMessage unpacks and deserializes a decrypted message body.
// Validates that the kind tag and its variant field agree, so a
// dispatcher switch on Kind can trust the matching pointer.
func DecodeMessage(packed []byte) (*Message, error) {
	encoded, err := relay.Unpack(packed)
	if err != nil {
		return nil, fmt.Errorf("unpacking backend message: %w", err)
	}

	var message Message
	if err := codec.Unmarshal(encoded, &message); err != nil {
		return nil, fmt.Errorf("decoding backend message: %w", err)
	}

	switch message.Kind {
	case KindHTTPServer:
		if message.HTTPServer == nil {
			return nil, fmt.Errorf("backend message kind %q has no body", message.Kind)
		}
		if (message.HTTPServer.Request == nil) == (message.HTTPServer.Response == nil) {
			return nil, fmt.Errorf("http_server message must carry exactly one of request or response")
		}
	default:
		return nil, fmt.Errorf("unknown backend message kind %q", message.Kind)
	}

	return &message, nil
}

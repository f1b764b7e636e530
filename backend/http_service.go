// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// executeTimeout is the fixed upper bound on one tunneled request's
// execution. A request that outlives it is treated as failed and the
// remote peer receives the synthesized error response.
const executeTimeout = 15 * time.Second

// allowedMethods is the set of HTTP methods a remote peer may ask this
// node to execute. Anything else is rejected before a connection is
// attempted.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodConnect: true,
	http.MethodPatch:   true,
}

// HTTPService executes tunneled requests against a local HTTP server.
// Only the loopback interface is reachable: the tunneled path is joined
// onto http://localhost:<port>/, so a remote peer can address exactly
// the one service the operator configured, nothing else.
type HTTPService struct {
	client *http.Client
	port   int
	logger *slog.Logger
}

// NewHTTPService creates an executor for the local service on port.
func NewHTTPService(port int, logger *slog.Logger) *HTTPService {
	return &HTTPService{
		client: &http.Client{Timeout: executeTimeout},
		port:   port,
		logger: logger,
	}
}

// Execute runs one tunneled request and returns the local service's
// response. Errors cover method/header validation, connection failure,
// and timeout; the dispatcher converts them into a synthesized 500 so
// the remote peer always receives a terminating reply.
func (s *HTTPService) Execute(ctx context.Context, request *HTTPServerRequest) (*HTTPServerResponse, error) {
	method := strings.ToUpper(request.Method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("invalid HTTP method %q", request.Method)
	}

	url := fmt.Sprintf("http://localhost:%d/%s", s.port, strings.TrimPrefix(request.Path, "/"))

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	for _, header := range request.Headers {
		httpRequest.Header.Add(header.Name, header.Value)
	}

	s.logger.Debug("executing tunneled request",
		"method", method,
		"path", request.Path,
	)

	httpResponse, err := s.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("executing %s %s: %w", method, request.Path, err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s %s: %w", method, request.Path, err)
	}

	headers := make([]Header, 0, len(httpResponse.Header))
	for name, values := range httpResponse.Header {
		for _, value := range values {
			headers = append(headers, Header{Name: name, Value: value})
		}
	}

	return &HTTPServerResponse{
		Status:  httpResponse.StatusCode,
		Headers: headers,
		Body:    responseBody,
	}, nil
}

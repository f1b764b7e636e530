// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Command ringlink-daemon runs one overlay node: it connects to peers
// through the signaling hub, serves inbound connections, and executes
// tunneled requests against the configured local HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ringlink-foundation/ringlink/backend"
	"github.com/ringlink-foundation/ringlink/lib/config"
	"github.com/ringlink-foundation/ringlink/lib/identity"
	"github.com/ringlink-foundation/ringlink/lib/sealed"
	"github.com/ringlink-foundation/ringlink/relay"
	"github.com/ringlink-foundation/ringlink/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ringlink-daemon:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the daemon config file (default $"+config.EnvConfigPath+")")
	dial := flag.String("dial", "", "comma-separated peer fingerprints to dial at startup")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path, err := config.ResolvePath(*configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keypair, err := identity.Load(cfg.SigningKeyFile)
	if err != nil {
		return err
	}
	defer keypair.Close()

	sealedIdentity, err := sealed.LoadIdentity(cfg.SealedKeyFile)
	if err != nil {
		return err
	}
	defer sealedIdentity.Close()

	logger.Info("node identity loaded",
		"fingerprint", keypair.Fingerprint,
		"sealed_key", sealedIdentity.PublicKey,
	)

	var signaler transport.Signaler
	if cfg.Signaling.URL != "" {
		signaler, err = transport.DialSignaler(ctx, cfg.Signaling.URL, keypair.Fingerprint, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no signaling hub configured, using in-process signaler")
		signaler = transport.NewMemorySignaler()
	}
	defer signaler.Close()

	var httpService *backend.HTTPService
	if cfg.Backend.HTTPServer != nil {
		httpService = backend.NewHTTPService(cfg.Backend.HTTPServer.Port, logger)
		logger.Info("tunneled HTTP enabled", "port", cfg.Backend.HTTPServer.Port)
	}
	dispatcher := backend.NewDispatcher(sealedIdentity, httpService, logger)

	onPeer := func(peer *transport.Peer) {
		go servePeer(ctx, peer, dispatcher, logger)
	}

	connector := transport.NewConnector(
		signaler,
		keypair.PrivateKey(),
		transport.ICEConfigFromSTUN(cfg.ICE.STUNServers...),
		onPeer,
		logger,
	)
	defer connector.Close()

	go connector.Serve(ctx)

	for _, fingerprint := range splitFingerprints(*dial) {
		if err := identity.ParseFingerprint(fingerprint); err != nil {
			return err
		}
		go func() {
			if _, err := connector.Dial(ctx, fingerprint); err != nil {
				logger.Error("dialing peer failed", "peer", fingerprint, "error", err)
			}
		}()
	}

	logger.Info("daemon running", "fingerprint", keypair.Fingerprint)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func splitFingerprints(list string) []string {
	var fingerprints []string
	for _, part := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fingerprints = append(fingerprints, trimmed)
		}
	}
	return fingerprints
}

// servePeer consumes one peer's event stream for the life of the
// connection, feeding relayed payloads to the dispatcher.
func servePeer(ctx context.Context, peer *transport.Peer, dispatcher *backend.Dispatcher, logger *slog.Logger) {
	defer peer.Events.Close()

	sender := &peerSender{peer: peer}
	for {
		event, err := peer.Events.Recv(ctx)
		if err != nil {
			logger.Debug("peer event stream ended", "peer", peer.Fingerprint, "error", err)
			return
		}

		switch e := event.(type) {
		case transport.ReceiveMsg:
			payload, err := relay.Decode(e.Data)
			if err != nil {
				logger.Debug("dropping undecodable peer message", "peer", peer.Fingerprint, "error", err)
				continue
			}
			dispatcher.OnCustomMessage(ctx, sender, payload)

		case transport.ConnectFailed:
			logger.Warn("peer connection lost", "peer", peer.Fingerprint)
			return
		}
	}
}

// peerSender returns dispatcher replies over the data channel the
// request arrived on.
type peerSender struct {
	peer *transport.Peer
}

var _ relay.Sender = (*peerSender)(nil)

func (s *peerSender) SendReply(ctx context.Context, reply *relay.Payload) error {
	encoded, err := reply.Encode()
	if err != nil {
		return err
	}
	return s.peer.Negotiator.Send(encoded)
}

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mistvale-labs/iotproto"
	"github.com/mistvale-labs/iotproto/router"
	"github.com/mistvale-labs/iotproto/transport"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "iotd",
		Short: "iotd serves the IoT device protocol over TCP or TLS",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := loadDaemonConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	engine := iotproto.NewEngine(
		iotproto.BufferSizeOption(cfg.BufferSize),
		iotproto.AliveIntervalOption(cfg.AliveInterval),
		iotproto.AliveTimeoutOption(cfg.AliveTimeout),
		iotproto.ConnLoggerOption(logger),
		iotproto.OnDisconnectOption(func(c *iotproto.Conn) {
			logger.Info("iotd: connection disconnected", "addr", c.Addr())
		}),
	)

	rt := router.New()
	registerRoutes(rt, logger)
	engine.Use(rt.Middleware())

	var listener *transport.Listener
	if cfg.TLSCert != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load tls keypair: %w", err)
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		listener, err = transport.ListenTLS("tcp", cfg.Addr, tlsCfg, transport.LoggerOption(logger))
		if err != nil {
			return fmt.Errorf("listen tls: %w", err)
		}
	} else {
		listener, err = transport.Listen("tcp", cfg.Addr, transport.LoggerOption(logger))
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	handler := transport.HandlerFunc(func(conn net.Conn) {
		if err := engine.Listen(conn); err != nil {
			logger.Debug("iotd: connection ended", "addr", conn.RemoteAddr(), "error", err)
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return listener.Serve(ctx, handler)
}

// registerRoutes wires the handful of built-in diagnostic routes a
// device-facing daemon needs beyond the bare protocol engine.
func registerRoutes(rt *router.Router, logger iotproto.Logger) {
	rt.Handle("/ping", func(req *iotproto.Request) {
		if err := req.Conn.Response(&iotproto.Request{ID: req.ID, Body: []byte("pong")}); err != nil {
			logger.Warn("iotd: ping response failed", "error", err)
		}
	})

	rt.NotFound(func(req *iotproto.Request) {
		logger.Debug("iotd: unrouted frame", "path", req.Path, "method", req.Method.String())
	})
}

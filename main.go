/*
Package main is the entry point for the chat server and its terminal client.

	tcpchat server <bind-address>
	tcpchat client <server-address> <display-name>

Any other invocation exits immediately without output. Settings beyond the addresses come
from environment variables (see package configs).
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tcpchat/internal/client"
	"tcpchat/internal/configs"
	"tcpchat/internal/pkg/logx"
	"tcpchat/internal/server"
	"tcpchat/internal/tui"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	isServer := len(args) == 2 && args[0] == "server"
	isClient := len(args) == 3 && args[0] == "client"
	if !isServer && !isClient {
		return nil
	}

	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isServer {
		logx.Init(os.Stderr, cfg.IsDevelopment())
		ln, err := net.Listen("tcp", args[1])
		if err != nil {
			return fmt.Errorf("listen on %s: %w", args[1], err)
		}
		return serveChat(ctx, cfg, ln)
	}

	return runClient(ctx, cfg, args[1], args[2])
}

// serveChat runs the chat server on ln, plus the WebSocket gateway when one is configured,
// until ctx is cancelled.
func serveChat(ctx context.Context, cfg *configs.AppConfig, ln net.Listener) error {
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Dur("write_timeout", cfg.WriteTimeout).
		Float64("msg_rate", cfg.MsgRate).
		Float64("join_rate", cfg.JoinRate).
		Str("gateway_addr", cfg.GatewayAddr).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.NewServer(cfg)

	// gatewayErr receives a gateway failure, which also stops the chat server.
	gatewayErr := make(chan error, 1)

	var gateway *http.Server
	if cfg.GatewayAddr != "" {
		if !cfg.IsDevelopment() && len(cfg.AllowedOrigins) == 0 {
			logx.Warn("No allowed origins configured. Browser WebSocket clients will be rejected.", "gateway_addr", cfg.GatewayAddr)
		}

		gateway = &http.Server{
			Addr:              cfg.GatewayAddr,
			Handler:           server.Gateway(srv, cfg),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		go func() {
			logx.Info(fmt.Sprintf("WebSocket gateway starting on http://%s", cfg.GatewayAddr))
			if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Error(err, "Gateway failed. Stopping chat server.")
				gatewayErr <- err
				cancel()
			}
		}()
	}

	logx.Info(fmt.Sprintf("Chat server listening on %s", ln.Addr()))
	err := srv.Serve(ctx, ln)

	if gateway != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := gateway.Shutdown(shutdownCtx); shutdownErr != nil {
			logx.Error(shutdownErr, "Gateway forced to shutdown")
		}
	}

	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	select {
	case err := <-gatewayErr:
		return fmt.Errorf("gateway: %w", err)
	default:
	}
	logx.Info("Server gracefully stopped.")
	return nil
}

// runClient joins the chat at addr as name and drives the terminal UI until the user
// quits or the connection drops.
func runClient(ctx context.Context, cfg *configs.AppConfig, addr, name string) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logx.Init(logFile, cfg.IsDevelopment())

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ui, err := tui.NewChatUI(fmt.Sprintf("Connected to %s as %s | Ctrl-C: Quit", addr, name))
	if err != nil {
		return fmt.Errorf("start terminal UI: %w", err)
	}
	defer ui.Close()

	session := client.NewSession(conn, ui, ui)
	if err := session.Join(name); err != nil {
		return err
	}

	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logx.Error(err, "Session ended")
		}
		ui.Quit()
	}()

	return ui.Run()
}

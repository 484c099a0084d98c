package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/config"
	"github.com/vb15s/intel-ipmi-oem/console"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/dbusstore"
	"github.com/vb15s/intel-ipmi-oem/ipmi/frufile"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
	"github.com/vb15s/intel-ipmi-oem/log"
	"github.com/vb15s/intel-ipmi-oem/server"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := config.ParseCommandLineArgs()

	cfg, err := config.LoadConfig(args.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyCommandLineArgs(args)

	logger, err := log.Setup(cfg.Log.Filename, cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT and SIGTERM end the process
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		fmt.Println("\nsignal received, shutting down...")
		cancel()
	}()

	// SIGHUP reopens the log file after external rotation
	rotateCh := make(chan os.Signal, 1)
	signal.Notify(rotateCh, syscall.SIGHUP)
	go func() {
		for range rotateCh {
			slog.Info("SIGHUP received, rotating log file")
			if err := logger.Rotate(); err != nil {
				slog.Error("log rotation failed", "err", err)
			}
		}
	}()

	// client mode talks to a running daemon elsewhere; everything else
	// needs the D-Bus backend
	if cfg.WebSocketClient.Enabled && !cfg.WebSocket.Enabled {
		return runConsole(ctx, cfg)
	}
	return runDaemon(ctx, cfg)
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	store, err := dbusstore.New()
	if err != nil {
		return fmt.Errorf("connecting to D-Bus: %w", err)
	}
	defer func() { _ = store.Close() }()

	sel := dbusstore.NewSELWriter(store.Conn())

	var fru handler.FRUSource
	if cfg.FRU.DeviceFile != "" {
		source := frufile.NewSource()
		if err := source.LoadFromFile(cfg.FRU.DeviceFile); err != nil {
			return fmt.Errorf("loading FRU devices: %w", err)
		}
		fru = source
	}

	h := handler.NewHandler(store, sel, fru, nil)
	defer func() { _ = h.Close() }()

	events, err := store.Signals(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to sensor signals: %w", err)
	}
	h.StartWatcher(ctx, events)

	router := ipmi.NewRouter()
	h.Register(router)

	srv := dbusstore.NewServer(ctx, store.Conn(), router)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting D-Bus command server: %w", err)
	}
	slog.Info("IPMI command service started", "commands", len(router.Commands()))

	serverErrCh := make(chan error, 1)
	if cfg.WebSocket.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.WebSocket.Host, cfg.WebSocket.Port)
		ws, err := server.NewWebSocketServer(ctx, addr, router, h)
		if err != nil {
			return fmt.Errorf("creating websocket bridge: %w", err)
		}
		defer func() { _ = ws.Stop() }()

		options := server.StartOptions{Ready: make(chan struct{})}
		if cfg.TLS.Enabled {
			options.CertFile = cfg.TLS.CertFile
			options.KeyFile = cfg.TLS.KeyFile
		}

		go func() {
			err := ws.Start(options)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
				return
			}
			serverErrCh <- nil
		}()

		select {
		case err := <-serverErrCh:
			if err != nil {
				return fmt.Errorf("starting websocket bridge: %w", err)
			}
			return nil
		case <-options.Ready:
		}

		// -ws-both attaches the console to our own bridge
		if cfg.WebSocketClient.Enabled {
			return runConsole(ctx, cfg)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("websocket bridge: %w", err)
		}
		return nil
	}
}

func runConsole(ctx context.Context, cfg *config.Config) error {
	c, err := client.NewWebSocketClient(ctx, cfg.WebSocketClient.Addr, cfg.Debug)
	if err != nil {
		return err
	}
	if err := c.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.WebSocketClient.Addr, err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WaitForInitialState(5 * time.Second); err != nil {
		return fmt.Errorf("waiting for initial state: %w", err)
	}

	return console.RunConsole(ctx, c)
}

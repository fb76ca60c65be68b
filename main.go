package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/config"
	"github.com/stridefit/stride/internal/server"
	"github.com/stridefit/stride/internal/shell"
	"github.com/stridefit/stride/internal/tabroute"
)

func main() {
	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		slogger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	mgr := auth.NewManager(auth.KeyringStore{}, cfg.AuthURL, cfg.AuthAPIKey, slogger)
	mgr.Restore(context.Background())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	addr := fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)

	host := newDesktopHost(slogger)

	sh, err := shell.New(shell.Config{
		AppURL:       cfg.AppURL,
		ErrorURL:     addr + "/error",
		Theme:        cfg.Theme,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		LogoutSettle: time.Duration(cfg.LogoutSettleMs) * time.Millisecond,
		VideoHosts:   cfg.VideoHosts,
	}, host, mgr, slogger)
	if err != nil {
		slogger.Error("failed to build shell", "err", err)
		os.Exit(1)
	}
	host.setShell(sh)

	key, err := base64.StdEncoding.DecodeString(cfg.ControlKey)
	if err != nil {
		key = []byte(cfg.ControlKey)
	}
	srv := server.New(sh, key, slogger)
	sh.SetTap(srv.Hub())

	slogger.Info("control server starting", "addr", addr)

	go func() {
		if err := http.Serve(listener, srv.Handler()); err != nil {
			log.Fatal(err)
		}
	}()

	// The dashboard window owns the main goroutine; further tabs open
	// as their own windows via SwitchTab.
	host.runTabWindow(tabroute.TabDashboard, "Stride")

	slogger.Info("window closed, shutting down")
	sh.Close()
}

// cmd/voxkeyd/main.go
// voxkeyd – local dictation backend. Serves clipboard, paste-injection and
// speech-to-text operations to the desktop front end over a loopback-only
// HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type program struct {
	srv  *http.Server
	quit chan struct{}
}

func (p *program) Start(s service.Service) error {
	p.quit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	if err := loadConfig(); err != nil {
		logrus.Fatalf("loadConfig failed: %v", err)
	}
	initLogging()

	if !isLoopbackListenAddr(cfg.ListenAddr) {
		logrus.Fatalf("refusing to start: listen_addr must be loopback (got %q)", cfg.ListenAddr)
	}
	if err := initTokenFile(cfg.TokenFile); err != nil {
		logrus.Fatalf("token init failed: %v", err)
	}
	if tok, err := cachedToken(); err != nil || tok == "" {
		logrus.Fatalf("token unavailable: %v", err)
	}

	api := newAPIServer()
	p.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logrus.Infof("voxkeyd %s (built %s) listening on http://%s (token file: %s, header: %s)",
		version, buildDate, cfg.ListenAddr, cfg.TokenFile, cfg.TokenHeader)

	if err := p.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("http server stopped: %v", err)
	}
	<-p.quit
}

func (p *program) Stop(s service.Service) error {
	close(p.quit)
	if p.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = p.srv.Shutdown(ctx)
	}
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	})

	svcConfig := &service.Config{
		Name:        "voxkeyd",
		DisplayName: "VoxKey Daemon",
		Description: "Serves clipboard, paste-injection and speech-to-text operations to the VoxKey front end.",
	}

	prg := &program{}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		logrus.Fatal(err)
	}

	// install / uninstall / start / stop / restart
	if len(os.Args) > 1 {
		if err := service.Control(s, os.Args[1]); err != nil {
			logrus.Fatalf("service command %q failed: %v", os.Args[1], err)
		}
		return
	}

	if service.Interactive() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			_ = prg.Stop(s)
			os.Exit(0)
		}()
	}

	if err := s.Run(); err != nil {
		logrus.Fatal(err)
	}
}

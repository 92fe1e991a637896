package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/config"
	"github.com/brew-lab/thaumic-cast-sub003/internal/netctx"
	"github.com/brew-lab/thaumic-cast-sub003/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	netCtx, streamListener, callbackListener, err := netctx.Resolve(cfg.PreferredStreamPort, cfg.PreferredCallbackPort)
	if err != nil {
		log.Fatalf("network context error: %v", err)
	}

	router, callbackHandler, shutdownHandler, err := server.Build(server.Deps{
		Cfg: cfg,
		Net: netCtx,
	}, server.Options{})
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	streamSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	callbackSrv := &http.Server{
		Handler:           callbackHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownHandler(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if err := streamSrv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if err := callbackSrv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	go func() {
		log.Printf("sonos-streaming-coordinator: GENA callback listening on %s", callbackListener.Addr())
		if err := callbackSrv.Serve(callbackListener); err != nil && err != http.ErrServerClosed {
			log.Printf("callback server error: %v", err)
		}
	}()

	log.Printf("sonos-streaming-coordinator: stream+ws surface listening on %s (advertised at %s:%d)",
		streamListener.Addr(), netCtx.BindIP, netCtx.StreamPort)
	if err := streamSrv.Serve(streamListener); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Package server wires every Streaming Coordinator component together. The
// chi router carries the boundary's WS/stream/stats routes and health
// checks; the GENA NOTIFY callback is returned as its own http.Handler,
// served by main.go on the separate callback listener (NOTIFY is a
// non-standard verb chi's method table doesn't recognize anyway).
package server

import (
	"bufio"
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brew-lab/thaumic-cast-sub003/internal/api"
	"github.com/brew-lab/thaumic-cast-sub003/internal/boundary"
	"github.com/brew-lab/thaumic-cast-sub003/internal/config"
	"github.com/brew-lab/thaumic-cast-sub003/internal/coordinator"
	"github.com/brew-lab/thaumic-cast-sub003/internal/discovery"
	"github.com/brew-lab/thaumic-cast-sub003/internal/eventrouter"
	"github.com/brew-lab/thaumic-cast-sub003/internal/gena"
	"github.com/brew-lab/thaumic-cast-sub003/internal/latency"
	"github.com/brew-lab/thaumic-cast-sub003/internal/netctx"
	"github.com/brew-lab/thaumic-cast-sub003/internal/playbacksession"
	"github.com/brew-lab/thaumic-cast-sub003/internal/policy"
	"github.com/brew-lab/thaumic-cast-sub003/internal/sonos/soap"
	"github.com/brew-lab/thaumic-cast-sub003/internal/streamregistry"
	"github.com/brew-lab/thaumic-cast-sub003/internal/syncgroup"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
	"github.com/brew-lab/thaumic-cast-sub003/internal/volume"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// the request logger.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker so the ingest WebSocket upgrade still works
// through the logging middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring, primarily for tests.
type Options struct {
	// DisableDiscovery skips SSDP/mDNS sweeps and the GENA renewal loop,
	// leaving the topology store empty until a test seeds it directly.
	DisableDiscovery bool
}

// Deps bundles every already-resolved resource main.go must hand the
// server: the claimed addresses/ports and the configuration every component
// reads from. The listeners themselves stay in main.go, which Serves the
// router and the GENA callback handler on them directly.
type Deps struct {
	Cfg config.Config
	Net netctx.Context
}

// Build wires the full component graph and returns the chi handler
// for the stream-surface listener, the http.Handler for the GENA callback
// listener, and a shutdown function that unwinds every background task in
// dependency order.
func Build(deps Deps, options Options) (http.Handler, http.Handler, func(context.Context) error, error) {
	cfg := deps.Cfg

	if err := policy.LoadOverrides(cfg.PolicyOverridesPath); err != nil {
		return nil, nil, nil, err
	}

	soapClient := soap.NewClient(time.Duration(cfg.SonosTimeoutMs) * time.Millisecond)
	topologyStore := topology.NewStore(soapClient)

	discoverer := discovery.NewDiscoverer(discovery.Config{
		CronSpec:         cfg.DiscoveryCronSpec,
		SSDPPasses:       cfg.SSDPDiscoveryPasses,
		SSDPPassInterval: time.Duration(cfg.SSDPPassIntervalMs) * time.Millisecond,
		SSDPTimeout:      time.Duration(cfg.SSDPDiscoveryTimeoutMs) * time.Millisecond,
		MDNSBrowseFor:    time.Duration(cfg.MDNSBrowseMs) * time.Millisecond,
		KnownIPs:         cfg.StaticDeviceIPs,
	}, topologyStore)

	eventRouter := eventrouter.NewRouter()

	genaClient := gena.NewClient(4 * time.Second) // SUBSCRIBE timeout
	genaManagerCfg := gena.DefaultManagerConfig()
	genaManagerCfg.CallbackHost = deps.Net.CallbackHost()
	genaManagerCfg.SubscriptionTTL = time.Duration(cfg.GENASubscriptionTTLSec) * time.Second
	genaManagerCfg.RenewalBuffer = time.Duration(cfg.GENARenewalBufferSec) * time.Second
	genaManager := gena.NewManager(genaManagerCfg, genaClient, eventRouter)

	callbackHandler := gena.NewCallbackHandler(genaManager, eventRouter)

	registry := streamregistry.New(cfg.MaxConcurrentStreams, cfg.TeardownGracePeriod)
	sessions := playbacksession.New()
	syncGroupMgr := syncgroup.New(soapClient, topologyStore)
	volumeRouter := volume.New(soapClient, topologyStore)
	latencyMon := latency.New(soapClient, time.Duration(cfg.LatencyIntervalMs)*time.Millisecond,
		time.Duration(cfg.LatencyStaleAfterMs)*time.Millisecond, cfg.AssumedJitterBufferMs)

	coord := coordinator.New(registry, sessions, syncGroupMgr, topologyStore, volumeRouter, latencyMon, eventRouter, deps.Net)

	bg, bgCancel := context.WithCancel(context.Background())
	go coord.Run(bg)

	if !options.DisableDiscovery {
		if err := discoverer.Start(bg); err != nil {
			bgCancel()
			return nil, nil, nil, err
		}
		genaManager.StartRenewalLoop(bg, 30*time.Second)
		go subscribeDiscoveredSpeakers(bg, topologyStore, genaManager)
	}

	b := boundary.New(coord, topologyStore, cfg.PairingSecret)

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)

	registerHealthRoutes(router)
	b.RegisterRoutes(router)

	shutdown := func(ctx context.Context) error {
		if !options.DisableDiscovery {
			discoverer.Stop()
			genaManager.Stop(ctx)
		}
		bgCancel()
		return nil
	}

	return router, callbackHandler, shutdown, nil
}

// subscribeDiscoveredSpeakers keeps GENA subscriptions current as the
// topology store's speaker set changes: every snapshot, ensure AVTransport,
// RenderingControl, and ZoneGroupTopology subscriptions exist for every
// known speaker. EnsureSubscribed is safe to call repeatedly.
func subscribeDiscoveredSpeakers(ctx context.Context, topologyStore *topology.Store, genaManager *gena.Manager) {
	snapCh, cancel := topologyStore.Subscribe()
	defer cancel()

	ensure := func(snap topology.Snapshot) {
		for uuid, sp := range snap.Speakers {
			for _, endpoint := range []gena.ServiceEndpoint{gena.AVTransportEndpoint, gena.RenderingControlEndpoint, gena.ZoneGroupTopologyEndpoint} {
				subCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
				if err := genaManager.EnsureSubscribed(subCtx, uuid, sp.IP, endpoint); err != nil {
					log.Printf("gena: subscribe %s %s failed: %v", sp.IP, endpoint.NT, err)
				}
				cancel()
			}
		}
	}

	ensure(topologyStore.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapCh:
			if !ok {
				return
			}
			ensure(snap)
		}
	}
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "sonos-streaming-coordinator",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
}

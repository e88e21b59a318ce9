package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickex/quickex-backend/internal/config"
	grpcserver "github.com/quickex/quickex-backend/internal/grpc"
	"github.com/quickex/quickex-backend/internal/server"
	"github.com/quickex/quickex-backend/internal/supabase"
	"github.com/quickex/quickex-backend/internal/telemetry"
)

const serviceName = "quickex-backend"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration from environment variables. Missing Supabase
	// settings are fatal.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("config: listen=%s grpc=%q network=%s supabase=%s tracing=%v",
		cfg.ListenAddr(), cfg.GRPCListenAddr(), cfg.Network, cfg.SupabaseURL, cfg.TracingEnabled())

	// 2. Tracing (no-op unless an OTLP endpoint is configured).
	tracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
		Network:     string(cfg.Network),
	})
	if err != nil {
		log.Printf("WARNING: telemetry disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(sctx); err != nil {
			log.Printf("telemetry shutdown error: %v", err)
		}
	}()

	// 3. Build the Supabase handle once; it is read-only from here on.
	store, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		log.Fatalf("supabase: %v", err)
	}

	// 4. Optional gRPC health probe. The backend service reports
	// NOT_SERVING until the HTTP listener is bound.
	var probe *grpcserver.HealthServer
	grpcDone := make(chan error, 1)
	if addr := cfg.GRPCListenAddr(); addr != "" {
		probe, err = grpcserver.NewHealthServer(addr)
		if err != nil {
			log.Fatalf("grpc health probe: %v", err)
		}
		go func() { grpcDone <- probe.Serve(ctx) }()
	} else {
		grpcDone <- nil
	}
	setServing := func(serving bool) {
		if probe != nil {
			probe.SetServing(serving)
		}
	}

	// 5. Set up the chi router and bind the HTTP listener.
	srv := &http.Server{
		Handler:           server.New(cfg, store),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		log.Fatalf("listen on %s: %v", cfg.ListenAddr(), err)
	}

	// 6. Serve until a signal arrives or the HTTP server dies.
	httpDone := make(chan error, 1)
	go func() {
		log.Printf("backend listening on http://localhost%s", cfg.ListenAddr())
		log.Printf("network: %s", cfg.Network)
		httpDone <- srv.Serve(ln)
	}()
	setServing(true)

	select {
	case <-ctx.Done():
		log.Println("shutting down...")
	case err := <-httpDone:
		setServing(false)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
		stop()
	}
	setServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
	if err := <-grpcDone; err != nil {
		log.Printf("grpc health probe error: %v", err)
	}

	log.Println("backend stopped")
}

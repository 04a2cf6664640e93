package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/flextraff/atcs/internal/api"
	"github.com/flextraff/atcs/internal/config"
	"github.com/flextraff/atcs/internal/connectivity"
	"github.com/flextraff/atcs/internal/controller"
	"github.com/flextraff/atcs/internal/db"
	"github.com/flextraff/atcs/internal/version"
)

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode (connectivity probes always succeed)")
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "atcs.db", "Path to the sqlite database")
	configFile    = flag.String("config", config.DefaultConfigPath, "Path to the junction config file")
	migrationsDir = flag.String("migrations", "", "Apply migrations from this directory before serving")
)

// buildProbes assembles the connectivity probes for a junction from the
// monitor settings. Dev mode short-circuits to an always-online probe
// so the engine can be exercised without network access.
func buildProbes(settings config.MonitorSettings) []connectivity.Probe {
	if *devMode {
		return []connectivity.Probe{connectivity.FuncProbe(func(ctx context.Context) error { return nil })}
	}

	hosts := settings.ProbeHosts
	if len(hosts) == 0 {
		hosts = connectivity.DefaultProbeHosts
	}
	probes := []connectivity.Probe{&connectivity.DialProbe{Hosts: hosts}}
	if settings.BackendHealthURL != "" {
		probes = append(probes, &connectivity.HTTPProbe{URL: settings.BackendHealthURL})
	}
	return probes
}

// syncJunctions mirrors the configured junctions into the database so
// detections and cycles can reference them by ID.
func syncJunctions(database *db.DB, cfg *config.Config) error {
	for _, spec := range cfg.Junctions {
		j := &db.Junction{
			ID:        spec.ID,
			Name:      spec.Name,
			Location:  spec.Location,
			LaneCount: spec.TimingConfig().LaneCount,
		}
		if err := database.UpsertJunction(j); err != nil {
			return fmt.Errorf("syncing junction %d: %w", spec.ID, err)
		}
	}
	return nil
}

func main() {
	flag.Parse()

	// "atcs migrate <up|down|status|force>" runs migration maintenance
	// and exits instead of starting the service.
	if flag.Arg(0) == "migrate" {
		dir := *migrationsDir
		if dir == "" {
			dir = "internal/db/migrations"
		}
		db.RunMigrateCommand(flag.Args()[1:], *dbFile, dir)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("atcs %s starting", version.String())

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *migrationsDir != "" {
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	if err := syncJunctions(database, cfg); err != nil {
		log.Fatalf("Failed to sync junctions: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One connectivity monitor and one controller per junction. The
	// monitors run for the lifetime of the process and feed the
	// adaptive/fallback mode decision.
	registry := controller.NewRegistry()
	for _, spec := range cfg.Junctions {
		monitor := connectivity.NewMonitor(connectivity.Config{
			Probes:           buildProbes(cfg.Monitor),
			Interval:         cfg.Monitor.CheckInterval(),
			ProbeTimeout:     cfg.Monitor.ProbeTimeout(),
			FailureThreshold: cfg.Monitor.FailureThreshold,
			SuccessThreshold: cfg.Monitor.SuccessThreshold,
			Logger:           log.New(log.Writer(), fmt.Sprintf("[connectivity junction=%d] ", spec.ID), log.LstdFlags),
		})

		ctrl, err := controller.New(spec.ID, spec.TimingConfig(), monitor, log.Default())
		if err != nil {
			log.Fatalf("Failed to build controller for junction %d: %v", spec.ID, err)
		}
		registry.Add(ctrl)

		wg.Add(1)
		go func(id int64, m *connectivity.Monitor) {
			defer wg.Done()
			if err := m.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("connectivity monitor for junction %d stopped: %v", id, err)
			}
		}(spec.ID, monitor)
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)

		apiMux := api.NewServer(database, registry).ServeMux()
		mux.Handle("/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s (%d junctions)", *listen, len(cfg.Junctions))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

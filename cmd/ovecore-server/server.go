package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/yndnr/ovecore-go/internal/core/clock"
	"github.com/yndnr/ovecore-go/internal/core/domain"
	"github.com/yndnr/ovecore-go/internal/core/service"
	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
	"github.com/yndnr/ovecore-go/internal/infra/confloader"
	"github.com/yndnr/ovecore-go/internal/infra/remote"
	"github.com/yndnr/ovecore-go/internal/infra/shutdown"
	"github.com/yndnr/ovecore-go/internal/server/config"
	"github.com/yndnr/ovecore-go/internal/server/httpserver"
	"github.com/yndnr/ovecore-go/internal/server/peering"
	"github.com/yndnr/ovecore-go/internal/server/wsserver"
	"github.com/yndnr/ovecore-go/internal/storage/memory"
	"github.com/yndnr/ovecore-go/internal/telemetry/logger"
	"github.com/yndnr/ovecore-go/internal/telemetry/metric"
)

// sectionsFunc adapts a function to wsserver.SectionLister. The hub and the
// section service reference each other, so the hub reads the service
// through this indirection.
type sectionsFunc func(ctx context.Context, filter *service.SectionFilter) ([]*domain.Section, error)

func (f sectionsFunc) List(ctx context.Context, filter *service.SectionFilter) ([]*domain.Section, error) {
	return f(ctx, filter)
}

func run(parent context.Context, cfg *config.ServerConfig, loader *confloader.Loader) error {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	log.Info("starting ovecore-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", loader.FilePath())
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	catalog, err := config.LoadSpaces(cfg.Spaces.File)
	if err != nil {
		return fmt.Errorf("load spaces: %w", err)
	}
	log.Info("spaces loaded", "file", cfg.Spaces.File, "count", len(catalog))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var registry *metric.Registry
	var sectionObserver service.Observer
	var hubObserver wsserver.Observer
	var recorder httpserver.Recorder
	if cfg.Metrics.Enabled {
		registry = metric.NewRegistry()
		sectionObserver, hubObserver, recorder = registry, registry, registry
	}

	// Registry and broadcast layer.
	httpClient := &http.Client{Timeout: cfg.Replication.Timeout}
	self := config.SelfEndpoint(cfg)

	var sections *service.SectionService
	hub := wsserver.NewHub(sectionsFunc(func(ctx context.Context, f *service.SectionFilter) ([]*domain.Section, error) {
		return sections.List(ctx, f)
	}), clock.NewBook(cfg.Clock.ServerDiff), wsserver.Config{
		InstanceID:        uuid.NewString(),
		UpdateDelay:       cfg.Broadcast.UpdateDelay,
		SendBuffer:        cfg.Broadcast.SendBuffer,
		AggregateInterval: cfg.Clock.AggregateInterval,
		Logger:            log,
		Observer:          hubObserver,
	})

	sectionOpts := []service.SectionOption{
		service.WithUpdateDelay(cfg.Broadcast.UpdateDelay),
		service.WithCallTimeout(cfg.Replication.Timeout),
		service.WithLogger(log),
	}
	if sectionObserver != nil {
		sectionOpts = append(sectionOpts, service.WithObserver(sectionObserver))
	}
	sections = service.NewSectionService(memory.New(), catalog, hub, remote.NewAppClient(httpClient), sectionOpts...)
	connections := service.NewConnectionService(sections, remote.NewInstanceClient(httpClient), self)

	go hub.Run(ctx)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Peer relaying. Hooks run in reverse, so peers are released after
	// the listener stops accepting new sockets.
	mesh := peering.NewMesh(ctx, log)
	for _, url := range cfg.Peers.URLs {
		mesh.Add(url)
	}
	hub.AddRelay(mesh)
	shutdownHandler.OnShutdown("mesh", func(context.Context) error {
		mesh.Close()
		return nil
	})

	var redisRelay *peering.RedisRelay
	if cfg.Peers.Redis.Enabled {
		redisRelay = peering.NewRedisRelay(config.ToRedisConfig(cfg, log))
		if err := redisRelay.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup", "addr", cfg.Peers.Redis.Addr, "error", err)
		}
		hub.AddRelay(redisRelay)
		go func() {
			if err := redisRelay.Run(ctx, hub.Via(redisRelay)); err != nil {
				log.Error("redis relay stopped", "error", err)
			}
		}()
		shutdownHandler.OnShutdown("redis", func(context.Context) error {
			return redisRelay.Close()
		})
	}

	if cfg.Peers.Gossip.Enabled {
		discovery, err := startDiscovery(cfg, mesh, log)
		if err != nil {
			return err
		}
		shutdownHandler.OnShutdown("gossip", func(context.Context) error {
			return errors.Join(discovery.Leave(), discovery.Shutdown())
		})
	}

	// HTTP surface.
	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Sections = sections
	routerCfg.Connections = connections
	routerCfg.Hub = hub
	routerCfg.Logger = log
	routerCfg.Recorder = recorder
	routerCfg.CORSAllowedOrigins = cfg.Server.CORSAllowedOrigins
	routerCfg.RateLimit = cfg.Server.RateLimit
	routerCfg.RateBurst = cfg.Server.RateBurst
	routerCfg.Ready = func() error {
		if redisRelay == nil {
			return nil
		}
		return redisRelay.Ping(context.Background())
	}
	if registry != nil {
		registry.MustRegister(metric.NewCollector(
			metric.CounterFunc(sections.Count),
			metric.CounterFunc(connections.Count),
			metric.CounterFunc(hub.Count),
			metric.CounterFunc(func() int { return len(mesh.Peers()) }),
		))
		routerCfg.Metrics = registry.Handler()
	}

	srv := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(routerCfg))

	shutdownHandler.OnShutdown("hub", func(context.Context) error {
		cancel()
		hub.Close()
		sections.Wait()
		return nil
	})
	shutdownHandler.OnShutdown("http", srv.Shutdown)

	// Log level hot reload.
	if path := loader.FilePath(); path != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Watch(path); err != nil {
			log.Warn("config watcher unavailable", "path", path, "error", err)
			_ = watcher.Stop()
		} else {
			confloader.WatchLogLevel(watcher, loader, config.Default,
				func(c *config.ServerConfig) string { return c.Log.Level },
				logger.SetLevel, log)
			watcher.StartAsync()
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		tlsCfg := cfg.Server.HTTP
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"public", self.Host,
			"tls", tlsCfg.TLSCertFile != "")
		if tlsCfg.TLSCertFile != "" {
			serveErr <- srv.ListenAndServeTLS(tlsCfg.TLSCertFile, tlsCfg.TLSKeyFile)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	// A listener failure stops the process the same way a signal does.
	go func() {
		if err := <-serveErr; err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	log.Info("server started, press Ctrl+C to stop", "instance", hub.InstanceID())
	if err := shutdownHandler.Wait(parent); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// startDiscovery joins the gossip cluster and keeps the mesh in step with
// its membership.
func startDiscovery(cfg *config.ServerConfig, mesh *peering.Mesh, log *slog.Logger) (*peering.Discovery, error) {
	discoveryCfg, err := config.ToDiscoveryConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	discovery, err := peering.NewDiscovery(discoveryCfg)
	if err != nil {
		return nil, fmt.Errorf("start gossip: %w", err)
	}

	discovery.OnJoin(func(name, url string) {
		if mesh.Add(url) {
			log.Debug("mesh link added", "node", name, "url", url)
		}
	})
	discovery.OnLeave(func(name, url string) {
		if mesh.Remove(url) {
			log.Debug("mesh link removed", "node", name, "url", url)
		}
	})

	if len(discoveryCfg.Seeds) > 0 {
		if err := discovery.Join(discoveryCfg.Seeds); err != nil {
			log.Warn("gossip join failed, running standalone until a peer joins", "seeds", discoveryCfg.Seeds, "error", err)
		}
	}
	log.Info("gossip started", "node", discoveryCfg.NodeName, "addr", discovery.Addr())
	return discovery, nil
}

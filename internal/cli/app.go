package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/internal/config"
	"github.com/mesh-intelligence/pantry/internal/logging"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/accessor"
	"github.com/mesh-intelligence/pantry/pkg/cache"
	"github.com/mesh-intelligence/pantry/pkg/catalog"
	"github.com/mesh-intelligence/pantry/pkg/schema"
)

// settings is the configuration after flags, config.yaml and environment
// are combined.
type settings struct {
	cfg         *config.Config
	configDir   string
	dataDir     string
	catalogPath string
	logger      *zap.Logger
}

func (s *state) settings() (*settings, error) {
	configDir, err := s.resolveConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if s.flags.logLevel != "" {
		cfg.LogLevel = s.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(s.flags.dataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	catalogPath, err := paths.ResolveCatalog(s.flags.catalog, cfg.Catalog, configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	return &settings{cfg: cfg, configDir: configDir, dataDir: dataDir, catalogPath: catalogPath, logger: logger}, nil
}

// app is an opened store with one accessor per catalog endpoint.
type app struct {
	settings    *settings
	store       *sqlstore.Store
	registry    *accessor.Registry
	coordinator cache.Coordinator
	metrics     *prometheus.Registry
	metricsFile string
	closers     []func() error
}

// open loads the catalog, attaches the store and wires caching.
func (s *state) open(ctx context.Context) (*app, error) {
	st, err := s.settings()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(st.catalogPath, st.logger)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, usagef("no catalog at %s (run \"pantry init\")", st.catalogPath)
	}
	if err != nil {
		return nil, err
	}

	a := &app{settings: st, metrics: prometheus.NewRegistry(), metricsFile: s.flags.metricsFile}
	a.store = sqlstore.New(st.logger)
	if err := a.store.Attach(ctx, st.cfg.Store(st.dataDir)); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)
	if err := a.store.Register(ctx, cat.Endpoints...); err != nil {
		a.Close()
		return nil, fmt.Errorf("register endpoints: %w", err)
	}

	transport, err := a.wireCache(st)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry, err = accessor.NewRegistry(cat.Endpoints, transport,
		schema.New(schema.WithLogger(st.logger)),
		accessor.WithCoordinator(a.coordinator),
		accessor.WithLogger(st.logger),
		accessor.WithMetrics(accessor.NewMetrics(a.metrics)))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// wireCache builds the read cache and invalidation fan-out from config.
func (a *app) wireCache(st *settings) (accessor.Transport, error) {
	cc := st.cfg.Cache
	var (
		transport accessor.Transport = a.store
		local     cache.Store
		reads     *cache.ReadThrough
		coords    cache.Multi
	)

	switch cc.Kind {
	case config.CacheMemory:
		local = cache.NewMemory(cc.Size, cc.TTL, st.logger)
	case config.CacheRedis:
		opts, err := redis.ParseURL(cc.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		local = cache.NewRedis(client, cache.DefaultRedisPrefix, cc.TTL, st.logger)
	}
	if local != nil {
		reads = cache.NewReadThrough(a.store, local)
		transport = reads
		coords = append(coords, reads)
	}

	if cc.NATSURL != "" {
		nc, err := nats.Connect(cc.NATSURL, nats.Name("pantry"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.closers = append(a.closers, func() error { nc.Close(); return nil })

		subject := cc.Subject
		if subject == "" {
			subject = cache.DefaultSubject
		}
		origin := uuid.NewString()
		coords = append(coords, cache.NewNATS(nc,
			cache.WithSubject(subject),
			cache.WithOrigin(origin),
			cache.WithNATSLogger(st.logger)))
		if reads != nil {
			sub, err := cache.Subscribe(nc, subject, origin, reads, st.logger)
			if err != nil {
				return nil, fmt.Errorf("subscribe invalidations: %w", err)
			}
			a.closers = append(a.closers, sub.Unsubscribe)
		}
	}

	a.coordinator = coords
	return transport, nil
}

// Close releases every resource in reverse order of acquisition and writes
// the metrics file when one was requested.
func (a *app) Close() error {
	var err error
	if a.metricsFile != "" {
		err = multierr.Append(err, prometheus.WriteToTextfile(a.metricsFile, a.metrics))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

// writeIfMissing creates path with data unless it exists.
func writeIfMissing(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, os.WriteFile(path, data, 0o644)
}

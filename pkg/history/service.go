// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package history wires the query core together and exposes it as a set of
// tool handlers.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/stroll/pkg/cache"
	"storj.io/stroll/pkg/catalog"
	"storj.io/stroll/pkg/jsonrpc"
	"storj.io/stroll/pkg/market"
	"storj.io/stroll/pkg/partition"
	"storj.io/stroll/pkg/query"
	"storj.io/stroll/pkg/ring"
	"storj.io/stroll/pkg/wire"
)

var mon = monkit.Package()

// Default deadlines and cache TTLs.
const (
	DefaultToolTimeout = 2 * time.Second

	barsTTL    = 300 * time.Second
	optionsTTL = 600 * time.Second
)

// Config configures the service.
type Config struct {
	// DataRoot is the directory holding partition files.
	DataRoot string
	// CacheSize bounds the response cache. Zero means 4096.
	CacheSize int
	// MaxRows bounds per-query materialization. Zero means the planner
	// default.
	MaxRows int
	// ToolTimeout bounds a single tool call. Zero means 2s.
	ToolTimeout time.Duration
	// ScanTimeout bounds a single partition scan. Zero means the store
	// default.
	ScanTimeout time.Duration
}

// Service owns every moving part of the query core. Handlers receive it
// explicitly; there is no process-global state.
type Service struct {
	log    *zap.Logger
	config Config

	intern   *market.InternTable
	catalog  *catalog.Catalog
	store    *partition.Store
	planner  *query.Planner
	cache    *cache.ExpiringLRU
	ring     *ring.Ring
	packager *wire.Packager
	status   *statusMonitor

	handlers map[string]handlerFunc
}

// NewService builds the service over the configured data root, runs the
// initial partition discovery and precomputes the static payloads.
func NewService(ctx context.Context, log *zap.Logger, config Config) (_ *Service, err error) {
	defer mon.Task()(&ctx)(&err)

	if config.ToolTimeout <= 0 {
		config.ToolTimeout = DefaultToolTimeout
	}

	packager, err := wire.NewPackager()
	if err != nil {
		return nil, Error.Wrap(err)
	}

	service := &Service{
		log:      log,
		config:   config,
		intern:   market.NewInternTable(),
		catalog:  catalog.New(log.Named("catalog"), config.DataRoot),
		ring:     ring.New(0),
		packager: packager,
		cache:    cache.New(cache.Options{Capacity: config.CacheSize}),
	}
	service.store = partition.NewStore(
		log.Named("partition"),
		partition.Config{ScanTimeout: config.ScanTimeout},
		service.catalog.Quarantine)
	service.planner = query.NewPlanner(
		log.Named("query"),
		service.catalog, service.store,
		market.NewNormalizer(service.intern),
		config.MaxRows)

	if err := service.catalog.Refresh(ctx); err != nil {
		return nil, Error.Wrap(err)
	}

	service.status = newStatusMonitor(log.Named("status"), service.catalog, service.store)
	service.status.startupProbe(ctx)

	service.handlers = map[string]handlerFunc{
		"discover":        service.handleDiscover,
		"version":         service.handleVersion,
		"get_bars":        service.handleGetBars,
		"get_options":     service.handleGetOptions,
		"provider_status": service.handleProviderStatus,
		"data_inventory":  service.handleDataInventory,
	}

	return service, nil
}

// Close releases the partition handles.
func (service *Service) Close() error {
	return service.store.Close()
}

// Planner exposes the planner for invocation-count assertions in tests.
func (service *Service) Planner() *query.Planner { return service.planner }

// Metrics exposes the metrics ring.
func (service *Service) Metrics() *ring.Ring { return service.ring }

// Catalog exposes the partition catalog.
func (service *Service) Catalog() *catalog.Catalog { return service.catalog }

// CallTool routes one tool invocation, records its metric sample, and
// returns the serialized response envelope. Domain failures come back as
// failure envelopes with a nil error; only protocol-level problems (an
// unknown tool) surface as errors.
func (service *Service) CallTool(ctx context.Context, name string, args json.RawMessage) (_ []byte, err error) {
	defer mon.Task()(&ctx)(&err)

	handler, ok := service.handlers[name]
	if !ok {
		return nil, jsonrpc.ErrUnknownTool.New("%s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, service.config.ToolTimeout)
	defer cancel()

	start := time.Now()
	payload, herr := handler(ctx, args)
	latency := time.Since(start)

	service.ring.Record(name, latency, herr == nil)

	if herr != nil {
		kind := classify(herr)
		if kind == wire.KindInternal {
			service.log.Error("tool failed", zap.String("tool", name), zap.Error(herr))
		} else {
			service.log.Debug("tool rejected",
				zap.String("tool", name),
				zap.String("kind", string(kind)),
				zap.Error(herr))
		}
		payload, err := service.packager.PackError(kind, message(herr, kind))
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
	return payload, nil
}

// Tools lists the tool descriptors advertised by tools/list.
func (service *Service) Tools() []jsonrpc.Tool { return toolDescriptors }

type handlerFunc func(ctx context.Context, args json.RawMessage) ([]byte, error)

// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history

import (
	"context"
	"encoding/json"
	"time"

	"storj.io/stroll/pkg/cache"
	"storj.io/stroll/pkg/market"
	"storj.io/stroll/pkg/query"
	"storj.io/stroll/pkg/wire"
)

func (service *Service) handleDiscover(ctx context.Context, args json.RawMessage) ([]byte, error) {
	return service.packager.Discover(), nil
}

func (service *Service) handleVersion(ctx context.Context, args json.RawMessage) ([]byte, error) {
	return service.packager.Version(), nil
}

type getBarsArgs struct {
	Symbol      string `json:"symbol"`
	From        string `json:"from"`
	To          string `json:"to"`
	Granularity string `json:"granularity"`
}

// earliestFrom is the oldest date a query may start at.
var earliestFrom = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func (service *Service) handleGetBars(ctx context.Context, raw json.RawMessage) ([]byte, error) {
	var args getBarsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, ErrInvalidArgument.New("malformed arguments: %v", err)
	}

	symbol, err := service.intern.Intern(args.Symbol)
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(err)
	}
	from, err := market.ParseDate(args.From)
	if err != nil {
		return nil, ErrInvalidArgument.New("invalid from date %q", args.From)
	}
	to, err := market.ParseDate(args.To)
	if err != nil {
		return nil, ErrInvalidArgument.New("invalid to date %q", args.To)
	}
	if from.After(to) {
		return nil, ErrInvalidArgument.New("from %s after to %s", args.From, args.To)
	}
	if from.Before(earliestFrom) {
		return nil, ErrInvalidArgument.New("from %s precedes 1970-01-01", args.From)
	}
	if latest := time.Now().UTC().AddDate(0, 0, 1); to.After(latest) {
		return nil, ErrInvalidArgument.New("to %s is beyond tomorrow", args.To)
	}

	g := market.Day1
	if args.Granularity != "" {
		g, err = market.ParseGranularity(args.Granularity)
		if err != nil {
			return nil, ErrInvalidArgument.Wrap(err)
		}
	}

	if service.catalog.Snapshot().Degraded() {
		return nil, ErrUnavailable.New("data root %q not available", service.config.DataRoot)
	}

	fingerprint := cache.Fingerprint("get_bars",
		string(symbol), market.FormatDate(from), market.FormatDate(to), string(g))
	payload, err := service.cache.GetTTL(fingerprint, barsTTL, func() (interface{}, error) {
		result, err := service.planner.Bars(ctx, query.Request{
			Symbol: symbol, From: from, To: to, Granularity: g,
		})
		if err != nil {
			return nil, err
		}
		return service.packager.PackBars(
			string(symbol), market.FormatDate(from), market.FormatDate(to), string(g),
			wire.BarsFrom(result.Bars))
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

type getOptionsArgs struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
}

func (service *Service) handleGetOptions(ctx context.Context, raw json.RawMessage) ([]byte, error) {
	var args getOptionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, ErrInvalidArgument.New("malformed arguments: %v", err)
	}

	symbol, err := service.intern.Intern(args.Symbol)
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(err)
	}
	expiry, err := market.ParseDate(args.Date)
	if err != nil {
		return nil, ErrInvalidArgument.New("invalid date %q", args.Date)
	}

	if service.catalog.Snapshot().Degraded() {
		return nil, ErrUnavailable.New("data root %q not available", service.config.DataRoot)
	}

	fingerprint := cache.Fingerprint("get_options", string(symbol), market.FormatDate(expiry))
	payload, err := service.cache.GetTTL(fingerprint, optionsTTL, func() (interface{}, error) {
		result, err := service.planner.Options(ctx, symbol, expiry)
		if err != nil {
			return nil, err
		}
		return service.packager.PackOptions(
			string(symbol), market.FormatDate(expiry),
			wire.OptionsFrom(result.Rows))
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

type providerStatusArgs struct {
	Output string `json:"output"`
}

func (service *Service) handleProviderStatus(ctx context.Context, raw json.RawMessage) ([]byte, error) {
	var args providerStatusArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, ErrInvalidArgument.New("malformed arguments: %v", err)
		}
	}

	report := service.status.report(ctx)

	data := map[string]interface{}{
		"providers": report,
	}
	if args.Output == "metrics" || args.Output == "full" {
		data["metrics"] = service.ring.Snapshot()
	}
	return wire.Marshal(wire.OK(data))
}

type dataInventoryArgs struct {
	Symbol string `json:"symbol"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (service *Service) handleDataInventory(ctx context.Context, raw json.RawMessage) ([]byte, error) {
	var args dataInventoryArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, ErrInvalidArgument.New("malformed arguments: %v", err)
		}
	}

	if args.Symbol == "" {
		args.Symbol = "SPY"
	}
	symbol, err := service.intern.Intern(args.Symbol)
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(err)
	}

	to := time.Now().UTC()
	if args.To != "" {
		to, err = market.ParseDate(args.To)
		if err != nil {
			return nil, ErrInvalidArgument.New("invalid to date %q", args.To)
		}
	}
	from := to.AddDate(-5, 0, 0)
	if args.From != "" {
		from, err = market.ParseDate(args.From)
		if err != nil {
			return nil, ErrInvalidArgument.New("invalid from date %q", args.From)
		}
	}
	if from.After(to) {
		return nil, ErrInvalidArgument.New("from %s after to %s", args.From, args.To)
	}

	if service.catalog.Snapshot().Degraded() {
		return nil, ErrUnavailable.New("data root %q not available", service.config.DataRoot)
	}

	report := service.analyzeInventory(ctx, symbol, from, to)
	return wire.Marshal(wire.OK(report))
}

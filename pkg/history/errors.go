// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history

import (
	"context"
	"errors"

	"github.com/zeebo/errs"

	"storj.io/stroll/pkg/market"
	"storj.io/stroll/pkg/partition"
	"storj.io/stroll/pkg/query"
	"storj.io/stroll/pkg/wire"
)

var (
	// Error is the generic class for service failures.
	Error = errs.Class("history")
	// ErrInvalidArgument is the class for rejected tool arguments.
	ErrInvalidArgument = errs.Class("invalid argument")
	// ErrUnavailable is the class for a degraded catalog.
	ErrUnavailable = errs.Class("provider unavailable")
)

// classify maps an internal failure onto the client-visible error kind.
// Scan deadlines are checked before the tool deadline so a partition-level
// timeout is not misreported as a tool timeout.
func classify(err error) wire.Kind {
	switch {
	case ErrInvalidArgument.Has(err):
		return wire.KindInvalidArgument
	case ErrUnavailable.Has(err):
		return wire.KindProviderUnavailable
	case query.ErrNotFound.Has(err):
		return wire.KindNotFound
	case query.ErrTooLarge.Has(err):
		return wire.KindQueryTooLarge
	case partition.ErrScanTimeout.Has(err):
		return wire.KindScanTimeout
	case partition.ErrCorrupt.Has(err), partition.ErrMissing.Has(err):
		return wire.KindDataError
	case market.ErrData.Has(err):
		return wire.KindDataError
	case errors.Is(err, context.DeadlineExceeded):
		return wire.KindTimeout
	}
	return wire.KindInternal
}

// message renders the short, stable client-facing message for err.
// Internal failures never leak their details.
func message(err error, kind wire.Kind) string {
	if kind == wire.KindInternal {
		return "internal error"
	}
	return errs.Unwrap(err).Error()
}

// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package wire

// ServiceName and ServiceVersion identify the service on the wire.
const (
	ServiceName    = "stroll.history"
	ServiceVersion = "1.0.0"
)

// Commands are the client-facing command names advertised by discover.
var Commands = []string{
	"version",
	"discover",
	"list-datasets",
	"get-bars",
	"get-options",
	"provider-status",
}

// Packager serializes canonical records into envelopes and holds the
// static payloads computed once at startup.
type Packager struct {
	discover []byte
	version  []byte
}

// NewPackager precomputes the static discover and version payloads.
func NewPackager() (*Packager, error) {
	discover, err := Marshal(OK(map[string]interface{}{
		"service":     ServiceName,
		"version":     ServiceVersion,
		"description": "historical market data query service",
		"commands":    Commands,
	}))
	if err != nil {
		return nil, err
	}

	version, err := Marshal(OK(map[string]interface{}{
		"service": ServiceName,
		"version": ServiceVersion,
	}))
	if err != nil {
		return nil, err
	}

	return &Packager{discover: discover, version: version}, nil
}

// Discover returns the precomputed discover payload.
func (p *Packager) Discover() []byte { return p.discover }

// Version returns the precomputed version payload.
func (p *Packager) Version() []byte { return p.version }

// PackBars serializes a bar query result.
func (p *Packager) PackBars(symbol, from, to, g string, bars []Bar) ([]byte, error) {
	return Marshal(OKCount(map[string]interface{}{
		"symbol":      symbol,
		"from":        from,
		"to":          to,
		"granularity": g,
		"bars":        bars,
	}, len(bars)))
}

// PackOptions serializes an option chain result.
func (p *Packager) PackOptions(symbol, expiry string, chain []Option) ([]byte, error) {
	return Marshal(OKCount(map[string]interface{}{
		"symbol": symbol,
		"expiry": expiry,
		"chain":  chain,
	}, len(chain)))
}

// PackError serializes a failure envelope.
func (p *Packager) PackError(kind Kind, message string) ([]byte, error) {
	return Marshal(Fail(kind, message))
}

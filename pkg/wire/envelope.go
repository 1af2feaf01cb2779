// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package wire defines the stable response envelope wrapped around every
// domain payload, and the serialized row shapes inside it.
package wire

import (
	"encoding/json"
	"time"

	"github.com/zeebo/errs"

	"storj.io/stroll/pkg/market"
)

// Schema is the envelope schema identifier.
const Schema = "stroll.history.v1"

// TimeFormat renders envelope timestamps: UTC ISO8601 with millisecond
// precision.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Error is the class for serialization failures.
var Error = errs.Class("wire")

// Kind is a client-visible domain error code.
type Kind string

// Domain error kinds.
const (
	KindInvalidArgument     Kind = "INVALID_ARGUMENT"
	KindNotFound            Kind = "NOT_FOUND"
	KindProviderUnavailable Kind = "PROVIDER_UNAVAILABLE"
	KindScanTimeout         Kind = "SCAN_TIMEOUT"
	KindTimeout             Kind = "TIMEOUT"
	KindQueryTooLarge       Kind = "QUERY_TOO_LARGE"
	KindDataError           Kind = "DATA_ERROR"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// ErrObj is the error half of an envelope.
type ErrObj struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

// Meta carries envelope metadata.
type Meta struct {
	Count     *int   `json:"count,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Envelope is the wrapper around every domain payload. ok == true exactly
// when error == null.
type Envelope struct {
	Schema string      `json:"schema"`
	OK     bool        `json:"ok"`
	Data   interface{} `json:"data"`
	Error  *ErrObj     `json:"error"`
	Meta   Meta        `json:"meta"`
}

// OK builds a success envelope without a row count.
func OK(data interface{}) Envelope {
	return Envelope{
		Schema: Schema,
		OK:     true,
		Data:   data,
		Meta:   Meta{Timestamp: time.Now().UTC().Format(TimeFormat)},
	}
}

// OKCount builds a success envelope carrying a row count.
func OKCount(data interface{}, count int) Envelope {
	env := OK(data)
	env.Meta.Count = &count
	return env
}

// Fail builds a failure envelope.
func Fail(kind Kind, message string) Envelope {
	return Envelope{
		Schema: Schema,
		OK:     false,
		Error:  &ErrObj{Code: kind, Message: message},
		Meta:   Meta{Timestamp: time.Now().UTC().Format(TimeFormat)},
	}
}

// Marshal renders the envelope as compact JSON.
func Marshal(env Envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	return payload, Error.Wrap(err)
}

// Bar is the serialized bar row with short field names.
type Bar struct {
	T      string       `json:"t"`
	O      market.Price `json:"o"`
	H      market.Price `json:"h"`
	L      market.Price `json:"l"`
	C      market.Price `json:"c"`
	V      int64        `json:"v"`
	Symbol string       `json:"symbol"`
	G      string       `json:"g"`
}

// BarFrom converts a canonical bar into its wire shape.
func BarFrom(bar market.Bar) Bar {
	return Bar{
		T:      bar.T.UTC().Format(TimeFormat),
		O:      bar.O,
		H:      bar.H,
		L:      bar.L,
		C:      bar.C,
		V:      bar.V,
		Symbol: string(bar.Symbol),
		G:      string(bar.G),
	}
}

// BarsFrom converts a bar slice, always returning a non-nil slice so empty
// results serialize as [].
func BarsFrom(bars []market.Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, bar := range bars {
		out = append(out, BarFrom(bar))
	}
	return out
}

// Option is the serialized option-chain row.
type Option struct {
	Symbol string        `json:"symbol"`
	Expiry string        `json:"expiry"`
	Right  string        `json:"right"`
	Strike market.Price  `json:"strike"`
	Bid    *market.Price `json:"bid,omitempty"`
	Ask    *market.Price `json:"ask,omitempty"`
	Mid    *market.Price `json:"mid,omitempty"`
	Delta  *float64      `json:"delta,omitempty"`
	Gamma  *float64      `json:"gamma,omitempty"`
}

// OptionFrom converts a canonical option row into its wire shape.
func OptionFrom(row market.OptionRow) Option {
	return Option{
		Symbol: string(row.Symbol),
		Expiry: market.FormatDate(row.Expiry),
		Right:  string(row.Right),
		Strike: row.Strike,
		Bid:    row.Bid,
		Ask:    row.Ask,
		Mid:    row.Mid,
		Delta:  row.Delta,
		Gamma:  row.Gamma,
	}
}

// OptionsFrom converts an option slice, always returning a non-nil slice.
func OptionsFrom(rows []market.OptionRow) []Option {
	out := make([]Option, 0, len(rows))
	for _, row := range rows {
		out = append(out, OptionFrom(row))
	}
	return out
}

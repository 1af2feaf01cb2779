// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history

import (
	"encoding/json"

	"storj.io/stroll/pkg/jsonrpc"
)

var toolDescriptors = []jsonrpc.Tool{
	{
		Name:        "discover",
		Description: "Describe the service and the commands it offers.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "version",
		Description: "Report the service name and version.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "get_bars",
		Description: "Fetch OHLCV bars for a symbol over a date range.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "ticker symbol, e.g. SPY"},
				"from": {"type": "string", "description": "start date, YYYY-MM-DD"},
				"to": {"type": "string", "description": "end date, YYYY-MM-DD"},
				"granularity": {"type": "string", "enum": ["1m", "5m", "1h", "1d"], "default": "1d"}
			},
			"required": ["symbol", "from", "to"]
		}`),
	},
	{
		Name:        "get_options",
		Description: "Fetch the stored option chain for a symbol and expiry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "underlying symbol, e.g. SPX"},
				"date": {"type": "string", "description": "expiry date, YYYY-MM-DD"}
			},
			"required": ["symbol", "date"]
		}`),
	},
	{
		Name:        "provider_status",
		Description: "Report partition provider availability and probe latency.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"output": {"type": "string", "enum": ["summary", "metrics", "full"], "default": "summary"}
			}
		}`),
	},
	{
		Name:        "data_inventory",
		Description: "Sample stored coverage for a symbol across a date range.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "default": "SPY"},
				"from": {"type": "string", "description": "start date, YYYY-MM-DD"},
				"to": {"type": "string", "description": "end date, YYYY-MM-DD"}
			}
		}`),
	},
}

// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package history_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/stroll/pkg/history"
	"storj.io/stroll/pkg/jsonrpc"
	"storj.io/stroll/pkg/partition/testpartition"
	"storj.io/stroll/pkg/wire"
)

// serveLines runs the full dispatcher + service stack over an in-memory
// transport and returns the response lines keyed by request id.
func serveLines(t *testing.T, service *history.Service, lines ...string) map[string]json.RawMessage {
	t.Helper()

	server, err := jsonrpc.NewServer(zaptest.NewLogger(t), service, service.Tools(), jsonrpc.Config{
		ServiceName:    wire.ServiceName,
		ServiceVersion: wire.ServiceVersion,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	input := strings.Join(lines, "\n") + "\n"
	require.NoError(t, server.Serve(context.Background(), strings.NewReader(input), &out))

	responses := map[string]json.RawMessage{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp struct {
			ID json.RawMessage `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses[string(resp.ID)] = json.RawMessage(line)
	}
	return responses
}

// envelopeOf extracts the domain envelope out of result.content[0].text.
func envelopeOf(t *testing.T, raw json.RawMessage) envelope {
	t.Helper()

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Len(t, resp.Result.Content, 1)
	require.Equal(t, "text", resp.Result.Content[0].Type)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &env))
	return env
}

func TestStdioRoundTrip(t *testing.T) {
	root := t.TempDir()
	testpartition.WriteBars(t, filepath.Join(root, "spy_1d_2024.db"),
		testpartition.DailyBars("SPY", day(2024, 1, 1), 10))
	service := newService(t, root)

	responses := serveLines(t, service,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"discover","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"get_bars","arguments":{"symbol":"SPY","from":"2024-01-01","to":"2024-01-05"}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
	)
	require.Len(t, responses, 5)

	// initialize names the service
	var init struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(responses["1"], &init))
	assert.Equal(t, "stroll.history", init.Result.ServerInfo.Name)

	// tools/list advertises the full tool set
	var list struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(responses["2"], &list))
	names := map[string]bool{}
	for _, tool := range list.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"discover", "version", "get_bars", "get_options", "provider_status", "data_inventory"} {
		assert.True(t, names[want], want)
	}

	// discover rides inside the content envelope
	env := envelopeOf(t, responses["3"])
	require.True(t, env.OK)
	assert.Equal(t, "stroll.history", env.Data["service"])

	// get_bars returns data
	env = envelopeOf(t, responses["4"])
	require.True(t, env.OK)
	assert.Len(t, env.Data["bars"].([]interface{}), 5)

	// unknown tool is a protocol error, not an envelope
	var unknown struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(responses["5"], &unknown))
	require.NotNil(t, unknown.Error)
	assert.Equal(t, -32601, unknown.Error.Code)
}

func TestStdioResponsesStayOnSingleLines(t *testing.T) {
	root := t.TempDir()
	testpartition.WriteBars(t, filepath.Join(root, "spy_1d_2024.db"),
		testpartition.DailyBars("SPY", day(2024, 1, 1), 5))
	service := newService(t, root)

	responses := serveLines(t, service,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_bars","arguments":{"symbol":"SPY","from":"2024-01-01","to":"2024-01-05"}}}`,
	)
	for id, raw := range responses {
		assert.NotContains(t, string(raw), "\n", "response %s must be one line", id)
	}
}

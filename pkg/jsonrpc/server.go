// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package jsonrpc serves newline-delimited JSON-RPC 2.0 over a byte stream,
// routing tool calls into a handler. One goroutine decodes frames serially;
// a bounded worker pool executes them; responses are written one per line
// in completion order.
package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/stroll/internal/sync2"
)

var (
	mon = monkit.Package()

	// Error is the class for transport failures.
	Error = errs.Class("jsonrpc")
	// ErrUnknownTool marks a tools/call for a name outside the registered
	// set; it maps to a method-not-found protocol error.
	ErrUnknownTool = errs.Class("unknown tool")
)

// Protocol error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// MaxFrameSize bounds a single request line.
const MaxFrameSize = 1 << 20

// protocolVersion is the tool-protocol revision advertised by initialize.
const protocolVersion = "2024-11-05"

// Handler executes tool calls on behalf of the dispatcher.
type Handler interface {
	// CallTool returns the serialized domain envelope for one tool
	// invocation. An ErrUnknownTool error maps to method-not-found.
	CallTool(ctx context.Context, name string, args json.RawMessage) ([]byte, error)
}

// Tool describes one advertised tool for tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Config configures a Server.
type Config struct {
	// ServiceName and ServiceVersion fill the initialize response.
	ServiceName    string
	ServiceVersion string
	// MaxInFlight bounds concurrently executing requests. Zero means
	// 2 × CPU cores.
	MaxInFlight int
}

// Server is the stdio dispatcher.
type Server struct {
	log     *zap.Logger
	handler Handler
	config  Config

	// precomputed result payloads, stamped with the request id on reply
	initializeResult json.RawMessage
	toolsListResult  json.RawMessage

	writeMu sync.Mutex
}

// NewServer creates a dispatcher and precomputes the static initialize and
// tools/list results.
func NewServer(log *zap.Logger, handler Handler, tools []Tool, config Config) (*Server, error) {
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 2 * runtime.NumCPU()
	}

	initResult, err := json.Marshal(map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		"serverInfo": map[string]interface{}{
			"name":    config.ServiceName,
			"version": config.ServiceVersion,
		},
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	toolsResult, err := json.Marshal(map[string]interface{}{"tools": tools})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	// Input schemas may be declared with indentation; responses must stay
	// one line each.
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, toolsResult); err != nil {
		return nil, Error.Wrap(err)
	}
	toolsResult = compacted.Bytes()

	return &Server{
		log:              log,
		handler:          handler,
		config:           config,
		initializeResult: initResult,
		toolsListResult:  toolsResult,
	}, nil
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type errObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *errObj         `json:"error,omitempty"`
}

// Serve reads frames from r until EOF, dispatching each to the worker pool
// and writing responses to w. At EOF or a read error it waits for in-flight
// requests to finish and write their responses before returning; cancelling
// ctx cancels in-flight work at its next suspension point.
func (server *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) (err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := sync2.NewLimiter(server.config.MaxInFlight)
	defer limiter.Wait()

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, tooLong, err := readLine(reader)
		if err != nil {
			if err == io.EOF {
				if len(line) == 0 {
					return nil
				}
				// fall through to process the final unterminated frame
			} else {
				return Error.Wrap(err)
			}
		}
		atEOF := err == io.EOF

		if tooLong {
			server.write(w, server.protocolError(nil, CodeInvalidRequest, "frame exceeds 1 MiB"))
		} else if frame := bytes.TrimSpace(line); len(frame) > 0 {
			server.enqueue(ctx, limiter, w, frame)
		}

		if atEOF {
			return nil
		}
	}
}

// enqueue parses one frame and hands it to the worker pool. Parse failures
// are answered inline to preserve request order for diagnostics.
func (server *Server) enqueue(ctx context.Context, limiter *sync2.Limiter, w io.Writer, frame []byte) {
	var req request
	if err := json.Unmarshal(frame, &req); err != nil {
		server.write(w, server.protocolError(nil, CodeParseError, "parse error"))
		return
	}

	started := limiter.Go(ctx, func() {
		if resp := server.dispatch(ctx, &req); resp != nil {
			server.write(w, resp)
		}
	})
	if !started {
		// Transport is shutting down.
		return
	}
}

// dispatch routes one request. A nil response means a notification with
// nothing to send back.
func (server *Server) dispatch(ctx context.Context, req *request) *response {
	isNotification := len(req.ID) == 0 || bytes.Equal(req.ID, []byte("null"))

	var resp *response
	switch req.Method {
	case "initialize":
		resp = &response{JSONRPC: "2.0", ID: req.ID, Result: server.initializeResult}
	case "notifications/initialized":
		return nil
	case "tools/list":
		resp = &response{JSONRPC: "2.0", ID: req.ID, Result: server.toolsListResult}
	case "tools/call":
		resp = server.dispatchToolCall(ctx, req)
	default:
		resp = server.protocolError(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
	}

	if isNotification {
		return nil
	}
	return resp
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (server *Server) dispatchToolCall(ctx context.Context, req *request) *response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return server.protocolError(req.ID, CodeInvalidParams, "invalid params: missing tool name")
	}

	payload, err := server.handler.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if ErrUnknownTool.Has(err) {
			return server.protocolError(req.ID, CodeMethodNotFound, "unknown tool: "+params.Name)
		}
		server.log.Error("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return server.protocolError(req.ID, CodeInternal, "internal error")
	}

	result, err := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": string(payload)}},
	})
	if err != nil {
		server.log.Error("result serialization failed", zap.Error(err))
		return server.protocolError(req.ID, CodeInternal, "internal error")
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (server *Server) protocolError(id json.RawMessage, code int, message string) *response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &response{JSONRPC: "2.0", ID: id, Error: &errObj{Code: code, Message: message}}
}

// write serializes one response as a single line. Responses from concurrent
// workers interleave whole-line only.
func (server *Server) write(w io.Writer, resp *response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		server.log.Error("response serialization failed", zap.Error(err))
		return
	}

	server.writeMu.Lock()
	defer server.writeMu.Unlock()
	if _, err := w.Write(append(payload, '\n')); err != nil {
		server.log.Warn("response write failed", zap.Error(err))
	}
}

// readLine reads one newline-delimited frame, reporting frames beyond
// MaxFrameSize without buffering them.
func readLine(reader *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			if tooLong {
				continue
			}
			line = append(line, chunk...)
			if len(line) > MaxFrameSize {
				tooLong = true
				line = nil
			}
			continue
		}
		if tooLong {
			return nil, true, err
		}
		line = append(line, chunk...)
		if len(line) > MaxFrameSize {
			return nil, true, err
		}
		return line, false, err
	}
}

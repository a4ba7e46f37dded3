package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client over HTTP POST with JSON-RPC envelopes.
type HTTPClient struct {
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout. It bounds unary calls only;
// StreamRun uses a request without a client-level deadline so long streams
// are not cut off.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a remote analysis client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartRun submits a run via the analysis/run method.
func (c *HTTPClient) StartRun(ctx context.Context, endpoint string, req RunRequest) (*AnalysisRun, error) {
	var run AnalysisRun
	if err := c.call(ctx, endpoint, MethodStartRun, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// PollRun retrieves a run snapshot via the analysis/poll method.
func (c *HTTPClient) PollRun(ctx context.Context, endpoint string, req PollRequest) (*AnalysisRun, error) {
	var run AnalysisRun
	if err := c.call(ctx, endpoint, MethodPollRun, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns queries runs via the analysis/list method.
func (c *HTTPClient) ListRuns(ctx context.Context, endpoint string, req ListRunsRequest) (*ListRunsResponse, error) {
	var resp ListRunsResponse
	if err := c.call(ctx, endpoint, MethodListRuns, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelRun cancels a run via the analysis/cancel method.
func (c *HTTPClient) CancelRun(ctx context.Context, endpoint string, req CancelRequest) (*AnalysisRun, error) {
	var run AnalysisRun
	if err := c.call(ctx, endpoint, MethodCancelRun, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// StreamRun opens an SSE stream via the analysis/stream method. A JSON
// response means the server rejected the subscription; its error envelope
// is surfaced as an RPCError.
func (c *HTTPClient) StreamRun(ctx context.Context, endpoint string, runID string) (<-chan StreamEvent, error) {
	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  MethodStreamRun,
		Params:  mustMarshal(StreamRequest{ID: runID}),
	})
	if err != nil {
		return nil, fmt.Errorf("remote: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// Streams outlive the unary timeout; rely on ctx for cancellation.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote: %s: %w", MethodStreamRun, err)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		var rpcResp JSONRPCResponse
		if err := json.Unmarshal(respBody, &rpcResp); err == nil && rpcResp.Error != nil {
			return nil, &RPCError{
				Method:  MethodStreamRun,
				Code:    rpcResp.Error.Code,
				Message: rpcResp.Error.Message,
				Data:    rpcResp.Error.Data,
			}
		}
		return nil, fmt.Errorf("remote: %s: HTTP %d: %s", MethodStreamRun, resp.StatusCode, string(respBody))
	}

	return ReadEvents(ctx, resp.Body), nil
}

// Discover fetches the agent card from the well-known URI.
func (c *HTTPClient) Discover(ctx context.Context, baseURL string) (*AgentCard, error) {
	url := strings.TrimRight(baseURL, "/") + "/.well-known/agent-card.json"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote: discover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote: discover: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("remote: decode agent card: %w", err)
	}
	return &card, nil
}

// nextID returns a monotonically increasing JSON-RPC request ID.
func (c *HTTPClient) nextID() int64 {
	return c.requestID.Add(1)
}

// call performs a unary JSON-RPC 2.0 call over HTTP POST.
func (c *HTTPClient) call(ctx context.Context, endpoint, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("remote: marshal params: %w", err)
	}

	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return fmt.Errorf("remote: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("remote: decode result: %w", err)
		}
	}

	return nil
}

// mustMarshal marshals values that cannot fail (plain structs of strings).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// RPCError is a JSON-RPC error returned by a remote endpoint.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("remote: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("remote: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

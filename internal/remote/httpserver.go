package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Start registers routes and begins serving in a background goroutine,
// returning immediately.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)

	s.http = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go s.http.ListenAndServe()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleAgentCard serves the agent card at the well-known endpoint.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC decodes the envelope and dispatches on the method name.
// analysis/stream switches the response to SSE; every other method
// answers with a JSON envelope.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodStartRun:
		s.dispatchStartRun(ctx, w, &req)
	case MethodPollRun:
		s.dispatchPollRun(ctx, w, &req)
	case MethodListRuns:
		s.dispatchListRuns(ctx, w, &req)
	case MethodCancelRun:
		s.dispatchCancelRun(ctx, w, &req)
	case MethodStreamRun:
		s.dispatchStreamRun(ctx, w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) dispatchStartRun(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params RunRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleStartRun(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) dispatchPollRun(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params PollRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandlePollRun(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) dispatchListRuns(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params ListRunsRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleListRuns(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) dispatchCancelRun(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params CancelRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleCancelRun(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchStreamRun subscribes to the run's events and relays them as
// SSE frames until the feed closes or the client goes away.
func (s *Server) dispatchStreamRun(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params StreamRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	events, err := s.handler.Subscribe(ctx, params.ID)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	sw := NewSSEWriter(w)
	sw.Init()
	for ev := range events {
		if writeErr := sw.WriteEvent(ev); writeErr != nil {
			return
		}
	}
}

// errCodeFor maps handler errors onto protocol error codes.
func errCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return ErrCodeRunNotFound
	case errors.Is(err, ErrRunNotCancelable):
		return ErrCodeRunNotCancelable
	default:
		return ErrCodeInternal
	}
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	})
}

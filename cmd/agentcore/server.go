package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulpoai/agentcore/pkg/types"
)

// decideRequest is the HTTP wire shape for one turn: the core owns no
// tenant store, so the caller supplies both the conversational snapshot and
// the resolved workspace on every call.
type decideRequest struct {
	Conversation types.ConversationSnapshot `json:"conversation"`
	Workspace    types.Workspace            `json:"workspace"`
}

func newHTTPMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/v1/decide", handleDecide(a))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleDecide(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := a.Orchestrator.Decide(r.Context(), req.Conversation, req.Workspace)
		if err != nil {
			a.Logger.Error(r.Context(), "decide failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func runHTTPServer(ctx context.Context, addr string, a *app) error {
	server := &http.Server{Addr: addr, Handler: newHTTPMux(a)}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

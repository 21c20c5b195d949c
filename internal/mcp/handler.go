package mcp

import (
	"encoding/json"
	"io"
	"net/http"

	"tourgate/internal/fetch"
	"tourgate/internal/logging"
	"tourgate/internal/metrics"
	"tourgate/internal/tools"
)

const sessionHeader = "Mcp-Session-Id"

const maxRequestBody = 1 << 20

// Handler frames the protocol server over HTTP in one of two modes.
//
// Stateless mode builds a fresh server per request and discards it: one-shot
// RPC, acceptable because every exposed tool is a stateless read. Stateful
// mode keeps a session map keyed by the Mcp-Session-Id header; a request
// without a known session id is rejected before the registry is ever touched.
type Handler struct {
	executor *tools.Executor
	stateful bool
	version  string
	origin   string
	sessions SessionStore
	logger   logging.Logger
}

// NewHandler builds the HTTP framing for the protocol transport. sessions is
// only consulted in stateful mode; pass nil for stateless deployments.
func NewHandler(executor *tools.Executor, stateful bool, version, origin string, sessions SessionStore) *Handler {
	if stateful && sessions == nil {
		sessions = NewMemorySessionStore()
	}
	return &Handler{
		executor: executor,
		stateful: stateful,
		version:  version,
		origin:   origin,
		sessions: sessions,
		logger:   logging.NewComponentLogger("MCPHandler"),
	}
}

// ServeHTTP implements http.Handler for the /api/mcp endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		writeResponse(w, http.StatusMethodNotAllowed,
			NewErrorResponse(nil, InvalidRequest, "Method not allowed: "+r.Method, nil))
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeResponse(w, http.StatusBadRequest,
			NewErrorResponse(nil, ParseError, "Failed to read request body", err.Error()))
		return
	}

	req, rpcErr := UnmarshalRequest(body)
	if rpcErr != nil {
		writeResponse(w, http.StatusBadRequest, NewErrorResponse(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data))
		return
	}

	// Seed the inbound origin so tool calls resolve upstream the same way the
	// chat transport does when no base URL override is configured.
	ctx := fetch.WithRequestOrigin(r.Context(), fetch.OriginFromRequest(r))

	if !h.stateful {
		// One server per request, discarded after the response.
		server := NewServer(h.executor, h.version)
		h.respond(w, server.HandleRequest(ctx, req))
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		if req.Method != "initialize" {
			writeResponse(w, http.StatusBadRequest,
				NewErrorResponse(req.ID, InvalidRequest, "Bad Request: Mcp-Session-Id header is required", nil))
			return
		}

		session := NewSession(NewServer(h.executor, h.version))
		h.sessions.Set(session)
		metrics.SetActiveSessions(h.sessions.Len())
		h.logger.Info("Session %s initialized (%d active)", session.ID, h.sessions.Len())

		w.Header().Set(sessionHeader, session.ID)
		h.respond(w, session.Server.HandleRequest(ctx, req))
		return
	}

	session, ok := h.sessions.Get(sessionID)
	if !ok {
		h.logger.Warn("Unknown session id: %s", sessionID)
		writeResponse(w, http.StatusNotFound,
			NewErrorResponse(req.ID, SessionNotFound, "Session not found", nil))
		return
	}

	w.Header().Set(sessionHeader, session.ID)
	h.respond(w, session.Server.HandleRequest(ctx, req))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.stateful {
		writeResponse(w, http.StatusMethodNotAllowed,
			NewErrorResponse(nil, InvalidRequest, "No sessions in stateless mode", nil))
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	session, ok := h.sessions.Get(sessionID)
	if !ok {
		writeResponse(w, http.StatusNotFound,
			NewErrorResponse(nil, SessionNotFound, "Session not found", nil))
		return
	}

	h.sessions.Delete(session.ID)
	session.Server.Close()
	metrics.SetActiveSessions(h.sessions.Len())
	h.logger.Info("Session %s closed (%d active)", session.ID, h.sessions.Len())
	w.WriteHeader(http.StatusNoContent)
}

// respond writes a JSON-RPC response, or 202 Accepted for notifications.
func (h *Handler) respond(w http.ResponseWriter, resp *Response) {
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

// CloseAll tears down every open session; called on process shutdown.
func (h *Handler) CloseAll() {
	if !h.stateful {
		return
	}
	for _, session := range h.sessions.All() {
		h.sessions.Delete(session.ID)
		session.Server.Close()
	}
	metrics.SetActiveSessions(0)
	h.logger.Info("All sessions closed")
}

// SessionCount reports active sessions (always 0 in stateless mode).
func (h *Handler) SessionCount() int {
	if !h.stateful {
		return 0
	}
	return h.sessions.Len()
}

// TransportMode names the deployment mode for operator surfaces.
func (h *Handler) TransportMode() string {
	if h.stateful {
		return "streamable-http-stateful"
	}
	return "streamable-http-stateless"
}

// Health is the operator-facing status payload.
func (h *Handler) Health() map[string]any {
	return map[string]any{
		"ok":                 true,
		"service":            ServerName,
		"version":            h.version,
		"transport":          h.TransportMode(),
		"sessions":           h.SessionCount(),
		"dashboard_base_url": h.origin,
	}
}

func writeCORSHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id")
	header.Set("Access-Control-Expose-Headers", sessionHeader)
}

func writeResponse(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hometable/apps/server/internal/auth"
)

// RegisterRoutes mounts the websocket endpoint and the read-only table API.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.HandleWebSocket)
	mux.HandleFunc("GET /api/tables/{id}", g.handleView)
	mux.HandleFunc("GET /api/tables/{id}/hands", g.handleHands)
	mux.HandleFunc("GET /api/tables/{id}/events", g.handleEvents)
}

func (g *Gateway) handleView(w http.ResponseWriter, r *http.Request) {
	ident, ok := g.auth.ResolveSession(auth.BearerToken(r.Header.Get("Authorization")))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Type: TypeError, Error: &WireError{Code: "unauthorized", Message: "invalid session token"}})
		return
	}
	snap, err := g.tables.View(r.Context(), r.PathValue("id"), ident.ID)
	if err != nil {
		g.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Type: TypeResult, Table: &snap})
}

func (g *Gateway) handleHands(w http.ResponseWriter, r *http.Request) {
	if _, ok := g.auth.ResolveSession(auth.BearerToken(r.Header.Get("Authorization"))); !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Type: TypeError, Error: &WireError{Code: "unauthorized", Message: "invalid session token"}})
		return
	}
	hands, err := g.tables.History(r.Context(), r.PathValue("id"))
	if err != nil {
		g.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Type: TypeResult, Hands: hands})
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := g.auth.ResolveSession(auth.BearerToken(r.Header.Get("Authorization"))); !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Type: TypeError, Error: &WireError{Code: "unauthorized", Message: "invalid session token"}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := g.tables.Events(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		g.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Type: TypeResult, Events: events})
}

var statusByCode = map[string]int{
	"not_found":      http.StatusNotFound,
	"unauthorized":   http.StatusForbidden,
	"validation":     http.StatusBadRequest,
	"bad_request":    http.StatusBadRequest,
	"conflict":       http.StatusConflict,
	"illegal_state":  http.StatusConflict,
	"not_your_turn":  http.StatusConflict,
	"illegal_action": http.StatusUnprocessableEntity,
}

func (g *Gateway) writeErr(w http.ResponseWriter, err error) {
	we := wireError(err)
	status, ok := statusByCode[we.Code]
	if !ok {
		g.logger.Error("request failed", "err", err)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, Response{Type: TypeError, Error: we})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package gateway

import (
	"encoding/json"
	"errors"

	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/replay"
	"hometable/holdem"
)

// Request is one command from a client. ID is echoed on the response so the
// client can match them up.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// params is the union of every method's arguments.
type params struct {
	TableID    string             `json:"table_id"`
	Name       string             `json:"name"`
	Password   string             `json:"password"`
	Config     holdem.TableConfig `json:"config"`
	Ready      bool               `json:"ready"`
	SittingOut bool               `json:"sitting_out"`
	A          string             `json:"a"`
	B          string             `json:"b"`
	Action     holdem.ActionType  `json:"action"`
	Amount     int64              `json:"amount"`
	Ranking    holdem.Ranking     `json:"ranking"`
	Limit      int                `json:"limit"`
}

const (
	TypeResult = "result"
	TypeError  = "error"
	// TypeUpdate is pushed after somebody else's command changed a table
	// this connection watches.
	TypeUpdate = "update"
)

type Response struct {
	ID     string           `json:"id,omitempty"`
	Type   string           `json:"type"`
	Table  *holdem.Snapshot `json:"table,omitempty"`
	Hands  []*holdem.Hand   `json:"hands,omitempty"`
	Events []ledger.Event   `json:"events,omitempty"`
	Audit  *replay.Report   `json:"audit,omitempty"`
	Error  *WireError       `json:"error,omitempty"`
}

type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorCodes = map[error]string{
	holdem.ErrNotFound:      "not_found",
	holdem.ErrIllegalState:  "illegal_state",
	holdem.ErrNotYourTurn:   "not_your_turn",
	holdem.ErrIllegalAction: "illegal_action",
	holdem.ErrUnauthorized:  "unauthorized",
	holdem.ErrValidation:    "validation",
	holdem.ErrConflict:      "conflict",
}

var errBadRequest = errors.New("bad request")

// wireError maps err to a stable code. Anything outside the holdem taxonomy
// is reported as internal without its message.
func wireError(err error) *WireError {
	if errors.Is(err, errBadRequest) {
		return &WireError{Code: "bad_request", Message: err.Error()}
	}
	if code, ok := errorCodes[holdem.Kind(err)]; ok {
		return &WireError{Code: code, Message: err.Error()}
	}
	return &WireError{Code: "internal", Message: "internal error"}
}

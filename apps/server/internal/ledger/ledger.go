package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ModeNoop     = "noop"
	ModeMemory   = "memory"
	ModeSQL      = "sql"
	defaultLimit = 500
)

// Event is one committed command against a table. Seq is the table revision
// the command produced, so a table's events are gap-free and commit-ordered.
type Event struct {
	ID         string         `json:"id"`
	TableID    string         `json:"table_id"`
	Seq        int64          `json:"seq"`
	HandNumber int            `json:"hand_number"`
	Type       string         `json:"type"`
	Actor      string         `json:"actor"`
	Payload    map[string]any `json:"payload,omitempty"`
	At         time.Time      `json:"at"`
}

// Service appends and reads the event stream.
type Service interface {
	Append(ctx context.Context, ev Event) error
	Events(ctx context.Context, tableID string, limit int) ([]Event, error)
	Close() error
}

type noopService struct{}

func NewNoop() Service { return noopService{} }

func (noopService) Append(context.Context, Event) error { return nil }

func (noopService) Events(context.Context, string, int) ([]Event, error) { return []Event{}, nil }

func (noopService) Close() error { return nil }

// Strings converts ids into a list structpb accepts.
func Strings(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Encode packs ev into a protobuf Struct and returns it base64 encoded, the
// form stored in envelope_b64.
func Encode(ev Event) (string, error) {
	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	st, err := structpb.NewStruct(map[string]any{
		"id":          ev.ID,
		"table_id":    ev.TableID,
		"seq":         ev.Seq,
		"hand_number": ev.HandNumber,
		"type":        ev.Type,
		"actor":       ev.Actor,
		"at_ms":       ev.At.UTC().UnixMilli(),
		"payload":     payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode event %s: %w", ev.Type, err)
	}
	raw, err := proto.Marshal(st)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. Numbers inside Payload come back as float64.
func Decode(envelopeB64 string) (Event, error) {
	raw, err := base64.StdEncoding.DecodeString(envelopeB64)
	if err != nil {
		return Event{}, err
	}
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		return Event{}, err
	}
	f := st.GetFields()
	ev := Event{
		ID:         f["id"].GetStringValue(),
		TableID:    f["table_id"].GetStringValue(),
		Seq:        int64(f["seq"].GetNumberValue()),
		HandNumber: int(f["hand_number"].GetNumberValue()),
		Type:       f["type"].GetStringValue(),
		Actor:      f["actor"].GetStringValue(),
		At:         time.UnixMilli(int64(f["at_ms"].GetNumberValue())).UTC(),
	}
	if p := f["payload"].GetStructValue(); p != nil {
		ev.Payload = p.AsMap()
	}
	return ev, nil
}

package ledger

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryService keeps encoded envelopes in process, for the memory store
// and for tests.
type MemoryService struct {
	mu     sync.Mutex
	events map[string][]string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{events: make(map[string][]string)}
}

func (m *MemoryService) Append(_ context.Context, ev Event) error {
	envelope, err := Encode(ev)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.TableID] = append(m.events[ev.TableID], envelope)
	return nil
}

func (m *MemoryService) Events(_ context.Context, tableID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	m.mu.Lock()
	envelopes := append([]string(nil), m.events[tableID]...)
	m.mu.Unlock()

	out := make([]Event, 0, len(envelopes))
	for _, envelope := range envelopes {
		ev, err := Decode(envelope)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	// appends from concurrent commits can land out of order
	slices.SortFunc(out, func(a, b Event) int { return cmp.Compare(a.Seq, b.Seq) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryService) Close() error { return nil }

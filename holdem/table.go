package holdem

import "time"

// Table is the session-level record. CurrentHand is 0 until the first hand
// starts.
type Table struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Config      TableConfig `json:"config"`
	HostID      string      `json:"host_id"`
	State       TableState  `json:"state"`
	CurrentHand int         `json:"current_hand"`

	// Revision counts committed commands against the table.
	Revision  int64      `json:"revision"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cp := *t
	if t.EndedAt != nil {
		ended := *t.EndedAt
		cp.EndedAt = &ended
	}
	return &cp
}

func (t *Table) IsHost(identity string) bool {
	return t != nil && identity != "" && t.HostID == identity
}

// RequireHost fails with ErrUnauthorized unless identity hosts the table.
func (t *Table) RequireHost(identity, op string) error {
	if !t.IsHost(identity) {
		return Unauthorized("only the host may %s", op)
	}
	return nil
}

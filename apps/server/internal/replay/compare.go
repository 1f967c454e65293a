package replay

import (
	"fmt"

	"hometable/holdem"
)

// Report is the outcome of checking a stored table against its replay.
type Report struct {
	TableID    string   `json:"table_id"`
	Events     int      `json:"events"`
	Revision   int64    `json:"revision"`
	Mismatches []string `json:"mismatches"`
}

func (r Report) OK() bool { return len(r.Mismatches) == 0 }

// Compare lists every difference between the replayed and the stored
// table that a player would notice: lifecycle, host, seats, stacks and
// the current hand's betting state.
func Compare(replayed, stored holdem.Snapshot) []string {
	out := []string{}
	diff := func(field string, got, want any) {
		if got != want {
			out = append(out, fmt.Sprintf("%s: replayed %v, stored %v", field, got, want))
		}
	}
	if replayed.Table == nil || stored.Table == nil {
		return append(out, "table: missing")
	}
	diff("revision", replayed.Table.Revision, stored.Table.Revision)
	diff("state", replayed.Table.State, stored.Table.State)
	diff("host", replayed.Table.HostID, stored.Table.HostID)
	diff("current_hand", replayed.Table.CurrentHand, stored.Table.CurrentHand)

	diff("seats", len(replayed.Players), len(stored.Players))
	for i := range min(len(replayed.Players), len(stored.Players)) {
		r, s := replayed.Players[i], stored.Players[i]
		diff(fmt.Sprintf("seat %d id", i), r.ID, s.ID)
		diff(fmt.Sprintf("seat %d stack", i), r.Stack, s.Stack)
		diff(fmt.Sprintf("seat %d folded", i), r.Folded, s.Folded)
	}

	switch {
	case replayed.Hand == nil && stored.Hand == nil:
	case replayed.Hand == nil || stored.Hand == nil:
		out = append(out, "hand: present on one side only")
	default:
		r, s := replayed.Hand, stored.Hand
		diff("hand stage", r.Stage, s.Stage)
		diff("hand pot", r.Pot, s.Pot)
		diff("hand current_bet", r.CurrentBet, s.CurrentBet)
		diff("hand current_turn", r.CurrentTurn, s.CurrentTurn)
		diff("hand settled", r.Settled(), s.Settled())
	}
	return out
}

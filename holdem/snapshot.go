package holdem

// Legal is the projection of what a viewer may do right now. It is a pure
// function of the current records.
type Legal struct {
	Actions []ActionType `json:"actions"`
	ToCall  int64        `json:"to_call"`
	MinBet  int64        `json:"min_bet"`
	MaxBet  int64        `json:"max_bet"`
}

// LegalActions is empty unless playerID holds the current turn.
func (g *Game) LegalActions(playerID string) Legal {
	var out Legal
	if g.Hand == nil || g.Hand.Stage == StageShowdown || g.Table.State != TableStateInGame {
		return out
	}
	p := g.CurrentPlayer()
	if p == nil || p.ID != playerID || p.Folded {
		return out
	}
	h := g.Hand
	myBet := h.RoundBets[p.ID]
	out.ToCall = min(h.CurrentBet-myBet, p.Stack)
	if h.CurrentBet > myBet {
		out.Actions = append(out.Actions, ActionCall)
	} else {
		out.Actions = append(out.Actions, ActionCheck)
	}
	if allIn := myBet + p.Stack; allIn > h.CurrentBet {
		out.Actions = append(out.Actions, ActionBet)
		out.MinBet = h.CurrentBet + 1
		out.MaxBet = allIn
	}
	out.Actions = append(out.Actions, ActionFold)
	return out
}

// PlayerSnapshot is a seat as the outside world sees it.
type PlayerSnapshot struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Stack       int64  `json:"stack"`
	Ready       bool   `json:"ready"`
	Folded      bool   `json:"folded"`
	SittingOut  bool   `json:"sitting_out"`
	AllIn       bool   `json:"all_in"`
	RoundBet    int64  `json:"round_bet"`
	TotalBet    int64  `json:"total_bet"`
}

// Snapshot is a read-only copy of a table for one viewer.
type Snapshot struct {
	Table   *Table           `json:"table"`
	Players []PlayerSnapshot `json:"players"`
	Hand    *Hand            `json:"hand,omitempty"`
	Pots    []Pot            `json:"pots,omitempty"`
	Legal   Legal            `json:"legal"`
	Private bool             `json:"private"`
}

func (g *Game) Snapshot(viewer string) Snapshot {
	s := Snapshot{
		Table: g.Table.Clone(),
		Hand:  g.Hand.Clone(),
		Legal: g.LegalActions(viewer),
	}
	// the hash never leaves the server
	s.Private = s.Table.Config.PasswordHash != ""
	s.Table.Config.PasswordHash = ""
	for _, p := range g.Seats {
		ps := PlayerSnapshot{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Seat:        p.Seat,
			Stack:       p.Stack,
			Ready:       p.Ready,
			Folded:      p.Folded,
			SittingOut:  p.SittingOut,
		}
		if g.Hand != nil {
			ps.AllIn = g.Hand.AllIn[p.ID]
			ps.RoundBet = g.Hand.RoundBets[p.ID]
			ps.TotalBet = g.Hand.TotalBets[p.ID]
		}
		s.Players = append(s.Players, ps)
	}
	if g.Hand != nil && !g.Hand.Settled() {
		s.Pots = g.Pots()
	}
	return s
}

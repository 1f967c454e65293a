package holdem

import "time"

// handInProgress: a hand exists and its chips have not been paid out yet.
func (g *Game) handInProgress() bool {
	return g.Hand != nil && !g.Hand.Settled()
}

// Join seats id at the next free seat with the table's initial stack. Joining
// twice is a no-op that returns the existing seat. Somebody who joins while
// a hand is running waits for the next deal.
func (g *Game) Join(id, displayName string, now time.Time) (*Player, bool, error) {
	if p := g.Seats.ByID(id); p != nil {
		return p, false, nil
	}
	if g.Table.State == TableStateSummary {
		return nil, false, IllegalState("table %s has ended", g.Table.ID)
	}
	if id == "" {
		return nil, false, Validation("empty player id")
	}
	p := &Player{
		ID:          id,
		DisplayName: displayName,
		Seat:        len(g.Seats),
		Stack:       g.Table.Config.InitialStack,
		Folded:      g.handInProgress(),
		JoinedAt:    now,
	}
	g.Seats = append(g.Seats, p)
	if g.handInProgress() {
		// the late stack sits out this hand but still counts toward its chips
		g.Hand.StartingChips += p.Stack
	}
	return p, true, nil
}

// Leave removes id and renumbers the remaining seats so they stay
// contiguous. It is refused while a hand is unsettled because the hand
// refers to seats by number. A departing host hands the table to whoever
// ends up in seat 0.
func (g *Game) Leave(id string) (*Player, error) {
	p := g.Seats.ByID(id)
	if p == nil {
		return nil, NotFound("player %s is not seated at table %s", id, g.Table.ID)
	}
	if g.handInProgress() {
		return nil, IllegalState("cannot leave table %s while hand %d is in progress", g.Table.ID, g.Hand.Number)
	}
	rest := make(Seating, 0, len(g.Seats)-1)
	for _, s := range g.Seats {
		if s.ID != id {
			rest = append(rest, s)
		}
	}
	g.Seats = rest.Compact()
	if g.Table.HostID == id && len(g.Seats) > 0 {
		g.Table.HostID = g.Seats[0].ID
	}
	return p, nil
}

func (g *Game) SetReady(id string, ready bool) error {
	p := g.Seats.ByID(id)
	if p == nil {
		return NotFound("player %s is not seated at table %s", id, g.Table.ID)
	}
	if g.Table.State != TableStateLobby {
		return IllegalState("ready flags only apply in the lobby")
	}
	p.Ready = ready
	return nil
}

// SetSittingOut toggles the flag. A player still live in an unsettled hand
// has to fold first.
func (g *Game) SetSittingOut(id string, sittingOut bool) error {
	p := g.Seats.ByID(id)
	if p == nil {
		return NotFound("player %s is not seated at table %s", id, g.Table.ID)
	}
	if g.Table.State == TableStateSummary {
		return IllegalState("table %s has ended", g.Table.ID)
	}
	if g.handInProgress() && p.contesting() {
		return IllegalState("player %s is still in hand %d", id, g.Hand.Number)
	}
	p.SittingOut = sittingOut
	return nil
}

// SwapSeats exchanges two players' seats. Lobby only.
func (g *Game) SwapSeats(a, b string) error {
	if g.Table.State != TableStateLobby {
		return IllegalState("seats can only be swapped in the lobby")
	}
	pa, pb := g.Seats.ByID(a), g.Seats.ByID(b)
	if pa == nil || pb == nil {
		return NotFound("both players must be seated at table %s", g.Table.ID)
	}
	g.Seats[pa.Seat], g.Seats[pb.Seat] = pb, pa
	pa.Seat, pb.Seat = pb.Seat, pa.Seat
	return nil
}

// End moves the table to SUMMARY. The current hand must be settled first so
// no chips are stranded in a pot.
func (g *Game) End(now time.Time) error {
	if g.Table.State != TableStateInGame {
		return IllegalState("table %s is %s, not IN_GAME", g.Table.ID, g.Table.State)
	}
	if g.handInProgress() {
		return IllegalState("hand %d is not settled", g.Hand.Number)
	}
	g.Table.State = TableStateSummary
	g.Table.EndedAt = &now
	return nil
}

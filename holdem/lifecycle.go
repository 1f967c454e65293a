package holdem

import "time"

// StartGame deals hand #1 and moves the table from LOBBY to IN_GAME.
//
// Heads-up, seat 0 posts the big blind and seat 1 is dealer and small blind
// and acts first. With three or more players seat 0 deals, 1 and 2 post the
// blinds and the seat after the big blind opens.
func (g *Game) StartGame(now time.Time) error {
	if g.Table.State != TableStateLobby {
		return IllegalState("table %s is %s, not LOBBY", g.Table.ID, g.Table.State)
	}
	if len(g.Seats) < 2 {
		return IllegalState("need at least 2 seated players, have %d", len(g.Seats))
	}
	for _, p := range g.Seats {
		p.Ready = false
		p.Folded = false
	}
	dealt := g.Seats.Filter((*Player).dealable)
	if len(dealt) < 2 {
		return IllegalState("need at least 2 players with chips who are not sitting out, have %d", len(dealt))
	}

	var dealer, sb, bb int
	if len(dealt) == 2 {
		bb = dealt[0].Seat
		dealer, sb = dealt[1].Seat, dealt[1].Seat
	} else {
		dealer, sb, bb = dealt[0].Seat, dealt[1].Seat, dealt[2].Seat
	}

	g.Table.State = TableStateInGame
	g.deal(1, dealer, sb, bb, len(dealt) == 2, now)
	return nil
}

// StartNextHand rotates the button one dealable seat and deals the next
// hand. Stacks and sitting-out flags carry over.
func (g *Game) StartNextHand(now time.Time) error {
	if err := g.requireHand(); err != nil {
		return err
	}
	prev := g.Hand
	if !prev.Settled() {
		return IllegalState("hand %d is not settled (stage %s)", prev.Number, prev.Stage)
	}
	dealable := (*Player).dealable
	n := g.Seats.Count(dealable)
	if n < 2 {
		return IllegalState("need at least 2 players with chips who are not sitting out, have %d", n)
	}

	dealer := g.Seats.WalkOnce(prev.Dealer, 1, dealable)
	var sb, bb int
	if n == 2 {
		sb = dealer
		bb = g.Seats.WalkOnce(dealer, 1, dealable)
	} else {
		sb = g.Seats.WalkOnce(dealer, 1, dealable)
		bb = g.Seats.WalkOnce(sb, 1, dealable)
	}
	g.deal(prev.Number+1, dealer, sb, bb, n == 2, now)
	return nil
}

// deal creates the hand, posts blinds and puts the first player on the
// clock. Blinds are capped at the poster's stack; a short poster is all-in.
func (g *Game) deal(number, dealer, sb, bb int, headsUp bool, now time.Time) {
	h := newHand(number, now)
	h.StartingChips = g.Seats.TotalChips()
	h.Dealer, h.SmallBlind, h.BigBlind = dealer, sb, bb
	g.Hand = h
	g.Table.CurrentHand = number

	// busted and sitting-out seats sit this hand out
	for _, p := range g.Seats {
		p.Folded = !p.dealable()
	}

	g.Seats.At(sb).commit(h, g.Table.Config.SmallBlind)
	g.Seats.At(bb).commit(h, g.Table.Config.BigBlind)
	h.CurrentBet = h.maxRoundBet()
	h.LastAggressor = bb

	var first int
	if headsUp {
		first = g.Seats.FirstFrom(sb, g.canAct)
	} else {
		first = g.NextActive(bb)
	}
	h.FirstToAct = first
	h.CurrentTurn = first

	if first == NoSeat || g.nobodyCanContinue() {
		g.goToShowdown()
	}
}

package holdem

import "time"

// Act applies one action for playerID, who must hold the current turn.
// amount is only read for ActionBet and is the actor's desired total
// commitment on this street, not a delta.
func (g *Game) Act(playerID string, action ActionType, amount int64, now time.Time) error {
	if err := g.requireHand(); err != nil {
		return err
	}
	h := g.Hand
	if h.Stage == StageShowdown {
		return IllegalState("hand %d is at showdown", h.Number)
	}
	actor := g.Seats.ByID(playerID)
	if actor == nil {
		return NotFound("player %s is not seated at table %s", playerID, g.Table.ID)
	}
	if h.RoundClosed() {
		return NotYourTurn("the %s betting round is closed; waiting for the host", h.Stage)
	}
	if actor.Seat != h.CurrentTurn {
		return NotYourTurn("seat %d is to act, not seat %d", h.CurrentTurn, actor.Seat)
	}
	if actor.Folded {
		return IllegalAction("player %s has already folded", playerID)
	}

	// The closer is decided on the state the actor saw.
	closer := g.closer()
	myBet := h.RoundBets[actor.ID]
	toCall := h.CurrentBet - myBet

	switch action {
	case ActionCheck:
		if toCall > 0 {
			return IllegalAction("cannot check facing %d to call", toCall)
		}

	case ActionCall:
		if toCall <= 0 {
			return IllegalAction("nothing to call")
		}
		// Short stacks call all-in for less.
		actor.commit(h, toCall)

	case ActionBet:
		allInTarget := myBet + actor.Stack
		switch {
		case amount <= 0:
			return IllegalAction("invalid bet amount %d", amount)
		case amount > allInTarget:
			return IllegalAction("cannot bet %d beyond stack (max %d)", amount, allInTarget)
		case amount <= h.CurrentBet && amount < allInTarget:
			return IllegalAction("raise to %d must exceed the current bet %d", amount, h.CurrentBet)
		case amount <= myBet:
			return IllegalAction("bet to %d does not add to the %d already committed", amount, myBet)
		}
		actor.commit(h, amount-myBet)
		// An all-in for no more than the current bet is a call: it does not
		// reopen the betting.
		if amount > h.CurrentBet {
			h.CurrentBet = amount
			h.LastAggressor = actor.Seat
			h.Aggressed = true
		}

	case ActionFold:
		actor.Folded = true

	default:
		return IllegalAction("unsupported action %s", action)
	}

	g.afterAction(actor, closer, now)
	return nil
}

// closer is the seat whose completed action ends the street once every
// actionable player has matched the current bet.
func (g *Game) closer() int {
	h := g.Hand
	switch {
	case h.Stage == StagePreflop && !h.Aggressed:
		// big blind gets its option
		if bb := g.Seats.At(h.BigBlind); bb != nil && g.canAct(bb) {
			return h.BigBlind
		}
		return g.PreviousActive(h.BigBlind)
	case !h.Aggressed:
		return g.PreviousActive(h.FirstToAct)
	default:
		return g.PreviousActive(h.LastAggressor)
	}
}

func (g *Game) afterAction(actor *Player, closer int, now time.Time) {
	h := g.Hand

	contesting := g.Seats.Filter((*Player).contesting)
	switch len(contesting) {
	case 0:
		g.goToShowdown()
		return
	case 1:
		g.awardUncontested(contesting[0], now)
		return
	}

	if g.nobodyCanContinue() {
		g.goToShowdown()
		return
	}

	if g.allMatched() && actor.Seat == closer {
		h.CurrentTurn = NoSeat
		return
	}

	next := g.NextActive(actor.Seat)
	if next == NoSeat {
		g.goToShowdown()
		return
	}
	h.CurrentTurn = next
}

// allMatched: every player who can still act has put in the current bet.
// All-in players are exempt.
func (g *Game) allMatched() bool {
	for _, p := range g.actionable() {
		if g.Hand.RoundBets[p.ID] != g.Hand.CurrentBet {
			return false
		}
	}
	return true
}

// nobodyCanContinue: at most one player can still act and nobody owes
// chips, so no further decision is possible this hand.
func (g *Game) nobodyCanContinue() bool {
	act := g.actionable()
	if len(act) > 1 {
		return false
	}
	for _, p := range act {
		if g.Hand.RoundBets[p.ID] < g.Hand.CurrentBet {
			return false
		}
	}
	return true
}

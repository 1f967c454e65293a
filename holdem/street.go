package holdem

import "time"

// AdvanceStage moves a closed street on to the next one. Postflop action
// starts from the small blind seat, or the first seat after it that can
// still act.
func (g *Game) AdvanceStage(now time.Time) error {
	if err := g.requireHand(); err != nil {
		return err
	}
	h := g.Hand
	next, ok := h.Stage.Next()
	if !ok {
		return IllegalState("hand %d is already at showdown", h.Number)
	}
	if !h.RoundClosed() {
		return IllegalState("the %s betting round is still open (seat %d to act)", h.Stage, h.CurrentTurn)
	}

	h.resetStreet()
	h.Stage = next

	if next == StageShowdown {
		h.CurrentTurn = NoSeat
		if contesting := g.Seats.Filter((*Player).contesting); len(contesting) == 1 {
			g.awardUncontested(contesting[0], now)
		} else {
			g.goToShowdown()
		}
		return nil
	}

	first := g.Seats.FirstFrom(h.SmallBlind, g.canAct)
	h.FirstToAct = first
	h.CurrentTurn = first
	// Baseline aggressor so the no-bet closer is defined on the first action.
	h.LastAggressor = g.PreviousActive(first)

	if first == NoSeat || g.nobodyCanContinue() {
		g.goToShowdown()
	}
	return nil
}

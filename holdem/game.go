package holdem

import "time"

// Game binds the records a single command works on: the table, its seats and
// the current hand. It is rebuilt from fresh reads inside every store
// transaction and is never shared between goroutines, so it carries no lock.
type Game struct {
	Table *Table
	Seats Seating
	Hand  *Hand
}

// NewGame validates the loaded records and assembles them. hand may be nil
// before the first deal.
func NewGame(table *Table, players []*Player, hand *Hand) (*Game, error) {
	if table == nil {
		return nil, NotFound("table record missing")
	}
	seats, err := NewSeating(players)
	if err != nil {
		return nil, err
	}
	if hand != nil {
		hand.ensureMaps()
	}
	return &Game{Table: table, Seats: seats, Hand: hand}, nil
}

// canAct: may still voluntarily act on this street.
func (g *Game) canAct(p *Player) bool {
	return p.contesting() && !g.Hand.AllIn[p.ID] && p.Stack > 0
}

// NextActive is the first seat after seat whose occupant can still act, or
// NoSeat when nobody can.
func (g *Game) NextActive(seat int) int {
	return g.Seats.WalkOnce(seat, 1, g.canAct)
}

// PreviousActive is NextActive scanning backwards.
func (g *Game) PreviousActive(seat int) int {
	return g.Seats.WalkOnce(seat, -1, g.canAct)
}

func (g *Game) contestingCount() int {
	return g.Seats.Count((*Player).contesting)
}

func (g *Game) actionable() []*Player {
	return g.Seats.Filter(g.canAct)
}

// CurrentPlayer is the occupant of the current turn, or nil when the street
// is closed.
func (g *Game) CurrentPlayer() *Player {
	if g.Hand == nil {
		return nil
	}
	return g.Seats.At(g.Hand.CurrentTurn)
}

func (g *Game) requireHand() error {
	if g.Table.State != TableStateInGame {
		return IllegalState("table %s is %s, not IN_GAME", g.Table.ID, g.Table.State)
	}
	if g.Hand == nil {
		return NotFound("table %s has no current hand", g.Table.ID)
	}
	return nil
}

// CheckChips verifies sum(stack) + pot against the hand's starting total.
func (g *Game) CheckChips() error {
	if g.Hand == nil {
		return nil
	}
	got := g.Seats.TotalChips() + g.Hand.Pot
	if got != g.Hand.StartingChips {
		return IllegalState("chip conservation violated in hand %d: have %d, started with %d",
			g.Hand.Number, got, g.Hand.StartingChips)
	}
	return nil
}

// awardUncontested pays the whole pot to the last player standing and
// closes the hand without a vote.
func (g *Game) awardUncontested(winner *Player, now time.Time) {
	h := g.Hand
	amount := h.Pot
	h.Pots = []PotResult{{
		Amount:   amount,
		Eligible: []string{winner.ID},
		Winners:  []string{winner.ID},
		Shares:   []int64{amount},
	}}
	winner.award(h, amount)
	h.Stage = StageShowdown
	h.CurrentTurn = NoSeat
	h.VotingOpen = false
	h.Winners = []string{winner.ID}
	h.ConfirmedAt = &now
}

// goToShowdown ends betting with several players still contesting and opens
// the winner vote.
func (g *Game) goToShowdown() {
	h := g.Hand
	h.Stage = StageShowdown
	h.CurrentTurn = NoSeat
	h.VotingOpen = true
	h.Winners = nil
}

package holdem

import "time"

// Player is one seated identity at one table. Stack is a running session
// balance and survives across hands.
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Seat        int       `json:"seat"`
	Stack       int64     `json:"stack"`
	Ready       bool      `json:"ready"`
	Folded      bool      `json:"folded"`
	SittingOut  bool      `json:"sitting_out"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// contesting: still has a claim on the pot.
func (p *Player) contesting() bool {
	return p != nil && !p.Folded && !p.SittingOut
}

// dealable: can be dealt into a new hand.
func (p *Player) dealable() bool {
	return p != nil && !p.SittingOut && p.Stack > 0
}

// commit moves up to amount chips from the stack into the hand and reports
// how much actually moved. The stack never goes negative; running dry marks
// the player all-in.
func (p *Player) commit(h *Hand, amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if amount >= p.Stack {
		amount = p.Stack
		h.AllIn[p.ID] = true
	}
	p.Stack -= amount
	h.RoundBets[p.ID] += amount
	h.TotalBets[p.ID] += amount
	h.Pot += amount
	return amount
}

// award pays chips out of the pot.
func (p *Player) award(h *Hand, amount int64) {
	if amount <= 0 {
		return
	}
	p.Stack += amount
	h.Pot -= amount
}

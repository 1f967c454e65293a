package holdem

import (
	"slices"
)

// Pot is one layer of the hand's contributions. Eligible lists, in seat
// order, the contesting players who paid into it.
type Pot struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
}

// Pots partitions the hand's cumulative contributions into the main pot and
// side pots.
func (g *Game) Pots() []Pot {
	if g.Hand == nil {
		return nil
	}
	return calcPots(g.Seats, g.Hand.TotalBets)
}

// calcPots 按未弃牌玩家的投入额分层：每层大小为剩余最小投入，投入过该层的玩家有资格赢取该层。
// Folded players' chips fill the layers they reached but make nobody
// eligible; anything above the highest live contribution joins the last pot.
func calcPots(seats Seating, totals map[string]int64) []Pot {
	var levels []int64
	for _, p := range seats {
		if c := totals[p.ID]; c > 0 && p.contesting() && !slices.Contains(levels, c) {
			levels = append(levels, c)
		}
	}
	slices.Sort(levels)

	pots := make([]Pot, 0, len(levels))
	var prev int64
	for _, level := range levels {
		var pot Pot
		for _, p := range seats {
			c := totals[p.ID]
			pot.Amount += min(c, level) - min(c, prev)
			if p.contesting() && c >= level {
				pot.Eligible = append(pot.Eligible, p.ID)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	var dead int64
	for _, p := range seats {
		if c := totals[p.ID]; c > prev {
			dead += c - prev
		}
	}
	if dead > 0 {
		if len(pots) == 0 {
			var eligible []string
			for _, p := range seats.Filter((*Player).contesting) {
				eligible = append(eligible, p.ID)
			}
			return []Pot{{Amount: dead, Eligible: eligible}}
		}
		pots[len(pots)-1].Amount += dead
	}
	return pots
}

func sumPots(pots []Pot) int64 {
	var sum int64
	for _, p := range pots {
		sum += p.Amount
	}
	return sum
}

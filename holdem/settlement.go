package holdem

import (
	"slices"
	"time"
)

// Ranking is the host's verdict, strongest hand first. Each tier holds the
// ids whose hands tie; most verdicts are one id per tier.
type Ranking [][]string

// Ordered builds a ranking with no ties.
func Ordered(ids ...string) Ranking {
	r := make(Ranking, 0, len(ids))
	for _, id := range ids {
		r = append(r, []string{id})
	}
	return r
}

// Flatten lists every ranked id in order.
func (r Ranking) Flatten() []string {
	var out []string
	for _, tier := range r {
		out = append(out, tier...)
	}
	return out
}

// PotResult records how one pot was paid. Shares[i] went to Winners[i].
type PotResult struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
	Winners  []string `json:"winners"`
	Shares   []int64  `json:"shares"`
}

func (p PotResult) clone() PotResult {
	return PotResult{
		Amount:   p.Amount,
		Eligible: slices.Clone(p.Eligible),
		Winners:  slices.Clone(p.Winners),
		Shares:   slices.Clone(p.Shares),
	}
}

// ConfirmWinners settles a voted showdown: every pot goes to the best ranked
// tier that has an eligible member, split evenly with the odd chips to the
// first listed winner. A pot only one player paid into returns to them.
func (g *Game) ConfirmWinners(ranking Ranking, now time.Time) error {
	if err := g.requireHand(); err != nil {
		return err
	}
	h := g.Hand
	if h.Stage != StageShowdown {
		return IllegalState("hand %d is at %s, not SHOWDOWN", h.Number, h.Stage)
	}
	if !h.VotingOpen {
		return IllegalState("winner vote for hand %d is not open", h.Number)
	}
	if err := g.validateRanking(ranking); err != nil {
		return err
	}

	pots := g.Pots()
	if total := sumPots(pots); total != h.Pot {
		return IllegalState("pots total %d but hand %d holds %d", total, h.Number, h.Pot)
	}

	results := make([]PotResult, 0, len(pots))
	for i, pot := range pots {
		winners := potWinners(pot, ranking)
		if len(winners) == 0 {
			return Validation("no ranked player is eligible for pot %d (%d chips, eligible %v)",
				i, pot.Amount, pot.Eligible)
		}
		results = append(results, PotResult{
			Amount:   pot.Amount,
			Eligible: slices.Clone(pot.Eligible),
			Winners:  winners,
			Shares:   splitPot(pot.Amount, len(winners)),
		})
	}

	for _, res := range results {
		for i, id := range res.Winners {
			g.Seats.ByID(id).award(h, res.Shares[i])
		}
	}
	h.Pots = results
	h.VotingOpen = false
	h.Winners = ranking.Flatten()
	h.ConfirmedAt = &now
	return nil
}

func (g *Game) validateRanking(ranking Ranking) error {
	flat := ranking.Flatten()
	if len(flat) == 0 {
		return Validation("winner list is empty")
	}
	seen := make(map[string]bool, len(flat))
	for _, tier := range ranking {
		if len(tier) == 0 {
			return Validation("winner ranking has an empty tier")
		}
		for _, id := range tier {
			if g.Seats.ByID(id) == nil {
				return Validation("winner %q is not seated at table %s", id, g.Table.ID)
			}
			if seen[id] {
				return Validation("winner %q listed twice", id)
			}
			seen[id] = true
		}
	}
	return nil
}

func potWinners(pot Pot, ranking Ranking) []string {
	if len(pot.Eligible) == 1 {
		return slices.Clone(pot.Eligible)
	}
	for _, tier := range ranking {
		var winners []string
		for _, id := range tier {
			if slices.Contains(pot.Eligible, id) {
				winners = append(winners, id)
			}
		}
		if len(winners) > 0 {
			return winners
		}
	}
	return nil
}

// splitPot 平分底池，余数给第一个赢家（不产生小数筹码）。
func splitPot(amount int64, n int) []int64 {
	share := amount / int64(n)
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] += amount % int64(n)
	return shares
}

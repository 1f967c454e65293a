package holdem

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChipConservation plays random sessions and checks that chips are
// neither created nor destroyed at any step.
func TestChipConservation(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))

		n := 2 + rng.IntN(5)
		initial := make([]int64, n)
		var total int64
		for i := range initial {
			initial[i] = 20 + rng.Int64N(480)
			total += initial[i]
		}
		g := startedGame(t, initial...)

	play:
		for step := 0; step < 4000; step++ {
			h := g.Hand
			switch {
			case h.Settled():
				if g.Seats.Count((*Player).dealable) < 2 {
					break play
				}
				require.NoError(t, g.StartNextHand(testNow))
			case h.VotingOpen:
				ids := make([]string, len(g.Seats))
				for i, p := range g.Seats {
					ids[i] = p.ID
				}
				rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
				require.NoError(t, g.ConfirmWinners(Ordered(ids...), testNow), "seed %d", seed)
			case h.RoundClosed():
				advance(t, g)
			default:
				p := g.CurrentPlayer()
				require.NotNil(t, p, "seed %d", seed)
				legal := g.LegalActions(p.ID)
				require.NotEmpty(t, legal.Actions, "seed %d", seed)
				a := legal.Actions[rng.IntN(len(legal.Actions))]
				var amount int64
				if a == ActionBet {
					amount = legal.MinBet + rng.Int64N(legal.MaxBet-legal.MinBet+1)
				}
				act(t, g, p.ID, a, amount)
			}

			require.Equal(t, total, g.Seats.TotalChips()+g.Hand.Pot, "seed %d step %d", seed, step)
			for _, p := range g.Seats {
				require.GreaterOrEqual(t, p.Stack, int64(0), "seed %d", seed)
			}
		}
	}
}

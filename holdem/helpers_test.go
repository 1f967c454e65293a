package holdem

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

// newTestGame seats p0..pN-1 with the given stacks at a 5/10 table in the
// lobby.
func newTestGame(t *testing.T, stacks ...int64) *Game {
	t.Helper()
	table := &Table{
		ID:     "t1",
		Name:   "friday",
		HostID: "p0",
		State:  TableStateLobby,
		Config: TableConfig{InitialStack: 1000, SmallBlind: 5, BigBlind: 10},
	}
	players := make([]*Player, len(stacks))
	for i, s := range stacks {
		players[i] = &Player{ID: fmt.Sprintf("p%d", i), DisplayName: fmt.Sprintf("P%d", i), Seat: i, Stack: s}
	}
	g, err := NewGame(table, players, nil)
	require.NoError(t, err)
	return g
}

func startedGame(t *testing.T, stacks ...int64) *Game {
	t.Helper()
	g := newTestGame(t, stacks...)
	require.NoError(t, g.StartGame(testNow))
	require.NoError(t, g.CheckChips())
	return g
}

func act(t *testing.T, g *Game, id string, a ActionType, amount int64) {
	t.Helper()
	require.NoError(t, g.Act(id, a, amount, testNow), "%s %s %d", id, a, amount)
	require.NoError(t, g.CheckChips())
}

func advance(t *testing.T, g *Game) {
	t.Helper()
	require.NoError(t, g.AdvanceStage(testNow))
	require.NoError(t, g.CheckChips())
}

func stacks(g *Game) []int64 {
	out := make([]int64, len(g.Seats))
	for i, p := range g.Seats {
		out[i] = p.Stack
	}
	return out
}

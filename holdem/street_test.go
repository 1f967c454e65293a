package holdem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limpAround(t *testing.T, g *Game) {
	t.Helper()
	act(t, g, "p0", ActionCall, 0)
	act(t, g, "p1", ActionCall, 0)
	act(t, g, "p2", ActionCheck, 0)
}

// checkDown plays every remaining street with checks until showdown.
func checkDown(t *testing.T, g *Game) {
	t.Helper()
	for g.Hand.Stage != StageShowdown {
		if g.Hand.RoundClosed() {
			advance(t, g)
			continue
		}
		act(t, g, g.CurrentPlayer().ID, ActionCheck, 0)
	}
}

func TestAdvanceStage_RequiresClosedRound(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	require.ErrorIs(t, g.AdvanceStage(testNow), ErrIllegalState)
	assert.Equal(t, StagePreflop, g.Hand.Stage)

	limpAround(t, g)
	advance(t, g)
	require.ErrorIs(t, g.AdvanceStage(testNow), ErrIllegalState, "flop action has not started")
	assert.Equal(t, StageFlop, g.Hand.Stage)
}

func TestAdvanceStage_NoHand(t *testing.T) {
	g := newTestGame(t, 1000, 1000)
	require.ErrorIs(t, g.AdvanceStage(testNow), ErrIllegalState)
}

func TestAdvanceStage_ResetsStreet(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	limpAround(t, g)
	advance(t, g)

	h := g.Hand
	assert.Equal(t, StageFlop, h.Stage)
	assert.Empty(t, h.RoundBets)
	assert.Equal(t, int64(0), h.CurrentBet)
	assert.False(t, h.Aggressed)
	assert.Equal(t, int64(30), h.Pot)
	assert.Equal(t, map[string]int64{"p0": 10, "p1": 10, "p2": 10}, h.TotalBets)
	assert.Equal(t, 1, h.CurrentTurn, "small blind acts first postflop")
	assert.Equal(t, 1, h.FirstToAct)
	assert.Equal(t, 0, h.LastAggressor)
}

func TestAdvanceStage_ChecksAroundCloseStreet(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	limpAround(t, g)
	advance(t, g)

	act(t, g, "p1", ActionCheck, 0)
	assert.Equal(t, 2, g.Hand.CurrentTurn)
	act(t, g, "p2", ActionCheck, 0)
	assert.Equal(t, 0, g.Hand.CurrentTurn)
	act(t, g, "p0", ActionCheck, 0)
	assert.True(t, g.Hand.RoundClosed())
}

func TestAdvanceStage_FoldedSmallBlindIsSkipped(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	act(t, g, "p0", ActionCall, 0)
	act(t, g, "p1", ActionFold, 0)
	act(t, g, "p2", ActionCheck, 0)
	require.True(t, g.Hand.RoundClosed())

	advance(t, g)
	assert.Equal(t, 2, g.Hand.CurrentTurn)
	act(t, g, "p2", ActionCheck, 0)
	act(t, g, "p0", ActionCheck, 0)
	assert.True(t, g.Hand.RoundClosed())
}

func TestAdvanceStage_HeadsUpDealerActsFirst(t *testing.T) {
	g := startedGame(t, 1000, 1000)
	act(t, g, "p1", ActionCall, 0)
	act(t, g, "p0", ActionCheck, 0)
	advance(t, g)
	assert.Equal(t, 1, g.Hand.CurrentTurn)
}

func TestAdvanceStage_BetAndRaiseOnFlop(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	limpAround(t, g)
	advance(t, g)

	act(t, g, "p1", ActionBet, 50)
	act(t, g, "p2", ActionCall, 0)
	assert.Equal(t, 0, g.Hand.CurrentTurn)
	act(t, g, "p0", ActionBet, 150)
	act(t, g, "p1", ActionCall, 0)
	assert.False(t, g.Hand.RoundClosed())
	act(t, g, "p2", ActionCall, 0)

	assert.True(t, g.Hand.RoundClosed())
	assert.Equal(t, int64(480), g.Hand.Pot)
	assert.Equal(t, int64(150), g.Hand.CurrentBet)
}

func TestAdvanceStage_AllInPlayerIsSkipped(t *testing.T) {
	g := startedGame(t, 200, 1000, 1000)
	act(t, g, "p0", ActionBet, 200)
	act(t, g, "p1", ActionCall, 0)
	act(t, g, "p2", ActionCall, 0)
	require.True(t, g.Hand.RoundClosed())

	advance(t, g)
	assert.Equal(t, StageFlop, g.Hand.Stage)
	act(t, g, "p1", ActionCheck, 0)
	assert.Equal(t, 2, g.Hand.CurrentTurn)
	act(t, g, "p2", ActionCheck, 0)
	assert.True(t, g.Hand.RoundClosed())
}

func TestAdvanceStage_RiverOpensVote(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	limpAround(t, g)
	checkDown(t, g)

	h := g.Hand
	assert.Equal(t, StageShowdown, h.Stage)
	assert.True(t, h.VotingOpen)
	assert.Nil(t, h.ConfirmedAt)
	assert.Equal(t, NoSeat, h.CurrentTurn)
	assert.Equal(t, int64(30), h.Pot)
	assert.False(t, h.Settled())

	require.ErrorIs(t, g.AdvanceStage(testNow), ErrIllegalState)
	require.ErrorIs(t, g.Act("p0", ActionCheck, 0, testNow), ErrIllegalState)
}

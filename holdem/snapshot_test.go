package holdem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalActions_OnlyForCurrentTurn(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)

	legal := g.LegalActions("p0")
	assert.Equal(t, []ActionType{ActionCall, ActionBet, ActionFold}, legal.Actions)
	assert.Equal(t, int64(10), legal.ToCall)
	assert.Equal(t, int64(11), legal.MinBet)
	assert.Equal(t, int64(1000), legal.MaxBet)

	assert.Empty(t, g.LegalActions("p1").Actions)
	assert.Empty(t, g.LegalActions("nobody").Actions)
}

func TestLegalActions_BigBlindOption(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000)
	act(t, g, "p0", ActionCall, 0)
	act(t, g, "p1", ActionCall, 0)

	legal := g.LegalActions("p2")
	assert.Equal(t, []ActionType{ActionCheck, ActionBet, ActionFold}, legal.Actions)
	assert.Zero(t, legal.ToCall)
}

func TestLegalActions_ShortStackCannotRaise(t *testing.T) {
	g := startedGame(t, 1000, 1000, 1000, 1000)
	act(t, g, "p3", ActionBet, 1000)
	g.Seats[0].Stack = 500 // stack below the bet

	legal := g.LegalActions("p0")
	assert.Equal(t, []ActionType{ActionCall, ActionFold}, legal.Actions)
	assert.Equal(t, int64(500), legal.ToCall)
}

func TestSnapshot_HidesPasswordHash(t *testing.T) {
	g := startedGame(t, 1000, 1000)
	g.Table.Config.PasswordHash = "$2a$10$secret"

	snap := g.Snapshot("p1")
	assert.True(t, snap.Private)
	assert.Empty(t, snap.Table.Config.PasswordHash)
	assert.Equal(t, "$2a$10$secret", g.Table.Config.PasswordHash, "the game keeps its copy")

	require.Len(t, snap.Players, 2)
	assert.Equal(t, int64(5), snap.Players[1].RoundBet)
	assert.Equal(t, int64(15), sumPots(snap.Pots))
	assert.NotEmpty(t, snap.Legal.Actions)
}

func TestSnapshot_IsACopy(t *testing.T) {
	g := startedGame(t, 1000, 1000)
	snap := g.Snapshot("")
	snap.Hand.RoundBets["p0"] = 999
	snap.Table.Name = "changed"
	assert.Equal(t, int64(10), g.Hand.RoundBets["p0"])
	assert.Equal(t, "friday", g.Table.Name)
}

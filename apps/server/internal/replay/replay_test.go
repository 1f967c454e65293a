package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/replay"
	"hometable/apps/server/internal/store"
	"hometable/apps/server/internal/table"
	"hometable/holdem"
)

var (
	host  = table.Caller{ID: "host", Name: "Host"}
	alice = table.Caller{ID: "alice", Name: "Alice"}
	bob   = table.Caller{ID: "bob", Name: "Bob"}
)

// playedTable runs a short session and returns its ledger and final view.
func playedTable(t *testing.T) ([]ledger.Event, holdem.Snapshot) {
	t.Helper()
	ctx := context.Background()
	led := ledger.NewMemoryService()
	svc := table.New(store.NewMemoryStore(), table.WithLedger(led), table.WithSeed(11))

	snap, err := svc.CreateTable(ctx, host, table.CreateRequest{Name: "replayed"})
	require.NoError(t, err)
	id := snap.Table.ID
	for _, c := range []table.Caller{alice, bob} {
		_, err = svc.JoinTable(ctx, id, c, "")
		require.NoError(t, err)
	}
	_, err = svc.SwapSeats(ctx, id, host, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, host)
	require.NoError(t, err)

	// dealer host, sb bob, bb alice
	steps := []struct {
		who    table.Caller
		action holdem.ActionType
		amount int64
	}{
		{host, holdem.ActionBet, 40},
		{bob, holdem.ActionCall, 0},
		{alice, holdem.ActionCall, 0},
	}
	for _, s := range steps {
		_, err = svc.Act(ctx, id, s.who, s.action, s.amount)
		require.NoError(t, err)
	}
	for {
		snap, err = svc.AdvanceStage(ctx, id, host)
		require.NoError(t, err)
		if snap.Hand.VotingOpen {
			break
		}
		for snap.Hand.CurrentTurn != holdem.NoSeat {
			who := table.Caller{ID: snap.Players[snap.Hand.CurrentTurn].ID}
			snap, err = svc.Act(ctx, id, who, holdem.ActionCheck, 0)
			require.NoError(t, err)
		}
	}
	_, err = svc.ConfirmWinners(ctx, id, host, holdem.Ranking{{"alice", "bob"}, {"host"}})
	require.NoError(t, err)
	snap, err = svc.StartNextHand(ctx, id, host)
	require.NoError(t, err)

	events, err := led.Events(ctx, id, 0)
	require.NoError(t, err)
	return events, snap
}

func TestRun_RebuildsStoredTable(t *testing.T) {
	events, stored := playedTable(t)

	tape, err := replay.Run(events)
	require.NoError(t, err)
	require.Len(t, tape.Steps, len(events))
	assert.Equal(t, stored.Table.ID, tape.TableID)

	final := tape.Final()
	assert.Empty(t, replay.Compare(final, stored))
	assert.Equal(t, 2, final.Table.CurrentHand)

	// the split pot of 120 went 60/60 before the new blinds
	var confirmed holdem.Snapshot
	for _, step := range tape.Steps {
		if step.Type == "confirm_winners" {
			confirmed = step.Snapshot
		}
	}
	require.NotNil(t, confirmed.Hand)
	assert.Equal(t, []string{"alice", "bob", "host"}, confirmed.Hand.Winners)
	stacks := map[string]int64{}
	for _, p := range confirmed.Players {
		stacks[p.ID] = p.Stack
	}
	assert.Equal(t, map[string]int64{"host": 960, "bob": 1020, "alice": 1020}, stacks)
}

func TestRun_DetectsGap(t *testing.T) {
	events, _ := playedTable(t)
	gapped := append(append([]ledger.Event{}, events[:4]...), events[5:]...)

	_, err := replay.Run(gapped)
	var rerr *replay.ReplayError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "sequence_gap", rerr.Reason)
	assert.Equal(t, 4, rerr.StepIndex)
}

func TestRun_RejectedActionCarriesExpectation(t *testing.T) {
	events, _ := playedTable(t)
	var idx int
	for i, ev := range events {
		if ev.Type == "action" {
			idx = i
			break
		}
	}
	forged := append([]ledger.Event{}, events...)
	forged[idx].Actor = "alice"

	_, err := replay.Run(forged)
	var rerr *replay.ReplayError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "rejected", rerr.Reason)
	require.NotNil(t, rerr.Expected)
	assert.Equal(t, 0, rerr.Expected.CurrentTurn)
	assert.Equal(t, "PREFLOP", rerr.Expected.Stage)
	assert.Empty(t, rerr.Expected.Legal.Actions, "not alice's turn")
}

func TestRun_StreamMustStartAtCreation(t *testing.T) {
	_, err := replay.Run(nil)
	var rerr *replay.ReplayError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "empty_stream", rerr.Reason)

	events, _ := playedTable(t)
	_, err = replay.Run(events[1:])
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "missing_create", rerr.Reason)
}

func TestCompare_ReportsDifferences(t *testing.T) {
	events, stored := playedTable(t)
	tape, err := replay.Run(events)
	require.NoError(t, err)

	final := tape.Final()
	final.Players[1].Stack += 5
	final.Table.Revision++
	diffs := replay.Compare(final, stored)
	assert.Len(t, diffs, 2)
}

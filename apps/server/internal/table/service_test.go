package table

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/store"
	"hometable/holdem"
)

var (
	host  = Caller{ID: "host", Name: "Host"}
	alice = Caller{ID: "alice", Name: "Alice"}
	bob   = Caller{ID: "bob", Name: "Bob"}
)

type fixture struct {
	svc    *Service
	ledger *ledger.MemoryService
	clock  *quartz.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	led := ledger.NewMemoryService()
	svc := New(store.NewMemoryStore(), WithLedger(led), WithClock(clock), WithSeed(7))
	return &fixture{svc: svc, ledger: led, clock: clock}
}

// seatThree creates a table hosted by host and seats alice and bob.
func (f *fixture) seatThree(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	snap, err := f.svc.CreateTable(ctx, host, CreateRequest{Name: "friday"})
	require.NoError(t, err)
	id := snap.Table.ID
	for _, c := range []Caller{alice, bob} {
		_, err := f.svc.JoinTable(ctx, id, c, "")
		require.NoError(t, err)
	}
	return id
}

func TestCreateTable_SeatsHostWithDefaults(t *testing.T) {
	f := newFixture(t)
	snap, err := f.svc.CreateTable(context.Background(), host, CreateRequest{Name: "  friday "})
	require.NoError(t, err)

	assert.Len(t, snap.Table.ID, tableIDLength)
	assert.Equal(t, "friday", snap.Table.Name)
	assert.Equal(t, "host", snap.Table.HostID)
	assert.Equal(t, holdem.TableStateLobby, snap.Table.State)
	assert.Equal(t, int64(1), snap.Table.Revision)
	assert.Equal(t, holdem.TableConfig{InitialStack: 1000, SmallBlind: 5, BigBlind: 10}, snap.Table.Config)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, 0, snap.Players[0].Seat)
	assert.False(t, snap.Private)

	events, err := f.svc.Events(context.Background(), snap.Table.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "create_table", events[0].Type)
	assert.Equal(t, int64(1), events[0].Seq)
}

func TestCreateTable_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTable(ctx, host, CreateRequest{Name: " "})
	require.ErrorIs(t, err, holdem.ErrValidation)

	_, err = f.svc.CreateTable(ctx, host, CreateRequest{
		Name:   "bad",
		Config: holdem.TableConfig{InitialStack: 5, SmallBlind: 5, BigBlind: 10},
	})
	require.ErrorIs(t, err, holdem.ErrValidation)

	_, err = f.svc.CreateTable(ctx, Caller{}, CreateRequest{Name: "anon"})
	require.ErrorIs(t, err, holdem.ErrUnauthorized)
}

func TestJoinTable_PasswordAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := f.svc.CreateTable(ctx, host, CreateRequest{Name: "private", Password: "hunter22"})
	require.NoError(t, err)
	id := snap.Table.ID
	assert.True(t, snap.Private)
	assert.Empty(t, snap.Table.Config.PasswordHash)

	_, err = f.svc.JoinTable(ctx, id, alice, "wrong")
	require.ErrorIs(t, err, holdem.ErrUnauthorized)

	snap, err = f.svc.JoinTable(ctx, id, alice, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Table.Revision)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, 1, snap.Players[1].Seat)

	// a second join needs no password and writes nothing
	snap, err = f.svc.JoinTable(ctx, id, alice, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Table.Revision)

	_, err = f.svc.JoinTable(ctx, "nope1", bob, "")
	require.ErrorIs(t, err, holdem.ErrNotFound)
}

func TestHostOnlyCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)

	_, err := f.svc.StartGame(ctx, id, alice)
	require.ErrorIs(t, err, holdem.ErrUnauthorized)
	_, err = f.svc.SwapSeats(ctx, id, alice, "alice", "bob")
	require.ErrorIs(t, err, holdem.ErrUnauthorized)

	snap, err := f.svc.SwapSeats(ctx, id, host, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", snap.Players[1].ID)

	_, err = f.svc.StartGame(ctx, id, host)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, id, bob)
	require.ErrorIs(t, err, holdem.ErrUnauthorized)
	_, err = f.svc.EndGame(ctx, id, bob)
	require.ErrorIs(t, err, holdem.ErrUnauthorized)
}

func TestFullHandThroughShowdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)

	snap, err := f.svc.StartGame(ctx, id, host)
	require.NoError(t, err)
	assert.Equal(t, holdem.TableStateInGame, snap.Table.State)
	assert.Equal(t, []holdem.ActionType{holdem.ActionCall, holdem.ActionBet, holdem.ActionFold}, snap.Legal.Actions,
		"host is first to act three-handed")

	// wrong seat is rejected without a write
	_, err = f.svc.Act(ctx, id, bob, holdem.ActionCheck, 0)
	require.ErrorIs(t, err, holdem.ErrNotYourTurn)

	callers := map[string]Caller{"host": host, "alice": alice, "bob": bob}
	for _, step := range []struct {
		who    Caller
		action holdem.ActionType
	}{
		{host, holdem.ActionCall},
		{alice, holdem.ActionCall},
		{bob, holdem.ActionCheck},
	} {
		_, err := f.svc.Act(ctx, id, step.who, step.action, 0)
		require.NoError(t, err)
	}

	for {
		snap, err = f.svc.AdvanceStage(ctx, id, host)
		require.NoError(t, err)
		if snap.Hand.Stage == holdem.StageShowdown {
			break
		}
		for snap.Hand.CurrentTurn != holdem.NoSeat {
			who := callers[snap.Players[snap.Hand.CurrentTurn].ID]
			snap, err = f.svc.Act(ctx, id, who, holdem.ActionCheck, 0)
			require.NoError(t, err)
		}
	}
	assert.True(t, snap.Hand.VotingOpen)

	_, err = f.svc.EndGame(ctx, id, host)
	require.ErrorIs(t, err, holdem.ErrIllegalState, "pot still unpaid")

	snap, err = f.svc.ConfirmWinners(ctx, id, host, holdem.Ordered("bob"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, snap.Hand.Winners)
	stacks := map[string]int64{}
	for _, p := range snap.Players {
		stacks[p.ID] = p.Stack
	}
	assert.Equal(t, map[string]int64{"host": 990, "alice": 990, "bob": 1020}, stacks)

	hands, err := f.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, hands, 1)
	assert.True(t, hands[0].Settled())

	snap, err = f.svc.EndGame(ctx, id, host)
	require.NoError(t, err)
	assert.Equal(t, holdem.TableStateSummary, snap.Table.State)

	events, err := f.svc.Events(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, int(snap.Table.Revision))
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	confirm := events[len(events)-2]
	assert.Equal(t, "confirm_winners", confirm.Type)
	assert.Equal(t, []any{"bob"}, confirm.Payload["winners"])
	assert.Equal(t, "end_game", events[len(events)-1].Type)
}

func TestLeaveTable_PassesHosting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)

	snap, err := f.svc.LeaveTable(ctx, id, host)
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Table.HostID)
	require.Len(t, snap.Players, 2)

	_, err = f.svc.StartGame(ctx, id, alice)
	require.NoError(t, err)
	_, err = f.svc.LeaveTable(ctx, id, bob)
	require.ErrorIs(t, err, holdem.ErrIllegalState)
}

func TestReadyAndSitOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)

	snap, err := f.svc.SetReady(ctx, id, alice, true)
	require.NoError(t, err)
	assert.True(t, snap.Players[1].Ready)

	snap, err = f.svc.SetSittingOut(ctx, id, bob, true)
	require.NoError(t, err)
	assert.True(t, snap.Players[2].SittingOut)

	_, err = f.svc.SetReady(ctx, id, Caller{ID: "ghost"}, true)
	require.ErrorIs(t, err, holdem.ErrNotFound)
}

func TestChangeHooksSeeEveryCommit(t *testing.T) {
	f := newFixture(t)
	var seen []int64
	f.svc.OnChange(func(_ string, rev int64) { seen = append(seen, rev) })

	id := f.seatThree(t)
	_, err := f.svc.JoinTable(context.Background(), id, alice, "")
	require.NoError(t, err)
	_, err = f.svc.StartGame(context.Background(), id, bob)
	require.Error(t, err)

	assert.Equal(t, []int64{1, 2, 3}, seen, "no-ops and rejections do not notify")
}

func TestConcurrentJoinsGetDistinctSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := f.svc.CreateTable(ctx, host, CreateRequest{Name: "crowd"})
	require.NoError(t, err)
	id := snap.Table.ID

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			_, err := f.svc.JoinTable(ctx, id, Caller{ID: fmt.Sprintf("p%d", i)}, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	snap, err = f.svc.View(ctx, id, "")
	require.NoError(t, err)
	require.Len(t, snap.Players, 9)
	for i, p := range snap.Players {
		assert.Equal(t, i, p.Seat)
	}
	assert.Equal(t, int64(9), snap.Table.Revision)
}

func TestConcurrentActionsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)
	_, err := f.svc.StartGame(ctx, id, host)
	require.NoError(t, err)

	// host is on the clock; every racer submits as host
	var wins atomic.Int32
	var g errgroup.Group
	for range 6 {
		g.Go(func() error {
			if _, err := f.svc.Act(ctx, id, host, holdem.ActionCall, 0); err == nil {
				wins.Add(1)
			} else if !errors.Is(err, holdem.ErrNotYourTurn) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())

	snap, err := f.svc.View(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(25), snap.Hand.Pot)
	assert.Equal(t, 1, snap.Hand.CurrentTurn)
	assert.NotEmpty(t, snap.Legal.Actions)
}

func TestSQLiteBackedService(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "holdem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	led, err := ledger.NewSQLService(ctx, st.DB(), st.Dialect())
	require.NoError(t, err)

	svc := New(st, WithLedger(led), WithSeed(1))
	snap, err := svc.CreateTable(ctx, host, CreateRequest{Name: "sql"})
	require.NoError(t, err)
	id := snap.Table.ID

	_, err = svc.JoinTable(ctx, id, alice, "")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, host)
	require.NoError(t, err)
	// heads-up: alice in seat 1 is dealer and small blind
	snap, err = svc.Act(ctx, id, alice, holdem.ActionFold, 0)
	require.NoError(t, err)
	assert.True(t, snap.Hand.Settled())
	assert.Equal(t, []string{"host"}, snap.Hand.Winners)

	snap, err = svc.StartNextHand(ctx, id, host)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Hand.Number)

	hands, err := svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, hands, 2)

	events, err := svc.Events(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "start_next_hand", events[4].Type)
}

func TestAudit_MatchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seatThree(t)
	_, err := f.svc.StartGame(ctx, id, host)
	require.NoError(t, err)
	_, err = f.svc.Act(ctx, id, host, holdem.ActionFold, 0)
	require.NoError(t, err)
	_, err = f.svc.Act(ctx, id, alice, holdem.ActionBet, 300)
	require.NoError(t, err)

	report, err := f.svc.Audit(ctx, id)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Mismatches)
	assert.Equal(t, 6, report.Events)
	assert.Equal(t, int64(6), report.Revision)
}

func TestAudit_NeedsLedger(t *testing.T) {
	svc := New(store.NewMemoryStore())
	snap, err := svc.CreateTable(context.Background(), host, CreateRequest{Name: "quiet"})
	require.NoError(t, err)
	_, err = svc.Audit(context.Background(), snap.Table.ID)
	require.ErrorIs(t, err, holdem.ErrIllegalState)
}

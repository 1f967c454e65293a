package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/store"
	"hometable/apps/server/internal/table"
	"hometable/holdem"
)

// SimulateCmd drives random but legal play through the table service, the
// same path a websocket client takes, and checks every session ends with the
// chips it started with.
type SimulateCmd struct {
	Tables   int    `default:"8" help:"Tables to play concurrently"`
	Players  int    `default:"6" help:"Players per table"`
	Hands    int    `default:"50" help:"Hands per table"`
	Seed     uint64 `default:"1" help:"RNG seed"`
	Store    string `default:"memory" help:"Store driver (memory, sqlite, postgres)"`
	Path     string `default:"simulate.db" help:"SQLite file for the sqlite driver"`
	DSN      string `env:"DATABASE_URL" help:"Postgres DSN for the postgres driver"`
	Parallel int    `default:"4" help:"Tables in flight at once"`
	Debug    bool   `help:"Log every command"`
}

type simResult struct {
	tableID   string
	hands     int
	revision  int64
	chips     int64
	expected  int64
	leader    string
	leaderBal int64
}

func (c *SimulateCmd) Run() error {
	if c.Players < 2 {
		return fmt.Errorf("need at least 2 players, got %d", c.Players)
	}
	level := log.InfoLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := newLogger(level)

	st, mode, err := store.Open(store.Options{Driver: c.Store, DSN: c.DSN, Path: c.Path})
	if err != nil {
		return err
	}
	defer st.Close()
	led, _, err := ledger.Open(context.Background(), true, st)
	if err != nil {
		return err
	}
	defer led.Close()

	svc := table.New(st,
		table.WithLedger(led),
		table.WithLogger(logger.WithPrefix("table")),
		table.WithSeed(c.Seed),
	)
	logger.Info("simulating", "tables", c.Tables, "players", c.Players, "hands", c.Hands, "store", mode)

	var (
		mu      sync.Mutex
		results []simResult
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(c.Parallel, 1))
	for i := range c.Tables {
		rng := rand.New(rand.NewPCG(c.Seed, uint64(i)))
		g.Go(func() error {
			res, err := c.play(ctx, svc, rng)
			if err != nil {
				return fmt.Errorf("table %d: %w", i, err)
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	data := pterm.TableData{{"Table", "Hands", "Commands", "Chips", "Chip leader", "Stack"}}
	var broken int
	for _, r := range results {
		chips := strconv.FormatInt(r.chips, 10)
		if r.chips != r.expected {
			broken++
			chips = pterm.Red(chips)
		}
		data = append(data, []string{
			r.tableID,
			strconv.Itoa(r.hands),
			strconv.FormatInt(r.revision, 10),
			chips,
			r.leader,
			strconv.FormatInt(r.leaderBal, 10),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if broken > 0 {
		return fmt.Errorf("%d tables did not conserve chips", broken)
	}
	pterm.Success.Printfln("%d tables conserved chips", len(results))
	return nil
}

// play runs one table from creation to END. Every decision reads the
// acting player's own view, so only actions the service offers are taken.
func (c *SimulateCmd) play(ctx context.Context, svc *table.Service, rng *rand.Rand) (simResult, error) {
	callers := make([]table.Caller, c.Players)
	for i := range callers {
		callers[i] = table.Caller{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	host := callers[0]

	snap, err := svc.CreateTable(ctx, host, table.CreateRequest{Name: "simulation"})
	if err != nil {
		return simResult{}, err
	}
	id := snap.Table.ID
	for _, caller := range callers[1:] {
		if _, err := svc.JoinTable(ctx, id, caller, ""); err != nil {
			return simResult{}, err
		}
	}
	if snap, err = svc.StartGame(ctx, id, host); err != nil {
		return simResult{}, err
	}

	hands := 1
play:
	for snap.Hand != nil {
		h := snap.Hand
		switch {
		case h.Settled():
			if hands == c.Hands {
				break play
			}
			snap, err = svc.StartNextHand(ctx, id, host)
			if errors.Is(err, holdem.ErrIllegalState) {
				// fewer than two players left with chips
				break play
			}
			hands++
		case h.VotingOpen:
			ids := make([]string, len(snap.Players))
			for i, p := range snap.Players {
				ids[i] = p.ID
			}
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			snap, err = svc.ConfirmWinners(ctx, id, host, holdem.Ordered(ids...))
		case h.RoundClosed():
			snap, err = svc.AdvanceStage(ctx, id, host)
		default:
			// nobody swaps or leaves, so seat n is still callers[n]
			actor := callers[h.CurrentTurn]
			view, verr := svc.View(ctx, id, actor.ID)
			if verr != nil {
				return simResult{}, verr
			}
			legal := view.Legal
			if len(legal.Actions) == 0 {
				return simResult{}, fmt.Errorf("seat %d is on the clock with no legal actions", h.CurrentTurn)
			}
			action := legal.Actions[rng.IntN(len(legal.Actions))]
			var amount int64
			if action == holdem.ActionBet {
				amount = legal.MinBet + rng.Int64N(legal.MaxBet-legal.MinBet+1)
			}
			snap, err = svc.Act(ctx, id, actor, action, amount)
		}
		if err != nil {
			return simResult{}, err
		}
	}

	if snap, err = svc.EndGame(ctx, id, host); err != nil {
		return simResult{}, err
	}
	res := simResult{
		tableID:  id,
		hands:    hands,
		revision: snap.Table.Revision,
		expected: int64(c.Players) * snap.Table.Config.InitialStack,
	}
	for _, p := range snap.Players {
		res.chips += p.Stack
		if p.Stack > res.leaderBal {
			res.leader, res.leaderBal = p.DisplayName, p.Stack
		}
	}
	return res, nil
}

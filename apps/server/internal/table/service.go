package table

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/replay"
	"hometable/apps/server/internal/store"
	"hometable/holdem"
)

// Caller is the authenticated identity behind a command.
type Caller struct {
	ID   string
	Name string
}

// ChangeHook runs after a command commits. revision is the table's new
// revision.
type ChangeHook func(tableID string, revision int64)

// Service executes table commands. Each command is one store transaction:
// it re-reads the table, its seats and the current hand, validates against
// that fresh state and commits everything it touched, or nothing.
type Service struct {
	store    store.Store
	ledger   ledger.Service
	clock    quartz.Clock
	logger   *log.Logger
	defaults holdem.TableConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	hooksMu sync.RWMutex
	hooks   []ChangeHook
}

type Option func(*Service)

func WithLedger(l ledger.Service) Option { return func(s *Service) { s.ledger = l } }

func WithClock(c quartz.Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *log.Logger) Option { return func(s *Service) { s.logger = l } }

// WithDefaults sets the config used when CreateTable gets a zero config.
func WithDefaults(cfg holdem.TableConfig) Option { return func(s *Service) { s.defaults = cfg } }

// WithSeed makes table ids reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Service) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		ledger:   ledger.NewNoop(),
		clock:    quartz.NewReal(),
		logger:   log.New(io.Discard),
		defaults: holdem.TableConfig{InitialStack: 1000, SmallBlind: 5, BigBlind: 10},
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a hook that runs after every committed command.
func (s *Service) OnChange(h ChangeHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

var errUnchanged = errors.New("unchanged")

// command is the body of one transaction. It mutates g in place and returns
// the ledger payload, or errUnchanged when there is nothing to write.
type command func(g *holdem.Game, now time.Time) (map[string]any, error)

func (s *Service) run(ctx context.Context, tableID string, caller Caller, op string, fn command) (holdem.Snapshot, error) {
	now := s.clock.Now().UTC()
	var (
		snap    holdem.Snapshot
		ev      ledger.Event
		changed bool
	)
	err := s.store.Update(ctx, tableID, func(tx store.Tx) error {
		g, err := store.LoadGame(tx)
		if err != nil {
			return err
		}
		before := slices.Clone(g.Seats)

		payload, err := fn(g, now)
		if errors.Is(err, errUnchanged) {
			snap = g.Snapshot(caller.ID)
			return nil
		}
		if err != nil {
			return err
		}

		g.Table.Revision++
		store.SaveGame(tx, before, g)
		snap = g.Snapshot(caller.ID)
		changed = true
		ev = ledger.Event{
			ID:         uuid.NewString(),
			TableID:    tableID,
			Seq:        g.Table.Revision,
			HandNumber: g.Table.CurrentHand,
			Type:       op,
			Actor:      caller.ID,
			Payload:    payload,
			At:         now,
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("command rejected", "table", tableID, "op", op, "caller", caller.ID, "err", err)
		return holdem.Snapshot{}, err
	}
	if changed {
		s.committed(ctx, ev)
	}
	return snap, nil
}

// committed records ev and tells the hooks. The command already committed,
// so a ledger failure is logged and not returned.
func (s *Service) committed(ctx context.Context, ev ledger.Event) {
	s.logger.Info(ev.Type, "table", ev.TableID, "rev", ev.Seq, "hand", ev.HandNumber, "caller", ev.Actor)
	if err := s.ledger.Append(ctx, ev); err != nil {
		s.logger.Warn("ledger append failed", "table", ev.TableID, "rev", ev.Seq, "err", err)
	}

	s.hooksMu.RLock()
	hooks := slices.Clone(s.hooks)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ev.TableID, ev.Seq)
	}
}

// CreateRequest describes a new table. A zero Config takes the service
// defaults.
type CreateRequest struct {
	Name     string
	Config   holdem.TableConfig
	Password string
}

func (s *Service) CreateTable(ctx context.Context, host Caller, req CreateRequest) (holdem.Snapshot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return holdem.Snapshot{}, holdem.Validation("table name is empty")
	}
	if host.ID == "" {
		return holdem.Snapshot{}, holdem.Unauthorized("anonymous callers cannot host a table")
	}
	cfg := req.Config
	if cfg == (holdem.TableConfig{}) {
		cfg = s.defaults
	}
	cfg.PasswordHash = ""
	if err := cfg.Validate(); err != nil {
		return holdem.Snapshot{}, err
	}
	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return holdem.Snapshot{}, err
		}
		cfg.PasswordHash = hash
	}

	now := s.clock.Now().UTC()
	t := &holdem.Table{
		Name:      name,
		Config:    cfg,
		HostID:    host.ID,
		State:     holdem.TableStateLobby,
		Revision:  1,
		CreatedAt: now,
	}
	p := &holdem.Player{
		ID:          host.ID,
		DisplayName: host.Name,
		Seat:        0,
		Stack:       cfg.InitialStack,
		JoinedAt:    now,
	}
	if err := s.createWithFreshID(ctx, t, p); err != nil {
		return holdem.Snapshot{}, err
	}

	s.committed(ctx, ledger.Event{
		ID:      uuid.NewString(),
		TableID: t.ID,
		Seq:     t.Revision,
		Type:    "create_table",
		Actor:   host.ID,
		Payload: map[string]any{
			"name":          name,
			"host_name":     host.Name,
			"initial_stack": cfg.InitialStack,
			"small_blind":   cfg.SmallBlind,
			"big_blind":     cfg.BigBlind,
			"private":       cfg.PasswordHash != "",
		},
		At: now,
	})
	return s.View(ctx, t.ID, host.ID)
}

// JoinTable seats caller at the next free seat. Already seated callers get
// the current view back without a write.
func (s *Service) JoinTable(ctx context.Context, tableID string, caller Caller, password string) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "join_table", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if g.Seats.ByID(caller.ID) != nil {
			return nil, errUnchanged
		}
		if err := checkPassword(g.Table.Config.PasswordHash, password); err != nil {
			return nil, err
		}
		p, _, err := g.Join(caller.ID, caller.Name, now)
		if err != nil {
			return nil, err
		}
		return map[string]any{"seat": p.Seat, "stack": p.Stack, "display_name": p.DisplayName}, nil
	})
}

func (s *Service) SetReady(ctx context.Context, tableID string, caller Caller, ready bool) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "set_ready", func(g *holdem.Game, _ time.Time) (map[string]any, error) {
		if err := g.SetReady(caller.ID, ready); err != nil {
			return nil, err
		}
		return map[string]any{"ready": ready}, nil
	})
}

func (s *Service) SetSittingOut(ctx context.Context, tableID string, caller Caller, sittingOut bool) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "set_sitting_out", func(g *holdem.Game, _ time.Time) (map[string]any, error) {
		if err := g.SetSittingOut(caller.ID, sittingOut); err != nil {
			return nil, err
		}
		return map[string]any{"sitting_out": sittingOut}, nil
	})
}

func (s *Service) LeaveTable(ctx context.Context, tableID string, caller Caller) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "leave_table", func(g *holdem.Game, _ time.Time) (map[string]any, error) {
		p, err := g.Leave(caller.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"seat": p.Seat, "stack": p.Stack, "host": g.Table.HostID}, nil
	})
}

func (s *Service) SwapSeats(ctx context.Context, tableID string, caller Caller, a, b string) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "swap_seats", func(g *holdem.Game, _ time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "swap seats"); err != nil {
			return nil, err
		}
		if err := g.SwapSeats(a, b); err != nil {
			return nil, err
		}
		return map[string]any{"a": a, "b": b}, nil
	})
}

func (s *Service) StartGame(ctx context.Context, tableID string, caller Caller) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "start_game", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "start the game"); err != nil {
			return nil, err
		}
		if err := g.StartGame(now); err != nil {
			return nil, err
		}
		return dealPayload(g), g.CheckChips()
	})
}

func (s *Service) StartNextHand(ctx context.Context, tableID string, caller Caller) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "start_next_hand", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "start the next hand"); err != nil {
			return nil, err
		}
		if err := g.StartNextHand(now); err != nil {
			return nil, err
		}
		return dealPayload(g), g.CheckChips()
	})
}

// Act applies a betting action for the caller. amount is the target total
// for the street and is ignored for anything but a bet.
func (s *Service) Act(ctx context.Context, tableID string, caller Caller, action holdem.ActionType, amount int64) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "action", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Act(caller.ID, action, amount, now); err != nil {
			return nil, err
		}
		h := g.Hand
		return map[string]any{
			"action":       action.String(),
			"amount":       amount,
			"pot":          h.Pot,
			"current_bet":  h.CurrentBet,
			"stage":        h.Stage.String(),
			"current_turn": h.CurrentTurn,
		}, g.CheckChips()
	})
}

func (s *Service) AdvanceStage(ctx context.Context, tableID string, caller Caller) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "advance_stage", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "advance the stage"); err != nil {
			return nil, err
		}
		if err := g.AdvanceStage(now); err != nil {
			return nil, err
		}
		h := g.Hand
		return map[string]any{
			"stage":        h.Stage.String(),
			"current_turn": h.CurrentTurn,
			"voting_open":  h.VotingOpen,
		}, g.CheckChips()
	})
}

func (s *Service) ConfirmWinners(ctx context.Context, tableID string, caller Caller, ranking holdem.Ranking) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "confirm_winners", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "confirm winners"); err != nil {
			return nil, err
		}
		if err := g.ConfirmWinners(ranking, now); err != nil {
			return nil, err
		}
		pots := make([]any, 0, len(g.Hand.Pots))
		for _, p := range g.Hand.Pots {
			shares := make([]any, len(p.Shares))
			for i, v := range p.Shares {
				shares[i] = v
			}
			pots = append(pots, map[string]any{
				"amount":   p.Amount,
				"eligible": ledger.Strings(p.Eligible),
				"winners":  ledger.Strings(p.Winners),
				"shares":   shares,
			})
		}
		tiers := make([]any, len(ranking))
		for i, tier := range ranking {
			tiers[i] = ledger.Strings(tier)
		}
		return map[string]any{
			"ranking": tiers,
			"winners": ledger.Strings(g.Hand.Winners),
			"pots":    pots,
		}, g.CheckChips()
	})
}

func (s *Service) EndGame(ctx context.Context, tableID string, caller Caller) (holdem.Snapshot, error) {
	return s.run(ctx, tableID, caller, "end_game", func(g *holdem.Game, now time.Time) (map[string]any, error) {
		if err := g.Table.RequireHost(caller.ID, "end the game"); err != nil {
			return nil, err
		}
		if err := g.End(now); err != nil {
			return nil, err
		}
		stacks := make(map[string]any, len(g.Seats))
		for _, p := range g.Seats {
			stacks[p.ID] = p.Stack
		}
		return map[string]any{"hands": g.Table.CurrentHand, "stacks": stacks}, nil
	})
}

// View is the table as viewer sees it, including the viewer's legal actions.
func (s *Service) View(ctx context.Context, tableID, viewer string) (holdem.Snapshot, error) {
	var snap holdem.Snapshot
	err := s.store.View(ctx, tableID, func(tx store.Tx) error {
		g, err := store.LoadGame(tx)
		if err != nil {
			return err
		}
		snap = g.Snapshot(viewer)
		return nil
	})
	return snap, err
}

// History lists every hand dealt at the table, oldest first.
func (s *Service) History(ctx context.Context, tableID string) ([]*holdem.Hand, error) {
	var hands []*holdem.Hand
	err := s.store.View(ctx, tableID, func(tx store.Tx) error {
		var err error
		hands, err = tx.Hands()
		return err
	})
	return hands, err
}

// Events returns the table's ledger.
func (s *Service) Events(ctx context.Context, tableID string, limit int) ([]ledger.Event, error) {
	return s.ledger.Events(ctx, tableID, limit)
}

// Audit replays the table's ledger through the engine and compares the
// result with the stored table.
func (s *Service) Audit(ctx context.Context, tableID string) (replay.Report, error) {
	stored, err := s.View(ctx, tableID, "")
	if err != nil {
		return replay.Report{}, err
	}
	events, err := s.ledger.Events(ctx, tableID, int(stored.Table.Revision))
	if err != nil {
		return replay.Report{}, err
	}
	if len(events) == 0 {
		return replay.Report{}, holdem.IllegalState("table %s has no ledger to audit", tableID)
	}
	report := replay.Report{TableID: tableID, Events: len(events), Revision: stored.Table.Revision}
	tape, err := replay.Run(events)
	if err != nil {
		var rerr *replay.ReplayError
		if !errors.As(err, &rerr) {
			return replay.Report{}, err
		}
		s.logger.Warn("ledger replay failed", "table", tableID, "seq", rerr.Seq, "reason", rerr.Reason)
		report.Mismatches = []string{rerr.Error()}
		return report, nil
	}
	report.Mismatches = replay.Compare(tape.Final(), stored)
	return report, nil
}

func dealPayload(g *holdem.Game) map[string]any {
	h := g.Hand
	return map[string]any{
		"hand":         h.Number,
		"dealer":       h.Dealer,
		"small_blind":  h.SmallBlind,
		"big_blind":    h.BigBlind,
		"current_turn": h.CurrentTurn,
		"pot":          h.Pot,
		"stage":        h.Stage.String(),
	}
}

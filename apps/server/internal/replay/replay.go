package replay

import (
	"fmt"

	"hometable/apps/server/internal/ledger"
	"hometable/holdem"
)

// Tape is a table rebuilt from its ledger, one snapshot per event.
type Tape struct {
	TableID string `json:"table_id"`
	Steps   []Step `json:"steps"`
}

type Step struct {
	Seq      int64           `json:"seq"`
	Type     string          `json:"type"`
	Actor    string          `json:"actor"`
	Snapshot holdem.Snapshot `json:"snapshot"`
}

// Final is the state after the last event.
func (t *Tape) Final() holdem.Snapshot {
	if len(t.Steps) == 0 {
		return holdem.Snapshot{}
	}
	return t.Steps[len(t.Steps)-1].Snapshot
}

// Run folds events through the engine. The stream has to start with the
// table's creation and carry every revision after it, in order.
func Run(events []ledger.Event) (*Tape, error) {
	if len(events) == 0 {
		return nil, &ReplayError{StepIndex: -1, Reason: "empty_stream", Message: "no events to replay"}
	}
	first := events[0]
	if first.Type != "create_table" || first.Seq != 1 {
		return nil, &ReplayError{StepIndex: 0, Seq: first.Seq, Reason: "missing_create", Message: "stream does not start at table creation"}
	}

	g, err := newGame(first)
	if err != nil {
		return nil, &ReplayError{StepIndex: 0, Seq: first.Seq, Reason: "engine_init_failed", Message: err.Error()}
	}
	tape := &Tape{TableID: first.TableID}
	tape.Steps = append(tape.Steps, Step{Seq: first.Seq, Type: first.Type, Actor: first.Actor, Snapshot: g.Snapshot("")})

	for i, ev := range events[1:] {
		idx := i + 1
		if want := g.Table.Revision + 1; ev.Seq != want {
			return tape, &ReplayError{
				StepIndex: idx,
				Seq:       ev.Seq,
				Reason:    "sequence_gap",
				Message:   fmt.Sprintf("expected seq %d", want),
			}
		}
		if err := apply(g, ev); err != nil {
			rerr := &ReplayError{StepIndex: idx, Seq: ev.Seq, Reason: "rejected", Message: err.Error()}
			if ev.Type == "action" && g.Hand != nil {
				rerr.Expected = &ExpectedState{
					CurrentTurn: g.Hand.CurrentTurn,
					Stage:       g.Hand.Stage.String(),
					Legal:       g.LegalActions(ev.Actor),
				}
			}
			return tape, rerr
		}
		g.Table.Revision = ev.Seq
		tape.Steps = append(tape.Steps, Step{Seq: ev.Seq, Type: ev.Type, Actor: ev.Actor, Snapshot: g.Snapshot("")})
	}
	return tape, nil
}

func newGame(ev ledger.Event) (*holdem.Game, error) {
	p := payload(ev.Payload)
	cfg := holdem.TableConfig{
		InitialStack: p.num("initial_stack"),
		SmallBlind:   p.num("small_blind"),
		BigBlind:     p.num("big_blind"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &holdem.Table{
		ID:        ev.TableID,
		Name:      p.str("name"),
		Config:    cfg,
		HostID:    ev.Actor,
		State:     holdem.TableStateLobby,
		Revision:  ev.Seq,
		CreatedAt: ev.At,
	}
	host := &holdem.Player{
		ID:          ev.Actor,
		DisplayName: p.str("host_name"),
		Seat:        0,
		Stack:       cfg.InitialStack,
		JoinedAt:    ev.At,
	}
	return holdem.NewGame(t, []*holdem.Player{host}, nil)
}

func apply(g *holdem.Game, ev ledger.Event) error {
	p := payload(ev.Payload)
	switch ev.Type {
	case "join_table":
		_, _, err := g.Join(ev.Actor, p.str("display_name"), ev.At)
		return err
	case "set_ready":
		return g.SetReady(ev.Actor, p.flag("ready"))
	case "set_sitting_out":
		return g.SetSittingOut(ev.Actor, p.flag("sitting_out"))
	case "leave_table":
		_, err := g.Leave(ev.Actor)
		return err
	case "swap_seats":
		return g.SwapSeats(p.str("a"), p.str("b"))
	case "start_game":
		return g.StartGame(ev.At)
	case "start_next_hand":
		return g.StartNextHand(ev.At)
	case "action":
		action, err := holdem.ParseActionType(p.str("action"))
		if err != nil {
			return err
		}
		return g.Act(ev.Actor, action, p.num("amount"), ev.At)
	case "advance_stage":
		return g.AdvanceStage(ev.At)
	case "confirm_winners":
		return g.ConfirmWinners(p.ranking("ranking"), ev.At)
	case "end_game":
		return g.End(ev.At)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// payload reads decoded Struct values, where every number is a float64.
type payload map[string]any

func (p payload) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p payload) flag(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p payload) num(key string) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (p payload) ranking(key string) holdem.Ranking {
	tiers, _ := p[key].([]any)
	out := make(holdem.Ranking, 0, len(tiers))
	for _, tier := range tiers {
		ids, _ := tier.([]any)
		var names []string
		for _, id := range ids {
			if s, ok := id.(string); ok {
				names = append(names, s)
			}
		}
		out = append(out, names)
	}
	return out
}

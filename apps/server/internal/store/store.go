package store

import (
	"context"

	"hometable/holdem"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists tables, their seats and their hands. Every command runs as
// one Update: reads inside the callback see a consistent snapshot and the
// staged writes commit together or not at all.
type Store interface {
	// CreateTable inserts a new table with its host. ErrConflict if the id
	// is taken.
	CreateTable(ctx context.Context, table *holdem.Table, host *holdem.Player) error
	TableExists(ctx context.Context, tableID string) (bool, error)

	// Update runs fn in a read-write transaction bound to tableID. Returning
	// an error from fn discards every staged write. A concurrent commit on
	// the same table surfaces as holdem.ErrConflict.
	Update(ctx context.Context, tableID string, fn func(Tx) error) error
	// View runs fn in a read-only transaction. Staged writes are rejected.
	View(ctx context.Context, tableID string, fn func(Tx) error) error

	Close() error
}

// Tx is the per-table unit of work. Loads return copies; nothing reaches the
// store until the surrounding Update returns nil.
type Tx interface {
	Table() (*holdem.Table, error)
	Players() ([]*holdem.Player, error)
	// Hand loads hand number n; holdem.ErrNotFound if it was never dealt.
	Hand(n int) (*holdem.Hand, error)
	Hands() ([]*holdem.Hand, error)

	PutTable(t *holdem.Table)
	PutPlayer(p *holdem.Player)
	DeletePlayer(playerID string)
	PutHand(h *holdem.Hand)
}

// LoadGame reads everything a command needs and assembles it.
func LoadGame(tx Tx) (*holdem.Game, error) {
	t, err := tx.Table()
	if err != nil {
		return nil, err
	}
	players, err := tx.Players()
	if err != nil {
		return nil, err
	}
	var hand *holdem.Hand
	if t.CurrentHand > 0 {
		if hand, err = tx.Hand(t.CurrentHand); err != nil {
			return nil, err
		}
	}
	return holdem.NewGame(t, players, hand)
}

// SaveGame stages every record of g, deleting seats in before that g no
// longer holds.
func SaveGame(tx Tx, before []*holdem.Player, g *holdem.Game) {
	tx.PutTable(g.Table)
	for _, p := range before {
		if g.Seats.ByID(p.ID) == nil {
			tx.DeletePlayer(p.ID)
		}
	}
	for _, p := range g.Seats {
		tx.PutPlayer(p)
	}
	if g.Hand != nil {
		tx.PutHand(g.Hand)
	}
}

// staged collects a transaction's writes until commit.
type staged struct {
	table   *holdem.Table
	players map[string]*holdem.Player
	deletes map[string]bool
	hands   map[int]*holdem.Hand
}

func newStaged() *staged {
	return &staged{
		players: make(map[string]*holdem.Player),
		deletes: make(map[string]bool),
		hands:   make(map[int]*holdem.Hand),
	}
}

func (s *staged) empty() bool {
	return s.table == nil && len(s.players) == 0 && len(s.deletes) == 0 && len(s.hands) == 0
}

func (s *staged) putTable(t *holdem.Table) { s.table = t.Clone() }

func (s *staged) putPlayer(p *holdem.Player) {
	delete(s.deletes, p.ID)
	s.players[p.ID] = p.Clone()
}

func (s *staged) deletePlayer(id string) {
	delete(s.players, id)
	s.deletes[id] = true
}

func (s *staged) putHand(h *holdem.Hand) { s.hands[h.Number] = h.Clone() }

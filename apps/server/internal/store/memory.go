package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"hometable/holdem"
)

// MemoryStore keeps everything in process. Commands on one table are
// serialised by that table's lock; different tables never contend.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	mu      sync.Mutex
	version int64
	table   *holdem.Table
	players map[string]*holdem.Player
	hands   map[int]*holdem.Hand
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateTable(_ context.Context, table *holdem.Table, host *holdem.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[table.ID]; exists {
		return holdem.Conflict("table id %s already taken", table.ID)
	}
	mt := &memTable{
		version: 1,
		table:   table.Clone(),
		players: make(map[string]*holdem.Player),
		hands:   make(map[int]*holdem.Hand),
	}
	if host != nil {
		mt.players[host.ID] = host.Clone()
	}
	s.tables[table.ID] = mt
	return nil
}

func (s *MemoryStore) TableExists(_ context.Context, tableID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[tableID]
	return ok, nil
}

func (s *MemoryStore) lookup(tableID string) (*memTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.tables[tableID]
	if !ok {
		return nil, holdem.NotFound("table %s not found", tableID)
	}
	return mt, nil
}

func (s *MemoryStore) Update(ctx context.Context, tableID string, fn func(Tx) error) error {
	return s.run(ctx, tableID, false, fn)
}

func (s *MemoryStore) View(ctx context.Context, tableID string, fn func(Tx) error) error {
	return s.run(ctx, tableID, true, fn)
}

func (s *MemoryStore) run(ctx context.Context, tableID string, readOnly bool, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mt, err := s.lookup(tableID)
	if err != nil {
		return err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	tx := &memTx{mt: mt, readOnly: readOnly, st: newStaged()}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.roErr != nil {
		return tx.roErr
	}
	if readOnly || tx.st.empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	mt.apply(tx.st)
	return nil
}

func (mt *memTable) apply(st *staged) {
	if st.table != nil {
		mt.table = st.table
	}
	for id := range st.deletes {
		delete(mt.players, id)
	}
	for id, p := range st.players {
		mt.players[id] = p
	}
	for n, h := range st.hands {
		mt.hands[n] = h
	}
	mt.version++
}

type memTx struct {
	mt       *memTable
	readOnly bool
	roErr    error
	st       *staged
}

func (tx *memTx) Table() (*holdem.Table, error) {
	return tx.mt.table.Clone(), nil
}

func (tx *memTx) Players() ([]*holdem.Player, error) {
	out := make([]*holdem.Player, 0, len(tx.mt.players))
	for _, p := range tx.mt.players {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *holdem.Player) int { return cmp.Compare(a.Seat, b.Seat) })
	return out, nil
}

func (tx *memTx) Hand(n int) (*holdem.Hand, error) {
	h, ok := tx.mt.hands[n]
	if !ok {
		return nil, holdem.NotFound("hand %d of table %s not found", n, tx.mt.table.ID)
	}
	return h.Clone(), nil
}

func (tx *memTx) Hands() ([]*holdem.Hand, error) {
	out := make([]*holdem.Hand, 0, len(tx.mt.hands))
	for _, h := range tx.mt.hands {
		out = append(out, h.Clone())
	}
	slices.SortFunc(out, func(a, b *holdem.Hand) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

func (tx *memTx) writable() bool {
	if tx.readOnly {
		tx.roErr = holdem.IllegalState("write inside a read-only transaction")
		return false
	}
	return true
}

func (tx *memTx) PutTable(t *holdem.Table) {
	if tx.writable() {
		tx.st.putTable(t)
	}
}

func (tx *memTx) PutPlayer(p *holdem.Player) {
	if tx.writable() {
		tx.st.putPlayer(p)
	}
}

func (tx *memTx) DeletePlayer(id string) {
	if tx.writable() {
		tx.st.deletePlayer(id)
	}
}

func (tx *memTx) PutHand(h *holdem.Hand) {
	if tx.writable() {
		tx.st.putHand(h)
	}
}

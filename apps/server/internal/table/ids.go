package table

import (
	"context"
	"math/rand/v2"

	"hometable/holdem"
)

// Table ids are short enough to read out loud. The alphabet drops
// characters that are easy to confuse (0/o, 1/l/i).
const (
	tableIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
	tableIDLength   = 5
	tableIDAttempts = 16
)

func newTableID(rng *rand.Rand) string {
	b := make([]byte, tableIDLength)
	for i := range b {
		b[i] = tableIDAlphabet[rng.IntN(len(tableIDAlphabet))]
	}
	return string(b)
}

// createWithFreshID retries on id collisions until the store accepts one.
func (s *Service) createWithFreshID(ctx context.Context, t *holdem.Table, host *holdem.Player) error {
	for range tableIDAttempts {
		s.rngMu.Lock()
		t.ID = newTableID(s.rng)
		s.rngMu.Unlock()

		exists, err := s.store.TableExists(ctx, t.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		err = s.store.CreateTable(ctx, t, host)
		if holdem.Retriable(err) {
			continue
		}
		return err
	}
	return holdem.Conflict("no free table id after %d attempts", tableIDAttempts)
}

package ledger

import (
	"context"

	"hometable/apps/server/internal/store"
)

// Open picks the ledger that matches the store: SQL backends share their
// pool, the memory store gets an in-process ledger. Disabled ledgers are
// no-ops.
func Open(ctx context.Context, enabled bool, st store.Store) (Service, string, error) {
	if !enabled {
		return NewNoop(), ModeNoop, nil
	}
	if sqlStore, ok := st.(*store.SQLStore); ok {
		svc, err := NewSQLService(ctx, sqlStore.DB(), sqlStore.Dialect())
		if err != nil {
			return nil, "", err
		}
		return svc, ModeSQL, nil
	}
	return NewMemoryService(), ModeMemory, nil
}

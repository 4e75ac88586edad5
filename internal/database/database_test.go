package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGate struct {
	active bool
}

func (g *stubGate) MaintenanceActive() bool { return g.active }

func newTestDB(t *testing.T) (*DB, *stubGate) {
	t.Helper()
	gate := &stubGate{}
	db, err := Open(filepath.Join(t.TempDir(), "stores.db"), gate)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init(context.Background()))
	return db, gate
}

func TestStoreCRUDAndCount(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	count, err := db.CountStores(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	names := []string{"Centro", "Norte", "Sur"}
	var firstID int64
	for i, name := range names {
		id, err := db.CreateStore(ctx, Store{Code: name, Name: name, City: "Santiago"})
		require.NoError(t, err)
		if i == 0 {
			firstID = id
		}
	}

	count, err = db.CountStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	st, err := db.GetStore(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "Centro", st.Name)
	assert.Equal(t, "active", st.Status)

	st.Status = "closed"
	require.NoError(t, db.UpdateStore(ctx, *st))
	st, err = db.GetStore(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "closed", st.Status)

	stores, err := db.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, "Centro", stores[0].Name)

	require.NoError(t, db.DeleteStore(ctx, firstID))
	count, err = db.CountStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpdateMissingStoreFails(t *testing.T) {
	db, _ := newTestDB(t)

	err := db.UpdateStore(context.Background(), Store{ID: 9999, Name: "ghost", Status: "active"})
	require.Error(t, err)
}

func TestMutationsBlockedDuringMaintenance(t *testing.T) {
	db, gate := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreateStore(ctx, Store{Name: "Centro"})
	require.NoError(t, err)

	gate.active = true

	_, err = db.CreateStore(ctx, Store{Name: "Norte"})
	require.ErrorIs(t, err, ErrRestoreInProgress)
	require.ErrorIs(t, db.UpdateStore(ctx, Store{ID: id, Name: "Centro", Status: "active"}), ErrRestoreInProgress)
	require.ErrorIs(t, db.DeleteStore(ctx, id), ErrRestoreInProgress)

	// Reads stay available while the gate is up.
	st, err := db.GetStore(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Centro", st.Name)
	stores, err := db.ListStores(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 1)
	count, err := db.CountStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	gate.active = false
	_, err = db.CreateStore(ctx, Store{Name: "Norte"})
	require.NoError(t, err)
}

func TestQuiesceAndReconnect(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateStore(ctx, Store{Name: "Centro"})
	require.NoError(t, err)

	require.NoError(t, db.Quiesce())
	_, err = db.CountStores(ctx)
	require.ErrorIs(t, err, errNotConnected)

	// Quiesce is idempotent.
	require.NoError(t, db.Quiesce())

	require.NoError(t, db.Reconnect())
	count, err := db.CountStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

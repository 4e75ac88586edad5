package backup

import (
	"context"
	"time"

	"github.com/ynkmodelo/backup/internal/logger"
)

// Database is the live data-access layer the engine snapshots. Quiesce must
// leave the single database file consistent on disk until Reconnect is
// called. CountStores is informational only and may fail without aborting a
// backup.
type Database interface {
	Quiesce() error
	Reconnect() error
	CountStores(ctx context.Context) (int64, error)
}

// Engine orchestrates backup creation, restore, listing and deletion for one
// live database file.
type Engine struct {
	dbPath string
	dir    string
	db     Database
	store  *MetadataStore
	state  *State
	log    logger.Logger
	now    func() time.Time
}

// NewEngine wires an engine over the live database at dbPath, storing
// artifacts and the catalog under dir.
func NewEngine(dbPath, dir string, db Database, state *State, log logger.Logger) *Engine {
	return &Engine{
		dbPath: dbPath,
		dir:    dir,
		db:     db,
		store:  NewMetadataStore(dir, log),
		state:  state,
		log:    log,
		now:    time.Now,
	}
}

// State exposes the operation and maintenance gate, so the data-access layer
// can observe maintenance mode.
func (e *Engine) State() *State {
	return e.state
}

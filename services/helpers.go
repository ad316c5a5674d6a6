package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
)

// TxRunner runs a function inside one atomic unit. The SQL implementation
// wraps a database transaction; tests substitute a pass-through.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockTable serializes engine operations per tournament. Pairing, standings
// recomputation and result recording must not interleave for one tournament;
// distinct tournaments proceed in parallel.
type LockTable struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[int]*sync.Mutex)}
}

// Acquire locks the given tournament and returns the release function.
func (t *LockTable) Acquire(tournamentID int) func() {
	t.mu.Lock()
	lock, ok := t.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[tournamentID] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

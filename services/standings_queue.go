package services

import (
	"context"
	"log/slog"
	"sync"
)

// StandingsQueue runs standings recomputation in the background after a
// result report commits. Enqueue returns immediately; Wait blocks until every
// recompute queued for the tournament has finished, so a pairing call never
// builds groups from stale points.
type StandingsQueue struct {
	standings StandingsService
	locks     *LockTable
	logger    *slog.Logger

	tasks chan int

	mu      sync.Mutex
	pending map[int]int
	waiters map[int]chan struct{}
}

func NewStandingsQueue(standings StandingsService, locks *LockTable, logger *slog.Logger) *StandingsQueue {
	return &StandingsQueue{
		standings: standings,
		locks:     locks,
		logger:    logger,
		tasks:     make(chan int, 256),
		pending:   make(map[int]int),
		waiters:   make(map[int]chan struct{}),
	}
}

// Run processes queued recomputes until ctx is cancelled. Start it once, as a
// goroutine, next to the HTTP server.
func (q *StandingsQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tournamentID := <-q.tasks:
			q.recompute(ctx, tournamentID)
		}
	}
}

func (q *StandingsQueue) recompute(ctx context.Context, tournamentID int) {
	defer q.finish(tournamentID)

	unlock := q.locks.Acquire(tournamentID)
	defer unlock()

	if err := q.standings.RecomputeStandings(ctx, tournamentID); err != nil {
		q.logger.Error("background standings recompute failed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}
}

func (q *StandingsQueue) Enqueue(tournamentID int) {
	q.mu.Lock()
	q.pending[tournamentID]++
	q.mu.Unlock()

	select {
	case q.tasks <- tournamentID:
	default:
		// Queue saturated: run the bookkeeping down and let the caller's next
		// synchronous recompute cover it.
		q.finish(tournamentID)
		q.logger.Warn("standings queue full, recompute skipped",
			slog.Int("tournament_id", tournamentID))
	}
}

func (q *StandingsQueue) finish(tournamentID int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[tournamentID]--
	if q.pending[tournamentID] <= 0 {
		delete(q.pending, tournamentID)
		if waiter, ok := q.waiters[tournamentID]; ok {
			close(waiter)
			delete(q.waiters, tournamentID)
		}
	}
}

// Wait blocks until no recompute is pending for the tournament. Call it
// before acquiring the tournament lock: the queue worker needs that lock to
// drain.
func (q *StandingsQueue) Wait(ctx context.Context, tournamentID int) error {
	q.mu.Lock()
	if q.pending[tournamentID] == 0 {
		q.mu.Unlock()
		return nil
	}
	waiter, ok := q.waiters[tournamentID]
	if !ok {
		waiter = make(chan struct{})
		q.waiters[tournamentID] = waiter
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waiter:
		return nil
	}
}

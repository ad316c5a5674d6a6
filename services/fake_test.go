package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	"github.com/google/uuid"
)

// In-memory repository fakes shared by the service tests.

type fakeEntrantRepo struct {
	mu      sync.Mutex
	nextID  int
	entrant map[int]*models.Entrant
}

func newFakeEntrantRepo() *fakeEntrantRepo {
	return &fakeEntrantRepo{nextID: 1, entrant: make(map[int]*models.Entrant)}
}

func (r *fakeEntrantRepo) add(e *models.Entrant) *models.Entrant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == 0 {
		e.ID = r.nextID
	}
	if e.ID >= r.nextID {
		r.nextID = e.ID + 1
	}
	if e.UserRef == uuid.Nil {
		e.UserRef = uuid.New()
	}
	clone := *e
	r.entrant[e.ID] = &clone
	return e
}

func cloneEntrant(e *models.Entrant) *models.Entrant {
	clone := *e
	return &clone
}

func (r *fakeEntrantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, e *models.Entrant) error {
	r.add(e)
	return nil
}

func (r *fakeEntrantRepo) GetByID(ctx context.Context, id int) (*models.Entrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entrant[id]
	if !ok {
		return nil, repositories.ErrEntrantNotFound
	}
	return cloneEntrant(e), nil
}

func (r *fakeEntrantRepo) ListByTournament(ctx context.Context, tournamentID int, filter repositories.EntrantFilter) ([]*models.Entrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int]struct{})
	for _, id := range filter.IDs {
		wanted[id] = struct{}{}
	}
	out := make([]*models.Entrant, 0)
	for _, e := range r.entrant {
		if e.TournamentID != tournamentID {
			continue
		}
		if filter.EligibleOnly && !e.Eligible() {
			continue
		}
		if filter.IDs != nil {
			if _, ok := wanted[e.ID]; !ok {
				continue
			}
		}
		out = append(out, cloneEntrant(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEntrantRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, entrantID int, stats repositories.EntrantStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entrant[entrantID]
	if !ok {
		return repositories.ErrEntrantNotFound
	}
	e.Wins = stats.Wins
	e.Losses = stats.Losses
	e.Draws = stats.Draws
	e.Points = stats.Points
	e.GameWins = stats.GameWins
	e.OMW = stats.OMW
	e.AverageOMW = stats.AverageOMW
	e.Rank = stats.Rank
	return nil
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (r *fakeEntrantRepo) ApplyStatsDelta(ctx context.Context, exec repositories.SQLExecutor, entrantID int, delta repositories.EntrantStatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entrant[entrantID]
	if !ok {
		return repositories.ErrEntrantNotFound
	}
	e.Wins = clampNonNegative(e.Wins + delta.Wins)
	e.Losses = clampNonNegative(e.Losses + delta.Losses)
	e.Draws = clampNonNegative(e.Draws + delta.Draws)
	e.Points = clampNonNegative(e.Points + delta.Points)
	e.GameWins = clampNonNegative(e.GameWins + delta.Wins)
	return nil
}

func (r *fakeEntrantRepo) SetDropped(ctx context.Context, exec repositories.SQLExecutor, entrantID int, dropped bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entrant[entrantID]
	if !ok {
		return repositories.ErrEntrantNotFound
	}
	e.Dropped = dropped
	return nil
}

func (r *fakeEntrantRepo) ResetStats(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entrant {
		if e.TournamentID != tournamentID {
			continue
		}
		e.Wins, e.Losses, e.Draws, e.Points = 0, 0, 0, 0
		e.GameWins, e.Rank = 0, 0
		e.OMW, e.AverageOMW = 0, 0
	}
	return nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	match  map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, match: make(map[int]*models.Match)}
}

func cloneMatch(m *models.Match) *models.Match {
	clone := *m
	if m.Result != nil {
		res := *m.Result
		clone.Result = &res
	}
	if m.ReportedBy != nil {
		by := *m.ReportedBy
		clone.ReportedBy = &by
	}
	if m.ReportedAt != nil {
		at := *m.ReportedAt
		clone.ReportedAt = &at
	}
	return &clone
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == 0 {
		m.ID = r.nextID
	}
	if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.match[m.ID] = cloneMatch(m)
	return nil
}

func (r *fakeMatchRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		if err := r.Create(ctx, exec, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.match[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.match {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.BeforeRound != nil && m.Round >= *filter.BeforeRound {
			continue
		}
		if filter.ActiveOnly && !m.IsTournamentMatch {
			continue
		}
		if filter.WithResult != nil && (m.Result != nil) != *filter.WithResult {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, matchID int, result models.MatchResult, reportedBy uuid.UUID, reportedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.match[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Result = &result
	m.ReportedBy = &reportedBy
	m.ReportedAt = &reportedAt
	return nil
}

func (r *fakeMatchRepo) ActivateRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.match {
		if m.TournamentID == tournamentID && m.Round == round {
			m.IsTournamentMatch = true
		}
	}
	return nil
}

func (r *fakeMatchRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.match {
		if m.TournamentID == tournamentID && m.Round == round {
			delete(r.match, id)
		}
	}
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.match {
		if m.TournamentID == tournamentID {
			delete(r.match, id)
		}
	}
	return nil
}

func (r *fakeMatchRepo) MaxRound(ctx context.Context, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maxRound := 0
	for _, m := range r.match {
		if m.TournamentID == tournamentID && m.Round > maxRound {
			maxRound = m.Round
		}
	}
	return maxRound, nil
}

type fakeTournamentRepo struct {
	mu         sync.Mutex
	tournament map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournament: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		clone := *t
		r.tournament[t.ID] = &clone
	}
	return r
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournament[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) UpdateRoundState(ctx context.Context, exec repositories.SQLExecutor, id, currentRound, maxRounds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournament[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentRound = currentRound
	t.MaxRounds = maxRounds
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournament[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

// fakeTxRunner executes the function directly; the fakes have no
// transactions.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// noopShuffler keeps the incoming order, making pairings deterministic.
type noopShuffler struct{}

func (noopShuffler) Shuffle(n int, swap func(i, j int)) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// engine bundles a fully wired service stack over the fakes.
type engine struct {
	entrants    *fakeEntrantRepo
	matches     *fakeMatchRepo
	tournaments *fakeTournamentRepo
	locks       *LockTable

	standings  StandingsService
	queue      *StandingsQueue
	pairing    PairingService
	results    ResultService
	bracket    BracketService
	tournament TournamentService
}

func newEngine(t *testing.T, tournaments ...*models.Tournament) *engine {
	t.Helper()
	logger := testLogger()
	locks := NewLockTable()

	e := &engine{
		entrants:    newFakeEntrantRepo(),
		matches:     newFakeMatchRepo(),
		tournaments: newFakeTournamentRepo(tournaments...),
		locks:       locks,
	}
	e.standings = NewStandingsService(e.entrants, e.matches, 0, nil, logger)
	e.queue = NewStandingsQueue(e.standings, locks, logger)
	e.pairing = NewPairingService(fakeTxRunner{}, e.entrants, e.matches, e.tournaments,
		e.standings, e.queue, locks, noopShuffler{}, nil, logger)
	e.results = NewResultService(fakeTxRunner{}, e.entrants, e.matches, e.queue, locks, nil, logger)
	e.bracket = NewBracketService(fakeTxRunner{}, e.entrants, e.matches, e.tournaments,
		e.queue, locks, nil, logger)
	e.tournament = NewTournamentService(fakeTxRunner{}, e.tournaments, e.entrants, e.matches,
		locks, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.queue.Run(ctx)

	return e
}

// addEntrants registers n checked-in entrants and returns them ordered by id.
func (e *engine) addEntrants(tournamentID, n int) []*models.Entrant {
	out := make([]*models.Entrant, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.entrants.add(&models.Entrant{
			TournamentID: tournamentID,
			CheckedIn:    true,
		}))
	}
	return out
}

func matchRoundFilter(round int) repositories.MatchFilter {
	return repositories.MatchFilter{Round: &round}
}

// playMatch persists a completed match between two entrants.
func (e *engine) playMatch(tournamentID, round, number, p1, p2 int, result models.MatchResult) *models.Match {
	m := &models.Match{
		TournamentID: tournamentID,
		Round:        round,
		MatchNumber:  number,
		TableNumber:  number,
		Player1ID:    p1,
		Player2ID:    p2,
		Result:       &result,
	}
	_ = e.matches.Create(context.Background(), nil, m)
	return m
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
)

// Shuffler randomizes intra-group matchups. The default source is unseeded:
// two runs over identical input produce different pairings, and that is the
// intended fairness property. Tests inject a fixed source.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type lockedShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewShuffler() Shuffler {
	return &lockedShuffler{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

type PairingService interface {
	// GeneratePairings builds and persists the given round's matches (and
	// byes) as a preview. Returns ErrInsufficientEntrants when fewer than two
	// eligible entrants remain.
	GeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error)
	// RegeneratePairings deletes the round's existing matches and pairs it
	// again ("rematch").
	RegeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error)
}

type pairingService struct {
	tx             TxRunner
	entrantRepo    repositories.EntrantRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	standings      StandingsService
	queue          *StandingsQueue
	locks          *LockTable
	shuffler       Shuffler
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewPairingService(
	tx TxRunner,
	entrantRepo repositories.EntrantRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	standings StandingsService,
	queue *StandingsQueue,
	locks *LockTable,
	shuffler Shuffler,
	hub *brackets.Hub,
	logger *slog.Logger,
) PairingService {
	return &pairingService{
		tx:             tx,
		entrantRepo:    entrantRepo,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		standings:      standings,
		queue:          queue,
		locks:          locks,
		shuffler:       shuffler,
		hub:            hub,
		logger:         logger,
	}
}

// recordGroup is the set of entrants sharing one integer point total before
// the round is paired. The first floatCount members were pushed down from a
// higher group and keep first choice of opponent.
type recordGroup struct {
	points     int
	members    []*models.Entrant
	floatCount int
}

func (s *pairingService) GeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	if round < 1 {
		return nil, fmt.Errorf("pairing: round must be at least 1, got %d", round)
	}
	// Drain pending background recomputes before taking the tournament lock;
	// the queue worker needs that lock to finish.
	if err := s.queue.Wait(ctx, tournamentID); err != nil {
		return nil, err
	}
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	// A retried request must not append a second pairing set for the round.
	existing, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.MatchFilter{Round: &round})
	if err != nil {
		return nil, fmt.Errorf("pairing: failed to list round %d matches of tournament %d: %w",
			round, tournamentID, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: tournament %d round %d has %d matches",
			ErrRoundAlreadyPaired, tournamentID, round, len(existing))
	}

	return s.generateLocked(ctx, tournamentID, round)
}

func (s *pairingService) RegeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	if round < 1 {
		return nil, fmt.Errorf("pairing: round must be at least 1, got %d", round)
	}
	if err := s.queue.Wait(ctx, tournamentID); err != nil {
		return nil, err
	}
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	// The old round comes out before standings are recomputed, so grouping for
	// the re-pair cannot see the round being thrown away.
	if err := s.matchRepo.DeleteByRound(ctx, nil, tournamentID, round); err != nil {
		return nil, fmt.Errorf("pairing: failed to delete round %d of tournament %d for rematch: %w",
			round, tournamentID, err)
	}
	return s.generateLocked(ctx, tournamentID, round)
}

func (s *pairingService) generateLocked(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, err
	}

	// Grouping must reflect current points.
	if err := s.standings.RecomputeStandings(ctx, tournamentID); err != nil {
		return nil, err
	}

	eligible, err := s.eligibleEntrants(ctx, tournamentID, round)
	if err != nil {
		return nil, err
	}
	if len(eligible) < 2 {
		return nil, fmt.Errorf("%w: tournament %d round %d has %d",
			ErrInsufficientEntrants, tournamentID, round, len(eligible))
	}

	history, err := s.opponentHistory(ctx, tournamentID, round)
	if err != nil {
		return nil, err
	}

	pairs, byes := s.pair(buildRecordGroups(eligible), history)

	// Defensive sweep: anything the group walk somehow left unmatched gets a
	// bye rather than silently dropping out of the round.
	covered := make(map[int]struct{}, len(eligible))
	for _, p := range pairs {
		covered[p[0].ID] = struct{}{}
		covered[p[1].ID] = struct{}{}
	}
	for _, b := range byes {
		covered[b.ID] = struct{}{}
	}
	for _, e := range eligible {
		if _, ok := covered[e.ID]; !ok {
			s.logger.Warn("pairing left an entrant unmatched, granting bye",
				slog.Int("tournament_id", tournamentID),
				slog.Int("round", round),
				slog.Int("entrant_id", e.ID))
			byes = append(byes, e)
		}
	}

	matches := make([]*models.Match, 0, len(pairs)+len(byes))
	number := 1
	for _, p := range pairs {
		matches = append(matches, &models.Match{
			TournamentID: tournamentID,
			Round:        round,
			MatchNumber:  number,
			TableNumber:  number,
			Player1ID:    p[0].ID,
			Player2ID:    p[1].ID,
		})
		number++
	}
	byeResult := models.ResultPlayer1
	for _, b := range byes {
		matches = append(matches, &models.Match{
			TournamentID: tournamentID,
			Round:        round,
			MatchNumber:  number,
			TableNumber:  number,
			Player1ID:    b.ID,
			Player2ID:    b.ID,
			Result:       &byeResult,
		})
		number++
	}

	maxRounds := tournament.MaxRounds
	if round > maxRounds {
		maxRounds = round
	}
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.CreateBatch(ctx, exec, matches); err != nil {
			return err
		}
		for _, b := range byes {
			delta := repositories.EntrantStatsDelta{Wins: 1, Points: 3}
			if err := s.entrantRepo.ApplyStatsDelta(ctx, exec, b.ID, delta); err != nil {
				return err
			}
		}
		return s.tournamentRepo.UpdateRoundState(ctx, exec, tournamentID, round, maxRounds)
	})
	if err != nil {
		return nil, fmt.Errorf("pairing: failed to persist round %d of tournament %d: %w",
			round, tournamentID, err)
	}

	s.logger.Info("round paired",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.Int("matches", len(pairs)),
		slog.Int("byes", len(byes)))
	if s.hub != nil {
		s.hub.BroadcastTournament(tournamentID, brackets.EventPairingsPosted, matches)
	}
	return matches, nil
}

// eligibleEntrants resolves who participates in the given round. Round 1 takes
// every checked-in, non-dropped, non-cancelled entrant. Later rounds carry
// forward whoever appeared in any match of the previous round, previews
// included, minus entrants who have since dropped.
func (s *pairingService) eligibleEntrants(ctx context.Context, tournamentID, round int) ([]*models.Entrant, error) {
	filter := repositories.EntrantFilter{EligibleOnly: true}
	if round > 1 {
		prevRound := round - 1
		prev, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.MatchFilter{Round: &prevRound})
		if err != nil {
			return nil, fmt.Errorf("pairing: failed to list round %d matches of tournament %d: %w",
				prevRound, tournamentID, err)
		}
		seen := make(map[int]struct{})
		ids := make([]int, 0, len(prev)*2)
		for _, m := range prev {
			for _, id := range []int{m.Player1ID, m.Player2ID} {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
		filter.IDs = ids
	}

	eligible, err := s.entrantRepo.ListByTournament(ctx, tournamentID, filter)
	if err != nil {
		return nil, fmt.Errorf("pairing: failed to list eligible entrants of tournament %d: %w",
			tournamentID, err)
	}
	return eligible, nil
}

// opponentHistory collects every prior pairing, regardless of activation
// state, keyed both ways. Byes are skipped: a bye never blocks a future bye.
func (s *pairingService) opponentHistory(ctx context.Context, tournamentID, round int) (map[int]map[int]bool, error) {
	prior, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.MatchFilter{BeforeRound: &round})
	if err != nil {
		return nil, fmt.Errorf("pairing: failed to list prior matches of tournament %d: %w",
			tournamentID, err)
	}
	history := make(map[int]map[int]bool)
	add := func(a, b int) {
		if history[a] == nil {
			history[a] = make(map[int]bool)
		}
		history[a][b] = true
	}
	for _, m := range prior {
		if m.IsBye() {
			continue
		}
		add(m.Player1ID, m.Player2ID)
		add(m.Player2ID, m.Player1ID)
	}
	return history, nil
}

// buildRecordGroups sorts entrants by rank and partitions them into point
// groups, highest points first.
func buildRecordGroups(eligible []*models.Entrant) []*recordGroup {
	sorted := make([]*models.Entrant, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Rank, sorted[j].Rank
		if ri == 0 || rj == 0 {
			if ri != rj {
				return rj == 0
			}
			return sorted[i].ID < sorted[j].ID
		}
		return ri < rj
	})

	var groups []*recordGroup
	for _, e := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].points != e.Points {
			groups = append(groups, &recordGroup{points: e.Points})
		}
		last := groups[len(groups)-1]
		last.members = append(last.members, e)
	}
	return groups
}

// pair walks the groups in descending point order. Floats stay pinned at the
// front of their group; the rest are shuffled. An odd group sends its last
// member down as the next group's float. Each front entrant takes the first
// group-mate outside their opponent history, then the first candidate in any
// lower group, and finally a bye.
func (s *pairingService) pair(groups []*recordGroup, history map[int]map[int]bool) (pairs [][2]*models.Entrant, byes []*models.Entrant) {
	for gi := 0; gi < len(groups); gi++ {
		grp := groups[gi]

		tail := grp.members[grp.floatCount:]
		s.shuffler.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })

		if len(grp.members)%2 == 1 && gi+1 < len(groups) {
			idx := len(grp.members) - 1
			floated := grp.members[idx]
			grp.members = grp.members[:idx]
			next := groups[gi+1]
			next.members = append([]*models.Entrant{floated}, next.members...)
			next.floatCount++
		}

		pool := grp.members
		grp.members = nil
		for len(pool) > 0 {
			front := pool[0]
			pool = pool[1:]

			matched := false
			// First pass avoids rematches. The second allows them: once every
			// remaining candidate is in the front entrant's history, a rematch
			// beats handing out byes to a pairable field.
			for _, allowRematch := range []bool{false, true} {
				for j := 0; j < len(pool); j++ {
					if allowRematch || !history[front.ID][pool[j].ID] {
						pairs = append(pairs, [2]*models.Entrant{front, pool[j]})
						pool = append(pool[:j], pool[j+1:]...)
						matched = true
						break
					}
				}
				for gj := gi + 1; gj < len(groups) && !matched; gj++ {
					lower := groups[gj]
					for k := 0; k < len(lower.members); k++ {
						if allowRematch || !history[front.ID][lower.members[k].ID] {
							pairs = append(pairs, [2]*models.Entrant{front, lower.members[k]})
							if k < lower.floatCount {
								lower.floatCount--
							}
							lower.members = append(lower.members[:k], lower.members[k+1:]...)
							matched = true
							break
						}
					}
				}
				if matched {
					if allowRematch {
						s.logger.Warn("no fresh opponent available, pairing a rematch",
							slog.Int("entrant_id", front.ID))
					}
					break
				}
			}
			if !matched {
				byes = append(byes, front)
			}
		}
	}
	return pairs, byes
}

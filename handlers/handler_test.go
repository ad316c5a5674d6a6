package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPairingService struct {
	matches []*models.Match
	err     error
}

func (s stubPairingService) GeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	return s.matches, s.err
}

func (s stubPairingService) RegeneratePairings(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	return s.matches, s.err
}

type stubResultService struct {
	match *models.Match
	err   error
}

func (s stubResultService) RecordResult(ctx context.Context, tournamentID, matchID int, outcome models.MatchResult, reporter uuid.UUID) (*models.Match, error) {
	return s.match, s.err
}

type stubTournamentService struct {
	tournament *models.Tournament
	err        error
}

func (s stubTournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	return s.tournament, s.err
}
func (s stubTournamentService) ActivateRound(ctx context.Context, tournamentID, round int) error {
	return s.err
}
func (s stubTournamentService) ResetTournament(ctx context.Context, tournamentID int) error {
	return s.err
}
func (s stubTournamentService) DropEntrant(ctx context.Context, tournamentID, entrantID int) error {
	return s.err
}

func pairingRouter(h *PairingHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/tournaments/{tournamentID}/rounds/{round}", func(r chi.Router) {
		r.Post("/pairings", h.GeneratePairings)
		r.Post("/rematch", h.RegeneratePairings)
		r.Post("/activate", h.ActivateRound)
	})
	return r
}

func TestGeneratePairingsHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h := NewPairingHandler(stubPairingService{matches: []*models.Match{
			{ID: 1, Round: 1, Player1ID: 10, Player2ID: 11},
		}}, stubTournamentService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/rounds/1/pairings", nil)
		pairingRouter(h).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body struct {
			Matches []*models.Match `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Matches, 1)
		assert.Equal(t, 10, body.Matches[0].Player1ID)
	})

	t.Run("field conflict", func(t *testing.T) {
		h := NewPairingHandler(stubPairingService{err: services.ErrInsufficientEntrants}, stubTournamentService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/rounds/1/pairings", nil)
		pairingRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("round already paired", func(t *testing.T) {
		h := NewPairingHandler(stubPairingService{err: services.ErrRoundAlreadyPaired}, stubTournamentService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/rounds/1/pairings", nil)
		pairingRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad round parameter", func(t *testing.T) {
		h := NewPairingHandler(stubPairingService{}, stubTournamentService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/rounds/zero/pairings", nil)
		pairingRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func matchRouter(h *MatchHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/matches", h.ListMatches)
		r.Post("/matches/{matchID}/result", h.RecordResult)
	})
	return r
}

type stubMatchRepo struct {
	repositories.MatchRepository
	matches []*models.Match
}

func (s stubMatchRepo) ListByTournament(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	return s.matches, nil
}

func TestRecordResultHandler(t *testing.T) {
	result := models.ResultPlayer1
	okService := stubResultService{match: &models.Match{ID: 3, Result: &result}}

	t.Run("ok", func(t *testing.T) {
		h := NewMatchHandler(okService, stubMatchRepo{})

		body := `{"result": "player1", "reported_by": "` + uuid.NewString() + `"}`
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/matches/3/result", strings.NewReader(body))
		matchRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown body field", func(t *testing.T) {
		h := NewMatchHandler(okService, stubMatchRepo{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/matches/3/result",
			strings.NewReader(`{"result": "player1", "winner": 3}`))
		matchRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("match not found", func(t *testing.T) {
		h := NewMatchHandler(stubResultService{err: services.ErrMatchNotFound}, stubMatchRepo{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/matches/99/result",
			strings.NewReader(`{"result": "player1"}`))
		matchRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid result", func(t *testing.T) {
		h := NewMatchHandler(stubResultService{err: services.ErrInvalidResult}, stubMatchRepo{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/tournaments/1/matches/3/result",
			strings.NewReader(`{"result": "player3"}`))
		matchRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestListMatchesHandler(t *testing.T) {
	h := NewMatchHandler(stubResultService{}, stubMatchRepo{matches: []*models.Match{{ID: 1}}})

	t.Run("ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tournaments/1/matches?round=2", nil)
		matchRouter(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad round query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tournaments/1/matches?round=first", nil)
		matchRouter(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetTournamentHandler(t *testing.T) {
	router := func(h *TournamentHandler) *chi.Mux {
		r := chi.NewRouter()
		r.Get("/tournaments/{tournamentID}", h.GetTournament)
		return r
	}

	t.Run("ok", func(t *testing.T) {
		h := NewTournamentHandler(stubTournamentService{
			tournament: &models.Tournament{ID: 1, Name: "Friday Swiss"},
		}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tournaments/1", nil)
		router(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		h := NewTournamentHandler(stubTournamentService{err: services.ErrTournamentNotFound}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tournaments/42", nil)
		router(h).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

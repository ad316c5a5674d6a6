package handlers

import (
	"net/http"
	"strconv"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	resultService services.ResultService
	matchRepo     repositories.MatchRepository
}

func NewMatchHandler(resultService services.ResultService, matchRepo repositories.MatchRepository) *MatchHandler {
	return &MatchHandler{
		resultService: resultService,
		matchRepo:     matchRepo,
	}
}

type recordResultRequest struct {
	Result     string    `json:"result"`
	ReportedBy uuid.UUID `json:"reported_by"`
}

// RecordResult handles POST /tournaments/{tournamentID}/matches/{matchID}/result
func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var req recordResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.resultService.RecordResult(r.Context(), tournamentID, matchID,
		models.MatchResult(req.Result), req.ReportedBy)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match})
}

// ListMatches handles GET /tournaments/{tournamentID}/matches?round=N
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	filter := repositories.MatchFilter{}
	if raw := r.URL.Query().Get("round"); raw != "" {
		round, convErr := strconv.Atoi(raw)
		if convErr != nil || round < 1 {
			badRequestResponse(w, errInvalidRoundQuery)
			return
		}
		filter.Round = &round
	}

	matches, err := h.matchRepo.ListByTournament(r.Context(), tournamentID, filter)
	if err != nil {
		serverErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches})
}

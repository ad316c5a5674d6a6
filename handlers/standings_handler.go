package handlers

import (
	"net/http"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(standingsService services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: standingsService}
}

// ListStandings handles GET /tournaments/{tournamentID}/standings
func (h *StandingsHandler) ListStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	standings, err := h.standingsService.ListStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": standings})
}

// RecomputeStandings handles POST /tournaments/{tournamentID}/standings/recompute
func (h *StandingsHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.standingsService.RecomputeStandings(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	standings, err := h.standingsService.ListStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": standings})
}

package handlers

import (
	"net/http"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	bracketService    services.BracketService
}

func NewTournamentHandler(tournamentService services.TournamentService, bracketService services.BracketService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		bracketService:    bracketService,
	}
}

// GetTournament handles GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament})
}

// GenerateBracket handles POST /tournaments/{tournamentID}/bracket
func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.bracketService.GenerateTournamentBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches})
}

// ResetTournament handles POST /tournaments/{tournamentID}/reset
func (h *TournamentHandler) ResetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.ResetTournament(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"reset": true})
}

// DropEntrant handles POST /tournaments/{tournamentID}/entrants/{entrantID}/drop
func (h *TournamentHandler) DropEntrant(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	entrantID, err := urlParamInt(r, "entrantID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.DropEntrant(r.Context(), tournamentID, entrantID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"dropped": entrantID})
}

package handlers

import (
	"net/http"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/services"
)

type PairingHandler struct {
	pairingService    services.PairingService
	tournamentService services.TournamentService
}

func NewPairingHandler(pairingService services.PairingService, tournamentService services.TournamentService) *PairingHandler {
	return &PairingHandler{
		pairingService:    pairingService,
		tournamentService: tournamentService,
	}
}

// GeneratePairings handles POST /tournaments/{tournamentID}/rounds/{round}/pairings
func (h *PairingHandler) GeneratePairings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	round, err := urlParamInt(r, "round")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.pairingService.GeneratePairings(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches})
}

// RegeneratePairings handles POST /tournaments/{tournamentID}/rounds/{round}/rematch
func (h *PairingHandler) RegeneratePairings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	round, err := urlParamInt(r, "round")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.pairingService.RegeneratePairings(r.Context(), tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches})
}

// ActivateRound handles POST /tournaments/{tournamentID}/rounds/{round}/activate
func (h *PairingHandler) ActivateRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	round, err := urlParamInt(r, "round")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.ActivateRound(r.Context(), tournamentID, round); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"activated_round": round})
}

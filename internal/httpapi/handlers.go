package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/R3E-Network/nft_lottery/internal/lottery"
)

// callerHeader carries the verified address of the requester. Signature
// verification happens at the gateway in front of this service.
const callerHeader = "X-Address"

func caller(r *http.Request) string {
	return r.Header.Get(callerHeader)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", lottery.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRoundActive(w http.ResponseWriter, r *http.Request) {
	active, err := s.svc.IsRoundActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) handleWinning(w http.ResponseWriter, r *http.Request) {
	winning, err := s.svc.WinningNumbers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winning)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.svc.Tickets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

type buyRequest struct {
	Numbers [lottery.MainNumberCount]int `json:"numbers"`
	Bonus   int                          `json:"bonus"`
	Payment int64                        `json:"payment"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ticket, err := s.svc.Buy(r.Context(), caller(r), req.Numbers, req.Bonus, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleOpenRound(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.OpenRound(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	winning, err := s.svc.DrawNumbers(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winning)
}

func (s *Server) handleGivePrizes(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.GivePrizes(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	refunds, err := s.svc.CloseLottery(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refunds": refunds,
		"count":   len(refunds),
	})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	tier, err := strconv.Atoi(r.URL.Query().Get("tier"))
	if err != nil {
		writeError(w, lottery.NewValidationError("tier", "must be an integer"))
		return
	}
	entries, err := s.svc.PoolEntries(r.Context(), tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tier":    tier,
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleCollectible(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, lottery.NewValidationError("id", "must be a positive integer"))
		return
	}
	info, err := s.svc.Collectible(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type mintRequest struct {
	Tier int `json:"tier"`
}

func (s *Server) handleMintCollectible(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.svc.MintCollectible(r.Context(), caller(r), req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

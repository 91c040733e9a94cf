package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

// APIHandler marshals HTTP requests into the challenge service's
// operations and serializes the results. Identity is supplied by the
// hosting environment through the X-User-Id header.
type APIHandler struct {
	service *app.ChallengeService
}

func NewAPIHandler(service *app.ChallengeService) *APIHandler {
	return &APIHandler{service: service}
}

// Register wires the API routes onto mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/round", h.handleRound)
	mux.HandleFunc("/api/guess", h.handleGuess)
	mux.HandleFunc("/api/daily-status", h.handleDailyStatus)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/stats", h.handleStats)
}

func (h *APIHandler) handleRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roundIndex := 0
	if raw := r.URL.Query().Get("roundIndex"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.ErrInvalidRoundIndex)
			return
		}
		roundIndex = parsed
	}
	payload, err := h.service.GetRound(r.Context(), userID, roundIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *APIHandler) handleGuess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req domain.GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid guess payload", http.StatusBadRequest)
		return
	}
	result, err := h.service.PostGuess(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.GetDailyStatus(r.Context(), userID))
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	topN := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		topN, _ = strconv.Atoi(raw)
	}
	board, err := h.service.GetWeeklyLeaderboard(r.Context(), userID, topN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *APIHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetUserDailyStats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		http.Error(w, "missing X-User-Id header", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRoundID),
		errors.Is(err, domain.ErrInvalidRoundIndex),
		errors.Is(err, domain.ErrCategoryNotWhitelisted):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRoundNotUnlocked),
		errors.Is(err, domain.ErrSessionAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientContent):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorPayload{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] write response: %v", err)
	}
}

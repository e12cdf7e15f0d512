package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/packduel/packduel/internal/store"
	"github.com/packduel/packduel/internal/tournament"
	"github.com/packduel/packduel/internal/users"
)

// CreateTournamentHandler opens a new tournament hosted by the caller.
func CreateTournamentHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Name            string `json:"name"`
			EntryFee        int64  `json:"entryFee"`
			PoolID          string `json:"poolId"`
			MaxParticipants int    `json:"maxParticipants"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, e.Create(r.Context(), req.Name, hostID, req.EntryFee, req.PoolID, req.MaxParticipants))
	}
}

// JoinTournamentHandler registers the caller, charging the entry fee.
func JoinTournamentHandler(e *tournament.Engine, svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			TournamentID string `json:"tournamentId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		username := userID
		if uid, err := uuid.Parse(userID); err == nil {
			if user, err := svc.GetByID(r.Context(), uid); err == nil {
				username = user.Username
			}
		}
		writeJSON(w, http.StatusOK, e.Join(r.Context(), req.TournamentID, userID, username))
	}
}

// tournamentAction covers the operations that only need a tournament id.
func tournamentAction(do func(r *http.Request, tournamentID, userID string) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			TournamentID string `json:"tournamentId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, do(r, req.TournamentID, userID))
	}
}

func LeaveTournamentHandler(e *tournament.Engine) http.HandlerFunc {
	return tournamentAction(func(r *http.Request, id, userID string) any {
		return e.Leave(r.Context(), id, userID)
	})
}

func StartTournamentHandler(e *tournament.Engine) http.HandlerFunc {
	return tournamentAction(func(r *http.Request, id, userID string) any {
		return e.Start(r.Context(), id, userID)
	})
}

func CancelTournamentHandler(e *tournament.Engine) http.HandlerFunc {
	return tournamentAction(func(r *http.Request, id, userID string) any {
		return e.Cancel(r.Context(), id, userID)
	})
}

// ReadyMatchHandler marks the caller ready in one of their matches.
func ReadyMatchHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			TournamentID string `json:"tournamentId"`
			MatchID      string `json:"matchId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, e.MarkReady(r.Context(), req.TournamentID, req.MatchID, userID))
	}
}

// PlayMatchHandler resolves a match directly, without waiting on readiness.
func PlayMatchHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireUserID(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			TournamentID string `json:"tournamentId"`
			MatchID      string `json:"matchId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, e.PlayMatch(r.Context(), req.TournamentID, req.MatchID))
	}
}

// GetTournamentHandler fetches one tournament by id (?id=...).
func GetTournamentHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		t, err := e.Get(r.Context(), id)
		if errors.Is(err, store.ErrNoDocument) {
			http.Error(w, "tournament not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load tournament", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// ListOpenTournamentsHandler lists tournaments in registration or play.
func ListOpenTournamentsHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := e.ListOpen(r.Context())
		if err != nil {
			http.Error(w, "failed to list tournaments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}

// MyTournamentsHandler lists completed tournaments the caller played in.
func MyTournamentsHandler(e *tournament.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ts, err := e.ListCompletedForUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to list tournaments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}

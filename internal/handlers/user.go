package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/packduel/packduel/internal/auth"
	"github.com/packduel/packduel/internal/economy"
	"github.com/packduel/packduel/internal/users"
)

// CreateUserHandler registers a new account and seeds it with the starting
// currency grant.
func CreateUserHandler(svc *users.Service, ledger *economy.Ledger, startingGrant int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			http.Error(w, "email, password and username are required", http.StatusBadRequest)
			return
		}

		user, err := svc.Create(r.Context(), req.Email, req.Password, req.Username)
		if err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				http.Error(w, "email already exists", http.StatusConflict)
				return
			}
			http.Error(w, "error creating user", http.StatusInternalServerError)
			return
		}
		if startingGrant > 0 {
			ledger.Grant(r.Context(), user.ID.String(), startingGrant)
		}

		user.Password = ""
		writeJSON(w, http.StatusCreated, user)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler verifies credentials and returns a session token, also set as
// an HttpOnly cookie.
func LoginHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}

		token, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			log.Printf("failed to authenticate user: %v", err)
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			MaxAge:   auth.TokenExpireSec,
		})
		writeJSON(w, http.StatusOK, loginResponse{Token: token})
	}
}

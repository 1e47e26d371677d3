package devauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// tokenResponse matches the provider's token endpoint wire shape, which
// is also what golang.org/x/oauth2 expects back.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the service over the provider's HTTP surface:
// POST /token, GET /user, POST /logout.
func Handler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", handleToken(svc))
	mux.HandleFunc("GET /user", handleUser(svc))
	mux.HandleFunc("POST /logout", handleLogout(svc))
	return mux
}

func handleToken(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
			return
		}

		var (
			pair *TokenPair
			err  error
		)
		switch grantType := r.PostForm.Get("grant_type"); grantType {
		case "password":
			pair, err = svc.PasswordGrant(r.PostForm.Get("username"), r.PostForm.Get("password"))
		case "refresh_token":
			pair, err = svc.RefreshGrant(r.PostForm.Get("refresh_token"))
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported_grant_type"})
			return
		}

		if err != nil {
			if errors.Is(err, ErrInvalidGrant) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_grant"})
				return
			}
			log.Error().Err(err).Msg("devauth: token grant failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    "bearer",
			ExpiresIn:    pair.ExpiresIn,
		})
	}
}

func handleUser(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, email, err := verifyBearer(svc, r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": userID, "email": email})
	}
}

func handleLogout(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := verifyBearer(svc, r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_token"})
			return
		}
		svc.Revoke(userID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func verifyBearer(svc *Service, r *http.Request) (userID, email string, err error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", "", errors.New("missing bearer token")
	}
	return svc.VerifyAccessToken(token)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("devauth: response encoding failed")
	}
}

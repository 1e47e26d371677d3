package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/abrefacil/checkout-server/billing"
	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/docstore"
)

const defaultListLimit = 50

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) LeadCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input checkout.LeadInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		lead, err := s.checkout.CreateLead(r.Context(), input)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func (s *Server) QualificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leadID := r.PathValue("leadID")

		var input checkout.QualificationInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		q, err := s.checkout.SaveQualification(r.Context(), leadID, input)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      loginUser `json:"user"`
	ExpiresAt int64     `json:"expires_at,omitempty"`
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		sess, err := s.resolver.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", req.Email).Msg("sign-in rejected")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		resp := loginResponse{ExpiresAt: sess.ExpiresAt}
		if sess.User != nil {
			resp.User = loginUser{ID: sess.User.ID, Email: sess.User.Email}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Revocation failures are logged, not surfaced: local sign-out
		// already happened and the user is leaving either way.
		if err := s.resolver.SignOut(r.Context()); err != nil {
			log.Warn().Err(err).Msg("token revocation on logout failed")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) SessionDiagnosticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.resolver.Diagnostics())
	}
}

func (s *Server) SubscriptionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req billing.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.RemoteIP = r.RemoteAddr

		result, err := s.checkout.CreateSubscription(r.Context(), &req)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*billing.SubscriptionResult
		}{Success: true, SubscriptionResult: result})
	}
}

func (s *Server) FormationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub checkout.FormationSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		formation, err := s.checkout.CreateFormation(r.Context(), &sub)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, formation)
	}
}

func (s *Server) DocumentUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, docstore.MaxFileSize+1)
		if err := r.ParseMultipartForm(docstore.MaxFileSize); err != nil {
			writeError(w, http.StatusBadRequest, docstore.ErrFileTooLarge.Error())
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}

		uploaded, err := s.checkout.UploadDocument(
			r.Context(),
			r.FormValue("document_type"),
			header.Header.Get("Content-Type"),
			data,
		)
		if err != nil {
			if isUploadInputError(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, uploaded)
	}
}

func isUploadInputError(err error) bool {
	return errors.Is(err, docstore.ErrFileTooLarge) ||
		errors.Is(err, docstore.ErrUnsupportedType) ||
		errors.Is(err, docstore.ErrEmptyFile) ||
		errors.Is(err, docstore.ErrMissingDocumentType)
}

func (s *Server) AdminLeadsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := listParams(r)
		out, err := s.checkout.ListLeads(r.Context(), offset, limit)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) AdminSubscriptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := listParams(r)
		out, err := s.checkout.ListSubscriptions(r.Context(), offset, limit)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) AdminFormationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "user_id query parameter is required")
			return
		}
		out, err := s.checkout.ListFormationsByUser(r.Context(), userID)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listParams(r *http.Request) (offset, limit int) {
	limit = defaultListLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	return offset, limit
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/abrefacil/checkout-server/billing"
	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/internal/errclass"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// writeCheckoutError maps service-level failures onto HTTP statuses:
// bad input is 400, a dead session is 401, an unreachable dependency
// is 503, everything else is 500.
func writeCheckoutError(w http.ResponseWriter, err error) {
	var inputErr *checkout.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Error())
		return
	}
	var validationErr *billing.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	var submissionErr *checkout.SubmissionError
	if errors.As(err, &submissionErr) {
		switch submissionErr.Class {
		case errclass.Session:
			writeError(w, http.StatusUnauthorized, submissionErr.Message)
		case errclass.Network:
			writeError(w, http.StatusServiceUnavailable, submissionErr.Message)
		default:
			log.Error().Err(err).Msg("submission failed")
			writeError(w, http.StatusInternalServerError, submissionErr.Message)
		}
		return
	}

	log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, checkout.MsgUnknown)
}

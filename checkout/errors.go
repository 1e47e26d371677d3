package checkout

import (
	"github.com/abrefacil/checkout-server/internal/errclass"
)

// User-facing messages, one per error class. The audience is Brazilian,
// so these ship in Portuguese.
const (
	MsgNetwork  = "Conexão instável. Verifique sua internet e tente novamente."
	MsgSession  = "Sessão expirada. Faça login novamente."
	MsgDatabase = "Erro ao salvar dados. Tente novamente em instantes."
	MsgUnknown  = "Erro inesperado. Tente novamente."
)

// SubmissionError pairs the underlying failure with its class and the
// message shown to the user.
type SubmissionError struct {
	Class   errclass.Class
	Message string
	Err     error
}

func (e *SubmissionError) Error() string { return e.Err.Error() }

func (e *SubmissionError) Unwrap() error { return e.Err }

// wrapSubmission classifies err and attaches the matching user-facing
// message. Already wrapped errors pass through unchanged.
func wrapSubmission(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SubmissionError); ok {
		return se
	}

	class := errclass.Classify(err)
	msg := MsgUnknown
	switch class {
	case errclass.Network:
		msg = MsgNetwork
	case errclass.Session:
		msg = MsgSession
	case errclass.Database:
		msg = MsgDatabase
	}
	return &SubmissionError{Class: class, Message: msg, Err: err}
}

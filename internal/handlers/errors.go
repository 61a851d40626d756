package handlers

import (
	"github.com/pkg/errors"
)

// ErrorKind names every way a turn can go off the happy path. Only
// KindTranscriptionFailure and KindProposalFailure abort a turn.
type ErrorKind string

const (
	KindInputMissing         ErrorKind = "input_missing"
	KindUtteranceTooShort    ErrorKind = "utterance_too_short"
	KindTranscriptionFailure ErrorKind = "transcription_failure"
	KindProposalFailure      ErrorKind = "proposal_failure"
	KindProposalParseFailure ErrorKind = "proposal_parse_failure"
	KindSynthesisFailure     ErrorKind = "synthesis_failure"
)

var (
	ErrTranscription = errors.New("transcription failed")
	ErrProposal      = errors.New("reasoning failed")
)

// TurnError is returned for the two fatal kinds. It matches ErrTranscription
// or ErrProposal with errors.Is and also unwraps to the upstream cause.
type TurnError struct {
	Kind ErrorKind
	Err  error
}

func (e *TurnError) Error() string {
	return e.sentinel().Error() + ": " + e.Err.Error()
}

func (e *TurnError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *TurnError) sentinel() error {
	if e.Kind == KindTranscriptionFailure {
		return ErrTranscription
	}
	return ErrProposal
}

// PublicMessage is the error text shown to clients. Upstream details stay
// in the logs.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrTranscription):
		return "Fout bij luisteren"
	case errors.Is(err, ErrProposal):
		return "Fout bij nadenken"
	default:
		return "Onbekende server fout"
	}
}

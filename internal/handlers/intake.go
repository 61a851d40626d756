package handlers

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/tussenheid/volunteer-intake/internal/intake"
	"github.com/tussenheid/volunteer-intake/internal/llm"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/models"
	"github.com/tussenheid/volunteer-intake/internal/prompts"
)

// MinUtteranceLength is the shortest trimmed utterance, in runes, that is
// sent to the model.
const MinUtteranceLength = 2

// TranscriptRecorder keeps an optional per-session transcript that is fed
// back into the prompt. memory.Manager implements it.
type TranscriptRecorder interface {
	History(ctx context.Context, sessionID string) (string, error)
	RecordTurn(ctx context.Context, sessionID, userText, botText string) error
}

// CompletionNotifier is told about every turn that finishes the intake.
type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, event models.CompletionEvent) error
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	Response *models.TurnResponse
	// Profile is the client's profile with this turn's fields merged in.
	Profile      intake.Profile
	Known        intake.KnownSet
	Degradations []ErrorKind
}

// IntakeHandler runs one intake turn at a time per call and keeps no state
// between calls; it is safe for concurrent use.
type IntakeHandler struct {
	registry    *intake.Registry
	transcriber llm.Transcriber
	proposer    llm.Proposer
	synthesizer llm.Synthesizer
	transcript  TranscriptRecorder
	notifier    CompletionNotifier
	logger      *logger.Logger
	callTimeout time.Duration
	now         func() time.Time
}

type Option func(*IntakeHandler)

func WithRegistry(r *intake.Registry) Option {
	return func(h *IntakeHandler) {
		h.registry = r
	}
}

// WithSynthesizer enables spoken replies. Without one, audio is always empty.
func WithSynthesizer(s llm.Synthesizer) Option {
	return func(h *IntakeHandler) {
		h.synthesizer = s
	}
}

func WithTranscript(t TranscriptRecorder) Option {
	return func(h *IntakeHandler) {
		h.transcript = t
	}
}

func WithNotifier(n CompletionNotifier) Option {
	return func(h *IntakeHandler) {
		h.notifier = n
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(h *IntakeHandler) {
		h.logger = l
	}
}

// WithCallTimeout bounds each external call; zero leaves them unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(h *IntakeHandler) {
		h.callTimeout = d
	}
}

func NewIntakeHandler(transcriber llm.Transcriber, proposer llm.Proposer, opts ...Option) *IntakeHandler {
	h := &IntakeHandler{
		registry:    intake.DefaultRegistry(),
		transcriber: transcriber,
		proposer:    proposer,
		logger:      logger.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IntakeHandler) Registry() *intake.Registry {
	return h.registry
}

// ProcessTurn handles one utterance. It returns a *TurnError when
// transcription or the proposal call fails; every other problem degrades
// into a normal reply.
func (h *IntakeHandler) ProcessTurn(ctx context.Context, req *models.TurnRequest) (*TurnResult, error) {
	log := h.logger.WithContext(ctx).With(logger.Fields{"session_id": req.SessionID})

	current := h.registry.Sanitize(req.CurrentData)
	known := h.registry.DeriveInitialKnown(req.KnownFields, current)

	if !req.HasAudio() && req.TextInput == "" {
		log.Info("Turn without audio or text")
		return h.cannedTurn(current, known, prompts.NoInputReply, KindInputMissing), nil
	}

	userText, err := h.resolveUtterance(ctx, req)
	if err != nil {
		log.Error("Transcription failed", logger.Fields{"error": err.Error()})
		return nil, &TurnError{Kind: KindTranscriptionFailure, Err: err}
	}

	if utf8.RuneCountInString(strings.TrimSpace(userText)) < MinUtteranceLength {
		log.Info("Utterance too short", logger.Fields{"length": len(userText)})
		return h.cannedTurn(current, known, prompts.NotHeardReply, KindUtteranceTooShort), nil
	}

	prompt, err := prompts.BuildIntakePrompt(prompts.IntakeContext{
		Registry:  h.registry,
		Known:     known,
		Current:   current,
		Utterance: userText,
		History:   h.history(ctx, req.SessionID, log),
	})
	if err != nil {
		return nil, &TurnError{Kind: KindProposalFailure, Err: err}
	}

	raw, err := h.propose(ctx, prompt)
	if err != nil {
		log.Error("Proposal failed", logger.Fields{"error": err.Error()})
		return nil, &TurnError{Kind: KindProposalFailure, Err: err}
	}

	var degradations []ErrorKind

	proposal := prompts.ParseProposal(raw)
	if proposal.Status == prompts.ProposalUnparsed {
		log.Warn("Proposal was not valid JSON, replying with raw text", logger.Fields{"error": proposal.Err.Error()})
		degradations = append(degradations, KindProposalParseFailure)
	}

	extracted := h.registry.Sanitize(proposal.Extracted)
	nextKnown := h.registry.Advance(known, extracted)
	finished := h.registry.IsComplete(nextKnown) || proposal.ModelFinished()

	audio, err := h.synthesize(ctx, proposal.Reply)
	if err != nil {
		log.Warn("Speech synthesis failed, replying without audio", logger.Fields{"error": err.Error()})
		degradations = append(degradations, KindSynthesisFailure)
		audio = nil
	}

	profile := intake.Merge(current, extracted)
	h.record(ctx, req.SessionID, userText, proposal.Reply, log)
	if finished {
		h.notify(ctx, req.SessionID, profile, nextKnown, log)
	}

	log.Info("Turn processed", logger.Fields{
		"extracted":    len(extracted),
		"known":        nextKnown.Len(),
		"finished":     finished,
		"degradations": degradations,
	})

	return &TurnResult{
		Response:     BuildResponse(userText, proposal.Reply, audio, extracted, nextKnown, finished),
		Profile:      profile,
		Known:        nextKnown,
		Degradations: degradations,
	}, nil
}

func (h *IntakeHandler) cannedTurn(current intake.Profile, known intake.KnownSet, reply string, kind ErrorKind) *TurnResult {
	return &TurnResult{
		Response:     BuildResponse("", reply, nil, intake.Profile{}, known, false),
		Profile:      current,
		Known:        known,
		Degradations: []ErrorKind{kind},
	}
}

// resolveUtterance prefers audio over text when both are given.
func (h *IntakeHandler) resolveUtterance(ctx context.Context, req *models.TurnRequest) (string, error) {
	if !req.HasAudio() {
		return req.TextInput, nil
	}
	if h.transcriber == nil {
		return "", errors.New("no transcriber configured")
	}

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	return h.transcriber.Transcribe(callCtx, *req.Audio)
}

func (h *IntakeHandler) propose(ctx context.Context, prompt prompts.Prompt) (string, error) {
	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	return h.proposer.Propose(callCtx, prompt)
}

func (h *IntakeHandler) synthesize(ctx context.Context, text string) ([]byte, error) {
	if h.synthesizer == nil || text == "" {
		return nil, nil
	}

	callCtx, cancel := h.callContext(ctx)
	defer cancel()
	return h.synthesizer.Synthesize(callCtx, text)
}

func (h *IntakeHandler) history(ctx context.Context, sessionID string, log *logger.Logger) string {
	if h.transcript == nil || sessionID == "" {
		return ""
	}

	history, err := h.transcript.History(ctx, sessionID)
	if err != nil {
		log.Warn("Could not load session history", logger.Fields{"error": err.Error()})
		return ""
	}
	return history
}

func (h *IntakeHandler) record(ctx context.Context, sessionID, userText, botText string, log *logger.Logger) {
	if h.transcript == nil || sessionID == "" {
		return
	}

	if err := h.transcript.RecordTurn(ctx, sessionID, userText, botText); err != nil {
		log.Warn("Could not record turn", logger.Fields{"error": err.Error()})
	}
}

func (h *IntakeHandler) notify(ctx context.Context, sessionID string, profile intake.Profile, known intake.KnownSet, log *logger.Logger) {
	if h.notifier == nil {
		return
	}

	event := models.CompletionEvent{
		SessionID:   sessionID,
		Profile:     profile.Map(),
		KnownFields: known.Strings(),
		CompletedAt: h.now().UTC(),
	}
	if err := h.notifier.NotifyCompleted(ctx, event); err != nil {
		log.Warn("Could not publish completion event", logger.Fields{"error": err.Error()})
	}
}

func (h *IntakeHandler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.callTimeout)
}

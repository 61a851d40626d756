package llm

import (
	"context"

	"github.com/tussenheid/volunteer-intake/internal/models"
	"github.com/tussenheid/volunteer-intake/internal/prompts"
)

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio models.Audio) (string, error)
}

// Proposer asks the model for the next reply and the fields it found. The
// returned payload is unparsed; see prompts.ParseProposal.
type Proposer interface {
	Propose(ctx context.Context, prompt prompts.Prompt) (string, error)
}

// Synthesizer renders reply text as audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

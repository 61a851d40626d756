package llm

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/tussenheid/volunteer-intake/internal/prompts"
)

// ChatProposer runs the proposal step on any langchaingo model in JSON mode.
type ChatProposer struct {
	model       llms.Model
	temperature float64
}

func NewChatProposer(model llms.Model) *ChatProposer {
	return &ChatProposer{
		model:       model,
		temperature: 0.2,
	}
}

// NewOpenAIProposer wires a ChatProposer to an OpenAI chat model.
func NewOpenAIProposer(apiKey, model, baseURL string) (*ChatProposer, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenAI chat model")
	}
	return NewChatProposer(llm), nil
}

func (p *ChatProposer) Propose(ctx context.Context, prompt prompts.Prompt) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt.User),
	}

	resp, err := p.model.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(p.temperature),
	)
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Content, nil
}

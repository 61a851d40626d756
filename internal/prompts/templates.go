package prompts

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	lcprompts "github.com/tmc/langchaingo/prompts"

	"github.com/tussenheid/volunteer-intake/internal/intake"
)

const SystemPrompt = `Je bent de vriendelijke, professionele AI-intakecoördinator van 'Tussenheid'.

Velden die we van een vrijwilliger willen weten:
{{ .fields }}
Al beantwoord: {{ .known }}
Nog open: {{ .missing }}

Huidige data (JSON): {{ .current }}
{{ if .history }}
Eerdere gesprek:
{{ .history }}
{{ end }}
Jouw doel: verzamel de ontbrekende velden. Stel max 1 vraag tegelijk.

Instructies:
1. Haal uit de input van de gebruiker alleen waarden voor de velden hierboven.
2. Zet in extracted_data alleen velden die in DEZE beurt genoemd of gewijzigd zijn.
3. Stel een vervolgvraag als er iets mist.
4. Houd het antwoord KORT (max 2 zinnen).
5. Zet is_finished op true als alle velden bekend zijn of het gesprek klaar is.
6. Antwoord ALTIJD in valide JSON.

JSON Formaat:
{
  "bot_response": "Tekst om uit te spreken",
  "extracted_data": { "veldnaam": "waarde" },
  "is_finished": false
}`

const (
	// NoInputReply answers a turn without audio or text.
	NoInputReply = "Ik hoorde niets. Kunt u dat herhalen?"
	// NotHeardReply answers an utterance too short to act on.
	NotHeardReply = "Excuus, ik hoorde u niet goed. Kunt u dat herhalen?"
	// FallbackMessage is used when the model gave no usable reply.
	FallbackMessage = "Een moment geduld alstublieft."
)

var systemTemplate = lcprompts.PromptTemplate{
	Template:       SystemPrompt,
	InputVariables: []string{"fields", "known", "missing", "current", "history"},
	TemplateFormat: lcprompts.TemplateFormatGoTemplate,
}

// Prompt is what the proposal step sends to the model.
type Prompt struct {
	System string
	User   string
}

// IntakeContext is the state a proposal is asked about.
type IntakeContext struct {
	Registry  *intake.Registry
	Known     intake.KnownSet
	Current   intake.Profile
	Utterance string
	History   string
}

// BuildIntakePrompt renders the system prompt for one turn. Only registry
// fields are mentioned; the utterance becomes the user message.
func BuildIntakePrompt(c IntakeContext) (Prompt, error) {
	current, err := json.Marshal(c.Current.Map())
	if err != nil {
		return Prompt{}, errors.Wrap(err, "failed to encode current data")
	}

	system, err := systemTemplate.Format(map[string]any{
		"fields":  buildFieldsSection(c.Registry.Fields()),
		"known":   joinNames(c.Known.Names()),
		"missing": buildMissingSection(c.Registry.Missing(c.Known)),
		"current": string(current),
		"history": strings.TrimSpace(c.History),
	})
	if err != nil {
		return Prompt{}, errors.Wrap(err, "failed to render system prompt")
	}

	return Prompt{System: system, User: c.Utterance}, nil
}

func buildFieldsSection(fields []intake.Field) string {
	var builder strings.Builder
	for _, f := range fields {
		builder.WriteString("- ")
		builder.WriteString(string(f.Name))
		if f.Description != "" {
			builder.WriteString(": ")
			builder.WriteString(f.Description)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func buildMissingSection(fields []intake.Field) string {
	names := make([]intake.FieldName, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return joinNames(names)
}

func joinNames(names []intake.FieldName) string {
	if len(names) == 0 {
		return "geen"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

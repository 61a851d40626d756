package prompts

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ProposalStatus tags the outcome of ParseProposal.
type ProposalStatus int

const (
	ProposalParsed ProposalStatus = iota
	ProposalUnparsed
)

func (s ProposalStatus) String() string {
	if s == ProposalParsed {
		return "parsed"
	}
	return "unparsed"
}

// Proposal is the model's answer for one turn. Extracted is never nil and
// still needs sanitizing; Finished is nil when the model did not say.
type Proposal struct {
	Status    ProposalStatus
	Reply     string
	Extracted map[string]any
	Finished  *bool
	Raw       string
	Err       error
}

// ModelFinished reports whether the model declared the intake done.
func (p Proposal) ModelFinished() bool {
	return p.Finished != nil && *p.Finished
}

var errNotObject = errors.New("proposal is not a JSON object")

// ParseProposal reads the model payload. Code fences are stripped before
// decoding. An undecodable payload is used as the reply verbatim unless it
// starts with "{", in which case FallbackMessage is used. Parse failures are
// reported in Err and are never fatal.
func ParseProposal(raw string) Proposal {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(stripCodeFences(raw)), &fields)
	if err == nil && fields == nil {
		err = errNotObject
	}
	if err != nil {
		reply := FallbackMessage
		if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
			reply = raw
		}
		return Proposal{
			Status:    ProposalUnparsed,
			Reply:     reply,
			Extracted: map[string]any{},
			Raw:       raw,
			Err:       errors.Wrap(err, "failed to parse proposal"),
		}
	}

	p := Proposal{
		Status:    ProposalParsed,
		Reply:     FallbackMessage,
		Extracted: map[string]any{},
		Raw:       raw,
	}

	var reply string
	if json.Unmarshal(fields["bot_response"], &reply) == nil && reply != "" {
		p.Reply = reply
	}

	var extracted map[string]any
	if json.Unmarshal(fields["extracted_data"], &extracted) == nil && extracted != nil {
		p.Extracted = extracted
	}

	var finished *bool
	if json.Unmarshal(fields["is_finished"], &finished) == nil {
		p.Finished = finished
	}

	return p
}

func stripCodeFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

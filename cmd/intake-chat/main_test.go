package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/intake"
	"github.com/tussenheid/volunteer-intake/internal/models"
)

// scriptedProcessor answers each turn with the next scripted extraction.
type scriptedProcessor struct {
	steps    []map[string]any
	requests []*models.TurnRequest
	failOn   int
}

func (p *scriptedProcessor) ProcessTurn(_ context.Context, req *models.TurnRequest) (*handlers.TurnResult, error) {
	p.requests = append(p.requests, req)
	i := len(p.requests) - 1
	if p.failOn == i+1 {
		return nil, &handlers.TurnError{Kind: handlers.KindProposalFailure, Err: errors.New("boom")}
	}

	registry := intake.DefaultRegistry()
	extracted := registry.Sanitize(p.steps[i%len(p.steps)])
	current := registry.Sanitize(req.CurrentData)
	known := registry.Advance(registry.DeriveInitialKnown(req.KnownFields, current), extracted)

	return &handlers.TurnResult{
		Response: handlers.BuildResponse(req.TextInput, "ok", []byte("mp3"), extracted, known, registry.IsComplete(known)),
	}, nil
}

func TestRunChatCarriesStateUntilFinished(t *testing.T) {
	processor := &scriptedProcessor{steps: []map[string]any{
		{"naam": "Jan", "postcode": "3511AB"},
		{"type_werk": []any{"natuur"}},
		{"beschikbaarheid": "weekend", "contact": "06-12345678"},
		{"naam": "nooit bereikt"},
	}}
	in := strings.NewReader("Ik ben Jan uit Utrecht\nIets met natuur\nIn het weekend, bel 06-12345678\nnog meer\n")
	out := &bytes.Buffer{}
	dir := filepath.Join(t.TempDir(), "audio")

	err := runChat(context.Background(), processor, in, out, &chatOptions{sessionID: "s-1", audioDir: dir})
	require.NoError(t, err)

	require.Len(t, processor.requests, 3)
	last := processor.requests[2]
	assert.Equal(t, "s-1", last.SessionID)
	assert.Equal(t, []string{"naam", "postcode", "type_werk"}, last.KnownFields)
	assert.Equal(t, map[string]any{
		"naam":      "Jan",
		"postcode":  "3511AB",
		"type_werk": []string{"natuur"},
	}, last.CurrentData)

	assert.Contains(t, out.String(), "Coördinator: ok")
	assert.Contains(t, out.String(), "Intake compleet:")
	assert.Contains(t, out.String(), `"contact": "06-12345678"`)

	data, err := os.ReadFile(filepath.Join(dir, "turn-03.mp3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), data)
}

func TestRunChatReportsErrorsAndStopsAtEOF(t *testing.T) {
	processor := &scriptedProcessor{steps: []map[string]any{{}}, failOn: 1}
	out := &bytes.Buffer{}

	err := runChat(context.Background(), processor, strings.NewReader("eerste\ntweede\n"), out, &chatOptions{})
	require.NoError(t, err)

	assert.Len(t, processor.requests, 2)
	assert.NotEmpty(t, processor.requests[0].SessionID)
	assert.Equal(t, processor.requests[0].SessionID, processor.requests[1].SessionID)
	assert.Contains(t, out.String(), "! Fout bij nadenken")
	assert.NotContains(t, out.String(), "Intake compleet")
}

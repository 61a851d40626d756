package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tussenheid/volunteer-intake/internal/config"
	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/models"
)

func TestDecodeTurnMessage(t *testing.T) {
	req, err := DecodeTurnMessage([]byte(`{
		"sessionId": "s-1",
		"textInput": "hallo",
		"audioBase64": "d2VibQ==",
		"knownFields": ["naam"],
		"currentData": {"naam": "Jan"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "s-1", req.SessionID)
	assert.Equal(t, "hallo", req.TextInput)
	assert.Equal(t, []string{"naam"}, req.KnownFields)
	assert.Equal(t, map[string]any{"naam": "Jan"}, req.CurrentData)
	require.NotNil(t, req.Audio)
	assert.Equal(t, []byte("webm"), req.Audio.Data)
	assert.Equal(t, "recording.webm", req.Audio.Filename)

	req, err = DecodeTurnMessage([]byte(`{"textInput":"x","audioFilename":"a.mp3"}`))
	require.NoError(t, err)
	assert.Nil(t, req.Audio)

	_, err = DecodeTurnMessage([]byte(`{"audioBase64":"%%%"}`))
	require.Error(t, err)

	_, err = DecodeTurnMessage([]byte(`not json`))
	require.Error(t, err)
}

func newTestNATSTransport(processor TurnProcessor) *NATSTransport {
	cfg := &config.Config{NatsRequestSubject: "intake.turn", OpenAITimeout: time.Second}
	return NewNATSTransport(nil, cfg, processor, logger.Discard())
}

func TestNATSReply(t *testing.T) {
	processor := &recordingProcessor{}
	nt := newTestNATSTransport(processor)
	assert.Equal(t, 3*time.Second, nt.turnTimeout)

	var resp models.TurnResponse
	require.NoError(t, json.Unmarshal(nt.reply([]byte(`{"textInput":"Mijn naam is Jan","knownFields":["naam"]}`)), &resp))
	assert.Equal(t, "Mijn naam is Jan", resp.UserText)
	assert.Equal(t, []string{"naam"}, resp.KnownFields)
	assert.Equal(t, "Mijn naam is Jan", processor.got.TextInput)
}

func TestNATSReplyErrors(t *testing.T) {
	var resp models.ErrorResponse

	nt := newTestNATSTransport(&recordingProcessor{})
	require.NoError(t, json.Unmarshal(nt.reply([]byte(`{`)), &resp))
	assert.Equal(t, "Ongeldig verzoek", resp.Error)

	nt = newTestNATSTransport(&recordingProcessor{
		err: &handlers.TurnError{Kind: handlers.KindProposalFailure, Err: errors.New("429")},
	})
	require.NoError(t, json.Unmarshal(nt.reply([]byte(`{"textInput":"hallo"}`)), &resp))
	assert.Equal(t, "Fout bij nadenken", resp.Error)
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestCompletionPublisher(t *testing.T) {
	pub := &fakePublisher{}
	p := NewCompletionPublisher(pub, "intake.completed")
	completedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	err := p.NotifyCompleted(context.Background(), models.CompletionEvent{
		SessionID:   "s-1",
		Profile:     map[string]any{"naam": "Jan"},
		KnownFields: []string{"naam"},
		CompletedAt: completedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, "intake.completed", pub.subject)
	assert.JSONEq(t, `{
		"sessionId": "s-1",
		"profile": {"naam": "Jan"},
		"knownFields": ["naam"],
		"completedAt": "2026-03-01T09:30:00Z"
	}`, string(pub.data))

	pub.err = errors.New("connection closed")
	err = p.NotifyCompleted(context.Background(), models.CompletionEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intake.completed")
}

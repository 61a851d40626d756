package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/tussenheid/volunteer-intake/internal/models"
	"github.com/tussenheid/volunteer-intake/internal/prompts"
)

func newFakeOpenAI(t *testing.T, fail bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			writeAPIError(w)
			return
		}
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "nl", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "clip.m4a", header.Filename)
		assert.Equal(t, "fake-audio", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Mijn naam is Jan"}`))
	})
	mux.HandleFunc("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			writeAPIError(w)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tts-1", body["model"])
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, "Hallo Jan", body["input"])
		assert.Equal(t, "mp3", body["response_format"])

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-mp3"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeAPIError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
}

func TestAudioClientTranscribe(t *testing.T) {
	srv := newFakeOpenAI(t, false)
	client := NewAudioClient("test-key", srv.URL+"/v1/", WithLanguage("nl"))

	text, err := client.Transcribe(context.Background(), models.Audio{Data: []byte("fake-audio"), Filename: "clip.m4a"})

	require.NoError(t, err)
	assert.Equal(t, "Mijn naam is Jan", text)
}

func TestAudioClientTranscribeFailure(t *testing.T) {
	srv := newFakeOpenAI(t, true)
	client := NewAudioClient("test-key", srv.URL+"/v1")

	_, err := client.Transcribe(context.Background(), models.Audio{Data: []byte("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription request failed")
}

func TestAudioClientSynthesize(t *testing.T) {
	srv := newFakeOpenAI(t, false)
	client := NewAudioClient("test-key", srv.URL+"/v1")

	audio, err := client.Synthesize(context.Background(), "Hallo Jan")

	require.NoError(t, err)
	assert.Equal(t, "ID3-fake-mp3", string(audio))
}

func TestAudioClientSynthesizeFailure(t *testing.T) {
	srv := newFakeOpenAI(t, true)
	client := NewAudioClient("test-key", srv.URL+"/v1")

	_, err := client.Synthesize(context.Background(), "Hallo Jan")

	require.Error(t, err)
}

type stubModel struct {
	content  string
	err      error
	empty    bool
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.opts)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.empty {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.content}}}, nil
}

func (m *stubModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return m.content, m.err
}

func TestChatProposerSendsSystemAndUserMessages(t *testing.T) {
	model := &stubModel{content: `{"bot_response":"Hoi"}`}
	p := NewChatProposer(model)

	out, err := p.Propose(context.Background(), prompts.Prompt{System: "sys", User: "Mijn naam is Jan"})

	require.NoError(t, err)
	assert.Equal(t, `{"bot_response":"Hoi"}`, out)
	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: "sys"}, model.messages[0].Parts[0])
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "Mijn naam is Jan"}, model.messages[1].Parts[0])
	assert.True(t, model.opts.JSONMode)
}

func TestChatProposerErrors(t *testing.T) {
	_, err := NewChatProposer(&stubModel{err: errors.New("rate limited")}).
		Propose(context.Background(), prompts.Prompt{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewChatProposer(&stubModel{empty: true}).
		Propose(context.Background(), prompts.Prompt{User: "x"})
	require.Error(t, err)
}

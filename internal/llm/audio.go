package llm

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/tussenheid/volunteer-intake/internal/models"
)

const defaultAudioFilename = "recording.webm"

// AudioClient talks to the OpenAI audio endpoints for both directions.
type AudioClient struct {
	client             *openai.Client
	transcriptionModel string
	language           string
	speechModel        string
	voice              string
}

type AudioOption func(*AudioClient)

func WithTranscriptionModel(model string) AudioOption {
	return func(c *AudioClient) {
		if model != "" {
			c.transcriptionModel = model
		}
	}
}

// WithLanguage pins the transcription language; empty means auto-detect.
func WithLanguage(language string) AudioOption {
	return func(c *AudioClient) {
		c.language = language
	}
}

func WithSpeechModel(model string) AudioOption {
	return func(c *AudioClient) {
		if model != "" {
			c.speechModel = model
		}
	}
}

func WithVoice(voice string) AudioOption {
	return func(c *AudioClient) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// NewAudioClient builds a client against baseURL, or the public API when
// baseURL is empty.
func NewAudioClient(apiKey, baseURL string, opts ...AudioOption) *AudioClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	c := &AudioClient{
		client:             openai.NewClientWithConfig(cfg),
		transcriptionModel: openai.Whisper1,
		speechModel:        string(openai.TTSModel1),
		voice:              string(openai.VoiceNova),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads the recording under its original filename so the
// service can detect the container format from the extension.
func (c *AudioClient) Transcribe(ctx context.Context, audio models.Audio) (string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = defaultAudioFilename
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Language: c.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", errors.Wrap(err, "transcription request failed")
	}

	return resp.Text, nil
}

// Synthesize returns mp3 bytes for text.
func (c *AudioClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "speech request failed")
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read speech audio")
	}
	return data, nil
}

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/models"
)

const (
	defaultAudioFilename = "recording.webm"
	// multipart overhead allowed on top of the audio limit
	formSlack = 1 << 20
)

var errAudioTooLarge = errors.New("audio upload too large")

// TurnProcessor runs a single intake turn. handlers.IntakeHandler implements it.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req *models.TurnRequest) (*handlers.TurnResult, error)
}

type HTTPTransport struct {
	processor     TurnProcessor
	log           *logger.Logger
	maxAudioBytes int64
}

func NewHTTPTransport(processor TurnProcessor, log *logger.Logger, maxAudioBytes int64) *HTTPTransport {
	return &HTTPTransport{
		processor:     processor,
		log:           log,
		maxAudioBytes: maxAudioBytes,
	}
}

// Router wires the intake routes and the access log middleware.
func (t *HTTPTransport) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(t.log))

	router.HandleFunc("/process-intake", t.ProcessIntake).Methods(http.MethodPost)
	router.HandleFunc("/v1/intake/turn", t.ProcessIntake).Methods(http.MethodPost)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	return router
}

func (t *HTTPTransport) ProcessIntake(w http.ResponseWriter, r *http.Request) {
	req, err := t.decodeForm(w, r)
	if err != nil {
		t.log.Warn("Rejected intake request", logger.Fields{"error": err.Error()})
		msg := "Ongeldig verzoek"
		if errors.Is(err, errAudioTooLarge) {
			msg = "Audiobestand is te groot"
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg})
		return
	}

	result, err := t.processor.ProcessTurn(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: handlers.PublicMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, result.Response)
}

func (t *HTTPTransport) decodeForm(w http.ResponseWriter, r *http.Request) (*models.TurnRequest, error) {
	if t.maxAudioBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, t.maxAudioBytes+formSlack)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, errAudioTooLarge
			}
			return nil, errors.Wrap(err, "failed to parse multipart form")
		}
		if err := r.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "failed to parse form")
		}
	}

	audio, err := t.readAudio(r)
	if err != nil {
		return nil, err
	}

	currentRaw := r.FormValue("currentData")
	if isBlankJSON(currentRaw) {
		currentRaw = r.FormValue("extractedData")
	}

	return &models.TurnRequest{
		SessionID:   strings.TrimSpace(r.FormValue("sessionId")),
		TextInput:   r.FormValue("textInput"),
		Audio:       audio,
		KnownFields: parseKnownFields(r.FormValue("knownFields")),
		CurrentData: parseCurrentData(currentRaw),
	}, nil
}

func (t *HTTPTransport) readAudio(r *http.Request) (*models.Audio, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read audio")
	}
	defer file.Close()

	if t.maxAudioBytes > 0 && header.Size > t.maxAudioBytes {
		return nil, errAudioTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio")
	}
	if len(data) == 0 {
		return nil, nil
	}

	filename := header.Filename
	if filename == "" || filename == "blob" {
		filename = defaultAudioFilename
	}
	return &models.Audio{Data: data, Filename: filename}, nil
}

// parseKnownFields accepts a JSON array and keeps its string elements.
// Anything else yields no names.
func parseKnownFields(raw string) []string {
	if isBlankJSON(raw) {
		return nil
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

// parseCurrentData accepts a JSON object; anything else yields nil.
func parseCurrentData(raw string) map[string]any {
	if isBlankJSON(raw) {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data
}

// Browsers send these literals for unset form values.
func isBlankJSON(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "undefined", "null":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

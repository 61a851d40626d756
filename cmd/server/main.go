package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/tussenheid/volunteer-intake/internal/config"
	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/llm"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/memory"
	"github.com/tussenheid/volunteer-intake/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat).With(logger.Fields{"service": cfg.ServiceName})
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", logger.Fields{"error": err.Error()})
	}

	log.Info("Starting volunteer intake service", logger.Fields{
		"http_addr":  cfg.HTTPAddr,
		"chat_model": cfg.OpenAIChatModel,
		"nats":       cfg.NatsURL != "",
		"redis":      cfg.RedisURL != "",
	})

	audio := llm.NewAudioClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL,
		llm.WithTranscriptionModel(cfg.OpenAITranscriptionModel),
		llm.WithLanguage(cfg.OpenAITranscriptionLanguage),
		llm.WithSpeechModel(cfg.OpenAITTSModel),
		llm.WithVoice(cfg.OpenAITTSVoice),
	)

	proposer, err := llm.NewOpenAIProposer(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatal("Failed to initialize chat model", logger.Fields{"error": err.Error()})
	}

	opts := []handlers.Option{
		handlers.WithSynthesizer(audio),
		handlers.WithLogger(log),
		handlers.WithCallTimeout(cfg.OpenAITimeout),
	}

	// Session transcripts are optional; the profile always travels with the client.
	var memoryManager *memory.Manager
	if cfg.RedisURL != "" {
		redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, cfg.HistoryLimit)
		if err != nil {
			log.Fatal("Failed to connect to Redis", logger.Fields{"error": err.Error()})
		}
		memoryManager = memory.NewManager(redisStore, cfg.HistoryLimit)
		opts = append(opts, handlers.WithTranscript(memoryManager))
		log.Info("Redis transcript store connected", logger.Fields{"ttl": cfg.SessionTTL.String()})
	}

	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = transport.ConnectNATS(cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize NATS", logger.Fields{"error": err.Error()})
		}
		defer natsConn.Close()
		opts = append(opts, handlers.WithNotifier(transport.NewCompletionPublisher(natsConn, cfg.NatsCompletedSubject)))
	}

	intakeHandler := handlers.NewIntakeHandler(audio, proposer, opts...)

	var natsTransport *transport.NATSTransport
	if natsConn != nil {
		natsTransport = transport.NewNATSTransport(natsConn, cfg, intakeHandler, log)
		if err := natsTransport.Start(); err != nil {
			log.Fatal("Failed to start NATS transport", logger.Fields{"error": err.Error()})
		}
	}

	httpTransport := transport.NewHTTPTransport(intakeHandler, log, cfg.MaxAudioBytes)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpTransport.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.Fields{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", logger.Fields{"error": err.Error()})
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Shutting down gracefully", logger.Fields{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Fields{"error": err.Error()})
	}

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			log.Error("Error closing NATS transport", logger.Fields{"error": err.Error()})
		}
	}

	if memoryManager != nil {
		if err := memoryManager.Close(); err != nil {
			log.Error("Error closing memory manager", logger.Fields{"error": err.Error()})
		}
	}

	log.Info("Volunteer intake service stopped")
}

package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/tussenheid/volunteer-intake/internal/config"
	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/models"
)

const natsQueueGroup = "intake-workers"

// ConnectNATS dials the configured server with unlimited reconnects.
func ConnectNATS(cfg *config.Config, log *logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("Disconnected from NATS", logger.Fields{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("Reconnected to NATS", logger.Fields{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	log.Info("Connected to NATS server", logger.Fields{"url": cfg.NatsURL})
	return conn, nil
}

// NATSTransport answers turn requests on a queue subscription so several
// service instances can share the load.
type NATSTransport struct {
	conn        *nats.Conn
	sub         *nats.Subscription
	subject     string
	processor   TurnProcessor
	log         *logger.Logger
	turnTimeout time.Duration
}

func NewNATSTransport(conn *nats.Conn, cfg *config.Config, processor TurnProcessor, log *logger.Logger) *NATSTransport {
	return &NATSTransport{
		conn:      conn,
		subject:   cfg.NatsRequestSubject,
		processor: processor,
		log:       log,
		// a turn makes up to three sequential upstream calls
		turnTimeout: 3 * cfg.OpenAITimeout,
	}
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.subject, natsQueueGroup, nt.handleTurnRequest)
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", nt.subject)
	}
	nt.sub = sub

	nt.log.Info("Subscribed to subject", logger.Fields{"subject": nt.subject, "queue": natsQueueGroup})
	return nil
}

func (nt *NATSTransport) handleTurnRequest(msg *nats.Msg) {
	reply := nt.reply(msg.Data)
	if err := msg.Respond(reply); err != nil {
		nt.log.Error("Failed to send response", logger.Fields{"error": err.Error()})
	}
}

// reply turns one request payload into the response payload.
func (nt *NATSTransport) reply(data []byte) []byte {
	req, err := DecodeTurnMessage(data)
	if err != nil {
		nt.log.Warn("Invalid turn request", logger.Fields{"error": err.Error()})
		return mustMarshal(models.ErrorResponse{Error: "Ongeldig verzoek"})
	}

	ctx := context.Background()
	if nt.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nt.turnTimeout)
		defer cancel()
	}

	result, err := nt.processor.ProcessTurn(ctx, req)
	if err != nil {
		return mustMarshal(models.ErrorResponse{Error: handlers.PublicMessage(err)})
	}
	return mustMarshal(result.Response)
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Drain(); err != nil {
			return errors.Wrap(err, "failed to drain subscription")
		}
	}
	return nil
}

// DecodeTurnMessage parses a NATS turn request. Audio is base64 encoded.
func DecodeTurnMessage(data []byte) (*models.TurnRequest, error) {
	var msg models.TurnMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(err, "invalid request format")
	}

	req := &models.TurnRequest{
		SessionID:   msg.SessionID,
		TextInput:   msg.TextInput,
		KnownFields: msg.KnownFields,
		CurrentData: msg.CurrentData,
	}

	if msg.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid audio encoding")
		}
		filename := msg.AudioFilename
		if filename == "" {
			filename = defaultAudioFilename
		}
		req.Audio = &models.Audio{Data: audio, Filename: filename}
	}

	return req, nil
}

// Publisher is the subset of *nats.Conn used for events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// CompletionPublisher publishes finished intakes for downstream matching.
type CompletionPublisher struct {
	publisher Publisher
	subject   string
}

func NewCompletionPublisher(publisher Publisher, subject string) *CompletionPublisher {
	return &CompletionPublisher{publisher: publisher, subject: subject}
}

func (p *CompletionPublisher) NotifyCompleted(_ context.Context, event models.CompletionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal completion event")
	}
	if err := p.publisher.Publish(p.subject, data); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", p.subject)
	}
	return nil
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(models.ErrorResponse{Error: "Onbekende server fout"})
	}
	return data
}

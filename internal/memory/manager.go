package memory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	lcmemory "github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
)

const (
	HumanPrefix = "Gebruiker"
	AIPrefix    = "Coördinator"
)

// Manager records intake transcripts and renders them as prompt history
// through a LangChainGo conversation buffer. It holds no per-session state
// of its own, so concurrent turns only meet in the Store.
type Manager struct {
	store        Store
	historyLimit int
	now          func() time.Time
}

// NewManager creates a new memory manager. historyLimit bounds how many of
// the latest messages History returns; zero means all.
func NewManager(store Store, historyLimit int) *Manager {
	return &Manager{
		store:        store,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// RecordTurn saves the user utterance and the bot reply of one turn
func (m *Manager) RecordTurn(ctx context.Context, sessionID, userText, botText string) error {
	ts := m.now()
	var msgs []Message
	if userText != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: userText, Timestamp: ts})
	}
	if botText != "" {
		msgs = append(msgs, Message{Role: RoleAssistant, Content: botText, Timestamp: ts})
	}

	if err := m.store.AppendMessages(ctx, sessionID, msgs...); err != nil {
		return errors.Wrapf(err, "failed to record turn for session %s", sessionID)
	}
	return nil
}

// History returns the latest messages of a session formatted for a prompt,
// or "" when there are none.
func (m *Manager) History(ctx context.Context, sessionID string) (string, error) {
	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return "", errors.Wrap(err, "failed to load session")
	}

	msgs := session.Messages
	if m.historyLimit > 0 && len(msgs) > m.historyLimit {
		msgs = msgs[len(msgs)-m.historyLimit:]
	}
	if len(msgs) == 0 {
		return "", nil
	}

	buffer, err := m.buffer(ctx, msgs)
	if err != nil {
		return "", err
	}

	vars, err := buffer.LoadMemoryVariables(ctx, map[string]any{})
	if err != nil {
		return "", errors.Wrap(err, "failed to load memory variables")
	}

	history, ok := vars[buffer.GetMemoryKey(ctx)].(string)
	if !ok {
		return "", errors.Errorf("unexpected history type %T", vars[buffer.GetMemoryKey(ctx)])
	}
	return history, nil
}

// ClearSession forgets a transcript
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (m *Manager) buffer(ctx context.Context, msgs []Message) (*lcmemory.ConversationBuffer, error) {
	buffer := lcmemory.NewConversationBuffer(
		lcmemory.WithHumanPrefix(HumanPrefix),
		lcmemory.WithAIPrefix(AIPrefix),
	)

	for _, msg := range msgs {
		var chatMsg schema.ChatMessage

		switch msg.Role {
		case RoleUser:
			chatMsg = schema.HumanChatMessage{Content: msg.Content}
		case RoleAssistant:
			chatMsg = schema.AIChatMessage{Content: msg.Content}
		default:
			continue
		}

		if err := buffer.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, errors.Wrap(err, "failed to add message to memory")
		}
	}
	return buffer, nil
}

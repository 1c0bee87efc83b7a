package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"integen/api/internal/ids"
	"integen/api/internal/llm"
	"integen/api/internal/models"
	"integen/api/internal/store"
)

var (
	ErrEmptyPrompt = errors.New("prompt required")
	// ErrUpstream wraps completion API failures. A missing API key is
	// not an error: the relay degrades to a placeholder instead.
	ErrUpstream = errors.New("completion provider error")
)

type Completer interface {
	Complete(ctx context.Context, prompt string, model string) (llm.Completion, error)
}

type ChatService struct {
	store     store.Store
	completer Completer // nil means offline placeholder mode
	timeout   time.Duration
	log       zerolog.Logger
}

func NewChatService(st store.Store, completer Completer, log zerolog.Logger) *ChatService {
	return &ChatService{
		store:     st,
		completer: completer,
		timeout:   30 * time.Second,
		log:       log,
	}
}

type ChatReply struct {
	Text    string
	Model   string
	Offline bool
}

// Relay forwards the prompt to the completion API, or echoes a canned
// placeholder when no provider is configured. Each produced response is
// appended to the message log.
func (s *ChatService) Relay(ctx context.Context, prompt string, model string) (ChatReply, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ChatReply{}, ErrEmptyPrompt
	}

	reply := ChatReply{Offline: s.completer == nil}

	if s.completer == nil {
		reply.Text = fmt.Sprintf("InteGen offline demo answer for: %q. Set OPENAI_API_KEY to enable real responses.", prompt)
	} else {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		completion, err := s.completer.Complete(callCtx, prompt, model)
		cancel()
		if err != nil {
			s.log.Error().Err(err).Msg("completion request failed")
			return ChatReply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		reply.Text = completion.Text
		reply.Model = completion.Model
	}

	record := models.MessageRecord{
		ID:        ids.New(),
		Prompt:    prompt,
		Response:  reply.Text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, record); err != nil {
		// The reply was already produced; losing the log entry should
		// not fail the request.
		s.log.Error().Err(err).Msg("append message record failed")
	}

	return reply, nil
}

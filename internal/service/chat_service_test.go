package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"integen/api/internal/llm"
)

type fakeCompleter struct {
	completion llm.Completion
	err        error
	calls      int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, model string) (llm.Completion, error) {
	f.calls++
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return f.completion, nil
}

func TestChatService_EmptyPrompt(t *testing.T) {
	st := newTestStore(t)
	svc := NewChatService(st, nil, zerolog.Nop())

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := svc.Relay(context.Background(), prompt, "")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}

	messages, err := st.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages, "a rejected prompt must not be logged")
}

func TestChatService_OfflinePlaceholder(t *testing.T) {
	st := newTestStore(t)
	svc := NewChatService(st, nil, zerolog.Nop())

	reply, err := svc.Relay(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.True(t, reply.Offline)
	assert.Contains(t, reply.Text, "hello")

	messages, err := st.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Prompt)
	assert.Equal(t, reply.Text, messages[0].Response)
}

func TestChatService_ForwardsToCompleter(t *testing.T) {
	st := newTestStore(t)
	completer := &fakeCompleter{completion: llm.Completion{Text: "hi there", Model: "gpt-4o-mini"}}
	svc := NewChatService(st, completer, zerolog.Nop())

	reply, err := svc.Relay(context.Background(), "hello", "gpt-4o-mini")
	require.NoError(t, err)
	assert.False(t, reply.Offline)
	assert.Equal(t, "hi there", reply.Text)
	assert.Equal(t, 1, completer.calls)

	messages, err := st.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi there", messages[0].Response)
}

func TestChatService_UpstreamFailure(t *testing.T) {
	st := newTestStore(t)
	completer := &fakeCompleter{err: assert.AnError}
	svc := NewChatService(st, completer, zerolog.Nop())

	_, err := svc.Relay(context.Background(), "hello", "")
	assert.ErrorIs(t, err, ErrUpstream)
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1282saa/ringringv2/internal/domain"
)

// fakeParams implements ParamGetter with per-name values.
type fakeParams struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return v, nil
}

// fakeModel implements ModelInvoker, recording the last invocation.
type fakeModel struct {
	answer   string
	err      error
	modelID  string
	system   string
	maxTok   int
	messages []domain.ChatMessage
}

func (f *fakeModel) Invoke(_ context.Context, modelID, system string, maxTokens int, messages []domain.ChatMessage) (string, error) {
	f.modelID = modelID
	f.system = system
	f.maxTok = maxTokens
	f.messages = messages
	return f.answer, f.err
}

// fakeMemoryReader implements MemoryReader.
type fakeMemoryReader struct {
	record *domain.UserMemory
	err    error
}

func (f *fakeMemoryReader) GetUserMemory(_ context.Context, _ string) (*domain.UserMemory, error) {
	return f.record, f.err
}

func newChatService(t *testing.T, params *fakeParams, model *fakeModel, memory *fakeMemoryReader) *ChatService {
	t.Helper()
	s, err := NewChatService(params, model, memory, "/ringring")
	require.NoError(t, err)
	return s
}

func TestNewChatService_Validation(t *testing.T) {
	_, err := NewChatService(nil, &fakeModel{}, &fakeMemoryReader{}, "/p")
	require.Error(t, err)
	_, err = NewChatService(&fakeParams{}, nil, &fakeMemoryReader{}, "/p")
	require.Error(t, err)
	_, err = NewChatService(&fakeParams{}, &fakeModel{}, nil, "/p")
	require.Error(t, err)
	_, err = NewChatService(&fakeParams{}, &fakeModel{}, &fakeMemoryReader{}, "  ")
	require.Error(t, err)
}

func TestChat_HappyPath(t *testing.T) {
	model := &fakeModel{answer: "Nice to meet you!"}
	s := newChatService(t, &fakeParams{}, model, &fakeMemoryReader{})

	out, err := s.Chat(context.Background(), ChatInput{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "Hi"}},
		Settings: map[string]any{"accent": "uk", "level": "advanced"},
	})
	require.NoError(t, err)
	require.Equal(t, "Nice to meet you!", out.Message)
	require.Equal(t, domain.RoleAssistant, out.Role)
	require.Equal(t, chatMaxTokens, model.maxTok)
	require.Contains(t, model.system, "British English")
}

func TestChat_DefaultFirstMessage(t *testing.T) {
	model := &fakeModel{answer: "Hello!"}
	s := newChatService(t, &fakeParams{}, model, &fakeMemoryReader{})

	_, err := s.Chat(context.Background(), ChatInput{})
	require.NoError(t, err)
	require.Len(t, model.messages, 1)
	require.Equal(t, domain.RoleUser, model.messages[0].Role)
	require.Contains(t, model.messages[0].Content, "start our English practice")
}

func TestChat_InjectsUserMemory(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	memory := &fakeMemoryReader{record: &domain.UserMemory{Memory: map[string]any{
		"name":    "Kim",
		"hobbies": []any{"climbing"},
	}}}
	s := newChatService(t, &fakeParams{}, model, memory)

	_, err := s.Chat(context.Background(), ChatInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Contains(t, model.system, "Name: Kim")
	require.Contains(t, model.system, "climbing")
}

func TestChat_MemoryFailureIsIgnored(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	memory := &fakeMemoryReader{err: errors.New("dynamo down")}
	s := newChatService(t, &fakeParams{}, model, memory)

	out, err := s.Chat(context.Background(), ChatInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Message)
}

func TestChat_NoMemoryLookupWithoutUserID(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	s := newChatService(t, &fakeParams{}, model, &fakeMemoryReader{err: errors.New("must not be called")})

	_, err := s.Chat(context.Background(), ChatInput{})
	require.NoError(t, err)
}

func TestChat_ModelErrorIsUpstream(t *testing.T) {
	model := &fakeModel{err: errors.New("throttled")}
	s := newChatService(t, &fakeParams{}, model, &fakeMemoryReader{})

	_, err := s.Chat(context.Background(), ChatInput{})
	require.Error(t, err)

	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorUpstream, ucErr.Code)
	require.Equal(t, "bedrock_chat_error", ucErr.Reason)
}

func TestModelID_FallsBackToDefault(t *testing.T) {
	s := newChatService(t, &fakeParams{err: errors.New("ssm down")}, &fakeModel{}, &fakeMemoryReader{})
	require.Equal(t, defaultModelID, s.ModelID(context.Background()))
}

func TestModelID_ReadsConfiguredValue(t *testing.T) {
	params := &fakeParams{values: map[string]string{
		"/ringring/config/bedrock_model": "anthropic.claude-3-5-sonnet-20240620-v1:0",
	}}
	s := newChatService(t, params, &fakeModel{}, &fakeMemoryReader{})
	require.Equal(t, "anthropic.claude-3-5-sonnet-20240620-v1:0", s.ModelID(context.Background()))
}

func TestConfig_CachedUntilInvalidated(t *testing.T) {
	params := &fakeParams{values: map[string]string{}}
	s := newChatService(t, params, &fakeModel{}, &fakeMemoryReader{})

	_ = s.ModelID(context.Background())
	first := params.calls
	_ = s.ModelID(context.Background())
	require.Equal(t, first, params.calls, "config must be cached")

	s.InvalidateConfig()
	_ = s.ModelID(context.Background())
	require.Greater(t, params.calls, first, "invalidation must force a reload")
}

func TestChat_PinnedPromptPrepended(t *testing.T) {
	params := &fakeParams{values: map[string]string{
		"/ringring/pinned_prompt": "Always praise effort.",
	}}
	model := &fakeModel{answer: "ok"}
	s := newChatService(t, params, model, &fakeMemoryReader{})

	_, err := s.Chat(context.Background(), ChatInput{})
	require.NoError(t, err)
	require.Contains(t, model.system, "Always praise effort.")
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/1282saa/ringringv2/internal/domain"
)

const (
	defaultModelID   = "anthropic.claude-3-haiku-20240307-v1:0"
	chatMaxTokens    = 300
	analyzeMaxTokens = 1500
	extractMaxTokens = 1000
)

// ParamGetter resolves runtime configuration from Parameter Store.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ModelInvoker is the LLM dependency shared by chat, analysis, and memory
// extraction.
type ModelInvoker interface {
	Invoke(ctx context.Context, modelID, system string, maxTokens int, messages []domain.ChatMessage) (string, error)
}

// MemoryReader loads stored user facts for prompt personalization.
type MemoryReader interface {
	GetUserMemory(ctx context.Context, userID string) (*domain.UserMemory, error)
}

// ChatService produces one assistant turn per request.
type ChatService struct {
	params      ParamGetter
	model       ModelInvoker
	memory      MemoryReader
	paramPrefix string

	// Runtime config cached for the process lifetime; InvalidateConfig
	// forces a reload on next use.
	cacheMu      sync.RWMutex
	cacheLoaded  bool
	modelID      string
	pinnedPrompt string
}

type ChatInput struct {
	Messages []domain.ChatMessage
	Settings map[string]any
	UserID   string
}

type ChatOutput struct {
	Message string
	Role    string
}

func NewChatService(p ParamGetter, model ModelInvoker, memory MemoryReader, paramPrefix string) (*ChatService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: model invoker must not be nil")
	}
	if memory == nil {
		return nil, errors.New("usecase: memory reader must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	return &ChatService{
		params:      p,
		model:       model,
		memory:      memory,
		paramPrefix: paramPrefix,
	}, nil
}

// Chat builds the system prompt from settings plus remembered user facts and
// asks the model for the next assistant turn.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	modelID, pinned := s.config(ctx)

	system := buildSystemPrompt(in.Settings, pinned)
	if in.UserID != "" {
		// Memory is best effort: a read failure never blocks the conversation.
		if mem, err := s.memory.GetUserMemory(ctx, in.UserID); err == nil && mem != nil {
			system += buildMemoryPrompt(mem.Memory)
		}
	}

	messages := in.Messages
	if len(messages) == 0 {
		messages = []domain.ChatMessage{{Role: domain.RoleUser, Content: "Hello, let's start our English practice session."}}
	}

	answer, err := s.model.Invoke(ctx, modelID, system, chatMaxTokens, messages)
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "bedrock_chat_error", err)
	}
	return ChatOutput{Message: answer, Role: domain.RoleAssistant}, nil
}

// ModelID returns the configured model id, loading config if needed. Shared
// with the analysis and memory services so all model calls agree.
func (s *ChatService) ModelID(ctx context.Context) string {
	modelID, _ := s.config(ctx)
	return modelID
}

func (s *ChatService) config(ctx context.Context) (modelID, pinned string) {
	s.ensureConfig(ctx)
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.modelID, s.pinnedPrompt
}

// InvalidateConfig drops the cached runtime config so the next call reloads
// it from Parameter Store.
func (s *ChatService) InvalidateConfig() {
	s.cacheMu.Lock()
	s.cacheLoaded = false
	s.cacheMu.Unlock()
}

// ensureConfig lazily loads runtime config. Both parameters are optional:
// a missing model id falls back to the default, a missing pinned prompt
// means no addition.
func (s *ChatService) ensureConfig(ctx context.Context) {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return
	}

	modelID, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/bedrock_model")
	if err != nil || strings.TrimSpace(modelID) == "" {
		modelID = defaultModelID
	}
	pinned, err := s.params.GetParameter(ctx, s.paramPrefix+"/pinned_prompt")
	if err != nil {
		pinned = ""
	}

	s.modelID = modelID
	s.pinnedPrompt = pinned
	s.cacheLoaded = true
}

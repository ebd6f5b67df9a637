package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

// MemoryStore is the store surface the memory service depends on.
type MemoryStore interface {
	Put(ctx context.Context, record any) error
	GetUserMemory(ctx context.Context, userID string) (*domain.UserMemory, error)
}

// ModelConfig resolves the model id used for generation calls. Satisfied by
// *ChatService so every service invokes the same configured model.
type ModelConfig interface {
	ModelID(ctx context.Context) string
}

// MemoryService maintains long-term per-user facts and extracts new ones
// from finished conversations.
type MemoryService struct {
	store MemoryStore
	model ModelInvoker
	cfg   ModelConfig
}

func NewMemoryService(s MemoryStore, model ModelInvoker, cfg ModelConfig) (*MemoryService, error) {
	if s == nil {
		return nil, errors.New("usecase: memory store must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: model invoker must not be nil")
	}
	if cfg == nil {
		return nil, errors.New("usecase: model config must not be nil")
	}
	return &MemoryService{store: s, model: model, cfg: cfg}, nil
}

// Save merges the incoming facts into the user's stored memory and persists
// the result. Merging never drops an existing fact: scalars are replaced,
// lists grow by distinct append, and empty incoming values are ignored.
func (s *MemoryService) Save(ctx context.Context, userID string, incoming map[string]any) (map[string]any, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "missing_user", nil)
	}
	existing, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := domain.MergeMemory(existing, incoming)
	if err := s.store.Put(ctx, store.NewUserMemory(userID, merged)); err != nil {
		return nil, newError(ErrorInternal, "memory_write_error", err)
	}
	return merged, nil
}

// Get returns the user's stored memory; an empty map when none exists.
func (s *MemoryService) Get(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "missing_user", nil)
	}
	return s.load(ctx, userID)
}

// Extract runs the fact-extraction prompt over a finished conversation,
// merges whatever the model found into stored memory, and returns the merged
// result. A model response with no parseable JSON object yields no new facts
// rather than an error.
func (s *MemoryService) Extract(ctx context.Context, userID string, messages []domain.ChatMessage) (map[string]any, error) {
	if userID == "" {
		return nil, newError(ErrorInvalidInput, "missing_user", nil)
	}
	if len(messages) == 0 {
		return s.load(ctx, userID)
	}

	prompt := buildExtractionPrompt(formatConversation(messages))
	raw, err := s.model.Invoke(ctx, s.cfg.ModelID(ctx), "", extractMaxTokens, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, newError(ErrorUpstream, "bedrock_extract_error", err)
	}

	extracted := parseJSONObject(raw)
	if len(extracted) == 0 {
		return s.load(ctx, userID)
	}
	return s.Save(ctx, userID, extracted)
}

func (s *MemoryService) load(ctx context.Context, userID string) (map[string]any, error) {
	rec, err := s.store.GetUserMemory(ctx, userID)
	if err != nil {
		return nil, newError(ErrorInternal, "memory_read_error", err)
	}
	if rec == nil || rec.Memory == nil {
		return map[string]any{}, nil
	}
	return rec.Memory, nil
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// parseJSONObject pulls the first JSON object out of a model response,
// tolerating surrounding prose and markdown code fences.
func parseJSONObject(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return nil
	}
	return out
}

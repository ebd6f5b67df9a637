package usecase

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/1282saa/ringringv2/internal/domain"
)

// Filler words scanned for locally, so the filler report survives a model
// failure. Longer phrases come first to keep "you know" from also counting
// its "know".
var fillerWords = []string{
	"you know", "i mean", "kind of", "sort of",
	"basically", "actually", "literally",
	"um", "uh", "like", "so", "well",
}

var fillerPatterns = compileFillerPatterns()

func compileFillerPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(fillerWords))
	for i, w := range fillerWords {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return patterns
}

// AnalyzeService scores a finished conversation: model-driven CAFP scoring
// with a deterministic local fallback.
type AnalyzeService struct {
	model ModelInvoker
	cfg   ModelConfig
}

func NewAnalyzeService(model ModelInvoker, cfg ModelConfig) (*AnalyzeService, error) {
	if model == nil {
		return nil, errors.New("usecase: model invoker must not be nil")
	}
	if cfg == nil {
		return nil, errors.New("usecase: model config must not be nil")
	}
	return &AnalyzeService{model: model, cfg: cfg}, nil
}

type AnalyzeOutput struct {
	Analysis map[string]any
	Fallback bool
}

// Analyze asks the model for a full CAFP report over the conversation. When
// the model fails or returns no parseable JSON, a locally computed report
// takes its place: real filler and vocabulary counts, fixed scores, generic
// feedback.
func (s *AnalyzeService) Analyze(ctx context.Context, messages []domain.ChatMessage) (AnalyzeOutput, error) {
	if len(messages) == 0 {
		return AnalyzeOutput{}, newError(ErrorInvalidInput, "no_messages", nil)
	}

	prompt := buildAnalysisPrompt(formatConversation(messages))
	raw, err := s.model.Invoke(ctx, s.cfg.ModelID(ctx), "", analyzeMaxTokens, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	})
	if err == nil {
		if analysis := parseJSONObject(raw); analysis != nil {
			return AnalyzeOutput{Analysis: analysis}, nil
		}
	}
	return AnalyzeOutput{Analysis: fallbackAnalysis(messages), Fallback: true}, nil
}

// fallbackAnalysis builds the deterministic report from the student's text
// alone.
func fallbackAnalysis(messages []domain.ChatMessage) map[string]any {
	userText := strings.ToLower(studentText(messages))
	fillers := scanFillers(userText)

	words := strings.Fields(userText)
	unique := map[string]struct{}{}
	for _, w := range words {
		unique[w] = struct{}{}
	}
	wordCount := len(words)

	percentage := 0.0
	if wordCount > 0 {
		percentage = math.Round(float64(len(fillers))/float64(wordCount)*1000) / 10
	}

	return map[string]any{
		"cafp_scores": map[string]any{
			"complexity":    70,
			"accuracy":      75,
			"fluency":       72,
			"pronunciation": 78,
		},
		"fillers": map[string]any{
			"count":      len(fillers),
			"words":      fillers,
			"percentage": percentage,
		},
		"grammar_corrections": []any{},
		"vocabulary": map[string]any{
			"total_words":     wordCount,
			"unique_words":    len(unique),
			"advanced_words":  []any{},
			"suggested_words": []any{},
		},
		"overall_feedback": "대화를 잘 하셨습니다! 계속 연습하시면 더 좋아질 거예요.",
		"improvement_tips": []any{
			"더 다양한 어휘를 사용해보세요",
			"문장을 조금 더 길게 만들어보세요",
			"필러 단어 사용을 줄여보세요",
		},
	}
}

func studentText(messages []domain.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, " ")
}

// scanFillers returns every filler occurrence in order of the filler list,
// one entry per match.
func scanFillers(lowerText string) []string {
	var found []string
	for i, pattern := range fillerPatterns {
		for range pattern.FindAllString(lowerText, -1) {
			found = append(found, fillerWords[i])
		}
	}
	return found
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1282saa/ringringv2/internal/domain"
)

type fakeModelConfig struct {
	modelID string
}

func (f *fakeModelConfig) ModelID(context.Context) string { return f.modelID }

func newAnalyzeService(t *testing.T, model *fakeModel) *AnalyzeService {
	t.Helper()
	s, err := NewAnalyzeService(model, &fakeModelConfig{modelID: "model-x"})
	require.NoError(t, err)
	return s
}

func TestAnalyze_ParsesModelReport(t *testing.T) {
	model := &fakeModel{answer: "```json\n{\"cafp_scores\": {\"fluency\": 88}}\n```"}
	s := newAnalyzeService(t, model)

	out, err := s.Analyze(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "I went to the market yesterday."},
	})
	require.NoError(t, err)
	require.False(t, out.Fallback)
	scores, ok := out.Analysis["cafp_scores"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(88), scores["fluency"])
	require.Equal(t, "model-x", model.modelID)
}

func TestAnalyze_FallsBackOnModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("throttled")}
	s := newAnalyzeService(t, model)

	out, err := s.Analyze(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "Um, I like went to, you know, the park."},
		{Role: domain.RoleAssistant, Content: "That sounds lovely! What did you do there?"},
	})
	require.NoError(t, err)
	require.True(t, out.Fallback)

	scores := out.Analysis["cafp_scores"].(map[string]any)
	require.Equal(t, 70, scores["complexity"])
	require.Equal(t, 78, scores["pronunciation"])

	fillers := out.Analysis["fillers"].(map[string]any)
	// "you know", "um", "like" — and only from the student's turn.
	require.Equal(t, 3, fillers["count"])
	require.ElementsMatch(t, []string{"you know", "um", "like"}, fillers["words"])

	vocab := out.Analysis["vocabulary"].(map[string]any)
	require.Equal(t, 9, vocab["total_words"])
}

func TestAnalyze_FallsBackOnUnparseableAnswer(t *testing.T) {
	model := &fakeModel{answer: "Great conversation, well done!"}
	s := newAnalyzeService(t, model)

	out, err := s.Analyze(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	require.True(t, out.Fallback)
	require.NotEmpty(t, out.Analysis["overall_feedback"])
}

func TestAnalyze_RejectsEmptyConversation(t *testing.T) {
	s := newAnalyzeService(t, &fakeModel{})
	_, err := s.Analyze(context.Background(), nil)
	requireCode(t, err, ErrorInvalidInput)
}

func TestScanFillers_LongPhrasesConsumeTheirWords(t *testing.T) {
	found := scanFillers("you know, i kind of like it")
	require.ElementsMatch(t, []string{"you know", "kind of", "like"}, found)
}

func TestScanFillers_WordBoundaries(t *testing.T) {
	// "solid" and "umbrella" must not count as "so" and "um".
	found := scanFillers("a solid umbrella")
	require.Empty(t, found)
}

package usecase

import (
	"context"
	"errors"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

// Free-plan daily allowances. The counters reset implicitly at midnight KST
// because each day has its own record.
const (
	freeDailyChatLimit    = 50
	freeDailyTtsLimit     = 100
	freeDailyAnalyzeLimit = 10
)

// UsageStore is the store surface the usage service depends on.
type UsageStore interface {
	GetUsage(ctx context.Context, deviceID, day string) (*domain.DailyUsage, error)
	IncrementUsage(ctx context.Context, deviceID, field string) (domain.DailyUsage, error)
}

// UsageService tracks and reports per-device daily quota consumption.
type UsageService struct {
	store UsageStore
}

func NewUsageService(s UsageStore) (*UsageService, error) {
	if s == nil {
		return nil, errors.New("usecase: usage store must not be nil")
	}
	return &UsageService{store: s}, nil
}

// UsageReport is today's consumption against the device's plan limits.
type UsageReport struct {
	Date         string `json:"date"`
	Plan         string `json:"plan"`
	ChatCount    int    `json:"chatCount"`
	TtsCount     int    `json:"ttsCount"`
	AnalyzeCount int    `json:"analyzeCount"`
	ChatLimit    int    `json:"chatLimit"`
	TtsLimit     int    `json:"ttsLimit"`
	AnalyzeLimit int    `json:"analyzeLimit"`
	ResetTime    string `json:"resetTime"`
}

// Get reports today's usage. A device that has consumed nothing today gets a
// zeroed report rather than an error.
func (s *UsageService) Get(ctx context.Context, deviceID string) (UsageReport, error) {
	if deviceID == "" {
		return UsageReport{}, newError(ErrorInvalidInput, "missing_device", nil)
	}
	today := domain.TodayKST()
	rec, err := s.store.GetUsage(ctx, deviceID, today)
	if err != nil {
		return UsageReport{}, newError(ErrorInternal, "usage_read_error", err)
	}

	report := UsageReport{
		Date:         today,
		Plan:         "free",
		ChatLimit:    freeDailyChatLimit,
		TtsLimit:     freeDailyTtsLimit,
		AnalyzeLimit: freeDailyAnalyzeLimit,
		ResetTime:    today + "T00:00:00+09:00",
	}
	if rec != nil {
		report.ChatCount = rec.ChatCount
		report.TtsCount = rec.TtsCount
		report.AnalyzeCount = rec.AnalyzeCount
		if rec.Plan != "" {
			report.Plan = rec.Plan
		}
	}
	return report, nil
}

// Increment bumps one usage counter and returns the updated report. The
// usage type is a closed set; anything else is rejected before touching the
// store.
func (s *UsageService) Increment(ctx context.Context, deviceID, usageType string) (UsageReport, error) {
	if deviceID == "" {
		return UsageReport{}, newError(ErrorInvalidInput, "missing_device", nil)
	}

	var field string
	switch usageType {
	case "chat":
		field = store.UsageFieldChat
	case "tts":
		field = store.UsageFieldTts
	case "analyze":
		field = store.UsageFieldAnalyze
	default:
		return UsageReport{}, newError(ErrorInvalidInput, "unknown_usage_type", nil)
	}

	rec, err := s.store.IncrementUsage(ctx, deviceID, field)
	if err != nil {
		return UsageReport{}, newError(ErrorInternal, "usage_write_error", err)
	}

	report := UsageReport{
		Date:         domain.TodayKST(),
		Plan:         "free",
		ChatCount:    rec.ChatCount,
		TtsCount:     rec.TtsCount,
		AnalyzeCount: rec.AnalyzeCount,
		ChatLimit:    freeDailyChatLimit,
		TtsLimit:     freeDailyTtsLimit,
		AnalyzeLimit: freeDailyAnalyzeLimit,
		ResetTime:    domain.TodayKST() + "T00:00:00+09:00",
	}
	if rec.Plan != "" {
		report.Plan = rec.Plan
	}
	return report, nil
}

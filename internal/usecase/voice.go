package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

// VoiceStore is the store surface the voice service depends on.
type VoiceStore interface {
	Put(ctx context.Context, record any) error
	GetCustomVoice(ctx context.Context, userID string) (*domain.CustomVoice, error)
}

// VoiceCloner creates a reusable synthetic voice from a speech sample.
type VoiceCloner interface {
	CloneVoice(ctx context.Context, voiceName string, audio []byte) (string, error)
}

// VoiceService manages per-user cloned voices. Each user holds at most one;
// cloning again replaces it.
type VoiceService struct {
	store  VoiceStore
	cloner VoiceCloner
	media  Media
}

func NewVoiceService(s VoiceStore, cloner VoiceCloner, media Media) (*VoiceService, error) {
	if s == nil {
		return nil, errors.New("usecase: voice store must not be nil")
	}
	if cloner == nil {
		return nil, errors.New("usecase: voice cloner must not be nil")
	}
	if media == nil {
		return nil, errors.New("usecase: media must not be nil")
	}
	return &VoiceService{store: s, cloner: cloner, media: media}, nil
}

type CloneVoiceInput struct {
	UserID    string
	VoiceName string
	AudioData string
}

type CloneVoiceOutput struct {
	VoiceID   string
	VoiceName string
}

// Clone decodes the base64 speech sample, archives it, clones a voice from
// it, and records the resulting voice id against the user.
func (s *VoiceService) Clone(ctx context.Context, in CloneVoiceInput) (CloneVoiceOutput, error) {
	if in.UserID == "" || in.AudioData == "" {
		return CloneVoiceOutput{}, newError(ErrorInvalidInput, "missing_user_or_audio", nil)
	}
	raw, err := decodeBase64Payload(in.AudioData)
	if err != nil {
		return CloneVoiceOutput{}, newError(ErrorInvalidInput, "invalid_audio_encoding", err)
	}

	voiceName := in.VoiceName
	if voiceName == "" {
		voiceName = "MyVoice"
	}

	sampleKey := fmt.Sprintf("voice-samples/%s/%d.webm", in.UserID, time.Now().UnixMilli())
	if err := s.media.Put(ctx, sampleKey, raw, "audio/webm"); err != nil {
		return CloneVoiceOutput{}, newError(ErrorInternal, "sample_upload_error", err)
	}

	voiceID, err := s.cloner.CloneVoice(ctx, voiceName, raw)
	if err != nil {
		return CloneVoiceOutput{}, newError(ErrorUpstream, "voice_clone_error", err)
	}

	rec := store.NewCustomVoice(in.UserID, voiceID, voiceName, sampleKey)
	if err := s.store.Put(ctx, rec); err != nil {
		return CloneVoiceOutput{}, newError(ErrorInternal, "voice_write_error", err)
	}
	return CloneVoiceOutput{VoiceID: voiceID, VoiceName: voiceName}, nil
}

// CustomVoiceID returns the user's cloned voice id, or "" when none exists.
func (s *VoiceService) CustomVoiceID(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	rec, err := s.store.GetCustomVoice(ctx, userID)
	if err != nil {
		return "", newError(ErrorInternal, "voice_read_error", err)
	}
	if rec == nil {
		return "", nil
	}
	return rec.VoiceID, nil
}

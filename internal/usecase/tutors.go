package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

func tutorImageKey(deviceID string) string {
	return fmt.Sprintf("tutors/%s/%d.jpg", deviceID, time.Now().UnixMilli())
}

// TutorStore is the store surface the tutor service depends on.
type TutorStore interface {
	Put(ctx context.Context, record any) error
	GetCustomTutor(ctx context.Context, deviceID string) (*domain.CustomTutor, error)
	DeleteCustomTutor(ctx context.Context, deviceID string) error
}

// TutorService manages the per-device custom tutor persona.
type TutorService struct {
	store TutorStore
	media Media
}

func NewTutorService(s TutorStore, media Media) (*TutorService, error) {
	if s == nil {
		return nil, errors.New("usecase: tutor store must not be nil")
	}
	if media == nil {
		return nil, errors.New("usecase: media must not be nil")
	}
	return &TutorService{store: s, media: media}, nil
}

type SaveTutorInput struct {
	DeviceID          string
	TutorName         string
	ImageData         string
	ConversationStyle string
	Accent            string
	Gender            string
	Tags              []string
	VoiceID           string
}

// Save overwrites the device's custom tutor. When image data is supplied it
// is stored first and the resulting key is recorded; a previous image under
// a different key is removed.
func (s *TutorService) Save(ctx context.Context, in SaveTutorInput) (*TutorView, error) {
	if in.DeviceID == "" || in.TutorName == "" {
		return nil, newError(ErrorInvalidInput, "missing_device_or_tutor_name", nil)
	}

	prev, err := s.store.GetCustomTutor(ctx, in.DeviceID)
	if err != nil {
		return nil, newError(ErrorInternal, "tutor_read_error", err)
	}

	imageKey := ""
	if prev != nil {
		imageKey = prev.ImageKey
	}
	if in.ImageData != "" {
		raw, err := decodeBase64Payload(in.ImageData)
		if err != nil {
			return nil, newError(ErrorInvalidInput, "invalid_image_encoding", err)
		}
		key := tutorImageKey(in.DeviceID)
		if err := s.media.Put(ctx, key, raw, "image/jpeg"); err != nil {
			return nil, newError(ErrorInternal, "image_upload_error", err)
		}
		if imageKey != "" && imageKey != key {
			_ = s.media.Delete(ctx, imageKey)
		}
		imageKey = key
	}

	rec := store.NewCustomTutor(in.DeviceID, domain.CustomTutor{
		TutorName:         in.TutorName,
		ImageKey:          imageKey,
		ConversationStyle: in.ConversationStyle,
		Accent:            in.Accent,
		Gender:            in.Gender,
		Tags:              in.Tags,
		VoiceID:           in.VoiceID,
	})
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, newError(ErrorInternal, "tutor_write_error", err)
	}
	return s.view(ctx, &rec)
}

// TutorView is the tutor record with a freshly derived image URL.
type TutorView struct {
	TutorName         string   `json:"tutorName"`
	ImageKey          string   `json:"imageKey,omitempty"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	ConversationStyle string   `json:"conversationStyle,omitempty"`
	Accent            string   `json:"accent,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	VoiceID           string   `json:"voiceId,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

// Get returns the device's custom tutor, or nil when none was saved.
func (s *TutorService) Get(ctx context.Context, deviceID string) (*TutorView, error) {
	if deviceID == "" {
		return nil, newError(ErrorInvalidInput, "missing_device", nil)
	}
	rec, err := s.store.GetCustomTutor(ctx, deviceID)
	if err != nil {
		return nil, newError(ErrorInternal, "tutor_read_error", err)
	}
	if rec == nil {
		return nil, nil
	}
	return s.view(ctx, rec)
}

// Delete removes the custom tutor and its image.
func (s *TutorService) Delete(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return newError(ErrorInvalidInput, "missing_device", nil)
	}
	rec, err := s.store.GetCustomTutor(ctx, deviceID)
	if err != nil {
		return newError(ErrorInternal, "tutor_read_error", err)
	}
	if err := s.store.DeleteCustomTutor(ctx, deviceID); err != nil {
		return newError(ErrorInternal, "tutor_delete_error", err)
	}
	if rec != nil && rec.ImageKey != "" {
		_ = s.media.Delete(ctx, rec.ImageKey)
	}
	return nil
}

func (s *TutorService) view(ctx context.Context, rec *domain.CustomTutor) (*TutorView, error) {
	view := &TutorView{
		TutorName:         rec.TutorName,
		ImageKey:          rec.ImageKey,
		ConversationStyle: rec.ConversationStyle,
		Accent:            rec.Accent,
		Gender:            rec.Gender,
		Tags:              rec.Tags,
		VoiceID:           rec.VoiceID,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.ImageKey != "" {
		url, err := s.media.PresignGet(ctx, rec.ImageKey)
		if err != nil {
			return nil, newError(ErrorInternal, "image_presign_error", err)
		}
		view.ImageURL = url
	}
	return view, nil
}

package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

// Media is the blob storage surface shared by image- and audio-handling
// services.
type Media interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// PetStore is the store surface the pet service depends on.
type PetStore interface {
	Put(ctx context.Context, record any) error
	GetPet(ctx context.Context, deviceID string) (*domain.PetCharacter, error)
	DeletePet(ctx context.Context, deviceID string) error
}

// PetService manages the per-device pet character and its image.
type PetService struct {
	store PetStore
	media Media
}

func NewPetService(s PetStore, media Media) (*PetService, error) {
	if s == nil {
		return nil, errors.New("usecase: pet store must not be nil")
	}
	if media == nil {
		return nil, errors.New("usecase: media must not be nil")
	}
	return &PetService{store: s, media: media}, nil
}

// UploadImage decodes a base64 image, stores it, and returns the object key
// plus a presigned download URL. Only the key is meant to be persisted; the
// URL expires.
func (s *PetService) UploadImage(ctx context.Context, deviceID, imageData string) (key, url string, err error) {
	if deviceID == "" || imageData == "" {
		return "", "", newError(ErrorInvalidInput, "missing_device_or_image", nil)
	}
	raw, err := decodeBase64Payload(imageData)
	if err != nil {
		return "", "", newError(ErrorInvalidInput, "invalid_image_encoding", err)
	}

	key = fmt.Sprintf("pets/%s/%d.jpg", deviceID, time.Now().UnixMilli())
	if err := s.media.Put(ctx, key, raw, "image/jpeg"); err != nil {
		return "", "", newError(ErrorInternal, "image_upload_error", err)
	}
	url, err = s.media.PresignGet(ctx, key)
	if err != nil {
		return "", "", newError(ErrorInternal, "image_presign_error", err)
	}
	return key, url, nil
}

// Save overwrites the device's pet record.
func (s *PetService) Save(ctx context.Context, deviceID, petName, imageKey string) error {
	if deviceID == "" || petName == "" {
		return newError(ErrorInvalidInput, "missing_device_or_pet_name", nil)
	}
	rec := store.NewPetCharacter(deviceID, petName, imageKey)
	if err := s.store.Put(ctx, rec); err != nil {
		return newError(ErrorInternal, "pet_write_error", err)
	}
	return nil
}

// PetView is the pet record with a freshly derived image URL.
type PetView struct {
	PetName   string `json:"petName"`
	ImageKey  string `json:"imageKey,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Get returns the device's pet, or nil when none was saved. The image URL is
// presigned on every read from the stored key.
func (s *PetService) Get(ctx context.Context, deviceID string) (*PetView, error) {
	if deviceID == "" {
		return nil, newError(ErrorInvalidInput, "missing_device", nil)
	}
	rec, err := s.store.GetPet(ctx, deviceID)
	if err != nil {
		return nil, newError(ErrorInternal, "pet_read_error", err)
	}
	if rec == nil {
		return nil, nil
	}

	view := &PetView{
		PetName:   rec.PetName,
		ImageKey:  rec.ImageKey,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
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

// Delete removes the pet record and its image. The image delete is best
// effort; the record delete is authoritative.
func (s *PetService) Delete(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return newError(ErrorInvalidInput, "missing_device", nil)
	}
	rec, err := s.store.GetPet(ctx, deviceID)
	if err != nil {
		return newError(ErrorInternal, "pet_read_error", err)
	}
	if err := s.store.DeletePet(ctx, deviceID); err != nil {
		return newError(ErrorInternal, "pet_delete_error", err)
	}
	if rec != nil && rec.ImageKey != "" {
		_ = s.media.Delete(ctx, rec.ImageKey)
	}
	return nil
}

// decodeBase64Payload accepts either a raw base64 string or a data URI
// ("data:image/jpeg;base64,...") and returns the decoded bytes.
func decodeBase64Payload(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+1:]
	}
	return base64.StdEncoding.DecodeString(data)
}

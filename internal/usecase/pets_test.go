package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1282saa/ringringv2/internal/domain"
)

type fakeMedia struct {
	putKey      string
	putBody     []byte
	contentType string
	putErr      error

	deletedKey string
	deleteErr  error

	presignErr error
}

func (f *fakeMedia) Put(_ context.Context, key string, body []byte, contentType string) error {
	f.putKey, f.putBody, f.contentType = key, body, contentType
	return f.putErr
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	f.deletedKey = key
	return f.deleteErr
}

func (f *fakeMedia) PresignGet(_ context.Context, key string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://media.example/" + key + "?signed", nil
}

type fakePetStore struct {
	record    *domain.PetCharacter
	getErr    error
	putErr    error
	put       any
	deleted   string
	deleteErr error
}

func (f *fakePetStore) Put(_ context.Context, record any) error {
	f.put = record
	return f.putErr
}

func (f *fakePetStore) GetPet(_ context.Context, _ string) (*domain.PetCharacter, error) {
	return f.record, f.getErr
}

func (f *fakePetStore) DeletePet(_ context.Context, deviceID string) error {
	f.deleted = deviceID
	return f.deleteErr
}

func newPetService(t *testing.T, fs *fakePetStore, media *fakeMedia) *PetService {
	t.Helper()
	s, err := NewPetService(fs, media)
	require.NoError(t, err)
	return s
}

func TestPetUploadImage_StoresDecodedBytes(t *testing.T) {
	media := &fakeMedia{}
	s := newPetService(t, &fakePetStore{}, media)

	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	key, url, err := s.UploadImage(context.Background(), "dev-1", encoded)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "pets/dev-1/"))
	require.True(t, strings.HasSuffix(key, ".jpg"))
	require.Contains(t, url, key)
	require.Equal(t, []byte("jpeg-bytes"), media.putBody)
	require.Equal(t, "image/jpeg", media.contentType)
}

func TestPetUploadImage_RejectsBadEncoding(t *testing.T) {
	s := newPetService(t, &fakePetStore{}, &fakeMedia{})
	_, _, err := s.UploadImage(context.Background(), "dev-1", "not!!base64")
	requireCode(t, err, ErrorInvalidInput)
}

func TestPetSave_PersistsRecord(t *testing.T) {
	fs := &fakePetStore{}
	s := newPetService(t, fs, &fakeMedia{})

	require.NoError(t, s.Save(context.Background(), "dev-1", "Coco", "pets/dev-1/1.jpg"))
	rec, ok := fs.put.(domain.PetCharacter)
	require.True(t, ok)
	require.Equal(t, "Coco", rec.PetName)
	require.Equal(t, "pets/dev-1/1.jpg", rec.ImageKey)
}

func TestPetSave_RequiresName(t *testing.T) {
	s := newPetService(t, &fakePetStore{}, &fakeMedia{})
	requireCode(t, s.Save(context.Background(), "dev-1", "", ""), ErrorInvalidInput)
}

func TestPetGet_PresignsStoredKey(t *testing.T) {
	fs := &fakePetStore{record: &domain.PetCharacter{PetName: "Coco", ImageKey: "pets/dev-1/1.jpg"}}
	s := newPetService(t, fs, &fakeMedia{})

	view, err := s.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Equal(t, "Coco", view.PetName)
	require.Equal(t, "https://media.example/pets/dev-1/1.jpg?signed", view.ImageURL)
}

func TestPetGet_NilWhenMissing(t *testing.T) {
	s := newPetService(t, &fakePetStore{}, &fakeMedia{})
	view, err := s.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Nil(t, view)
}

func TestPetGet_NoKeyNoURL(t *testing.T) {
	fs := &fakePetStore{record: &domain.PetCharacter{PetName: "Coco"}}
	s := newPetService(t, fs, &fakeMedia{presignErr: errors.New("must not be called")})

	view, err := s.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Empty(t, view.ImageURL)
}

func TestPetDelete_RemovesRecordAndImage(t *testing.T) {
	fs := &fakePetStore{record: &domain.PetCharacter{PetName: "Coco", ImageKey: "pets/dev-1/1.jpg"}}
	media := &fakeMedia{}
	s := newPetService(t, fs, media)

	require.NoError(t, s.Delete(context.Background(), "dev-1"))
	require.Equal(t, "dev-1", fs.deleted)
	require.Equal(t, "pets/dev-1/1.jpg", media.deletedKey)
}

func TestPetDelete_ImageFailureIgnored(t *testing.T) {
	fs := &fakePetStore{record: &domain.PetCharacter{PetName: "Coco", ImageKey: "pets/dev-1/1.jpg"}}
	media := &fakeMedia{deleteErr: errors.New("object locked")}
	s := newPetService(t, fs, media)

	require.NoError(t, s.Delete(context.Background(), "dev-1"))
	require.Equal(t, "dev-1", fs.deleted)
}

func TestPetDelete_RecordFailureReported(t *testing.T) {
	fs := &fakePetStore{deleteErr: errors.New("throttled")}
	s := newPetService(t, fs, &fakeMedia{})
	requireCode(t, s.Delete(context.Background(), "dev-1"), ErrorInternal)
}

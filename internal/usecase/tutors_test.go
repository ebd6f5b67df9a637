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

type fakeTutorStore struct {
	record    *domain.CustomTutor
	getErr    error
	putErr    error
	put       any
	deleted   string
	deleteErr error
}

func (f *fakeTutorStore) Put(_ context.Context, record any) error {
	f.put = record
	return f.putErr
}

func (f *fakeTutorStore) GetCustomTutor(_ context.Context, _ string) (*domain.CustomTutor, error) {
	return f.record, f.getErr
}

func (f *fakeTutorStore) DeleteCustomTutor(_ context.Context, deviceID string) error {
	f.deleted = deviceID
	return f.deleteErr
}

func newTutorService(t *testing.T, fs *fakeTutorStore, media *fakeMedia) *TutorService {
	t.Helper()
	s, err := NewTutorService(fs, media)
	require.NoError(t, err)
	return s
}

func TestTutorSave_StoresPersonaAndImage(t *testing.T) {
	fs := &fakeTutorStore{}
	media := &fakeMedia{}
	s := newTutorService(t, fs, media)

	view, err := s.Save(context.Background(), SaveTutorInput{
		DeviceID:          "dev-1",
		TutorName:         "Luna",
		ImageData:         base64.StdEncoding.EncodeToString([]byte("jpeg")),
		ConversationStyle: "friend",
		Accent:            "uk",
		Gender:            "female",
		Tags:              []string{"patient", "funny"},
		VoiceID:           "XB0fDUnXU5powFXDhCwa",
	})
	require.NoError(t, err)
	require.Equal(t, "Luna", view.TutorName)
	require.True(t, strings.HasPrefix(view.ImageKey, "tutors/dev-1/"))
	require.Contains(t, view.ImageURL, view.ImageKey)

	rec, ok := fs.put.(domain.CustomTutor)
	require.True(t, ok)
	require.Equal(t, "friend", rec.ConversationStyle)
	require.Equal(t, []string{"patient", "funny"}, rec.Tags)
	require.Equal(t, media.putKey, rec.ImageKey)
}

func TestTutorSave_ReplacesPreviousImage(t *testing.T) {
	fs := &fakeTutorStore{record: &domain.CustomTutor{TutorName: "Luna", ImageKey: "tutors/dev-1/old.jpg"}}
	media := &fakeMedia{}
	s := newTutorService(t, fs, media)

	view, err := s.Save(context.Background(), SaveTutorInput{
		DeviceID:  "dev-1",
		TutorName: "Luna",
		ImageData: base64.StdEncoding.EncodeToString([]byte("new-jpeg")),
	})
	require.NoError(t, err)
	require.Equal(t, "tutors/dev-1/old.jpg", media.deletedKey)
	require.NotEqual(t, "tutors/dev-1/old.jpg", view.ImageKey)
}

func TestTutorSave_KeepsImageWhenNoneSupplied(t *testing.T) {
	fs := &fakeTutorStore{record: &domain.CustomTutor{TutorName: "Luna", ImageKey: "tutors/dev-1/old.jpg"}}
	media := &fakeMedia{}
	s := newTutorService(t, fs, media)

	view, err := s.Save(context.Background(), SaveTutorInput{DeviceID: "dev-1", TutorName: "Luna"})
	require.NoError(t, err)
	require.Equal(t, "tutors/dev-1/old.jpg", view.ImageKey)
	require.Empty(t, media.putKey, "no upload without image data")
	require.Empty(t, media.deletedKey)
}

func TestTutorSave_RequiresName(t *testing.T) {
	s := newTutorService(t, &fakeTutorStore{}, &fakeMedia{})
	_, err := s.Save(context.Background(), SaveTutorInput{DeviceID: "dev-1"})
	requireCode(t, err, ErrorInvalidInput)
}

func TestTutorGet_PresignsStoredKey(t *testing.T) {
	fs := &fakeTutorStore{record: &domain.CustomTutor{TutorName: "Luna", ImageKey: "tutors/dev-1/1.jpg"}}
	s := newTutorService(t, fs, &fakeMedia{})

	view, err := s.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Equal(t, "https://media.example/tutors/dev-1/1.jpg?signed", view.ImageURL)
}

func TestTutorGet_NilWhenMissing(t *testing.T) {
	s := newTutorService(t, &fakeTutorStore{}, &fakeMedia{})
	view, err := s.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Nil(t, view)
}

func TestTutorDelete_RemovesRecordAndImage(t *testing.T) {
	fs := &fakeTutorStore{record: &domain.CustomTutor{TutorName: "Luna", ImageKey: "tutors/dev-1/1.jpg"}}
	media := &fakeMedia{}
	s := newTutorService(t, fs, media)

	require.NoError(t, s.Delete(context.Background(), "dev-1"))
	require.Equal(t, "dev-1", fs.deleted)
	require.Equal(t, "tutors/dev-1/1.jpg", media.deletedKey)
}

func TestTutorDelete_RecordFailureReported(t *testing.T) {
	fs := &fakeTutorStore{deleteErr: errors.New("throttled")}
	s := newTutorService(t, fs, &fakeMedia{})
	requireCode(t, s.Delete(context.Background(), "dev-1"), ErrorInternal)
}

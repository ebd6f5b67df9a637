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

type fakeVoiceStore struct {
	record *domain.CustomVoice
	getErr error
	putErr error
	put    any
}

func (f *fakeVoiceStore) Put(_ context.Context, record any) error {
	f.put = record
	return f.putErr
}

func (f *fakeVoiceStore) GetCustomVoice(_ context.Context, _ string) (*domain.CustomVoice, error) {
	return f.record, f.getErr
}

type fakeCloner struct {
	voiceID   string
	err       error
	voiceName string
	audio     []byte
}

func (f *fakeCloner) CloneVoice(_ context.Context, voiceName string, audio []byte) (string, error) {
	f.voiceName, f.audio = voiceName, audio
	return f.voiceID, f.err
}

func newVoiceService(t *testing.T, fs *fakeVoiceStore, cloner *fakeCloner, media *fakeMedia) *VoiceService {
	t.Helper()
	s, err := NewVoiceService(fs, cloner, media)
	require.NoError(t, err)
	return s
}

func TestVoiceClone_ArchivesSampleAndRecordsVoice(t *testing.T) {
	fs := &fakeVoiceStore{}
	cloner := &fakeCloner{voiceID: "cloned-123"}
	media := &fakeMedia{}
	s := newVoiceService(t, fs, cloner, media)

	out, err := s.Clone(context.Background(), CloneVoiceInput{
		UserID:    "user-1",
		VoiceName: "Dad",
		AudioData: base64.StdEncoding.EncodeToString([]byte("webm-sample")),
	})
	require.NoError(t, err)
	require.Equal(t, "cloned-123", out.VoiceID)
	require.Equal(t, "Dad", out.VoiceName)

	require.True(t, strings.HasPrefix(media.putKey, "voice-samples/user-1/"))
	require.True(t, strings.HasSuffix(media.putKey, ".webm"))
	require.Equal(t, "audio/webm", media.contentType)
	require.Equal(t, []byte("webm-sample"), cloner.audio)

	rec, ok := fs.put.(domain.CustomVoice)
	require.True(t, ok)
	require.Equal(t, "cloned-123", rec.VoiceID)
}

func TestVoiceClone_DefaultsVoiceName(t *testing.T) {
	cloner := &fakeCloner{voiceID: "cloned-123"}
	s := newVoiceService(t, &fakeVoiceStore{}, cloner, &fakeMedia{})

	out, err := s.Clone(context.Background(), CloneVoiceInput{
		UserID:    "user-1",
		AudioData: base64.StdEncoding.EncodeToString([]byte("x")),
	})
	require.NoError(t, err)
	require.Equal(t, "MyVoice", out.VoiceName)
	require.Equal(t, "MyVoice", cloner.voiceName)
}

func TestVoiceClone_ClonerFailureIsUpstream(t *testing.T) {
	cloner := &fakeCloner{err: errors.New("quota exceeded")}
	fs := &fakeVoiceStore{}
	s := newVoiceService(t, fs, cloner, &fakeMedia{})

	_, err := s.Clone(context.Background(), CloneVoiceInput{
		UserID:    "user-1",
		AudioData: base64.StdEncoding.EncodeToString([]byte("x")),
	})
	requireCode(t, err, ErrorUpstream)
	require.Nil(t, fs.put, "no record without a cloned voice")
}

func TestVoiceClone_RequiresUserAndAudio(t *testing.T) {
	s := newVoiceService(t, &fakeVoiceStore{}, &fakeCloner{}, &fakeMedia{})

	_, err := s.Clone(context.Background(), CloneVoiceInput{UserID: "user-1"})
	requireCode(t, err, ErrorInvalidInput)

	_, err = s.Clone(context.Background(), CloneVoiceInput{AudioData: "aGk="})
	requireCode(t, err, ErrorInvalidInput)
}

func TestCustomVoiceID_ReturnsStoredVoice(t *testing.T) {
	fs := &fakeVoiceStore{record: &domain.CustomVoice{VoiceID: "cloned-123"}}
	s := newVoiceService(t, fs, &fakeCloner{}, &fakeMedia{})

	id, err := s.CustomVoiceID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "cloned-123", id)
}

func TestCustomVoiceID_EmptyWithoutRecordOrUser(t *testing.T) {
	s := newVoiceService(t, &fakeVoiceStore{}, &fakeCloner{}, &fakeMedia{})

	id, err := s.CustomVoiceID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, id)

	id, err = s.CustomVoiceID(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, id)
}

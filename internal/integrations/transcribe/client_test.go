package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	startIn  *awstranscribe.StartTranscriptionJobInput
	startErr error

	// statuses are returned in order, one per poll; the last repeats.
	statuses      []types.TranscriptionJobStatus
	transcriptURI string
	failureReason string
	polls         int

	deletedJob string
}

func (f *fakeAPI) StartTranscriptionJob(_ context.Context, in *awstranscribe.StartTranscriptionJobInput, _ ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error) {
	f.startIn = in
	return &awstranscribe.StartTranscriptionJobOutput{}, f.startErr
}

func (f *fakeAPI) GetTranscriptionJob(_ context.Context, _ *awstranscribe.GetTranscriptionJobInput, _ ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error) {
	idx := f.polls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.polls++

	job := &types.TranscriptionJob{TranscriptionJobStatus: f.statuses[idx]}
	switch f.statuses[idx] {
	case types.TranscriptionJobStatusCompleted:
		job.Transcript = &types.Transcript{TranscriptFileUri: aws.String(f.transcriptURI)}
	case types.TranscriptionJobStatusFailed:
		job.FailureReason = aws.String(f.failureReason)
	}
	return &awstranscribe.GetTranscriptionJobOutput{TranscriptionJob: job}, nil
}

func (f *fakeAPI) DeleteTranscriptionJob(_ context.Context, in *awstranscribe.DeleteTranscriptionJobInput, _ ...func(*awstranscribe.Options)) (*awstranscribe.DeleteTranscriptionJobOutput, error) {
	f.deletedJob = aws.ToString(in.TranscriptionJobName)
	return &awstranscribe.DeleteTranscriptionJobOutput{}, nil
}

type fakeMediaStore struct {
	putKey     string
	putErr     error
	deletedKey string
}

func (f *fakeMediaStore) Bucket() string { return "test-bucket" }

func (f *fakeMediaStore) Put(_ context.Context, key string, _ []byte, _ string) error {
	f.putKey = key
	return f.putErr
}

func (f *fakeMediaStore) Delete(_ context.Context, key string) error {
	f.deletedKey = key
	return nil
}

func transcriptServer(t *testing.T, transcript string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": {"transcripts": [{"transcript": "` + transcript + `"}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribe_CompletesAfterPolling(t *testing.T) {
	srv := transcriptServer(t, "hello world")
	api := &fakeAPI{
		statuses: []types.TranscriptionJobStatus{
			types.TranscriptionJobStatusInProgress,
			types.TranscriptionJobStatusInProgress,
			types.TranscriptionJobStatusCompleted,
		},
		transcriptURI: srv.URL,
	}
	media := &fakeMediaStore{}
	c, err := New(api, media, WithPolling(time.Millisecond, 10), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	text, err := c.Transcribe(context.Background(), []byte("webm"), "en-US")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, 3, api.polls)

	require.True(t, strings.HasPrefix(media.putKey, "audio/stt-"))
	require.Equal(t, "s3://test-bucket/"+media.putKey, aws.ToString(api.startIn.Media.MediaFileUri))
	require.Equal(t, types.LanguageCode("en-US"), api.startIn.LanguageCode)

	// Cleanup runs on success too.
	require.Equal(t, media.putKey, media.deletedKey)
	require.Equal(t, aws.ToString(api.startIn.TranscriptionJobName), api.deletedJob)
}

func TestTranscribe_DefaultsLanguage(t *testing.T) {
	srv := transcriptServer(t, "ok")
	api := &fakeAPI{
		statuses:      []types.TranscriptionJobStatus{types.TranscriptionJobStatusCompleted},
		transcriptURI: srv.URL,
	}
	c, err := New(api, &fakeMediaStore{}, WithPolling(time.Millisecond, 5), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), []byte("webm"), "")
	require.NoError(t, err)
	require.Equal(t, types.LanguageCode("en-US"), api.startIn.LanguageCode)
}

func TestTranscribe_FailedJob(t *testing.T) {
	api := &fakeAPI{
		statuses:      []types.TranscriptionJobStatus{types.TranscriptionJobStatusFailed},
		failureReason: "unsupported codec",
	}
	media := &fakeMediaStore{}
	c, err := New(api, media, WithPolling(time.Millisecond, 5))
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), []byte("webm"), "en-US")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported codec")
	require.NotEmpty(t, media.deletedKey, "staged audio is cleaned up on failure")
}

func TestTranscribe_TimesOutAfterAttemptBudget(t *testing.T) {
	api := &fakeAPI{
		statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusInProgress},
	}
	c, err := New(api, &fakeMediaStore{}, WithPolling(time.Millisecond, 4))
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), []byte("webm"), "en-US")
	require.ErrorIs(t, err, ErrTimedOut)
	require.Equal(t, 4, api.polls)
}

func TestTranscribe_ContextCancelledDuringPoll(t *testing.T) {
	api := &fakeAPI{
		statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusInProgress},
	}
	c, err := New(api, &fakeMediaStore{}, WithPolling(time.Hour, 5))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Transcribe(ctx, []byte("webm"), "en-US")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTranscribe_StageFailureStopsEarly(t *testing.T) {
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusCompleted}}
	media := &fakeMediaStore{putErr: errors.New("bucket gone")}
	c, err := New(api, media)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), []byte("webm"), "en-US")
	require.Error(t, err)
	require.Nil(t, api.startIn, "no job without staged audio")
}

func TestTranscribe_EmptyAudioRejected(t *testing.T) {
	c, err := New(&fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusCompleted}}, &fakeMediaStore{})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), nil, "en-US")
	require.Error(t, err)
}

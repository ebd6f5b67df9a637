// Package transcribe runs batch speech-to-text through Amazon Transcribe.
// A transcription is an asynchronous job: the audio is staged in S3, a job
// is submitted, and completion is observed by polling. The poll loop is an
// explicit state machine with a bounded attempt count; running out of
// attempts is a terminal timeout failure, not a silent retry.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// transcribeAPI is the minimal Transcribe interface required by Client.
type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
	DeleteTranscriptionJob(ctx context.Context, in *transcribe.DeleteTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.DeleteTranscriptionJobOutput, error)
}

// MediaStore is the blob staging dependency.
type MediaStore interface {
	Bucket() string
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// jobState enumerates the polling state machine.
type jobState int

const (
	stateSubmitted jobState = iota
	stateRunning
	stateCompleted
	stateFailed
	stateTimedOut
)

// ErrTimedOut is returned when a job does not finish within the attempt
// budget. The job and staged audio are still cleaned up.
var ErrTimedOut = errors.New("transcribe: job timed out")

// transcriptDocument is the portion of the transcript JSON we consume.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// Client wraps batch transcription jobs.
type Client struct {
	api        transcribeAPI
	media      MediaStore
	httpClient *http.Client

	pollInterval time.Duration
	maxAttempts  int
	now          func() time.Time
}

type Option func(*Client)

// WithPolling overrides the poll cadence, for tests.
func WithPolling(interval time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxAttempts = maxAttempts
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a Client staging audio through the given media store.
func New(api transcribeAPI, media MediaStore, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("transcribe: api must not be nil")
	}
	if media == nil {
		return nil, errors.New("transcribe: media store must not be nil")
	}
	c := &Client{
		api:          api,
		media:        media,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		pollInterval: time.Second,
		maxAttempts:  30,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcribe stages the audio, runs a transcription job to a terminal state,
// and returns the transcript text. Staged audio and the finished job are
// removed regardless of outcome.
func (c *Client) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("transcribe: audio must not be empty")
	}
	if language == "" {
		language = "en-US"
	}

	jobName := fmt.Sprintf("stt-%d", c.now().UnixMilli())
	key := fmt.Sprintf("audio/%s.webm", jobName)

	if err := c.media.Put(ctx, key, audio, "audio/webm"); err != nil {
		return "", err
	}
	defer c.cleanup(ctx, jobName, key)

	_, err := c.api.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &types.Media{MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", c.media.Bucket(), key))},
		MediaFormat:          types.MediaFormatWebm,
		LanguageCode:         types.LanguageCode(language),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: start job %s: %w", jobName, err)
	}

	transcriptURI, err := c.waitForJob(ctx, jobName)
	if err != nil {
		return "", err
	}
	return c.fetchTranscript(ctx, transcriptURI)
}

// waitForJob drives the state machine to a terminal state and returns the
// transcript location on completion.
func (c *Client) waitForJob(ctx context.Context, jobName string) (string, error) {
	state := stateSubmitted
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.pollInterval):
			}
		}

		out, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			return "", fmt.Errorf("transcribe: poll job %s: %w", jobName, err)
		}
		job := out.TranscriptionJob
		if job == nil {
			return "", fmt.Errorf("transcribe: poll job %s: empty response", jobName)
		}

		switch job.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			state = stateCompleted
			if job.Transcript == nil || job.Transcript.TranscriptFileUri == nil {
				return "", fmt.Errorf("transcribe: job %s completed without transcript location", jobName)
			}
			return *job.Transcript.TranscriptFileUri, nil
		case types.TranscriptionJobStatusFailed:
			state = stateFailed
			reason := ""
			if job.FailureReason != nil {
				reason = *job.FailureReason
			}
			return "", fmt.Errorf("transcribe: job %s failed: %s", jobName, reason)
		default:
			state = stateRunning
		}
	}

	if state == stateRunning || state == stateSubmitted {
		state = stateTimedOut
	}
	return "", fmt.Errorf("%w: job %s after %d attempts", ErrTimedOut, jobName, c.maxAttempts)
}

func (c *Client) fetchTranscript(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: create transcript request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe: fetch transcript: unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcribe: read transcript: %w", err)
	}

	var doc transcriptDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", fmt.Errorf("transcribe: decode transcript: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", errors.New("transcribe: transcript document has no transcripts")
	}
	return doc.Results.Transcripts[0].Transcript, nil
}

// cleanup removes the staged audio and the job record. Failures here are
// ignored: both expire server-side and must not mask the transcription result.
func (c *Client) cleanup(ctx context.Context, jobName, key string) {
	_ = c.media.Delete(ctx, key)
	_, _ = c.api.DeleteTranscriptionJob(ctx, &transcribe.DeleteTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
}

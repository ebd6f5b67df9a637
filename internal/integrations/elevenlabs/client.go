// Package elevenlabs is a focused client for the ElevenLabs text-to-speech
// and voice-cloning endpoints.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const secretID = "ElevenLabs/ApiKey"

const defaultModelID = "eleven_multilingual_v2"

// Getter resolves the API key. The secrets client caches it process-wide.
type Getter interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("elevenlabs: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ttsRequest is the text-to-speech request body.
type ttsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// addVoiceResponse is the minimal response shape of the voice-add endpoint.
type addVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// Client calls the ElevenLabs HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	getter     Getter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given secrets Getter for API key
// retrieval.
func NewClient(g Getter, opts ...Option) (*Client, error) {
	if g == nil {
		return nil, errors.New("elevenlabs: secrets getter must not be nil")
	}
	c := &Client{
		baseURL:    "https://api.elevenlabs.io/v1",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		getter:     g,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize renders text as MP3 audio with the given voice. Custom voice
// settings are applied for cloned voices (tuned) vs stock voices (defaults).
func (c *Client) Synthesize(ctx context.Context, voiceID, text string, customVoice bool) ([]byte, error) {
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voice id must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	apiKey, err := c.getter.GetSecret(ctx, secretID)
	if err != nil {
		return nil, err
	}

	reqBody := ttsRequest{Text: text, ModelID: defaultModelID}
	if customVoice {
		reqBody.VoiceSettings = &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.8,
			Style:           0.5,
			UseSpeakerBoost: true,
		}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: url, Body: truncate(string(payload))}
	}
	return payload, nil
}

// CloneVoice uploads an audio sample and returns the new voice id. The voice
// name is suffixed with a nonce so retries never collide server-side.
func (c *Client) CloneVoice(ctx context.Context, voiceName string, audio []byte) (string, error) {
	if strings.TrimSpace(voiceName) == "" {
		return "", errors.New("elevenlabs: voice name must not be empty")
	}
	if len(audio) == 0 {
		return "", errors.New("elevenlabs: audio sample must not be empty")
	}

	apiKey, err := c.getter.GetSecret(ctx, secretID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", voiceName+"_"+uuid.NewString()[:8]); err != nil {
		return "", fmt.Errorf("elevenlabs: write name field: %w", err)
	}
	fw, err := mw.CreateFormFile("files", "voice_sample.webm")
	if err != nil {
		return "", fmt.Errorf("elevenlabs: create file field: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("elevenlabs: write sample: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("elevenlabs: finalize multipart body: %w", err)
	}

	url := c.baseURL + "/voices/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: clone voice: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: url, Body: truncate(string(payload))}
	}

	var out addVoiceResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("elevenlabs: decode response: %w", err)
	}
	if out.VoiceID == "" {
		return "", errors.New("elevenlabs: clone succeeded but no voice id returned")
	}
	return out.VoiceID, nil
}

func truncate(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max]
}

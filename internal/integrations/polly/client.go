// Package polly provides the Amazon Polly fallback for speech synthesis
// when the primary voice provider is unavailable.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// pollyAPI is the minimal Polly interface required by Client.
type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type voiceChoice struct {
	id     types.VoiceId
	engine types.Engine
}

// Neural voices where the accent supports them, standard otherwise.
var voiceByAccentGender = map[[2]string]voiceChoice{
	{"us", "female"}: {types.VoiceIdJoanna, types.EngineNeural},
	{"us", "male"}:   {types.VoiceIdMatthew, types.EngineNeural},
	{"uk", "female"}: {types.VoiceIdAmy, types.EngineNeural},
	{"uk", "male"}:   {types.VoiceIdBrian, types.EngineNeural},
	{"au", "female"}: {types.VoiceIdNicole, types.EngineStandard},
	{"au", "male"}:   {types.VoiceIdRussell, types.EngineStandard},
	{"in", "female"}: {types.VoiceIdAditi, types.EngineStandard},
	{"in", "male"}:   {types.VoiceIdAditi, types.EngineStandard},
}

var defaultVoice = voiceChoice{types.VoiceIdJoanna, types.EngineNeural}

// Client wraps Amazon Polly speech synthesis.
type Client struct {
	api pollyAPI
}

// New creates a Client with the given Polly API implementation.
func New(api pollyAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("polly: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Synthesize renders text as MP3 with the voice matching the requested
// accent and gender, and returns the audio plus the voice name used.
func (c *Client) Synthesize(ctx context.Context, text, accent, gender string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", errors.New("polly: text must not be empty")
	}

	voice, ok := voiceByAccentGender[[2]string{accent, gender}]
	if !ok {
		voice = defaultVoice
	}

	out, err := c.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      voice.id,
		Engine:       voice.engine,
	})
	if err != nil {
		return nil, "", fmt.Errorf("polly: synthesize speech: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, "", fmt.Errorf("polly: read audio stream: %w", err)
	}
	return audio, string(voice.id), nil
}

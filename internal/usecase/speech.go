package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/1282saa/ringringv2/internal/signer"
)

// Voice ids for the hosted synthesis provider, keyed by accent and gender.
// Accents without dedicated voices share the US ones.
var ttsVoiceByAccentGender = map[[2]string]string{
	{"us", "female"}: "EXAVITQu4vr4xnSDxMaL", // Bella
	{"us", "male"}:   "pNInz6obpgDQGcFmaJgB", // Adam
	{"uk", "female"}: "XB0fDUnXU5powFXDhCwa", // Charlotte
	{"uk", "male"}:   "TX3LPaxmHKxFdv7VOQHJ", // Liam
	{"au", "female"}: "EXAVITQu4vr4xnSDxMaL",
	{"au", "male"}:   "pNInz6obpgDQGcFmaJgB",
	{"in", "female"}: "EXAVITQu4vr4xnSDxMaL",
	{"in", "male"}:   "pNInz6obpgDQGcFmaJgB",
}

// The lover conversation style uses softer voices regardless of accent.
var ttsVoiceByLoverGender = map[string]string{
	"female": "21m00Tcm4TlvDq8ikWAM", // Rachel
	"male":   "ErXwobaYiN019PkySvjV", // Antoni
}

// Synthesizer is the primary text-to-speech provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string, customVoice bool) ([]byte, error)
}

// FallbackSynthesizer produces speech when the primary provider fails.
type FallbackSynthesizer interface {
	Synthesize(ctx context.Context, text, accent, gender string) ([]byte, string, error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// CustomVoiceResolver resolves a user's cloned voice id.
type CustomVoiceResolver interface {
	CustomVoiceID(ctx context.Context, userID string) (string, error)
}

// SpeechService covers synthesis, transcription, streaming-transcription URL
// signing, and translation.
type SpeechService struct {
	tts         Synthesizer
	fallback    FallbackSynthesizer
	stt         Transcriber
	translator  Translator
	customVoice CustomVoiceResolver
	creds       aws.CredentialsProvider
	region      string
}

func NewSpeechService(tts Synthesizer, fallback FallbackSynthesizer, stt Transcriber, translator Translator, customVoice CustomVoiceResolver, creds aws.CredentialsProvider, region string) (*SpeechService, error) {
	if tts == nil {
		return nil, errors.New("usecase: synthesizer must not be nil")
	}
	if fallback == nil {
		return nil, errors.New("usecase: fallback synthesizer must not be nil")
	}
	if stt == nil {
		return nil, errors.New("usecase: transcriber must not be nil")
	}
	if translator == nil {
		return nil, errors.New("usecase: translator must not be nil")
	}
	if customVoice == nil {
		return nil, errors.New("usecase: custom voice resolver must not be nil")
	}
	if creds == nil {
		return nil, errors.New("usecase: credentials provider must not be nil")
	}
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("usecase: region must not be empty")
	}
	return &SpeechService{
		tts:         tts,
		fallback:    fallback,
		stt:         stt,
		translator:  translator,
		customVoice: customVoice,
		creds:       creds,
		region:      region,
	}, nil
}

type TTSInput struct {
	Text     string
	Settings map[string]any
}

type TTSOutput struct {
	Audio    []byte
	Provider string
	VoiceID  string
}

// TTS synthesizes speech for the given text using the voice implied by the
// caller's settings. When the primary provider fails the managed fallback
// takes over with its own accent-matched voice.
func (s *SpeechService) TTS(ctx context.Context, in TTSInput) (TTSOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return TTSOutput{}, newError(ErrorInvalidInput, "missing_text", nil)
	}

	accent := settingOrDefault(in.Settings, "accent", "us")
	gender := settingOrDefault(in.Settings, "gender", "female")
	voiceID := pickVoice(accent, gender, settingOrDefault(in.Settings, "conversationStyle", ""))

	audio, err := s.tts.Synthesize(ctx, voiceID, in.Text, false)
	if err == nil {
		return TTSOutput{Audio: audio, Provider: "elevenlabs", VoiceID: voiceID}, nil
	}

	audio, voiceName, fbErr := s.fallback.Synthesize(ctx, in.Text, accent, gender)
	if fbErr != nil {
		return TTSOutput{}, newError(ErrorUpstream, "tts_error", errors.Join(err, fbErr))
	}
	return TTSOutput{Audio: audio, Provider: "polly", VoiceID: voiceName}, nil
}

// TTSCustomVoice synthesizes speech with a cloned voice. When no voice id is
// given the user's stored one is used.
func (s *SpeechService) TTSCustomVoice(ctx context.Context, userID, voiceID, text string) (TTSOutput, error) {
	if strings.TrimSpace(text) == "" {
		return TTSOutput{}, newError(ErrorInvalidInput, "missing_text", nil)
	}
	if voiceID == "" {
		if userID == "" {
			return TTSOutput{}, newError(ErrorInvalidInput, "missing_user_or_voice", nil)
		}
		stored, err := s.customVoice.CustomVoiceID(ctx, userID)
		if err != nil {
			return TTSOutput{}, err
		}
		if stored == "" {
			return TTSOutput{}, newError(ErrorNotFound, "custom_voice_not_found", nil)
		}
		voiceID = stored
	}
	audio, err := s.tts.Synthesize(ctx, voiceID, text, true)
	if err != nil {
		return TTSOutput{}, newError(ErrorUpstream, "tts_error", err)
	}
	return TTSOutput{Audio: audio, Provider: "elevenlabs", VoiceID: voiceID}, nil
}

// STT transcribes a recorded audio clip. The language defaults to US English.
func (s *SpeechService) STT(ctx context.Context, audioData, language string) (string, error) {
	if audioData == "" {
		return "", newError(ErrorInvalidInput, "missing_audio", nil)
	}
	raw, err := decodeBase64Payload(audioData)
	if err != nil {
		return "", newError(ErrorInvalidInput, "invalid_audio_encoding", err)
	}
	text, err := s.stt.Transcribe(ctx, raw, language)
	if err != nil {
		return "", newError(ErrorUpstream, "stt_error", err)
	}
	return text, nil
}

// StreamURL presigns a streaming-transcription WebSocket URL from the current
// credentials. No network call is made; the URL is derived locally.
func (s *SpeechService) StreamURL(ctx context.Context, languageCode string, sampleRate int) (signer.Result, error) {
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return signer.Result{}, newError(ErrorInternal, "credentials_error", err)
	}
	res, err := signer.Presign(creds, signer.Request{
		Region:       s.region,
		LanguageCode: languageCode,
		SampleRate:   sampleRate,
	})
	if err != nil {
		return signer.Result{}, newError(ErrorInternal, "presign_error", err)
	}
	return res, nil
}

// Translate converts text between languages, defaulting to English→Korean.
func (s *SpeechService) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", newError(ErrorInvalidInput, "missing_text", nil)
	}
	out, err := s.translator.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", newError(ErrorUpstream, "translate_error", err)
	}
	return out, nil
}

func pickVoice(accent, gender, style string) string {
	if style == "lover" {
		if v, ok := ttsVoiceByLoverGender[gender]; ok {
			return v
		}
	}
	if v, ok := ttsVoiceByAccentGender[[2]string{accent, gender}]; ok {
		return v
	}
	return ttsVoiceByAccentGender[[2]string{"us", "female"}]
}

func settingOrDefault(settings map[string]any, key, fallback string) string {
	if v := settingValue(settings, key); v != "" {
		return v
	}
	return fallback
}

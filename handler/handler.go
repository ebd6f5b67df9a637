// Package handler routes Lambda proxy events to the conversation backend.
// Every request is a POST with a JSON body whose "action" field selects the
// operation; the action set is closed and unknown actions are rejected.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/signer"
	"github.com/1282saa/ringringv2/internal/usecase"
)

// Action names accepted on the wire.
type Action string

const (
	ActionChat              Action = "chat"
	ActionTTS               Action = "tts"
	ActionTTSCustomVoice    Action = "tts_custom_voice"
	ActionSTT               Action = "stt"
	ActionGetTranscribeURL  Action = "get_transcribe_url"
	ActionTranslate         Action = "translate"
	ActionAnalyze           Action = "analyze"
	ActionSaveSettings      Action = "save_settings"
	ActionGetSettings       Action = "get_settings"
	ActionStartSession      Action = "start_session"
	ActionEndSession        Action = "end_session"
	ActionSaveMessage       Action = "save_message"
	ActionGetSessions       Action = "get_sessions"
	ActionGetSessionDetail  Action = "get_session_detail"
	ActionDeleteSession     Action = "delete_session"
	ActionUploadPetImage    Action = "upload_pet_image"
	ActionSavePet           Action = "save_pet"
	ActionGetPet            Action = "get_pet"
	ActionDeletePet         Action = "delete_pet"
	ActionSaveCustomTutor   Action = "save_custom_tutor"
	ActionGetCustomTutor    Action = "get_custom_tutor"
	ActionDeleteCustomTutor Action = "delete_custom_tutor"
	ActionCloneVoice        Action = "clone_voice"
	ActionSaveUserMemory    Action = "save_user_memory"
	ActionGetUserMemory     Action = "get_user_memory"
	ActionExtractUserInfo   Action = "extract_user_info"
	ActionGetUsage          Action = "get_usage"
	ActionIncrementUsage    Action = "increment_usage"
)

// Service interfaces, one per concern, satisfied by the usecase services.

type ChatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type SpeechService interface {
	TTS(ctx context.Context, in usecase.TTSInput) (usecase.TTSOutput, error)
	TTSCustomVoice(ctx context.Context, userID, voiceID, text string) (usecase.TTSOutput, error)
	STT(ctx context.Context, audioData, language string) (string, error)
	StreamURL(ctx context.Context, languageCode string, sampleRate int) (signer.Result, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type AnalyzeService interface {
	Analyze(ctx context.Context, messages []domain.ChatMessage) (usecase.AnalyzeOutput, error)
}

type SettingsService interface {
	Save(ctx context.Context, deviceID string, settings map[string]any) error
	Get(ctx context.Context, deviceID string) (map[string]any, error)
}

type SessionService interface {
	Start(ctx context.Context, in usecase.StartSessionInput) (usecase.StartSessionOutput, error)
	End(ctx context.Context, in usecase.EndSessionInput) (usecase.EndSessionOutput, error)
	SaveMessage(ctx context.Context, in usecase.SaveMessageInput) (usecase.SaveMessageOutput, error)
	List(ctx context.Context, in usecase.ListSessionsInput) (usecase.ListSessionsOutput, error)
	Detail(ctx context.Context, in usecase.SessionDetailInput) (usecase.SessionDetailOutput, error)
	Delete(ctx context.Context, in usecase.DeleteSessionInput) (usecase.DeleteSessionOutput, error)
}

type PetService interface {
	UploadImage(ctx context.Context, deviceID, imageData string) (key, url string, err error)
	Save(ctx context.Context, deviceID, petName, imageKey string) error
	Get(ctx context.Context, deviceID string) (*usecase.PetView, error)
	Delete(ctx context.Context, deviceID string) error
}

type TutorService interface {
	Save(ctx context.Context, in usecase.SaveTutorInput) (*usecase.TutorView, error)
	Get(ctx context.Context, deviceID string) (*usecase.TutorView, error)
	Delete(ctx context.Context, deviceID string) error
}

type VoiceService interface {
	Clone(ctx context.Context, in usecase.CloneVoiceInput) (usecase.CloneVoiceOutput, error)
}

type MemoryService interface {
	Save(ctx context.Context, userID string, incoming map[string]any) (map[string]any, error)
	Get(ctx context.Context, userID string) (map[string]any, error)
	Extract(ctx context.Context, userID string, messages []domain.ChatMessage) (map[string]any, error)
}

type UsageService interface {
	Get(ctx context.Context, deviceID string) (usecase.UsageReport, error)
	Increment(ctx context.Context, deviceID, usageType string) (usecase.UsageReport, error)
}

// Services bundles every service the router dispatches to.
type Services struct {
	Chat     ChatService
	Speech   SpeechService
	Analyze  AnalyzeService
	Settings SettingsService
	Sessions SessionService
	Pets     PetService
	Tutors   TutorService
	Voice    VoiceService
	Memory   MemoryService
	Usage    UsageService
}

func (s Services) validate() error {
	switch {
	case s.Chat == nil:
		return errors.New("handler: chat service must not be nil")
	case s.Speech == nil:
		return errors.New("handler: speech service must not be nil")
	case s.Analyze == nil:
		return errors.New("handler: analyze service must not be nil")
	case s.Settings == nil:
		return errors.New("handler: settings service must not be nil")
	case s.Sessions == nil:
		return errors.New("handler: session service must not be nil")
	case s.Pets == nil:
		return errors.New("handler: pet service must not be nil")
	case s.Tutors == nil:
		return errors.New("handler: tutor service must not be nil")
	case s.Voice == nil:
		return errors.New("handler: voice service must not be nil")
	case s.Memory == nil:
		return errors.New("handler: memory service must not be nil")
	case s.Usage == nil:
		return errors.New("handler: usage service must not be nil")
	}
	return nil
}

// chatTurn is one conversation message on the wire.
type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagePayload is the nested message object of save_message.
type messagePayload struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	Translation string `json:"translation"`
	TurnNumber  int    `json:"turnNumber"`
}

// tutorPayload is the nested tutor object of save_custom_tutor.
type tutorPayload struct {
	Name              string   `json:"name"`
	Image             string   `json:"image"`
	ConversationStyle string   `json:"conversationStyle"`
	Accent            string   `json:"accent"`
	Gender            string   `json:"gender"`
	Tags              []string `json:"tags"`
	VoiceID           string   `json:"voiceId"`
}

// request is the union of every action's fields. Each branch reads only its
// own, so unset fields are harmless.
type request struct {
	Action Action `json:"action"`

	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`

	Messages []chatTurn     `json:"messages"`
	Settings map[string]any `json:"settings"`

	Text       string `json:"text"`
	Audio      string `json:"audio"`
	Image      string `json:"image"`
	Language   string `json:"language"`
	SampleRate int    `json:"sampleRate"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`

	SessionID string          `json:"sessionId"`
	TutorName string          `json:"tutorName"`
	Duration  int             `json:"duration"`
	TurnCount int             `json:"turnCount"`
	WordCount int             `json:"wordCount"`
	Message   *messagePayload `json:"message"`
	Limit     int             `json:"limit"`
	LastKey   string          `json:"lastKey"`

	PetName  string        `json:"petName"`
	ImageKey string        `json:"imageKey"`
	Tutor    *tutorPayload `json:"tutor"`

	VoiceID   string `json:"voiceId"`
	VoiceName string `json:"voiceName"`

	Memory map[string]any `json:"memory"`

	UsageType string `json:"usageType"`
}

// ownerID prefers the authenticated user id over the anonymous device id.
func (r *request) ownerID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.DeviceID
}

func (r *request) chatMessages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Correlation-Id",
	"Access-Control-Allow-Methods": "OPTIONS,POST",
	"Content-Type":                 "application/json",
}

type actionFunc func(ctx context.Context, req *request) (any, error)

// Handler routes API Gateway proxy events by action.
type Handler struct {
	services Services
	routes   map[Action]actionFunc
}

// NewHandler validates the service set and builds the static routing table.
func NewHandler(services Services) (*Handler, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}
	h := &Handler{services: services}
	h.routes = map[Action]actionFunc{
		ActionChat:              h.chat,
		ActionTTS:               h.tts,
		ActionTTSCustomVoice:    h.ttsCustomVoice,
		ActionSTT:               h.stt,
		ActionGetTranscribeURL:  h.getTranscribeURL,
		ActionTranslate:         h.translate,
		ActionAnalyze:           h.analyze,
		ActionSaveSettings:      h.saveSettings,
		ActionGetSettings:       h.getSettings,
		ActionStartSession:      h.startSession,
		ActionEndSession:        h.endSession,
		ActionSaveMessage:       h.saveMessage,
		ActionGetSessions:       h.getSessions,
		ActionGetSessionDetail:  h.getSessionDetail,
		ActionDeleteSession:     h.deleteSession,
		ActionUploadPetImage:    h.uploadPetImage,
		ActionSavePet:           h.savePet,
		ActionGetPet:            h.getPet,
		ActionDeletePet:         h.deletePet,
		ActionSaveCustomTutor:   h.saveCustomTutor,
		ActionGetCustomTutor:    h.getCustomTutor,
		ActionDeleteCustomTutor: h.deleteCustomTutor,
		ActionCloneVoice:        h.cloneVoice,
		ActionSaveUserMemory:    h.saveUserMemory,
		ActionGetUserMemory:     h.getUserMemory,
		ActionExtractUserInfo:   h.extractUserInfo,
		ActionGetUsage:          h.getUsage,
		ActionIncrementUsage:    h.incrementUsage,
	}
	return h, nil
}

// Handle is the Lambda entrypoint.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)

	if event.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, map[string]any{}, correlationID), nil
	}

	var req request
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_json", correlationID), nil
	}
	if req.Action == "" {
		req.Action = ActionChat
	}

	route, ok := h.routes[req.Action]
	if !ok {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_action", correlationID), nil
	}

	payload, err := route(ctx, &req)
	if err != nil {
		status, code, reason := mapError(err)
		return respondError(status, code, reason, correlationID), nil
	}
	return respond(http.StatusOK, payload, correlationID), nil
}

func (h *Handler) chat(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Chat.Chat(ctx, usecase.ChatInput{
		Messages: req.chatMessages(),
		Settings: req.Settings,
		UserID:   req.UserID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": out.Message, "role": out.Role}, nil
}

func (h *Handler) tts(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Speech.TTS(ctx, usecase.TTSInput{Text: req.Text, Settings: req.Settings})
	if err != nil {
		return nil, err
	}
	return ttsResponse(out), nil
}

func (h *Handler) ttsCustomVoice(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Speech.TTSCustomVoice(ctx, req.UserID, req.VoiceID, req.Text)
	if err != nil {
		return nil, err
	}
	return ttsResponse(out), nil
}

func ttsResponse(out usecase.TTSOutput) map[string]any {
	return map[string]any{
		"audio":       base64.StdEncoding.EncodeToString(out.Audio),
		"contentType": "audio/mpeg",
		"voice":       out.VoiceID,
		"engine":      out.Provider,
	}
}

func (h *Handler) stt(ctx context.Context, req *request) (any, error) {
	transcript, err := h.services.Speech.STT(ctx, req.Audio, req.Language)
	if err != nil {
		return nil, err
	}
	return map[string]any{"transcript": transcript, "success": true}, nil
}

func (h *Handler) getTranscribeURL(ctx context.Context, req *request) (any, error) {
	res, err := h.services.Speech.StreamURL(ctx, req.Language, req.SampleRate)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"url":        res.URL,
		"region":     res.Region,
		"language":   res.LanguageCode,
		"sampleRate": res.SampleRate,
		"expiresIn":  res.ExpiresIn,
	}, nil
}

func (h *Handler) translate(ctx context.Context, req *request) (any, error) {
	translation, err := h.services.Speech.Translate(ctx, req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"translation": translation,
		"sourceLang":  defaultString(req.SourceLang, "en"),
		"targetLang":  defaultString(req.TargetLang, "ko"),
		"success":     true,
	}, nil
}

func (h *Handler) analyze(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Analyze.Analyze(ctx, req.chatMessages())
	if err != nil {
		return nil, err
	}
	resp := map[string]any{"analysis": out.Analysis, "success": true}
	if out.Fallback {
		resp["fallback"] = true
	}
	return resp, nil
}

func (h *Handler) saveSettings(ctx context.Context, req *request) (any, error) {
	if err := h.services.Settings.Save(ctx, req.ownerID(), req.Settings); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "settings": req.Settings}, nil
}

func (h *Handler) getSettings(ctx context.Context, req *request) (any, error) {
	settings, err := h.services.Settings.Get(ctx, req.ownerID())
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "settings": settings}, nil
}

func (h *Handler) startSession(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Sessions.Start(ctx, usecase.StartSessionInput{
		DeviceID:  req.ownerID(),
		SessionID: req.SessionID,
		TutorName: req.TutorName,
		Settings:  req.Settings,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "sessionId": out.SessionID, "startedAt": out.StartedAt}, nil
}

func (h *Handler) endSession(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Sessions.End(ctx, usecase.EndSessionInput{
		DeviceID:  req.ownerID(),
		SessionID: req.SessionID,
		Duration:  req.Duration,
		TurnCount: req.TurnCount,
		WordCount: req.WordCount,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "endedAt": out.EndedAt}, nil
}

func (h *Handler) saveMessage(ctx context.Context, req *request) (any, error) {
	if req.Message == nil {
		return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_message"}
	}
	out, err := h.services.Sessions.SaveMessage(ctx, usecase.SaveMessageInput{
		DeviceID:    req.ownerID(),
		SessionID:   req.SessionID,
		Role:        req.Message.Role,
		Content:     req.Message.Content,
		Translation: req.Message.Translation,
		TurnNumber:  req.Message.TurnNumber,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "messageId": out.MessageID}, nil
}

func (h *Handler) getSessions(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Sessions.List(ctx, usecase.ListSessionsInput{
		DeviceID: req.ownerID(),
		Limit:    req.Limit,
		Cursor:   req.LastKey,
	})
	if err != nil {
		return nil, err
	}
	resp := map[string]any{"sessions": out.Sessions, "hasMore": out.HasMore}
	if out.Cursor != "" {
		resp["lastKey"] = out.Cursor
	}
	return resp, nil
}

func (h *Handler) getSessionDetail(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Sessions.Detail(ctx, usecase.SessionDetailInput{
		DeviceID:  req.ownerID(),
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"session": out.Session, "messages": out.Messages}, nil
}

func (h *Handler) deleteSession(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Sessions.Delete(ctx, usecase.DeleteSessionInput{
		DeviceID:  req.ownerID(),
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "deletedCount": out.DeletedCount}, nil
}

func (h *Handler) uploadPetImage(ctx context.Context, req *request) (any, error) {
	key, url, err := h.services.Pets.UploadImage(ctx, req.ownerID(), req.Image)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "imageKey": key, "imageUrl": url, "uploadedAt": domain.NowKST()}, nil
}

func (h *Handler) savePet(ctx context.Context, req *request) (any, error) {
	if err := h.services.Pets.Save(ctx, req.ownerID(), req.PetName, req.ImageKey); err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"pet":     map[string]any{"name": req.PetName, "imageKey": req.ImageKey},
	}, nil
}

func (h *Handler) getPet(ctx context.Context, req *request) (any, error) {
	pet, err := h.services.Pets.Get(ctx, req.ownerID())
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return map[string]any{"success": true, "pet": nil}, nil
	}
	return map[string]any{"success": true, "pet": pet}, nil
}

func (h *Handler) deletePet(ctx context.Context, req *request) (any, error) {
	if err := h.services.Pets.Delete(ctx, req.ownerID()); err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}

func (h *Handler) saveCustomTutor(ctx context.Context, req *request) (any, error) {
	if req.Tutor == nil {
		return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_tutor"}
	}
	view, err := h.services.Tutors.Save(ctx, usecase.SaveTutorInput{
		DeviceID:          req.ownerID(),
		TutorName:         req.Tutor.Name,
		ImageData:         req.Tutor.Image,
		ConversationStyle: req.Tutor.ConversationStyle,
		Accent:            req.Tutor.Accent,
		Gender:            req.Tutor.Gender,
		Tags:              req.Tutor.Tags,
		VoiceID:           req.Tutor.VoiceID,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "tutor": view}, nil
}

func (h *Handler) getCustomTutor(ctx context.Context, req *request) (any, error) {
	view, err := h.services.Tutors.Get(ctx, req.ownerID())
	if err != nil {
		return nil, err
	}
	if view == nil {
		return map[string]any{"success": true, "tutor": nil}, nil
	}
	return map[string]any{"success": true, "tutor": view}, nil
}

func (h *Handler) deleteCustomTutor(ctx context.Context, req *request) (any, error) {
	if err := h.services.Tutors.Delete(ctx, req.ownerID()); err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}

func (h *Handler) cloneVoice(ctx context.Context, req *request) (any, error) {
	out, err := h.services.Voice.Clone(ctx, usecase.CloneVoiceInput{
		UserID:    req.UserID,
		VoiceName: req.VoiceName,
		AudioData: req.Audio,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "voiceId": out.VoiceID, "voiceName": out.VoiceName}, nil
}

func (h *Handler) saveUserMemory(ctx context.Context, req *request) (any, error) {
	memory, err := h.services.Memory.Save(ctx, req.UserID, req.Memory)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "memory": memory}, nil
}

func (h *Handler) getUserMemory(ctx context.Context, req *request) (any, error) {
	memory, err := h.services.Memory.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "memory": memory}, nil
}

func (h *Handler) extractUserInfo(ctx context.Context, req *request) (any, error) {
	memory, err := h.services.Memory.Extract(ctx, req.UserID, req.chatMessages())
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "memory": memory}, nil
}

func (h *Handler) getUsage(ctx context.Context, req *request) (any, error) {
	report, err := h.services.Usage.Get(ctx, req.ownerID())
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (h *Handler) incrementUsage(ctx context.Context, req *request) (any, error) {
	report, err := h.services.Usage.Increment(ctx, req.ownerID(), defaultString(req.UsageType, "chat"))
	if err != nil {
		return nil, err
	}
	return report, nil
}

// mapError translates service errors to HTTP status codes. Anything that is
// not a *usecase.Error is treated as internal.
func mapError(err error) (int, usecase.ErrorCode, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, usecase.ErrorInternal, ""
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ucErr.Code, ucErr.Reason
	case usecase.ErrorAccessDenied:
		return http.StatusForbidden, ucErr.Code, ucErr.Reason
	case usecase.ErrorNotFound:
		return http.StatusNotFound, ucErr.Code, ucErr.Reason
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, ucErr.Code, ucErr.Reason
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, ucErr.Code, ucErr.Reason
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal, ucErr.Reason
	}
}

func respond(status int, payload any, correlationID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return respondError(http.StatusInternalServerError, usecase.ErrorInternal, "marshal_error", correlationID)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func respondError(status int, code usecase.ErrorCode, reason, correlationID string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: string(code), Reason: reason})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func responseHeaders(correlationID string) map[string]string {
	headers := make(map[string]string, len(corsHeaders)+1)
	for k, v := range corsHeaders {
		headers[k] = v
	}
	headers["X-Correlation-Id"] = correlationID
	return headers
}

// correlationIDFrom returns the caller's correlation id, matched without
// regard to header case, or a fresh one.
func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "X-Correlation-Id" && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

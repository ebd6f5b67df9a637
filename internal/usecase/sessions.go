package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

const defaultSessionListLimit = 10

// SessionStore is the single-table surface the session service depends on.
type SessionStore interface {
	Put(ctx context.Context, record any) error
	ListSessions(ctx context.Context, deviceID string, limit int, cursor string) ([]domain.SessionMeta, string, error)
	GetSessionByID(ctx context.Context, sessionID string) (*domain.SessionMeta, error)
	GetSessionItems(ctx context.Context, sessionID string) (*domain.SessionMeta, []domain.MessageRecord, error)
	CompleteSession(ctx context.Context, pk, sk, endedAt string, duration, turnCount, wordCount int) error
	BatchDelete(ctx context.Context, keys []store.ItemKey) (int, error)
}

// SessionService manages conversation sessions and their transcripts.
type SessionService struct {
	store SessionStore
}

func NewSessionService(s SessionStore) (*SessionService, error) {
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	return &SessionService{store: s}, nil
}

type StartSessionInput struct {
	DeviceID  string
	SessionID string
	TutorName string
	Settings  map[string]any
}

type StartSessionOutput struct {
	SessionID string
	StartedAt string
}

// Start records a new active session.
func (s *SessionService) Start(ctx context.Context, in StartSessionInput) (StartSessionOutput, error) {
	if in.DeviceID == "" || in.SessionID == "" {
		return StartSessionOutput{}, newError(ErrorInvalidInput, "missing_device_or_session", nil)
	}
	tutorName := in.TutorName
	if tutorName == "" {
		tutorName = "Gwen"
	}

	meta := store.NewSessionMeta(in.DeviceID, in.SessionID, tutorName, in.Settings)
	if err := s.store.Put(ctx, meta); err != nil {
		return StartSessionOutput{}, newError(ErrorInternal, "session_write_error", err)
	}
	return StartSessionOutput{SessionID: meta.SessionID, StartedAt: meta.StartedAt}, nil
}

type EndSessionInput struct {
	DeviceID  string
	SessionID string
	Duration  int
	TurnCount int
	WordCount int
}

type EndSessionOutput struct {
	EndedAt string
}

// End transitions a session to completed and records its final stats. The
// session is resolved through the secondary index, which carries no device
// scoping, so ownership is verified here before any write.
func (s *SessionService) End(ctx context.Context, in EndSessionInput) (EndSessionOutput, error) {
	if in.DeviceID == "" || in.SessionID == "" {
		return EndSessionOutput{}, newError(ErrorInvalidInput, "missing_device_or_session", nil)
	}

	meta, err := s.store.GetSessionByID(ctx, in.SessionID)
	if err != nil {
		return EndSessionOutput{}, newError(ErrorInternal, "session_lookup_error", err)
	}
	if meta == nil {
		return EndSessionOutput{}, newError(ErrorNotFound, "session_not_found", nil)
	}
	if meta.DeviceID != in.DeviceID {
		return EndSessionOutput{}, newError(ErrorAccessDenied, "session_owner_mismatch", nil)
	}

	endedAt := domain.NowKST()
	if err := s.store.CompleteSession(ctx, meta.PK, meta.SK, endedAt, in.Duration, in.TurnCount, in.WordCount); err != nil {
		return EndSessionOutput{}, newError(ErrorInternal, "session_update_error", err)
	}
	return EndSessionOutput{EndedAt: endedAt}, nil
}

type SaveMessageInput struct {
	DeviceID    string
	SessionID   string
	Role        string
	Content     string
	Translation string
	TurnNumber  int
}

type SaveMessageOutput struct {
	MessageID string
}

// SaveMessage appends one conversational turn to a session.
func (s *SessionService) SaveMessage(ctx context.Context, in SaveMessageInput) (SaveMessageOutput, error) {
	if in.DeviceID == "" || in.SessionID == "" || strings.TrimSpace(in.Content) == "" {
		return SaveMessageOutput{}, newError(ErrorInvalidInput, "missing_message_fields", nil)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	msg := store.NewMessageRecord(in.DeviceID, in.SessionID, role, in.Content, in.Translation, in.TurnNumber)
	if err := s.store.Put(ctx, msg); err != nil {
		return SaveMessageOutput{}, newError(ErrorInternal, "message_write_error", err)
	}
	return SaveMessageOutput{MessageID: msg.GSI1SK}, nil
}

// SessionSummary is the listing shape returned to clients.
type SessionSummary struct {
	SessionID string `json:"sessionId"`
	TutorName string `json:"tutorName"`
	Topic     string `json:"topic"`
	Accent    string `json:"accent"`
	Level     string `json:"level"`
	StartedAt string `json:"startedAt"`
	EndedAt   string `json:"endedAt,omitempty"`
	Duration  int    `json:"duration"`
	TurnCount int    `json:"turnCount"`
	WordCount int    `json:"wordCount"`
	Status    string `json:"status"`
}

type ListSessionsInput struct {
	DeviceID string
	Limit    int
	Cursor   string
}

type ListSessionsOutput struct {
	Sessions []SessionSummary
	Cursor   string
	HasMore  bool
}

// List returns the device's sessions, newest first. The listing is best
// effort: the underlying scan filters after paging and caps its internal
// page fetches, so fewer than Limit sessions may come back even when more
// exist further down the partition.
func (s *SessionService) List(ctx context.Context, in ListSessionsInput) (ListSessionsOutput, error) {
	if in.DeviceID == "" {
		return ListSessionsOutput{}, newError(ErrorInvalidInput, "missing_device", nil)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSessionListLimit
	}

	metas, cursor, err := s.store.ListSessions(ctx, in.DeviceID, limit, in.Cursor)
	if err != nil {
		return ListSessionsOutput{}, newError(ErrorInternal, "session_list_error", err)
	}

	summaries := make([]SessionSummary, 0, len(metas))
	for _, meta := range metas {
		summaries = append(summaries, summarize(meta))
	}
	return ListSessionsOutput{Sessions: summaries, Cursor: cursor, HasMore: cursor != ""}, nil
}

// MessageView is one transcript entry returned to clients.
type MessageView struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	Translation string `json:"translation,omitempty"`
	Timestamp   string `json:"timestamp"`
	TurnNumber  int    `json:"turnNumber"`
}

type SessionDetailInput struct {
	DeviceID  string
	SessionID string
}

type SessionDetailOutput struct {
	Session  *SessionSummary
	Messages []MessageView
}

// Detail returns a session's metadata and full transcript in turn order.
func (s *SessionService) Detail(ctx context.Context, in SessionDetailInput) (SessionDetailOutput, error) {
	if in.DeviceID == "" || in.SessionID == "" {
		return SessionDetailOutput{}, newError(ErrorInvalidInput, "missing_device_or_session", nil)
	}

	meta, records, err := s.store.GetSessionItems(ctx, in.SessionID)
	if err != nil {
		return SessionDetailOutput{}, newError(ErrorInternal, "session_detail_error", err)
	}

	messages := make([]MessageView, 0, len(records))
	for _, rec := range records {
		messages = append(messages, MessageView{
			Role:        rec.Role,
			Content:     rec.Content,
			Translation: rec.Translation,
			Timestamp:   rec.Timestamp,
			TurnNumber:  rec.TurnNumber,
		})
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].TurnNumber < messages[j].TurnNumber
	})

	out := SessionDetailOutput{Messages: messages}
	if meta != nil {
		summary := summarize(*meta)
		out.Session = &summary
	}
	return out, nil
}

type DeleteSessionInput struct {
	DeviceID  string
	SessionID string
}

type DeleteSessionOutput struct {
	DeletedCount int
}

// Delete removes a session's metadata and every message in one batch.
// Ownership is checked against the metadata record before any delete: the
// secondary index would otherwise allow any caller holding a session id to
// purge another device's data.
func (s *SessionService) Delete(ctx context.Context, in DeleteSessionInput) (DeleteSessionOutput, error) {
	if in.DeviceID == "" || in.SessionID == "" {
		return DeleteSessionOutput{}, newError(ErrorInvalidInput, "missing_device_or_session", nil)
	}

	meta, records, err := s.store.GetSessionItems(ctx, in.SessionID)
	if err != nil {
		return DeleteSessionOutput{}, newError(ErrorInternal, "session_lookup_error", err)
	}
	if meta == nil && len(records) == 0 {
		return DeleteSessionOutput{}, newError(ErrorNotFound, "session_not_found", nil)
	}
	if meta != nil && meta.DeviceID != in.DeviceID {
		return DeleteSessionOutput{}, newError(ErrorAccessDenied, "session_owner_mismatch", nil)
	}

	keys := make([]store.ItemKey, 0, len(records)+1)
	if meta != nil {
		keys = append(keys, store.ItemKey{PK: meta.PK, SK: meta.SK})
	}
	for _, rec := range records {
		keys = append(keys, store.ItemKey{PK: rec.PK, SK: rec.SK})
	}

	deleted, err := s.store.BatchDelete(ctx, keys)
	if err != nil {
		return DeleteSessionOutput{DeletedCount: deleted}, newError(ErrorInternal, "session_delete_error", err)
	}
	return DeleteSessionOutput{DeletedCount: deleted}, nil
}

func summarize(meta domain.SessionMeta) SessionSummary {
	return SessionSummary{
		SessionID: meta.SessionID,
		TutorName: meta.TutorName,
		Topic:     meta.Topic,
		Accent:    meta.Accent,
		Level:     meta.Level,
		StartedAt: meta.StartedAt,
		EndedAt:   meta.EndedAt,
		Duration:  meta.Duration,
		TurnCount: meta.TurnCount,
		WordCount: meta.WordCount,
		Status:    meta.Status,
	}
}

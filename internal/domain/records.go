package domain

// Record type tags stored in the "type" attribute. Entities share one table
// and are distinguished by this tag plus their sort-key prefix.
const (
	TypeUserSettings = "USER_SETTINGS"
	TypeSessionMeta  = "SESSION_META"
	TypeMessage      = "MESSAGE"
	TypePetCharacter = "PET_CHARACTER"
	TypeCustomTutor  = "CUSTOM_TUTOR"
	TypeUserMemory   = "USER_MEMORY"
	TypeCustomVoice  = "CUSTOM_VOICE"
)

// Session lifecycle states.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// SettingsRecord holds per-device practice preferences, overwritten on save.
type SettingsRecord struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	Type      string         `dynamodbav:"type"`
	DeviceID  string         `dynamodbav:"deviceId"`
	Settings  map[string]any `dynamodbav:"settings"`
	CreatedAt string         `dynamodbav:"createdAt"`
	UpdatedAt string         `dynamodbav:"updatedAt"`
	TTL       int64          `dynamodbav:"ttl"`
}

// SessionMeta is the per-session metadata record. The sort key embeds the
// start timestamp so an owner scan returns sessions in chronological order;
// GSI1 allows resolving the session by its id alone.
type SessionMeta struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	GSI1PK    string         `dynamodbav:"GSI1PK"`
	GSI1SK    string         `dynamodbav:"GSI1SK"`
	Type      string         `dynamodbav:"type"`
	DeviceID  string         `dynamodbav:"deviceId"`
	SessionID string         `dynamodbav:"sessionId"`
	TutorName string         `dynamodbav:"tutorName"`
	Topic     string         `dynamodbav:"topic"`
	Accent    string         `dynamodbav:"accent"`
	Level     string         `dynamodbav:"level"`
	Gender    string         `dynamodbav:"gender"`
	Settings  map[string]any `dynamodbav:"settings"`
	StartedAt string         `dynamodbav:"startedAt"`
	EndedAt   string         `dynamodbav:"endedAt,omitempty"`
	Duration  int            `dynamodbav:"duration"`
	TurnCount int            `dynamodbav:"turnCount"`
	WordCount int            `dynamodbav:"wordCount"`
	Status    string         `dynamodbav:"status"`
	CreatedAt string         `dynamodbav:"createdAt"`
	TTL       int64          `dynamodbav:"ttl"`
}

// MessageRecord is one persisted conversational turn within a session.
type MessageRecord struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	Type        string `dynamodbav:"type"`
	DeviceID    string `dynamodbav:"deviceId"`
	SessionID   string `dynamodbav:"sessionId"`
	Role        string `dynamodbav:"role"`
	Content     string `dynamodbav:"content"`
	Translation string `dynamodbav:"translation,omitempty"`
	TurnNumber  int    `dynamodbav:"turnNumber"`
	Timestamp   string `dynamodbav:"timestamp"`
	CreatedAt   string `dynamodbav:"createdAt"`
	TTL         int64  `dynamodbav:"ttl"`
}

// PetCharacter is the per-device pet customization record. ImageKey is the
// S3 object key and is the source of truth; presentation URLs are derived
// from it on read.
type PetCharacter struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Type      string `dynamodbav:"type"`
	DeviceID  string `dynamodbav:"deviceId"`
	PetName   string `dynamodbav:"petName"`
	ImageKey  string `dynamodbav:"imageKey"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	TTL       int64  `dynamodbav:"ttl"`
}

// CustomTutor is the per-device tutor customization record.
type CustomTutor struct {
	PK                string   `dynamodbav:"PK"`
	SK                string   `dynamodbav:"SK"`
	Type              string   `dynamodbav:"type"`
	DeviceID          string   `dynamodbav:"deviceId"`
	TutorName         string   `dynamodbav:"tutorName"`
	ImageKey          string   `dynamodbav:"imageKey"`
	ConversationStyle string   `dynamodbav:"conversationStyle"`
	Accent            string   `dynamodbav:"accent"`
	Gender            string   `dynamodbav:"gender"`
	Tags              []string `dynamodbav:"tags"`
	VoiceID           string   `dynamodbav:"voiceId,omitempty"`
	CreatedAt         string   `dynamodbav:"createdAt"`
	UpdatedAt         string   `dynamodbav:"updatedAt"`
	TTL               int64    `dynamodbav:"ttl"`
}

// UserMemory stores long-term facts about a user, merged across sessions.
type UserMemory struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	Type      string         `dynamodbav:"type"`
	UserID    string         `dynamodbav:"userId"`
	Memory    map[string]any `dynamodbav:"memory"`
	UpdatedAt string         `dynamodbav:"updatedAt"`
	TTL       int64          `dynamodbav:"ttl"`
}

// CustomVoice records a cloned voice id for a user.
type CustomVoice struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Type      string `dynamodbav:"type"`
	UserID    string `dynamodbav:"userId"`
	VoiceID   string `dynamodbav:"voiceId"`
	VoiceName string `dynamodbav:"voiceName"`
	SampleKey string `dynamodbav:"sampleKey"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	TTL       int64  `dynamodbav:"ttl"`
}

// DailyUsage holds the per-device counters for one KST calendar day. The day
// lives in the sort key, so counters reset implicitly at midnight KST.
type DailyUsage struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	ChatCount    int    `dynamodbav:"chatCount"`
	TtsCount     int    `dynamodbav:"ttsCount"`
	AnalyzeCount int    `dynamodbav:"analyzeCount"`
	Plan         string `dynamodbav:"plan,omitempty"`
	UpdatedAt    string `dynamodbav:"updatedAt"`
	TTL          int64  `dynamodbav:"ttl"`
}

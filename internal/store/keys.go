package store

import (
	"time"

	"github.com/1282saa/ringringv2/internal/domain"
)

// Key layout of the single table. Partition keys group all records of one
// device or user; sort-key prefixes separate the entity kinds within the
// partition. GSI1 re-keys session metadata and messages by session id so a
// session can be resolved without knowing the owning device. These literals
// are the wire format of existing stored data and must not change.
const (
	devicePKPrefix = "DEVICE#"
	userPKPrefix   = "USER#"

	skSettings      = "SETTINGS"
	skPet           = "PET"
	skCustomTutor   = "CUSTOM_TUTOR"
	skMemory        = "MEMORY"
	skCustomVoice   = "CUSTOM_VOICE"
	skSessionPrefix = "SESSION#"
	skUsagePrefix   = "USAGE#"

	gsi1Name    = "GSI1"
	gsi1MetaSK  = "META"
	msgSKPrefix = "MSG#"

	ttlDuration = 90 * 24 * time.Hour
	// Memory records outlive ordinary session data by one extra year.
	memoryTTLExtra = 365 * 24 * time.Hour
)

func devicePK(deviceID string) string {
	return devicePKPrefix + deviceID
}

func userPK(userID string) string {
	return userPKPrefix + userID
}

// sessionMetaSK embeds the start timestamp so an owner prefix scan returns
// sessions in chronological sort-key order.
func sessionMetaSK(startedAt, sessionID string) string {
	return skSessionPrefix + startedAt + "#" + sessionID + "#META"
}

func messageSK(sessionID, timestamp string) string {
	return skSessionPrefix + sessionID + "#" + msgSKPrefix + timestamp
}

func sessionGSIPK(sessionID string) string {
	return skSessionPrefix + sessionID
}

func messageGSISK(timestamp string) string {
	return msgSKPrefix + timestamp
}

func usageSK(day string) string {
	return skUsagePrefix + day
}

func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// NewSettingsRecord builds a settings record keyed to the device.
func NewSettingsRecord(deviceID string, settings map[string]any) domain.SettingsRecord {
	now := domain.NowKST()
	return domain.SettingsRecord{
		PK:        devicePK(deviceID),
		SK:        skSettings,
		Type:      domain.TypeUserSettings,
		DeviceID:  deviceID,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
		TTL:       ttlValue(),
	}
}

// NewSessionMeta builds an active session metadata record with both key pairs
// populated.
func NewSessionMeta(deviceID, sessionID, tutorName string, settings map[string]any) domain.SessionMeta {
	now := domain.NowKST()
	return domain.SessionMeta{
		PK:        devicePK(deviceID),
		SK:        sessionMetaSK(now, sessionID),
		GSI1PK:    sessionGSIPK(sessionID),
		GSI1SK:    gsi1MetaSK,
		Type:      domain.TypeSessionMeta,
		DeviceID:  deviceID,
		SessionID: sessionID,
		TutorName: tutorName,
		Topic:     settingString(settings, "topic", "daily"),
		Accent:    settingString(settings, "accent", "us"),
		Level:     settingString(settings, "level", "intermediate"),
		Gender:    settingString(settings, "gender", "female"),
		Settings:  settings,
		StartedAt: now,
		Status:    domain.SessionActive,
		CreatedAt: now,
		TTL:       ttlValue(),
	}
}

// NewMessageRecord builds one conversational turn keyed under the device and
// mirrored onto GSI1 under the session.
func NewMessageRecord(deviceID, sessionID, role, content, translation string, turnNumber int) domain.MessageRecord {
	now := domain.NowKST()
	return domain.MessageRecord{
		PK:          devicePK(deviceID),
		SK:          messageSK(sessionID, now),
		GSI1PK:      sessionGSIPK(sessionID),
		GSI1SK:      messageGSISK(now),
		Type:        domain.TypeMessage,
		DeviceID:    deviceID,
		SessionID:   sessionID,
		Role:        role,
		Content:     content,
		Translation: translation,
		TurnNumber:  turnNumber,
		Timestamp:   now,
		CreatedAt:   now,
		TTL:         ttlValue(),
	}
}

// NewPetCharacter builds the per-device pet record. imageKey is the S3 object
// key, not a URL.
func NewPetCharacter(deviceID, petName, imageKey string) domain.PetCharacter {
	now := domain.NowKST()
	return domain.PetCharacter{
		PK:        devicePK(deviceID),
		SK:        skPet,
		Type:      domain.TypePetCharacter,
		DeviceID:  deviceID,
		PetName:   petName,
		ImageKey:  imageKey,
		CreatedAt: now,
		UpdatedAt: now,
		TTL:       ttlValue(),
	}
}

// NewCustomTutor builds the per-device custom tutor record.
func NewCustomTutor(deviceID string, tutor domain.CustomTutor) domain.CustomTutor {
	now := domain.NowKST()
	tutor.PK = devicePK(deviceID)
	tutor.SK = skCustomTutor
	tutor.Type = domain.TypeCustomTutor
	tutor.DeviceID = deviceID
	tutor.CreatedAt = now
	tutor.UpdatedAt = now
	tutor.TTL = ttlValue()
	return tutor
}

// NewUserMemory builds the per-user memory record with the extended TTL.
func NewUserMemory(userID string, memory map[string]any) domain.UserMemory {
	return domain.UserMemory{
		PK:        userPK(userID),
		SK:        skMemory,
		Type:      domain.TypeUserMemory,
		UserID:    userID,
		Memory:    memory,
		UpdatedAt: domain.NowKST(),
		TTL:       time.Now().Add(ttlDuration + memoryTTLExtra).Unix(),
	}
}

// NewCustomVoice builds the per-user cloned voice record.
func NewCustomVoice(userID, voiceID, voiceName, sampleKey string) domain.CustomVoice {
	now := domain.NowKST()
	return domain.CustomVoice{
		PK:        userPK(userID),
		SK:        skCustomVoice,
		Type:      domain.TypeCustomVoice,
		UserID:    userID,
		VoiceID:   voiceID,
		VoiceName: voiceName,
		SampleKey: sampleKey,
		CreatedAt: now,
		UpdatedAt: now,
		TTL:       ttlValue(),
	}
}

func settingString(settings map[string]any, key, fallback string) string {
	if settings == nil {
		return fallback
	}
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

package usecase

import (
	"fmt"
	"strings"

	"github.com/1282saa/ringringv2/internal/domain"
)

var accentNames = map[string]string{
	"us": "American English",
	"uk": "British English",
	"au": "Australian English",
	"in": "Indian English",
}

var levelNames = map[string]string{
	"beginner":     "Beginner (use simple words and short sentences)",
	"intermediate": "Intermediate (normal conversation level)",
	"advanced":     "Advanced (use complex vocabulary and idioms)",
}

var topicNames = map[string]string{
	"business":  "Business and workplace situations",
	"daily":     "Daily life and casual conversation",
	"travel":    "Travel and tourism",
	"interview": "Job interviews and professional settings",
}

var stylePrompts = map[string]string{
	"teacher": "You are a patient and encouraging English tutor. Gently correct mistakes when appropriate and provide helpful tips.",
	"friend":  "You are a close friend having a casual chat. Use informal language, be playful, and share relatable experiences.",
	"lover":   "You are a loving and caring partner. Be affectionate, use sweet nicknames occasionally (like \"sweetie\", \"honey\", \"dear\"), show genuine interest in their day, and be supportive and encouraging. Express warmth and care in your responses while still helping them practice English.",
}

func buildSystemPrompt(settings map[string]any, pinned string) string {
	accent := lookupName(accentNames, settingValue(settings, "accent"), "American English")
	level := lookupName(levelNames, settingValue(settings, "level"), "Intermediate (normal conversation level)")
	topic := lookupName(topicNames, settingValue(settings, "topic"), "Business and workplace situations")
	style := lookupName(stylePrompts, settingValue(settings, "conversationStyle"), stylePrompts["teacher"])

	prompt := strings.Join([]string{
		"You are a friendly English conversation partner on a phone call.",
		"",
		"CRITICAL RULES:",
		"1. Keep responses SHORT: 1-2 sentences only",
		"2. ALWAYS end with a simple follow-up question",
		"3. NEVER re-introduce yourself after the first message",
		"4. NEVER say \"Hello\", \"Hi there\", or greet again after the conversation has started",
		"5. Focus on the CONTENT of what the user said, not their grammar",
		"6. Be warm and natural, like a friend chatting",
		"",
		"Context:",
		"- Accent: " + accent,
		"- Level: " + level,
		"- Topic: " + topic,
		"",
		style,
		"",
		"Response style examples:",
		"- \"That sounds interesting! What made you choose that career?\"",
		"- \"Oh nice! Do you do that often?\"",
		"- \"I see. What do you enjoy most about it?\"",
		"",
		"Only for the VERY FIRST message: Give a brief, friendly greeting and ask ONE simple question about the topic.",
		"After that: NO greetings, NO introductions, just continue the conversation naturally.",
	}, "\n")

	if pinned = strings.TrimSpace(pinned); pinned != "" {
		prompt += "\n\n" + pinned
	}
	return prompt
}

// memoryFactLabels maps stored fact categories to prompt labels, with a cap
// on how many list entries each contributes.
var memoryFactLabels = []struct {
	key   string
	label string
	limit int
}{
	{"name", "Name", 1},
	{"job", "Job", 1},
	{"company", "Company", 1},
	{"hobbies", "Hobbies", 5},
	{"location", "Location", 1},
	{"family", "Family", 1},
	{"recent_events", "Recent events", 3},
	{"goals", "Goals", 3},
	{"preferences", "Preferences", 3},
}

// buildMemoryPrompt renders stored user facts as a system-prompt addition.
// Returns "" when nothing is remembered.
func buildMemoryPrompt(memory map[string]any) string {
	if len(memory) == 0 {
		return ""
	}

	var parts []string
	for _, fact := range memoryFactLabels {
		value := renderFact(memory[fact.key], fact.limit)
		if value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("- %s: %s", fact.label, value))
	}
	if len(parts) == 0 {
		return ""
	}

	return "\n\nIMPORTANT - You remember these facts about this user from previous conversations:\n" +
		strings.Join(parts, "\n") +
		"\n\nUse this information naturally in conversation. For example, ask follow-up questions about their job, reference their hobbies, or ask about recent events they mentioned. This makes the conversation more personal and engaging."
}

func renderFact(v any, limit int) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		items := make([]string, 0, limit)
		for _, entry := range t {
			if s, ok := entry.(string); ok && s != "" {
				items = append(items, s)
			}
			if len(items) == limit {
				break
			}
		}
		return strings.Join(items, ", ")
	case []string:
		if len(t) > limit {
			t = t[:limit]
		}
		return strings.Join(t, ", ")
	}
	return ""
}

const analysisPromptTemplate = `Analyze the following English conversation between a student and an AI tutor.
Provide a detailed analysis in JSON format.

Conversation:
%s

Analyze ONLY the student's messages (role: user) and return a JSON object with:

{
  "cafp_scores": {
    "complexity": <0-100, vocabulary diversity and sentence structure complexity>,
    "accuracy": <0-100, grammatical correctness>,
    "fluency": <0-100, natural flow and coherence>,
    "pronunciation": <0-100, estimate based on word choice indicating possible pronunciation difficulties>
  },
  "fillers": {
    "count": <number of filler words used>,
    "words": [<list of filler words found: um, uh, like, you know, basically, actually, literally, I mean, so, well, etc.>],
    "percentage": <percentage of words that are fillers>
  },
  "grammar_corrections": [
    {
      "original": "<original sentence with error>",
      "corrected": "<corrected sentence>",
      "explanation": "<brief explanation in Korean>"
    }
  ],
  "vocabulary": {
    "total_words": <total words spoken by student>,
    "unique_words": <unique words count>,
    "advanced_words": [<list of advanced vocabulary used>],
    "suggested_words": [<3-5 advanced words they could have used>]
  },
  "overall_feedback": "<2-3 sentences of encouraging feedback in Korean>",
  "improvement_tips": [<3 specific tips for improvement in Korean>]
}

Return ONLY valid JSON, no other text.`

const extractionPromptTemplate = `Analyze this English conversation and extract any personal information about the user (student).

Conversation:
%s

Extract and return a JSON object with any information you can find about the user:
{
  "name": "<user's name if mentioned, or null>",
  "job": "<user's job/occupation if mentioned, or null>",
  "company": "<user's company/workplace if mentioned, or null>",
  "hobbies": [<list of hobbies/interests mentioned>],
  "family": "<family info if mentioned, or null>",
  "location": "<where user lives if mentioned, or null>",
  "goals": [<learning goals or life goals mentioned>],
  "recent_events": [<recent events/plans user mentioned, with dates if available>],
  "preferences": [<user's preferences, likes, dislikes>],
  "other_facts": [<any other interesting facts about the user>]
}

Only include fields where you found actual information. Use null for fields with no data.
Return ONLY valid JSON, no other text.`

func buildAnalysisPrompt(conversation string) string {
	return fmt.Sprintf(analysisPromptTemplate, conversation)
}

func buildExtractionPrompt(conversation string) string {
	return fmt.Sprintf(extractionPromptTemplate, conversation)
}

// formatConversation renders messages as "Student:"/"Tutor:" lines for the
// analysis and extraction prompts.
func formatConversation(messages []domain.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Tutor"
		if m.Role == domain.RoleUser {
			speaker = "Student"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func lookupName(names map[string]string, key, fallback string) string {
	if v, ok := names[key]; ok {
		return v
	}
	return fallback
}

func settingValue(settings map[string]any, key string) string {
	if settings == nil {
		return ""
	}
	v, _ := settings[key].(string)
	return v
}

package models

import "time"

// ContextSource identifies where a context entry came from.
type ContextSource string

const (
	SourceEmail    ContextSource = "email"
	SourceCalendar ContextSource = "calendar"
	SourceNotes    ContextSource = "notes"
	SourceMeeting  ContextSource = "meeting"
	SourceChat     ContextSource = "chat"
	SourceDocument ContextSource = "document"
	SourceVoice    ContextSource = "voice"
	SourceManual   ContextSource = "manual"
)

// ValidContextSource reports whether s is one of the eight enumerated kinds.
func ValidContextSource(s ContextSource) bool {
	switch s {
	case SourceEmail, SourceCalendar, SourceNotes, SourceMeeting,
		SourceChat, SourceDocument, SourceVoice, SourceManual:
		return true
	}
	return false
}

// ContextEntry is a free-text record from an external source (email,
// meeting notes, voice transcript) used as input to productivity analysis.
type ContextEntry struct {
	ID         string        `json:"id" validate:"omitempty,uuid4"`
	Content    string        `json:"content" validate:"required"`
	SourceType ContextSource `json:"source_type" validate:"required,oneof=email calendar notes meeting chat document voice manual"`
	Timestamp  time.Time     `json:"timestamp"`

	// AI processing fields
	IsProcessed       bool           `json:"is_processed"`
	ProcessedAt       *time.Time     `json:"processed_at,omitempty"`
	ExtractedKeywords []string       `json:"extracted_keywords,omitempty"`
	SentimentScore    float64        `json:"sentiment_score"` // -1 to 1
	UrgencyIndicators []string       `json:"urgency_indicators,omitempty"`
	DeadlineMentions  []string       `json:"deadline_mentions,omitempty"`
	ProcessedInsights map[string]any `json:"processed_insights,omitempty"`

	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
}

// MarkProcessed flags the entry as processed by AI.
func (c *ContextEntry) MarkProcessed(now time.Time) {
	c.IsProcessed = true
	c.ProcessedAt = &now
}

// TaskContextRelation links a task to a relevant context entry with a
// relevance score on a 0-1 scale. At most one relation may exist per
// (task, context entry) pair.
type TaskContextRelation struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task" validate:"required,uuid4"`
	ContextEntryID string    `json:"context_entry" validate:"required,uuid4"`
	RelevanceScore float64   `json:"relevance_score" validate:"gte=0,lte=1"`
	CreatedAt      time.Time `json:"created_at"`

	// Denormalized for list responses
	TaskTitle      string `json:"task_title,omitempty"`
	ContextContent string `json:"context_content,omitempty"`
}

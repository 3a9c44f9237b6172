package models

import "time"

// InsightType classifies an AI-generated insight.
type InsightType string

const (
	InsightProductivity   InsightType = "productivity"
	InsightPattern        InsightType = "pattern"
	InsightRecommendation InsightType = "recommendation"
	InsightPrediction     InsightType = "prediction"
	InsightOptimization   InsightType = "optimization"
)

// ValidInsightType reports whether t is a defined insight type.
func ValidInsightType(t InsightType) bool {
	switch t {
	case InsightProductivity, InsightPattern, InsightRecommendation,
		InsightPrediction, InsightOptimization:
		return true
	}
	return false
}

// AIInsight is a persisted AI-generated artifact with a confidence score.
type AIInsight struct {
	ID              string         `json:"id" validate:"omitempty,uuid4"`
	InsightType     InsightType    `json:"insight_type" validate:"required,oneof=productivity pattern recommendation prediction optimization"`
	Title           string         `json:"title" validate:"required,max=200"`
	Description     string         `json:"description"`
	Data            map[string]any `json:"data,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"` // 0-1 scale
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired reports whether the insight has passed its expiry. Insights
// without an expiry never expire. Expiry is a derived read; the row stays.
func (i *AIInsight) IsExpired(now time.Time) bool {
	if i.ExpiresAt != nil {
		return now.After(*i.ExpiresAt)
	}
	return false
}

// ContextAnalysis is one persisted run of the context-analysis pipeline.
type ContextAnalysis struct {
	ID                string    `json:"id"`
	AnalysisDate      time.Time `json:"analysis_date"`
	ContextSummary    string    `json:"context_summary"`
	KeyThemes         []string  `json:"key_themes"`
	UrgencyIndicators []string  `json:"urgency_indicators"`
	SuggestedActions  []string  `json:"suggested_actions"`
	ProductivityScore float64   `json:"productivity_score"` // 0-100 scale
	FocusAreas        []string  `json:"focus_areas"`
}

// ProductivityMetrics is a per-day rollup of task activity. Date is unique.
type ProductivityMetrics struct {
	ID                    string    `json:"id"`
	Date                  time.Time `json:"date"`
	TasksCompleted        int       `json:"tasks_completed"`
	TasksCreated          int       `json:"tasks_created"`
	AverageCompletionTime float64   `json:"average_completion_time"` // hours
	ProductivityScore     float64   `json:"productivity_score"`      // 0-100 scale
	FocusTime             float64   `json:"focus_time"`              // hours
	DistractionEvents     int       `json:"distraction_events"`
	PeakProductivityHour  *int      `json:"peak_productivity_hour,omitempty"` // 0-23
}

// OperationType classifies an AI-invoking operation for audit logging.
type OperationType string

const (
	OpTaskEnhancement      OperationType = "task_enhancement"
	OpContextAnalysis      OperationType = "context_analysis"
	OpProductivityAnalysis OperationType = "productivity_analysis"
	OpPatternRecognition   OperationType = "pattern_recognition"
	OpVoiceProcessing      OperationType = "voice_processing"
)

// AIProcessingLog is the audit record of one AI-invoking operation, its
// timing, and outcome. These rows are the sole durable record of AI-side
// failures.
type AIProcessingLog struct {
	ID             string         `json:"id"`
	OperationType  OperationType  `json:"operation_type"`
	InputData      map[string]any `json:"input_data,omitempty"`
	OutputData     map[string]any `json:"output_data,omitempty"`
	ProcessingTime float64        `json:"processing_time"` // seconds
	Success        bool           `json:"success"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

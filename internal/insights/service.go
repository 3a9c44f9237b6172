// Package insights orchestrates AI operations over the store: it loads the
// inputs, records an audit log row before each engine call, applies the
// engine's output back to the store, and closes the log with timing and
// outcome. Engine-level failures never propagate; they surface only as
// fallback values and log rows.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/josephgoksu/tasksense/internal/ai"
	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

// analysisWindow is the lookback for context analysis and productivity
// reporting.
const analysisWindow = 7 * 24 * time.Hour

// maxAnalysisContexts caps how many recent context entries are counted into
// an analysis run.
const maxAnalysisContexts = 10

// Service wires the store and the AI engine together.
type Service struct {
	store  store.Store
	engine *ai.Engine
	now    func() time.Time
}

// New creates an orchestration service over st and engine.
func New(st store.Store, engine *ai.Engine) *Service {
	return &Service{store: st, engine: engine, now: time.Now}
}

// EnhanceTask runs AI enhancement for one task and persists the results.
// The returned map is the engine's enhanced data (task fields plus model
// suggestions). Returns store.ErrTaskNotFound when the task does not exist.
func (s *Service) EnhanceTask(ctx context.Context, taskID string) (map[string]any, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	// Audit row goes in before the engine call so a crash mid-flight still
	// leaves a trace.
	logRow, err := s.store.CreateProcessingLog(models.AIProcessingLog{
		OperationType: models.OpTaskEnhancement,
		InputData: map[string]any{
			"task_id":    task.ID,
			"task_title": task.Title,
		},
		Success:   true,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create processing log: %w", err)
	}

	start := s.now()
	enhanced := s.engine.EnhanceTask(ctx, &task)

	if v, ok := enhanced["enhanced_description"]; ok {
		task.AIEnhancedDescription = stringify(v)
	}
	if v, ok := enhanced["estimated_duration"]; ok {
		task.AIEstimatedDuration = stringify(v)
	}
	if v, ok := enhanced["suggested_category"]; ok {
		if task.AIInsights == nil {
			task.AIInsights = map[string]any{}
		}
		task.AIInsights["suggested_category"] = v
	}
	task.AIEnhanced = true

	_, saveErr := s.store.SaveTask(task)
	elapsed := s.now().Sub(start).Seconds()

	if saveErr != nil {
		s.closeLog(logRow.ID, nil, elapsed, false, saveErr.Error())
		return nil, fmt.Errorf("save enhanced task: %w", saveErr)
	}

	s.closeLog(logRow.ID, enhanced, elapsed, true, "")
	return enhanced, nil
}

// AnalyzeContext runs the context-analysis pipeline over the last week of
// tasks and context entries and persists a ContextAnalysis record.
func (s *Service) AnalyzeContext(ctx context.Context) (models.ContextAnalysis, error) {
	now := s.now().UTC()
	weekAgo := now.Add(-analysisWindow)

	tasks, err := s.store.ListTasks(store.TaskFilter{CreatedAfter: &weekAgo, Limit: 20})
	if err != nil {
		return models.ContextAnalysis{}, fmt.Errorf("list recent tasks: %w", err)
	}
	contexts, err := s.store.ListContextEntries(store.ContextFilter{Since: &weekAgo, Limit: maxAnalysisContexts})
	if err != nil {
		return models.ContextAnalysis{}, fmt.Errorf("list recent contexts: %w", err)
	}

	// Log counts only; raw task content does not belong in the audit table.
	logRow, err := s.store.CreateProcessingLog(models.AIProcessingLog{
		OperationType: models.OpContextAnalysis,
		InputData: map[string]any{
			"task_count":    len(tasks),
			"context_count": len(contexts),
		},
		Success:   true,
		Timestamp: now,
	})
	if err != nil {
		return models.ContextAnalysis{}, fmt.Errorf("create processing log: %w", err)
	}

	start := s.now()

	taskRefs := make([]*models.Task, len(tasks))
	for i := range tasks {
		taskRefs[i] = &tasks[i]
	}
	result := s.engine.AnalyzeContext(ctx, taskRefs, nil)

	summary := result.Summary
	if summary == "" {
		summary = "No summary available"
	}

	analysis, err := s.store.CreateAnalysis(models.ContextAnalysis{
		AnalysisDate:      now,
		ContextSummary:    summary,
		KeyThemes:         result.Patterns,
		UrgencyIndicators: result.FocusAreas,
		SuggestedActions:  result.Recommendations,
		ProductivityScore: 75.0, // default score, not yet calculated
		FocusAreas:        result.FocusAreas,
	})
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		s.closeLog(logRow.ID, nil, elapsed, false, err.Error())
		return models.ContextAnalysis{}, fmt.Errorf("create context analysis: %w", err)
	}

	s.closeLog(logRow.ID, map[string]any{
		"summary":         result.Summary,
		"patterns":        result.Patterns,
		"insights":        result.Insights,
		"recommendations": result.Recommendations,
		"focus_areas":     result.FocusAreas,
	}, elapsed, true, "")

	return analysis, nil
}

// InsightItem is one ephemeral productivity insight. These are derived from
// stored task data on every request and are not persisted.
type InsightItem struct {
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ReportMetrics is the aggregate block of the productivity report.
type ReportMetrics struct {
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	CompletionRate    float64 `json:"completion_rate"`
	HighPriorityTasks int     `json:"high_priority_tasks"`
}

// InsightsReport is the payload of the productivity-insights endpoint.
type InsightsReport struct {
	Insights []InsightItem `json:"insights"`
	Metrics  ReportMetrics `json:"metrics"`
}

// ProductivityInsights derives rule-based insights from the last week of
// tasks. No AI call is involved; thresholds on completion rate and priority
// mix drive the output.
func (s *Service) ProductivityInsights(ctx context.Context) (InsightsReport, error) {
	weekAgo := s.now().UTC().Add(-analysisWindow)

	tasks, err := s.store.ListTasks(store.TaskFilter{CreatedAfter: &weekAgo})
	if err != nil {
		return InsightsReport{}, fmt.Errorf("list recent tasks: %w", err)
	}

	total := len(tasks)
	completed := 0
	highPriority := 0
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			completed++
		}
		if t.Priority == models.PriorityHigh || t.Priority == models.PriorityUrgent {
			highPriority++
		}
	}

	completionRate := 0.0
	if total > 0 {
		completionRate = float64(completed) / float64(total) * 100
	}

	insights := []InsightItem{}
	if completionRate > 80 {
		insights = append(insights, InsightItem{
			Type:            string(models.InsightProductivity),
			Title:           "High Productivity Week",
			Description:     fmt.Sprintf("You completed %.1f%% of your tasks this week!", completionRate),
			ConfidenceScore: 0.9,
		})
	} else if completionRate < 50 {
		insights = append(insights, InsightItem{
			Type:            string(models.InsightRecommendation),
			Title:           "Focus Improvement Needed",
			Description:     "Consider breaking down large tasks into smaller, manageable pieces.",
			ConfidenceScore: 0.8,
		})
	}

	if float64(highPriority) > float64(total)*0.6 {
		insights = append(insights, InsightItem{
			Type:            string(models.InsightPattern),
			Title:           "High Priority Pattern",
			Description:     "You tend to create many high-priority tasks. Consider prioritizing more strategically.",
			ConfidenceScore: 0.7,
		})
	}

	return InsightsReport{
		Insights: insights,
		Metrics: ReportMetrics{
			TotalTasks:        total,
			CompletedTasks:    completed,
			CompletionRate:    completionRate,
			HighPriorityTasks: highPriority,
		},
	}, nil
}

// WeeklySummary aggregates the last week of productivity metrics rows.
// Returns (nil, nil) when no rows exist for the window.
func (s *Service) WeeklySummary(ctx context.Context) (map[string]any, error) {
	weekAgo := s.now().UTC().Add(-analysisWindow)

	metrics, err := s.store.ListMetrics(&weekAgo)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	if len(metrics) == 0 {
		return nil, nil
	}

	var scoreSum float64
	totalCompleted := 0
	totalCreated := 0
	for _, m := range metrics {
		scoreSum += m.ProductivityScore
		totalCompleted += m.TasksCompleted
		totalCreated += m.TasksCreated
	}

	avgScore := scoreSum / float64(len(metrics))
	completionRatio := 0.0
	if totalCreated > 0 {
		completionRatio = float64(totalCompleted) / float64(totalCreated) * 100
	}

	return map[string]any{
		"average_productivity_score": round1(avgScore),
		"total_tasks_completed":      totalCompleted,
		"total_tasks_created":        totalCreated,
		"completion_ratio":           round1(completionRatio),
	}, nil
}

// closeLog finishes an audit row; failures are logged and absorbed so they
// never mask the primary operation's result.
func (s *Service) closeLog(id string, output map[string]any, seconds float64, success bool, errMsg string) {
	if err := s.store.FinishProcessingLog(id, output, seconds, success, errMsg); err != nil {
		slog.Error("finish processing log", "log", id, "error", err)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

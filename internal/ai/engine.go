// Package ai implements the task intelligence engine: description
// enhancement, priority and deadline suggestions, and context analysis over
// recent tasks. Every operation falls back to a deterministic default when no
// language model is configured or a call fails.
package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/josephgoksu/tasksense/internal/llm"
	"github.com/josephgoksu/tasksense/models"
)

// AnalysisResult holds the structured output of a context analysis.
type AnalysisResult struct {
	Summary         string
	Patterns        []string
	Insights        []string
	Recommendations []string
	FocusAreas      []string
}

// Engine runs AI operations against a text generator. A nil generator is
// valid and puts the engine in degraded mode where every operation returns
// its fallback value.
type Engine struct {
	gen llm.Generator
	now func() time.Time
}

// NewEngine creates an Engine. gen may be nil when no provider credential is
// configured.
func NewEngine(gen llm.Generator) *Engine {
	return &Engine{gen: gen, now: time.Now}
}

// Enabled reports whether a generator is configured.
func (e *Engine) Enabled() bool {
	return e.gen != nil
}

// EnhanceTask asks the model for an improved description, duration estimate
// and category suggestion. The returned map always contains the task's own
// title, description and priority; model suggestions are overlaid on top.
// Failures return the base map unchanged.
func (e *Engine) EnhanceTask(ctx context.Context, task *models.Task) map[string]any {
	base := map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"priority":    string(task.Priority),
		"due_date":    nil,
	}
	if task.DueDate != nil {
		base["due_date"] = task.DueDate.Format(time.RFC3339)
	}

	if e.gen == nil {
		slog.Warn("ai enhancement skipped, no generator configured")
		return base
	}

	out, err := e.gen.Generate(ctx, enhanceSystemPrompt, buildEnhancementPrompt(task), enhanceMaxTokens, enhanceTemperature)
	if err != nil {
		slog.Error("enhance task", "task", task.ID, "error", err)
		return base
	}

	merged := make(map[string]any, len(base)+4)
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range parseEnhancement(out) {
		merged[k] = v
	}
	return merged
}

// SuggestPriority returns a priority level for the task, folding the model's
// free-form answer onto the valid choices. Without a generator, or on error,
// the task's current priority is kept (medium when unset).
func (e *Engine) SuggestPriority(ctx context.Context, task *models.Task, contextData map[string]any) models.TaskPriority {
	fallback := task.Priority
	if fallback == "" {
		fallback = models.PriorityMedium
	}

	if e.gen == nil {
		return fallback
	}

	out, err := e.gen.Generate(ctx, prioritySystemPrompt, buildPriorityPrompt(task, contextData), priorityMaxTokens, priorityTemperature)
	if err != nil {
		slog.Error("suggest priority", "task", task.ID, "error", err)
		return fallback
	}
	return mapPriority(out)
}

// SuggestDeadline asks the model for a realistic deadline and converts a
// "N days" mention into a concrete time. Returns nil when no generator is
// configured, the call fails, or the answer carries no day count.
func (e *Engine) SuggestDeadline(ctx context.Context, task *models.Task) *time.Time {
	if e.gen == nil {
		return nil
	}

	out, err := e.gen.Generate(ctx, deadlineSystemPrompt, buildDeadlinePrompt(task), deadlineMaxTokens, deadlineTemperature)
	if err != nil {
		slog.Error("suggest deadline", "task", task.ID, "error", err)
		return nil
	}

	days, ok := parseDeadlineDays(out)
	if !ok {
		return nil
	}
	deadline := e.now().Add(time.Duration(days) * 24 * time.Hour)
	return &deadline
}

// AnalyzeContext feeds recent tasks to the model and returns productivity
// patterns, insights and recommendations. At most 20 tasks are included in
// the prompt. Failures return an empty result.
func (e *Engine) AnalyzeContext(ctx context.Context, tasks []*models.Task, userData map[string]any) AnalysisResult {
	empty := AnalysisResult{
		Patterns:        []string{},
		Insights:        []string{},
		Recommendations: []string{},
		FocusAreas:      []string{},
	}

	if e.gen == nil {
		return empty
	}

	out, err := e.gen.Generate(ctx, analysisSystemPrompt, buildAnalysisPrompt(tasks, userData), analysisMaxTokens, analysisTemperature)
	if err != nil {
		slog.Error("analyze context", "tasks", len(tasks), "error", err)
		return empty
	}
	return parseAnalysis(out)
}

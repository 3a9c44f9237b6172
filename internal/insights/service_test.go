package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/tasksense/internal/ai"
	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

// echoGenerator returns a fixed response for every call.
type echoGenerator struct {
	response string
}

func (g *echoGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error) {
	return g.response, nil
}

func newTestService(t *testing.T, gen *echoGenerator) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var engine *ai.Engine
	if gen != nil {
		engine = ai.NewEngine(gen)
	} else {
		engine = ai.NewEngine(nil)
	}
	return New(st, engine), st
}

func TestEnhanceTaskNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.EnhanceTask(context.Background(), "missing-id")
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}

func TestEnhanceTaskAppliesModelOutput(t *testing.T) {
	gen := &echoGenerator{response: `{"enhanced_description": "Step 1, step 2", "estimated_duration": 90, "suggested_category": "Work"}`}
	svc, st := newTestService(t, gen)

	task, err := st.CreateTask(*models.NewTask("Write proposal"))
	require.NoError(t, err)

	enhanced, err := svc.EnhanceTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Step 1, step 2", enhanced["enhanced_description"])

	saved, err := st.GetTask(task.ID)
	require.NoError(t, err)
	assert.True(t, saved.AIEnhanced)
	assert.Equal(t, "Step 1, step 2", saved.AIEnhancedDescription)
	assert.Equal(t, "90", saved.AIEstimatedDuration)
	assert.Equal(t, "Work", saved.AIInsights["suggested_category"])

	logs, err := st.ListProcessingLogs(store.LogFilter{OperationType: models.OpTaskEnhancement})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, task.ID, logs[0].InputData["task_id"])
	assert.Equal(t, "Step 1, step 2", logs[0].OutputData["enhanced_description"])
}

func TestEnhanceTaskDegradedEngineStillMarksEnhanced(t *testing.T) {
	svc, st := newTestService(t, nil)

	task, err := st.CreateTask(*models.NewTask("Untouched"))
	require.NoError(t, err)

	enhanced, err := svc.EnhanceTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Untouched", enhanced["title"])
	assert.NotContains(t, enhanced, "enhanced_description")

	saved, err := st.GetTask(task.ID)
	require.NoError(t, err)
	assert.True(t, saved.AIEnhanced)
	assert.Empty(t, saved.AIEnhancedDescription)

	logs, err := st.ListProcessingLogs(store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
}

func TestAnalyzeContextPersistsAnalysis(t *testing.T) {
	gen := &echoGenerator{response: `{"summary": "A focused week", "patterns": ["deep work"], "insights": ["good pace"], "recommendations": ["keep going"], "focus_areas": ["planning"]}`}
	svc, st := newTestService(t, gen)

	_, err := st.CreateTask(*models.NewTask("Recent task"))
	require.NoError(t, err)

	analysis, err := svc.AnalyzeContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A focused week", analysis.ContextSummary)
	assert.Equal(t, []string{"deep work"}, analysis.KeyThemes)
	assert.Equal(t, []string{"planning"}, analysis.UrgencyIndicators)
	assert.Equal(t, []string{"keep going"}, analysis.SuggestedActions)
	assert.Equal(t, []string{"planning"}, analysis.FocusAreas)
	assert.Equal(t, 75.0, analysis.ProductivityScore)

	logs, err := st.ListProcessingLogs(store.LogFilter{OperationType: models.OpContextAnalysis})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, float64(1), logs[0].InputData["task_count"])
}

func TestAnalyzeContextDefaultSummary(t *testing.T) {
	svc, st := newTestService(t, nil)

	analysis, err := svc.AnalyzeContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No summary available", analysis.ContextSummary)
	assert.Empty(t, analysis.KeyThemes)

	listed, err := st.ListAnalyses()
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestProductivityInsightsThresholds(t *testing.T) {
	svc, st := newTestService(t, nil)

	// 5 tasks, all completed and high priority: high productivity plus the
	// high-priority pattern.
	for i := 0; i < 5; i++ {
		task := models.NewTask("t")
		task.Status = models.StatusCompleted
		task.Priority = models.PriorityUrgent
		_, err := st.CreateTask(*task)
		require.NoError(t, err)
	}

	report, err := svc.ProductivityInsights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Metrics.TotalTasks)
	assert.Equal(t, 5, report.Metrics.CompletedTasks)
	assert.Equal(t, 100.0, report.Metrics.CompletionRate)
	assert.Equal(t, 5, report.Metrics.HighPriorityTasks)

	require.Len(t, report.Insights, 2)
	assert.Equal(t, "High Productivity Week", report.Insights[0].Title)
	assert.Equal(t, 0.9, report.Insights[0].ConfidenceScore)
	assert.Equal(t, "High Priority Pattern", report.Insights[1].Title)
	assert.Equal(t, 0.7, report.Insights[1].ConfidenceScore)
}

func TestProductivityInsightsLowCompletion(t *testing.T) {
	svc, st := newTestService(t, nil)

	for i := 0; i < 4; i++ {
		_, err := st.CreateTask(*models.NewTask("pending"))
		require.NoError(t, err)
	}

	report, err := svc.ProductivityInsights(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Insights, 1)
	assert.Equal(t, "Focus Improvement Needed", report.Insights[0].Title)
	assert.Equal(t, 0.8, report.Insights[0].ConfidenceScore)
	assert.Equal(t, 0.0, report.Metrics.CompletionRate)
}

func TestWeeklySummary(t *testing.T) {
	svc, st := newTestService(t, nil)

	none, err := svc.WeeklySummary(context.Background())
	require.NoError(t, err)
	assert.Nil(t, none)

	today := time.Now().UTC()
	_, err = st.UpsertMetrics(models.ProductivityMetrics{
		Date:              today,
		TasksCompleted:    3,
		TasksCreated:      4,
		ProductivityScore: 80,
	})
	require.NoError(t, err)
	_, err = st.UpsertMetrics(models.ProductivityMetrics{
		Date:              today.Add(-24 * time.Hour),
		TasksCompleted:    1,
		TasksCreated:      2,
		ProductivityScore: 60,
	})
	require.NoError(t, err)

	summary, err := svc.WeeklySummary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 70.0, summary["average_productivity_score"])
	assert.Equal(t, 4, summary["total_tasks_completed"])
	assert.Equal(t, 6, summary["total_tasks_created"])
	assert.Equal(t, 66.7, summary["completion_ratio"])
}

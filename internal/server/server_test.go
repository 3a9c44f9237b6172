package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/tasksense/internal/ai"
	"github.com/josephgoksu/tasksense/internal/insights"
	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := insights.New(st, ai.NewEngine(nil))
	return New(0, st, svc), st
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
}

func TestCreateTaskWithCategoryName(t *testing.T) {
	s, st := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/tasks", map[string]any{
		"title":         "Plan offsite",
		"category_name": "Events",
		"priority":      "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Plan offsite", body["title"])
	assert.Equal(t, "Events", body["category_name"])
	assert.Equal(t, models.DefaultCategoryColor, body["category_color"])

	// The implicit category exists and its usage was counted.
	cats, err := st.ListCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Events", cats[0].Name)
	assert.Equal(t, 1, cats[0].UsageCount)
}

func TestCreateTaskValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/tasks", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Contains(t, body["error"], "Title")
}

func TestToggleStatusTwice(t *testing.T) {
	s, st := newTestServer(t)

	task, err := st.CreateTask(*models.NewTask("Flip me"))
	require.NoError(t, err)

	rec := doRequest(t, s, "POST", "/api/tasks/"+task.ID+"/toggle_status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "completed", first["status"])
	assert.NotNil(t, first["completed_at"])

	rec = doRequest(t, s, "POST", "/api/tasks/"+task.ID+"/toggle_status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "pending", second["status"])
	_, hasCompletedAt := second["completed_at"]
	assert.False(t, hasCompletedAt, "completed_at must clear on un-complete")
}

func TestBulkUpdateRejectsUnknownField(t *testing.T) {
	s, st := newTestServer(t)

	task, err := st.CreateTask(*models.NewTask("One"))
	require.NoError(t, err)

	rec := doRequest(t, s, "POST", "/api/tasks/bulk_update", map[string]any{
		"task_ids":    []string{task.ID},
		"update_data": map[string]any{"title": "nope"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The task is untouched.
	got, err := st.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", got.Title)
}

func TestBulkUpdateStatus(t *testing.T) {
	s, st := newTestServer(t)

	a, err := st.CreateTask(*models.NewTask("a"))
	require.NoError(t, err)
	b, err := st.CreateTask(*models.NewTask("b"))
	require.NoError(t, err)

	rec := doRequest(t, s, "POST", "/api/tasks/bulk_update", map[string]any{
		"task_ids":    []string{a.ID, b.ID},
		"update_data": map[string]any{"status": "completed"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["updated_count"])
	assert.Equal(t, "Updated 2 tasks", body["message"])

	got, err := st.GetTask(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestTaskStatsEmptyStore(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/api/tasks/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody[store.TaskStats](t, rec)
	assert.Equal(t, 0, stats.TotalTasks)
	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Len(t, stats.RecentActivity, 7)
}

func TestEnhanceTaskEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	// Missing id
	rec := doRequest(t, s, "POST", "/api/ai/insights/enhance_task", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown task
	rec = doRequest(t, s, "POST", "/api/ai/insights/enhance_task", map[string]any{"task_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Degraded engine still succeeds and marks the task enhanced.
	task, err := st.CreateTask(*models.NewTask("Enhance me"))
	require.NoError(t, err)

	rec = doRequest(t, s, "POST", "/api/ai/insights/enhance_task", map[string]any{"task_id": task.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Task enhanced successfully", body["message"])

	saved, err := st.GetTask(task.ID)
	require.NoError(t, err)
	assert.True(t, saved.AIEnhanced)
}

func TestAnalyzeContextEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/ai/insights/analyze_context", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	analysis := decodeBody[models.ContextAnalysis](t, rec)
	assert.Equal(t, "No summary available", analysis.ContextSummary)
	assert.Equal(t, 75.0, analysis.ProductivityScore)

	// The run left an audit row.
	logs, err := st.ListProcessingLogs(store.LogFilter{OperationType: models.OpContextAnalysis})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestContextEntryAnalyzeFlipsFlag(t *testing.T) {
	s, st := newTestServer(t)

	entry, err := st.CreateContextEntry(models.ContextEntry{
		Content:    "Meeting notes: ship by Friday",
		SourceType: models.SourceMeeting,
	})
	require.NoError(t, err)
	require.False(t, entry.IsProcessed)

	rec := doRequest(t, s, "POST", "/api/contexts/"+entry.ID+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["is_processed"])
	assert.NotNil(t, body["processed_at"])
}

func TestInsightsDefaultActiveScope(t *testing.T) {
	s, st := newTestServer(t)

	_, err := st.CreateInsight(models.AIInsight{
		InsightType: models.InsightProductivity,
		Title:       "Active one",
		IsActive:    true,
	})
	require.NoError(t, err)
	_, err = st.CreateInsight(models.AIInsight{
		InsightType: models.InsightPattern,
		Title:       "Hidden one",
		IsActive:    false,
	})
	require.NoError(t, err)

	rec := doRequest(t, s, "GET", "/api/ai/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]models.AIInsight](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Active one", list[0].Title)
}

func TestCreateInsightDefaultsActive(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/ai/insights", map[string]any{
		"insight_type": "recommendation",
		"title":        "Try time blocking",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody[models.AIInsight](t, rec)
	assert.True(t, created.IsActive)
}

func TestWeeklySummaryNoData(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/api/ai/productivity-metrics/weekly_summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "No data available for the past week", body["message"])
}

func TestMetricsIngestion(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/ai/productivity-metrics", map[string]any{
		"tasks_created": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "date is required")

	rec = doRequest(t, s, "POST", "/api/ai/productivity-metrics", map[string]any{
		"date":            "2026-08-20T00:00:00Z",
		"tasks_created":   3,
		"tasks_completed": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeBody[models.ProductivityMetrics](t, rec)

	// Same date replaces the row instead of adding one.
	rec = doRequest(t, s, "POST", "/api/ai/productivity-metrics", map[string]any{
		"date":          "2026-08-20T00:00:00Z",
		"tasks_created": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeBody[models.ProductivityMetrics](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.TasksCreated)

	rec = doRequest(t, s, "GET", "/api/ai/productivity-metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]models.ProductivityMetrics](t, rec)
	assert.Len(t, list, 1)
}

func TestProductivityInsightsEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	task := models.NewTask("done")
	task.Status = models.StatusCompleted
	_, err := st.CreateTask(*task)
	require.NoError(t, err)

	rec := doRequest(t, s, "GET", "/api/ai/insights/productivity_insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[insights.InsightsReport](t, rec)
	assert.Equal(t, 1, report.Metrics.TotalTasks)
	assert.Equal(t, 100.0, report.Metrics.CompletionRate)
	require.NotEmpty(t, report.Insights)
	assert.Equal(t, "High Productivity Week", report.Insights[0].Title)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTaskRelationsEndToEnd(t *testing.T) {
	s, st := newTestServer(t)

	task, err := st.CreateTask(*models.NewTask("Linked"))
	require.NoError(t, err)
	entry, err := st.CreateContextEntry(models.ContextEntry{
		Content:    "related note",
		SourceType: models.SourceNotes,
	})
	require.NoError(t, err)

	rec := doRequest(t, s, "POST", "/api/task-context-relations", map[string]any{
		"task":            task.ID,
		"context_entry":   entry.ID,
		"relevance_score": 0.8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, "GET", "/api/task-context-relations?task="+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]models.TaskContextRelation](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Linked", list[0].TaskTitle)
	assert.Equal(t, "related note", list[0].ContextContent)

	// Duplicate pair is rejected by the unique constraint.
	rec = doRequest(t, s, "POST", "/api/task-context-relations", map[string]any{
		"task":            task.ID,
		"context_entry":   entry.ID,
		"relevance_score": 0.5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

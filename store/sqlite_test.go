package store

import (
	"errors"
	"testing"
	"time"

	"github.com/josephgoksu/tasksense/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateTask(models.Task{Title: "Bare task", PriorityScore: 0.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}
	if created.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", created.Status)
	}
	if created.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want medium", created.Priority)
	}
	if created.CompletedAt != nil {
		t.Error("pending task must not have completed_at")
	}
}

func TestCompletionInvariant(t *testing.T) {
	s := newTestStore(t)

	task := models.NewTask("Finish me")
	task.Status = models.StatusCompleted
	created, err := s.CreateTask(*task)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CompletedAt == nil {
		t.Fatal("completed task must get completed_at on create")
	}

	// Moving away from completed clears the timestamp.
	updated, err := s.UpdateTask(created.ID, map[string]any{"status": "in_progress"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Error("completed_at must clear when status leaves completed")
	}

	// Completing again re-stamps.
	updated, err = s.UpdateTask(created.ID, map[string]any{"status": "completed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Error("completed_at must be set when status becomes completed")
	}
}

func TestCategoryUsageCounting(t *testing.T) {
	s := newTestStore(t)

	category, err := s.GetOrCreateCategory("Work")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if category.UsageCount != 0 {
		t.Fatalf("fresh category usage = %d, want 0", category.UsageCount)
	}

	task := models.NewTask("In category")
	task.CategoryID = &category.ID
	created, err := s.CreateTask(*task)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Every save of a category-referencing task counts as usage.
	if _, err := s.SaveTask(created); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetCategory(category.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got.UsageCount != 2 {
		t.Errorf("usage_count = %d, want 2 (create + save)", got.UsageCount)
	}
}

func TestGetOrCreateCategoryIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.GetOrCreateCategory("Home")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := s.GetOrCreateCategory("Home")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("got two distinct categories for the same name")
	}
	if first.Color != models.DefaultCategoryColor || first.Icon != models.DefaultCategoryIcon {
		t.Errorf("implicit category missing default display hints: %+v", first)
	}
}

func TestPriorityScoreClampVsRawPath(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateTask(*models.NewTask("Scored"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The dedicated mutator clamps.
	clamped, err := s.UpdatePriorityScore(created.ID, 5.0)
	if err != nil {
		t.Fatalf("update score: %v", err)
	}
	if clamped.PriorityScore != 1.0 {
		t.Errorf("clamped score = %v, want 1.0", clamped.PriorityScore)
	}

	// The generic field path stores the value as given.
	raw, err := s.UpdateTask(created.ID, map[string]any{"priority_score": 5.0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if raw.PriorityScore != 5.0 {
		t.Errorf("raw score = %v, want 5.0", raw.PriorityScore)
	}
}

func TestUpdateTaskIgnoresUnknownKeys(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateTask(*models.NewTask("Stable"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := s.UpdateTask(created.ID, map[string]any{
		"title":      "Renamed",
		"id":         "evil-overwrite",
		"created_at": "2001-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Error("id must not be writable")
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q", updated.Title)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("created_at must not be writable")
	}
}

func TestUpdateTaskRejectsInvalidEnum(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateTask(*models.NewTask("Enum"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.UpdateTask(created.ID, map[string]any{"status": "paused"}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("invalid status err = %v, want ErrInvalidField", err)
	}
	if _, err := s.UpdateTask(created.ID, map[string]any{"priority": "asap"}); !errors.Is(err, ErrInvalidField) {
		t.Errorf("invalid priority err = %v, want ErrInvalidField", err)
	}
}

func TestBulkUpdateTasks(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.CreateTask(*models.NewTask("a"))
	b, _ := s.CreateTask(*models.NewTask("b"))

	// Disallowed field updates nothing.
	if _, err := s.BulkUpdateTasks([]string{a.ID, b.ID}, map[string]any{"title": "x"}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("err = %v, want ErrInvalidField", err)
	}
	got, _ := s.GetTask(a.ID)
	if got.Title != "a" {
		t.Error("rejected bulk update must not modify rows")
	}

	// Status change maintains completed_at in the same statement.
	count, err := s.BulkUpdateTasks([]string{a.ID, b.ID}, map[string]any{"status": "completed"})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	got, _ = s.GetTask(b.ID)
	if got.Status != models.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("bulk complete: status=%s completed_at=%v", got.Status, got.CompletedAt)
	}

	// And back.
	if _, err := s.BulkUpdateTasks([]string{a.ID, b.ID}, map[string]any{"status": "pending"}); err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	got, _ = s.GetTask(b.ID)
	if got.CompletedAt != nil {
		t.Error("completed_at must clear on bulk un-complete")
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)

	urgent := models.NewTask("Pay invoice")
	urgent.Priority = models.PriorityUrgent
	due := time.Now().UTC().Add(2 * time.Hour)
	urgent.DueDate = &due
	if _, err := s.CreateTask(*urgent); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := models.NewTask("Archive mail")
	done.Status = models.StatusCompleted
	if _, err := s.CreateTask(*done); err != nil {
		t.Fatalf("create: %v", err)
	}

	byStatus, err := s.ListTasks(TaskFilter{Status: models.StatusCompleted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Title != "Archive mail" {
		t.Errorf("status filter returned %+v", byStatus)
	}

	bySearch, err := s.ListTasks(TaskFilter{Search: "invoice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "Pay invoice" {
		t.Errorf("search filter returned %+v", bySearch)
	}

	now := time.Now().UTC()
	today, err := s.ListTasks(TaskFilter{Today: &now})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(today) != 2 {
		t.Errorf("today filter returned %d tasks, want 2 (both created today)", len(today))
	}
}

func TestListTasksDefaultOrder(t *testing.T) {
	s := newTestStore(t)

	low := models.NewTask("low score")
	low.PriorityScore = 0.1
	high := models.NewTask("high score")
	high.PriorityScore = 0.9
	if _, err := s.CreateTask(*low); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask(*high); err != nil {
		t.Fatal(err)
	}

	tasks, err := s.ListTasks(TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "high score" {
		t.Errorf("default order wrong: %+v", tasks)
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskStats(t *testing.T) {
	s := newTestStore(t)

	category, _ := s.GetOrCreateCategory("Ops")

	done := models.NewTask("done")
	done.Status = models.StatusCompleted
	done.CategoryID = &category.ID
	if _, err := s.CreateTask(*done); err != nil {
		t.Fatal(err)
	}

	overdue := models.NewTask("late")
	past := time.Now().UTC().Add(-48 * time.Hour)
	overdue.DueDate = &past
	if _, err := s.CreateTask(*overdue); err != nil {
		t.Fatal(err)
	}

	stats, err := s.TaskStats(time.Now().UTC())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTasks != 2 || stats.CompletedTasks != 1 || stats.PendingTasks != 1 {
		t.Errorf("counts wrong: %+v", stats)
	}
	if stats.OverdueTasks != 1 {
		t.Errorf("overdue = %d, want 1", stats.OverdueTasks)
	}
	if stats.CompletionRate != 50.0 {
		t.Errorf("completion rate = %v, want 50.0", stats.CompletionRate)
	}
	if stats.PriorityDistribution["medium"] != 2 {
		t.Errorf("priority distribution = %v", stats.PriorityDistribution)
	}
	if stats.CategoryDistribution["Ops"] != 1 {
		t.Errorf("category distribution = %v", stats.CategoryDistribution)
	}
	// The activity window runs from seven days ago through yesterday.
	if len(stats.RecentActivity) != 7 {
		t.Fatalf("recent activity has %d days, want 7", len(stats.RecentActivity))
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	if stats.RecentActivity[6].Date != yesterday {
		t.Errorf("last activity day = %s, want %s", stats.RecentActivity[6].Date, yesterday)
	}
}

func TestContextEntryLifecycle(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.CreateContextEntry(models.ContextEntry{Content: "note to self"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.SourceType != models.SourceManual {
		t.Errorf("default source = %s, want manual", entry.SourceType)
	}
	if entry.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}

	processed, err := s.MarkContextProcessed(entry.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if !processed.IsProcessed || processed.ProcessedAt == nil {
		t.Errorf("processed flags wrong: %+v", processed)
	}
}

func TestRelationUniquePair(t *testing.T) {
	s := newTestStore(t)

	task, _ := s.CreateTask(*models.NewTask("rel"))
	entry, _ := s.CreateContextEntry(models.ContextEntry{Content: "ctx"})

	rel := models.TaskContextRelation{
		TaskID:         task.ID,
		ContextEntryID: entry.ID,
		RelevanceScore: 0.7,
	}
	if _, err := s.LinkTaskContext(rel); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkTaskContext(rel); err == nil {
		t.Error("duplicate (task, context) pair must be rejected")
	}

	listed, err := s.ListRelations(RelationFilter{TaskID: task.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].TaskTitle != "rel" || listed[0].ContextContent != "ctx" {
		t.Errorf("relations = %+v", listed)
	}
}

func TestInsightActiveScope(t *testing.T) {
	s := newTestStore(t)

	active := models.AIInsight{InsightType: models.InsightPattern, Title: "active", IsActive: true}
	if _, err := s.CreateInsight(active); err != nil {
		t.Fatalf("create: %v", err)
	}
	inactive := models.AIInsight{InsightType: models.InsightPattern, Title: "inactive"}
	if _, err := s.CreateInsight(inactive); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := s.ListInsights(InsightFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unscoped list = %d, want 2", len(all))
	}

	scoped, err := s.ListInsights(InsightFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Title != "active" {
		t.Errorf("active scope = %+v", scoped)
	}
}

func TestUpsertMetricsSameDate(t *testing.T) {
	s := newTestStore(t)

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	first, err := s.UpsertMetrics(models.ProductivityMetrics{Date: day, TasksCreated: 3})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertMetrics(models.ProductivityMetrics{Date: day, TasksCreated: 5, TasksCompleted: 2})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Error("same date must update the existing row")
	}
	if second.TasksCreated != 5 || second.TasksCompleted != 2 {
		t.Errorf("updated metrics = %+v", second)
	}

	listed, err := s.ListMetrics(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("metrics rows = %d, want 1", len(listed))
	}
}

func TestProcessingLogLifecycle(t *testing.T) {
	s := newTestStore(t)

	logRow, err := s.CreateProcessingLog(models.AIProcessingLog{
		OperationType: models.OpTaskEnhancement,
		InputData:     map[string]any{"task_id": "abc"},
		Success:       true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.FinishProcessingLog(logRow.ID, map[string]any{"enhanced_description": "x"}, 1.25, false, "model timeout")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := s.GetProcessingLog(logRow.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Success {
		t.Error("success must be false after a failed finish")
	}
	if got.ErrorMessage != "model timeout" || got.ProcessingTime != 1.25 {
		t.Errorf("log = %+v", got)
	}

	failed := false
	logs, err := s.ListProcessingLogs(LogFilter{Success: &failed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("failed logs = %d, want 1", len(logs))
	}
}

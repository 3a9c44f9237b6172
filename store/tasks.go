package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josephgoksu/tasksense/models"
)

const taskColumns = `id, title, description, priority, status, category_id, due_date,
	created_at, updated_at, completed_at, ai_enhanced, ai_enhanced_description,
	ai_estimated_duration, ai_suggested_deadline, priority_score, ai_insights,
	tags, estimated_duration, actual_duration`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var categoryID, dueDate, completedAt, suggestedDeadline sql.NullString
	var createdAt, updatedAt string
	var aiEnhanced int
	var insights, tags sql.NullString
	var estimated, actual sql.NullInt64

	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&categoryID, &dueDate, &createdAt, &updatedAt, &completedAt,
		&aiEnhanced, &t.AIEnhancedDescription, &t.AIEstimatedDuration,
		&suggestedDeadline, &t.PriorityScore, &insights, &tags,
		&estimated, &actual)
	if err != nil {
		return t, err
	}

	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	t.DueDate = timePtrFromDB(dueDate)
	t.CreatedAt = timeFromDB(createdAt)
	t.UpdatedAt = timeFromDB(updatedAt)
	t.CompletedAt = timePtrFromDB(completedAt)
	t.AIEnhanced = aiEnhanced != 0
	t.AISuggestedDeadline = timePtrFromDB(suggestedDeadline)
	t.AIInsights = jsonMapFromDB(insights)
	t.Tags = jsonListFromDB(tags)
	t.EstimatedDuration = intPtrFromDB(estimated)
	t.ActualDuration = intPtrFromDB(actual)

	return t, nil
}

// CreateTask inserts a new task, applying the completion invariant and
// incrementing the referenced category's usage counter in one transaction.
func (s *SQLiteStore) CreateTask(t models.Task) (models.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.NormalizeCompletion(now)

	if err := models.ValidateStruct(t); err != nil {
		return t, err
	}

	insightsJSON, err := jsonToDB(t.AIInsights)
	if err != nil {
		return t, err
	}
	tagsJSON, err := jsonToDB(t.Tags)
	if err != nil {
		return t, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return t, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categoryID any
	if t.CategoryID != nil {
		categoryID = *t.CategoryID
	}

	_, err = tx.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, categoryID,
		timePtrToDB(t.DueDate), timeToDB(t.CreatedAt), timeToDB(t.UpdatedAt),
		timePtrToDB(t.CompletedAt), boolToInt(t.AIEnhanced),
		t.AIEnhancedDescription, t.AIEstimatedDuration,
		timePtrToDB(t.AISuggestedDeadline), t.PriorityScore,
		insightsJSON, tagsJSON, intPtrToDB(t.EstimatedDuration),
		intPtrToDB(t.ActualDuration))
	if err != nil {
		return t, fmt.Errorf("insert task: %w", err)
	}

	if t.CategoryID != nil {
		if err := incrementCategoryUsage(tx, *t.CategoryID, now); err != nil {
			return t, err
		}
	}

	if err := tx.Commit(); err != nil {
		return t, fmt.Errorf("commit: %w", err)
	}

	return t, nil
}

// incrementCategoryUsage bumps usage_count atomically inside the caller's
// transaction. Saving a task that references a category counts as usage.
func incrementCategoryUsage(tx *sql.Tx, categoryID string, now time.Time) error {
	_, err := tx.Exec(`
		UPDATE categories SET usage_count = usage_count + 1, updated_at = ?
		WHERE id = ?
	`, timeToDB(now), categoryID)
	if err != nil {
		return fmt.Errorf("increment category usage: %w", err)
	}
	return nil
}

// GetTask retrieves a task by id.
func (s *SQLiteStore) GetTask(id string) (models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return t, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// SaveTask writes the full task row back, re-applying the completion
// invariant and bumping category usage, mirroring CreateTask's side effects.
func (s *SQLiteStore) SaveTask(t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	t.UpdatedAt = now
	t.NormalizeCompletion(now)

	if err := models.ValidateStruct(t); err != nil {
		return t, err
	}

	insightsJSON, err := jsonToDB(t.AIInsights)
	if err != nil {
		return t, err
	}
	tagsJSON, err := jsonToDB(t.Tags)
	if err != nil {
		return t, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return t, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categoryID any
	if t.CategoryID != nil {
		categoryID = *t.CategoryID
	}

	result, err := tx.Exec(`
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?,
			category_id = ?, due_date = ?, updated_at = ?, completed_at = ?,
			ai_enhanced = ?, ai_enhanced_description = ?, ai_estimated_duration = ?,
			ai_suggested_deadline = ?, priority_score = ?, ai_insights = ?,
			tags = ?, estimated_duration = ?, actual_duration = ?
		WHERE id = ?
	`, t.Title, t.Description, t.Priority, t.Status, categoryID,
		timePtrToDB(t.DueDate), timeToDB(t.UpdatedAt), timePtrToDB(t.CompletedAt),
		boolToInt(t.AIEnhanced), t.AIEnhancedDescription, t.AIEstimatedDuration,
		timePtrToDB(t.AISuggestedDeadline), t.PriorityScore, insightsJSON,
		tagsJSON, intPtrToDB(t.EstimatedDuration), intPtrToDB(t.ActualDuration), t.ID)
	if err != nil {
		return t, fmt.Errorf("update task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return t, fmt.Errorf("%w: %s", ErrTaskNotFound, t.ID)
	}

	if t.CategoryID != nil {
		if err := incrementCategoryUsage(tx, *t.CategoryID, now); err != nil {
			return t, err
		}
	}

	if err := tx.Commit(); err != nil {
		return t, fmt.Errorf("commit: %w", err)
	}

	return t, nil
}

// taskUpdateFields lists the keys accepted by UpdateTask. Unknown keys are
// ignored so partial payloads can carry read-only fields harmlessly.
var taskUpdateFields = map[string]bool{
	"title": true, "description": true, "priority": true, "status": true,
	"category": true, "due_date": true, "tags": true,
	"estimated_duration": true, "actual_duration": true,
	"ai_enhanced": true, "ai_enhanced_description": true,
	"ai_estimated_duration": true, "ai_suggested_deadline": true,
	"ai_insights": true, "priority_score": true,
}

// UpdateTask applies a partial update. Note that priority_score written
// through this path is stored as given, without the [0,1] clamp that
// UpdatePriorityScore applies.
func (s *SQLiteStore) UpdateTask(id string, updates map[string]any) (models.Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return t, err
	}
	if err := applyTaskUpdates(&t, updates); err != nil {
		return t, err
	}
	return s.SaveTask(t)
}

func applyTaskUpdates(t *models.Task, updates map[string]any) error {
	for key, val := range updates {
		if !taskUpdateFields[key] {
			continue
		}
		switch key {
		case "title":
			if v, ok := val.(string); ok {
				t.Title = v
			}
		case "description":
			if v, ok := val.(string); ok {
				t.Description = v
			}
		case "priority":
			v, ok := val.(string)
			if !ok || !models.ValidPriority(models.TaskPriority(v)) {
				return fmt.Errorf("%w: priority %q", ErrInvalidField, val)
			}
			t.Priority = models.TaskPriority(v)
		case "status":
			v, ok := val.(string)
			if !ok || !models.ValidStatus(models.TaskStatus(v)) {
				return fmt.Errorf("%w: status %q", ErrInvalidField, val)
			}
			t.Status = models.TaskStatus(v)
		case "category":
			switch v := val.(type) {
			case nil:
				t.CategoryID = nil
			case string:
				if v == "" {
					t.CategoryID = nil
				} else {
					t.CategoryID = &v
				}
			}
		case "due_date":
			due, err := parseTimeValue(val)
			if err != nil {
				return fmt.Errorf("%w: due_date %q", ErrInvalidField, val)
			}
			t.DueDate = due
		case "tags":
			tags, ok := toStringList(val)
			if !ok {
				return fmt.Errorf("%w: tags must be a list of strings", ErrInvalidField)
			}
			t.Tags = tags
		case "estimated_duration":
			t.EstimatedDuration = toIntPtr(val)
		case "actual_duration":
			t.ActualDuration = toIntPtr(val)
		case "ai_enhanced":
			if v, ok := val.(bool); ok {
				t.AIEnhanced = v
			}
		case "ai_enhanced_description":
			if v, ok := val.(string); ok {
				t.AIEnhancedDescription = v
			}
		case "ai_estimated_duration":
			if v, ok := val.(string); ok {
				t.AIEstimatedDuration = v
			}
		case "ai_suggested_deadline":
			deadline, err := parseTimeValue(val)
			if err != nil {
				return fmt.Errorf("%w: ai_suggested_deadline %q", ErrInvalidField, val)
			}
			t.AISuggestedDeadline = deadline
		case "ai_insights":
			if v, ok := val.(map[string]any); ok {
				t.AIInsights = v
			}
		case "priority_score":
			if v, ok := toFloat(val); ok {
				t.PriorityScore = v // raw write path: no clamp
			}
		}
	}
	return nil
}

// UpdatePriorityScore is the clamping mutator for the AI priority score.
func (s *SQLiteStore) UpdatePriorityScore(id string, score float64) (models.Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return t, err
	}
	t.SetPriorityScore(score)
	return s.SaveTask(t)
}

// DeleteTask removes a task. Relations cascade.
func (s *SQLiteStore) DeleteTask(id string) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// taskOrderColumns whitelists ORDER BY targets for ListTasks.
var taskOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "due_date": true, "priority_score": true,
}

// ListTasks returns tasks matching the filter, ordered by descending
// priority score then recency unless the filter says otherwise.
func (s *SQLiteStore) ListTasks(f TaskFilter) ([]models.Task, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if len(f.Statuses) > 0 {
		placeholders := strings.Repeat(",?", len(f.Statuses))[1:]
		where = append(where, "status IN ("+placeholders+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if len(f.Priorities) > 0 {
		placeholders := strings.Repeat(",?", len(f.Priorities))[1:]
		where = append(where, "priority IN ("+placeholders+")")
		for _, p := range f.Priorities {
			args = append(args, string(p))
		}
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AIEnhanced != nil {
		where = append(where, "ai_enhanced = ?")
		args = append(args, boolToInt(*f.AIEnhanced))
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.CreatedAfter != nil {
		where = append(where, "created_at >= ?")
		args = append(args, timeToDB(*f.CreatedAfter))
	}
	if f.Today != nil {
		day := f.Today.UTC().Format("2006-01-02")
		where = append(where, "(substr(due_date, 1, 10) = ? OR substr(created_at, 1, 10) = ?)")
		args = append(args, day, day)
	}
	if f.DueAfter != nil {
		where = append(where, "due_date >= ?")
		args = append(args, timeToDB(*f.DueAfter))
	}
	if f.DueBefore != nil {
		where = append(where, "due_date < ?")
		args = append(args, timeToDB(*f.DueBefore))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	order := "priority_score DESC, created_at DESC"
	if f.OrderBy != "" {
		col := f.OrderBy
		dir := "ASC"
		if strings.HasPrefix(col, "-") {
			col = col[1:]
			dir = "DESC"
		}
		if taskOrderColumns[col] {
			order = col + " " + dir
		}
	}
	query += " ORDER BY " + order

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// bulkUpdateFields is the closed set of keys accepted by BulkUpdateTasks.
// Anything else is a validation error and updates zero rows.
var bulkUpdateFields = map[string]bool{
	"status": true, "priority": true, "category": true, "tags": true,
}

// BulkUpdateTasks applies the same update to every task in ids with a
// single statement. When the update changes status, completed_at is kept
// consistent in the same statement.
func (s *SQLiteStore) BulkUpdateTasks(ids []string, updates map[string]any) (int, error) {
	if len(ids) == 0 || len(updates) == 0 {
		return 0, nil
	}
	for key := range updates {
		if !bulkUpdateFields[key] {
			return 0, fmt.Errorf("%w: field %q is not allowed for bulk update", ErrInvalidField, key)
		}
	}

	now := time.Now().UTC()
	sets := []string{"updated_at = ?"}
	args := []any{timeToDB(now)}

	for key, val := range updates {
		switch key {
		case "status":
			v, ok := val.(string)
			if !ok || !models.ValidStatus(models.TaskStatus(v)) {
				return 0, fmt.Errorf("%w: status %q", ErrInvalidField, val)
			}
			sets = append(sets, "status = ?")
			args = append(args, v)
			if models.TaskStatus(v) == models.StatusCompleted {
				sets = append(sets, "completed_at = COALESCE(completed_at, ?)")
				args = append(args, timeToDB(now))
			} else {
				sets = append(sets, "completed_at = NULL")
			}
		case "priority":
			v, ok := val.(string)
			if !ok || !models.ValidPriority(models.TaskPriority(v)) {
				return 0, fmt.Errorf("%w: priority %q", ErrInvalidField, val)
			}
			sets = append(sets, "priority = ?")
			args = append(args, v)
		case "category":
			switch v := val.(type) {
			case nil:
				sets = append(sets, "category_id = NULL")
			case string:
				if v == "" {
					sets = append(sets, "category_id = NULL")
				} else {
					sets = append(sets, "category_id = ?")
					args = append(args, v)
				}
			default:
				return 0, fmt.Errorf("%w: category %v", ErrInvalidField, val)
			}
		case "tags":
			tags, ok := toStringList(val)
			if !ok {
				return 0, fmt.Errorf("%w: tags must be a list of strings", ErrInvalidField)
			}
			tagsJSON, err := jsonToDB(tags)
			if err != nil {
				return 0, err
			}
			sets = append(sets, "tags = ?")
			args = append(args, tagsJSON)
		}
	}

	placeholders := strings.Repeat(",?", len(ids))[1:]
	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id IN (" + placeholders + ")"
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update tasks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}
	return int(rows), nil
}

// TaskStats aggregates counts, distributions and the last week's daily
// creation activity for the stats endpoint.
func (s *SQLiteStore) TaskStats(now time.Time) (TaskStats, error) {
	stats := TaskStats{
		PriorityDistribution: map[string]int{},
		CategoryDistribution: map[string]int{},
	}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&stats.TotalTasks)
	if err != nil {
		return stats, fmt.Errorf("count tasks: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = 'completed'`).Scan(&stats.CompletedTasks)
	if err != nil {
		return stats, fmt.Errorf("count completed: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = 'pending'`).Scan(&stats.PendingTasks)
	if err != nil {
		return stats, fmt.Errorf("count pending: %w", err)
	}
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE due_date IS NOT NULL AND due_date < ? AND status IN ('pending', 'in_progress')
	`, timeToDB(now)).Scan(&stats.OverdueTasks)
	if err != nil {
		return stats, fmt.Errorf("count overdue: %w", err)
	}

	if stats.TotalTasks > 0 {
		rate := float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
		stats.CompletionRate = float64(int(rate*10+0.5)) / 10 // one decimal place
	}

	rows, err := s.db.Query(`SELECT priority, COUNT(*) FROM tasks GROUP BY priority`)
	if err != nil {
		return stats, fmt.Errorf("priority distribution: %w", err)
	}
	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			_ = rows.Close()
			return stats, fmt.Errorf("scan priority distribution: %w", err)
		}
		stats.PriorityDistribution[priority] = count
	}
	_ = rows.Close()

	rows, err = s.db.Query(`
		SELECT c.name, COUNT(*) FROM tasks t
		JOIN categories c ON c.id = t.category_id
		GROUP BY c.name
	`)
	if err != nil {
		return stats, fmt.Errorf("category distribution: %w", err)
	}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			_ = rows.Close()
			return stats, fmt.Errorf("scan category distribution: %w", err)
		}
		stats.CategoryDistribution[name] = count
	}
	_ = rows.Close()

	weekAgo := now.AddDate(0, 0, -7)
	for i := 0; i < 7; i++ {
		day := weekAgo.AddDate(0, 0, i).UTC().Format("2006-01-02")
		var count int
		err := s.db.QueryRow(`
			SELECT COUNT(*) FROM tasks WHERE substr(created_at, 1, 10) = ?
		`, day).Scan(&count)
		if err != nil {
			return stats, fmt.Errorf("daily activity: %w", err)
		}
		stats.RecentActivity = append(stats.RecentActivity, DailyActivity{
			Date:         day,
			TasksCreated: count,
		})
	}

	return stats, nil
}

// === Value coercion helpers (JSON decode yields float64/[]any) ===

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func toIntPtr(val any) *int {
	if f, ok := toFloat(val); ok {
		i := int(f)
		return &i
	}
	return nil
}

func toStringList(val any) ([]string, bool) {
	switch v := val.(type) {
	case nil:
		return nil, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func parseTimeValue(val any) (*time.Time, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	case time.Time:
		return &v, nil
	}
	return nil, fmt.Errorf("unsupported time value %T", val)
}

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josephgoksu/tasksense/models"
)

// === AI insights ===

const insightColumns = `id, insight_type, title, description, data, confidence_score,
	is_active, created_at, expires_at`

func scanInsight(row rowScanner) (models.AIInsight, error) {
	var i models.AIInsight
	var data, expiresAt sql.NullString
	var active int
	var createdAt string

	err := row.Scan(&i.ID, &i.InsightType, &i.Title, &i.Description, &data,
		&i.ConfidenceScore, &active, &createdAt, &expiresAt)
	if err != nil {
		return i, err
	}
	i.Data = jsonMapFromDB(data)
	i.IsActive = active != 0
	i.CreatedAt = timeFromDB(createdAt)
	i.ExpiresAt = timePtrFromDB(expiresAt)
	return i, nil
}

// CreateInsight inserts a new AI insight, active by default.
func (s *SQLiteStore) CreateInsight(i models.AIInsight) (models.AIInsight, error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}

	if err := models.ValidateStruct(i); err != nil {
		return i, err
	}

	dataJSON, err := jsonToDB(i.Data)
	if err != nil {
		return i, err
	}

	_, err = s.db.Exec(`
		INSERT INTO ai_insights (`+insightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, i.ID, string(i.InsightType), i.Title, i.Description, dataJSON,
		i.ConfidenceScore, boolToInt(i.IsActive), timeToDB(i.CreatedAt),
		timePtrToDB(i.ExpiresAt))
	if err != nil {
		return i, fmt.Errorf("insert insight: %w", err)
	}
	return i, nil
}

// GetInsight retrieves an insight by id.
func (s *SQLiteStore) GetInsight(id string) (models.AIInsight, error) {
	row := s.db.QueryRow(`SELECT `+insightColumns+` FROM ai_insights WHERE id = ?`, id)
	i, err := scanInsight(row)
	if err == sql.ErrNoRows {
		return i, fmt.Errorf("%w: %s", ErrInsightNotFound, id)
	}
	if err != nil {
		return i, fmt.Errorf("query insight: %w", err)
	}
	return i, nil
}

var insightUpdateFields = map[string]bool{
	"insight_type": true, "title": true, "description": true, "data": true,
	"confidence_score": true, "is_active": true, "expires_at": true,
}

// UpdateInsight applies a partial update.
func (s *SQLiteStore) UpdateInsight(id string, updates map[string]any) (models.AIInsight, error) {
	i, err := s.GetInsight(id)
	if err != nil {
		return i, err
	}
	for key, val := range updates {
		if !insightUpdateFields[key] {
			continue
		}
		switch key {
		case "insight_type":
			v, ok := val.(string)
			if !ok || !models.ValidInsightType(models.InsightType(v)) {
				return i, fmt.Errorf("%w: insight_type %q", ErrInvalidField, val)
			}
			i.InsightType = models.InsightType(v)
		case "title":
			if v, ok := val.(string); ok {
				i.Title = v
			}
		case "description":
			if v, ok := val.(string); ok {
				i.Description = v
			}
		case "data":
			if v, ok := val.(map[string]any); ok {
				i.Data = v
			}
		case "confidence_score":
			if v, ok := toFloat(val); ok {
				i.ConfidenceScore = v
			}
		case "is_active":
			if v, ok := val.(bool); ok {
				i.IsActive = v
			}
		case "expires_at":
			expires, err := parseTimeValue(val)
			if err != nil {
				return i, fmt.Errorf("%w: expires_at %q", ErrInvalidField, val)
			}
			i.ExpiresAt = expires
		}
	}

	if err := models.ValidateStruct(i); err != nil {
		return i, err
	}

	dataJSON, err := jsonToDB(i.Data)
	if err != nil {
		return i, err
	}

	result, err := s.db.Exec(`
		UPDATE ai_insights SET insight_type = ?, title = ?, description = ?,
			data = ?, confidence_score = ?, is_active = ?, expires_at = ?
		WHERE id = ?
	`, string(i.InsightType), i.Title, i.Description, dataJSON,
		i.ConfidenceScore, boolToInt(i.IsActive), timePtrToDB(i.ExpiresAt), i.ID)
	if err != nil {
		return i, fmt.Errorf("update insight: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return i, fmt.Errorf("%w: %s", ErrInsightNotFound, id)
	}
	return i, nil
}

// DeleteInsight removes an insight row.
func (s *SQLiteStore) DeleteInsight(id string) error {
	result, err := s.db.Exec("DELETE FROM ai_insights WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete insight: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrInsightNotFound, id)
	}
	return nil
}

// ListInsights returns insights matching the filter, newest first.
func (s *SQLiteStore) ListInsights(f InsightFilter) ([]models.AIInsight, error) {
	var where []string
	var args []any

	if f.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if f.Type != "" {
		where = append(where, "insight_type = ?")
		args = append(args, string(f.Type))
	}

	query := `SELECT ` + insightColumns + ` FROM ai_insights`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var insights []models.AIInsight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, i)
	}
	return insights, rows.Err()
}

// === Context analyses ===

const analysisColumns = `id, analysis_date, context_summary, key_themes,
	urgency_indicators, suggested_actions, productivity_score, focus_areas`

func scanAnalysis(row rowScanner) (models.ContextAnalysis, error) {
	var a models.ContextAnalysis
	var analysisDate string
	var themes, urgency, actions, focus sql.NullString

	err := row.Scan(&a.ID, &analysisDate, &a.ContextSummary, &themes, &urgency,
		&actions, &a.ProductivityScore, &focus)
	if err != nil {
		return a, err
	}
	a.AnalysisDate = timeFromDB(analysisDate)
	a.KeyThemes = jsonListFromDB(themes)
	a.UrgencyIndicators = jsonListFromDB(urgency)
	a.SuggestedActions = jsonListFromDB(actions)
	a.FocusAreas = jsonListFromDB(focus)
	return a, nil
}

// CreateAnalysis persists one run of the context-analysis pipeline.
func (s *SQLiteStore) CreateAnalysis(a models.ContextAnalysis) (models.ContextAnalysis, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.AnalysisDate.IsZero() {
		a.AnalysisDate = time.Now().UTC()
	}

	themesJSON, err := jsonToDB(a.KeyThemes)
	if err != nil {
		return a, err
	}
	urgencyJSON, err := jsonToDB(a.UrgencyIndicators)
	if err != nil {
		return a, err
	}
	actionsJSON, err := jsonToDB(a.SuggestedActions)
	if err != nil {
		return a, err
	}
	focusJSON, err := jsonToDB(a.FocusAreas)
	if err != nil {
		return a, err
	}

	_, err = s.db.Exec(`
		INSERT INTO context_analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, timeToDB(a.AnalysisDate), a.ContextSummary, themesJSON,
		urgencyJSON, actionsJSON, a.ProductivityScore, focusJSON)
	if err != nil {
		return a, fmt.Errorf("insert analysis: %w", err)
	}
	return a, nil
}

// GetAnalysis retrieves a context analysis by id.
func (s *SQLiteStore) GetAnalysis(id string) (models.ContextAnalysis, error) {
	row := s.db.QueryRow(`SELECT `+analysisColumns+` FROM context_analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return a, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	if err != nil {
		return a, fmt.Errorf("query analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns all analyses, newest first.
func (s *SQLiteStore) ListAnalyses() ([]models.ContextAnalysis, error) {
	rows, err := s.db.Query(`SELECT ` + analysisColumns + ` FROM context_analyses ORDER BY analysis_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var analyses []models.ContextAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// === Productivity metrics ===

const metricsColumns = `id, date, tasks_completed, tasks_created, average_completion_time,
	productivity_score, focus_time, distraction_events, peak_productivity_hour`

func scanMetrics(row rowScanner) (models.ProductivityMetrics, error) {
	var m models.ProductivityMetrics
	var date string
	var peak sql.NullInt64

	err := row.Scan(&m.ID, &date, &m.TasksCompleted, &m.TasksCreated,
		&m.AverageCompletionTime, &m.ProductivityScore, &m.FocusTime,
		&m.DistractionEvents, &peak)
	if err != nil {
		return m, err
	}
	m.Date, _ = time.Parse("2006-01-02", date)
	m.PeakProductivityHour = intPtrFromDB(peak)
	return m, nil
}

// UpsertMetrics inserts or replaces the metrics row for its date.
func (s *SQLiteStore) UpsertMetrics(m models.ProductivityMetrics) (models.ProductivityMetrics, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	day := m.Date.UTC().Format("2006-01-02")

	_, err := s.db.Exec(`
		INSERT INTO productivity_metrics (`+metricsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			tasks_completed = excluded.tasks_completed,
			tasks_created = excluded.tasks_created,
			average_completion_time = excluded.average_completion_time,
			productivity_score = excluded.productivity_score,
			focus_time = excluded.focus_time,
			distraction_events = excluded.distraction_events,
			peak_productivity_hour = excluded.peak_productivity_hour
	`, m.ID, day, m.TasksCompleted, m.TasksCreated, m.AverageCompletionTime,
		m.ProductivityScore, m.FocusTime, m.DistractionEvents,
		intPtrToDB(m.PeakProductivityHour))
	if err != nil {
		return m, fmt.Errorf("upsert metrics: %w", err)
	}

	// Re-read so the caller gets the stored row (the id is preserved on
	// conflict updates).
	row := s.db.QueryRow(`SELECT `+metricsColumns+` FROM productivity_metrics WHERE date = ?`, day)
	stored, err := scanMetrics(row)
	if err != nil {
		return m, fmt.Errorf("read back metrics: %w", err)
	}
	return stored, nil
}

// GetMetrics retrieves a metrics row by id.
func (s *SQLiteStore) GetMetrics(id string) (models.ProductivityMetrics, error) {
	row := s.db.QueryRow(`SELECT `+metricsColumns+` FROM productivity_metrics WHERE id = ?`, id)
	m, err := scanMetrics(row)
	if err == sql.ErrNoRows {
		return m, fmt.Errorf("%w: %s", ErrMetricsNotFound, id)
	}
	if err != nil {
		return m, fmt.Errorf("query metrics: %w", err)
	}
	return m, nil
}

// ListMetrics returns metrics rows, newest date first, optionally bounded.
func (s *SQLiteStore) ListMetrics(since *time.Time) ([]models.ProductivityMetrics, error) {
	query := `SELECT ` + metricsColumns + ` FROM productivity_metrics`
	var args []any
	if since != nil {
		query += " WHERE date >= ?"
		args = append(args, since.UTC().Format("2006-01-02"))
	}
	query += " ORDER BY date DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var metrics []models.ProductivityMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// === Processing logs ===

const logColumns = `id, operation_type, input_data, output_data, processing_time,
	success, error_message, timestamp`

func scanLog(row rowScanner) (models.AIProcessingLog, error) {
	var l models.AIProcessingLog
	var input, output sql.NullString
	var success int
	var timestamp string

	err := row.Scan(&l.ID, &l.OperationType, &input, &output,
		&l.ProcessingTime, &success, &l.ErrorMessage, &timestamp)
	if err != nil {
		return l, err
	}
	l.InputData = jsonMapFromDB(input)
	l.OutputData = jsonMapFromDB(output)
	l.Success = success != 0
	l.Timestamp = timeFromDB(timestamp)
	return l, nil
}

// CreateProcessingLog opens an audit record for an AI-invoking operation.
// The row is created before the engine call so failures still leave a trace.
func (s *SQLiteStore) CreateProcessingLog(l models.AIProcessingLog) (models.AIProcessingLog, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}

	inputJSON, err := jsonToDB(l.InputData)
	if err != nil {
		return l, err
	}
	outputJSON, err := jsonToDB(l.OutputData)
	if err != nil {
		return l, err
	}

	_, err = s.db.Exec(`
		INSERT INTO ai_processing_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, string(l.OperationType), inputJSON, outputJSON,
		l.ProcessingTime, boolToInt(l.Success), l.ErrorMessage, timeToDB(l.Timestamp))
	if err != nil {
		return l, fmt.Errorf("insert processing log: %w", err)
	}
	return l, nil
}

// FinishProcessingLog closes an audit record with its outcome and timing.
func (s *SQLiteStore) FinishProcessingLog(id string, output map[string]any, seconds float64, success bool, errMsg string) error {
	outputJSON, err := jsonToDB(output)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE ai_processing_logs
		SET output_data = ?, processing_time = ?, success = ?, error_message = ?
		WHERE id = ?
	`, outputJSON, seconds, boolToInt(success), errMsg, id)
	if err != nil {
		return fmt.Errorf("finish processing log: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	return nil
}

// GetProcessingLog retrieves a log row by id.
func (s *SQLiteStore) GetProcessingLog(id string) (models.AIProcessingLog, error) {
	row := s.db.QueryRow(`SELECT `+logColumns+` FROM ai_processing_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return l, fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	if err != nil {
		return l, fmt.Errorf("query processing log: %w", err)
	}
	return l, nil
}

// ListProcessingLogs returns logs matching the filter, newest first.
func (s *SQLiteStore) ListProcessingLogs(f LogFilter) ([]models.AIProcessingLog, error) {
	var where []string
	var args []any

	if f.OperationType != "" {
		where = append(where, "operation_type = ?")
		args = append(args, string(f.OperationType))
	}
	if f.Success != nil {
		where = append(where, "success = ?")
		args = append(args, boolToInt(*f.Success))
	}

	query := `SELECT ` + logColumns + ` FROM ai_processing_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []models.AIProcessingLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processing log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josephgoksu/tasksense/models"
)

const contextColumns = `id, content, source_type, timestamp, is_processed, processed_at,
	extracted_keywords, sentiment_score, urgency_indicators, deadline_mentions,
	processed_insights, source_metadata`

func scanContextEntry(row rowScanner) (models.ContextEntry, error) {
	var e models.ContextEntry
	var timestamp string
	var processed int
	var processedAt, keywords, urgency, deadlines, insights, metadata sql.NullString

	err := row.Scan(&e.ID, &e.Content, &e.SourceType, &timestamp, &processed,
		&processedAt, &keywords, &e.SentimentScore, &urgency, &deadlines,
		&insights, &metadata)
	if err != nil {
		return e, err
	}

	e.Timestamp = timeFromDB(timestamp)
	e.IsProcessed = processed != 0
	e.ProcessedAt = timePtrFromDB(processedAt)
	e.ExtractedKeywords = jsonListFromDB(keywords)
	e.UrgencyIndicators = jsonListFromDB(urgency)
	e.DeadlineMentions = jsonListFromDB(deadlines)
	e.ProcessedInsights = jsonMapFromDB(insights)
	e.SourceMetadata = jsonMapFromDB(metadata)
	return e, nil
}

func (s *SQLiteStore) contextEntryArgs(e models.ContextEntry) ([]any, error) {
	keywordsJSON, err := jsonToDB(e.ExtractedKeywords)
	if err != nil {
		return nil, err
	}
	urgencyJSON, err := jsonToDB(e.UrgencyIndicators)
	if err != nil {
		return nil, err
	}
	deadlinesJSON, err := jsonToDB(e.DeadlineMentions)
	if err != nil {
		return nil, err
	}
	insightsJSON, err := jsonToDB(e.ProcessedInsights)
	if err != nil {
		return nil, err
	}
	metadataJSON, err := jsonToDB(e.SourceMetadata)
	if err != nil {
		return nil, err
	}
	return []any{
		e.Content, string(e.SourceType), timeToDB(e.Timestamp),
		boolToInt(e.IsProcessed), timePtrToDB(e.ProcessedAt), keywordsJSON,
		e.SentimentScore, urgencyJSON, deadlinesJSON, insightsJSON, metadataJSON,
	}, nil
}

// CreateContextEntry inserts a new context entry.
func (s *SQLiteStore) CreateContextEntry(e models.ContextEntry) (models.ContextEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.SourceType == "" {
		e.SourceType = models.SourceManual
	}

	if err := models.ValidateStruct(e); err != nil {
		return e, err
	}

	args, err := s.contextEntryArgs(e)
	if err != nil {
		return e, err
	}
	args = append([]any{e.ID}, args...)

	_, err = s.db.Exec(`
		INSERT INTO context_entries (`+contextColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return e, fmt.Errorf("insert context entry: %w", err)
	}
	return e, nil
}

// GetContextEntry retrieves a context entry by id.
func (s *SQLiteStore) GetContextEntry(id string) (models.ContextEntry, error) {
	row := s.db.QueryRow(`SELECT `+contextColumns+` FROM context_entries WHERE id = ?`, id)
	e, err := scanContextEntry(row)
	if err == sql.ErrNoRows {
		return e, fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}
	if err != nil {
		return e, fmt.Errorf("query context entry: %w", err)
	}
	return e, nil
}

// SaveContextEntry writes the full entry back.
func (s *SQLiteStore) SaveContextEntry(e models.ContextEntry) (models.ContextEntry, error) {
	if err := models.ValidateStruct(e); err != nil {
		return e, err
	}
	args, err := s.contextEntryArgs(e)
	if err != nil {
		return e, err
	}
	args = append(args, e.ID)

	result, err := s.db.Exec(`
		UPDATE context_entries SET content = ?, source_type = ?, timestamp = ?,
			is_processed = ?, processed_at = ?, extracted_keywords = ?,
			sentiment_score = ?, urgency_indicators = ?, deadline_mentions = ?,
			processed_insights = ?, source_metadata = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return e, fmt.Errorf("update context entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return e, fmt.Errorf("%w: %s", ErrContextNotFound, e.ID)
	}
	return e, nil
}

// DeleteContextEntry removes an entry. Relations cascade.
func (s *SQLiteStore) DeleteContextEntry(id string) error {
	result, err := s.db.Exec("DELETE FROM context_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete context entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}
	return nil
}

// ListContextEntries returns entries matching the filter, newest first.
func (s *SQLiteStore) ListContextEntries(f ContextFilter) ([]models.ContextEntry, error) {
	var where []string
	var args []any

	if f.SourceType != "" {
		where = append(where, "source_type = ?")
		args = append(args, string(f.SourceType))
	}
	if f.IsProcessed != nil {
		where = append(where, "is_processed = ?")
		args = append(args, boolToInt(*f.IsProcessed))
	}
	if f.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, timeToDB(*f.Since))
	}
	if f.Search != "" {
		where = append(where, "content LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT ` + contextColumns + ` FROM context_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query context entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.ContextEntry
	for rows.Next() {
		e, err := scanContextEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan context entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkContextProcessed flips the processed flag and stamps processed_at.
func (s *SQLiteStore) MarkContextProcessed(id string, now time.Time) (models.ContextEntry, error) {
	e, err := s.GetContextEntry(id)
	if err != nil {
		return e, err
	}
	e.MarkProcessed(now)
	return s.SaveContextEntry(e)
}

// RelatedTaskCount returns how many tasks are linked to the context entry.
func (s *SQLiteStore) RelatedTaskCount(contextEntryID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM task_context_relations WHERE context_entry_id = ?
	`, contextEntryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count related tasks: %w", err)
	}
	return count, nil
}

// === Task-context relations ===

// LinkTaskContext creates a relevance-scored relation between a task and a
// context entry. The (task, context entry) pair is unique.
func (s *SQLiteStore) LinkTaskContext(rel models.TaskContextRelation) (models.TaskContextRelation, error) {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	if err := models.ValidateStruct(rel); err != nil {
		return rel, err
	}

	_, err := s.db.Exec(`
		INSERT INTO task_context_relations (id, task_id, context_entry_id, relevance_score, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rel.ID, rel.TaskID, rel.ContextEntryID, rel.RelevanceScore, timeToDB(rel.CreatedAt))
	if err != nil {
		return rel, fmt.Errorf("insert relation: %w", err)
	}
	return rel, nil
}

const relationSelect = `
	SELECT r.id, r.task_id, r.context_entry_id, r.relevance_score, r.created_at,
	       t.title, c.content
	FROM task_context_relations r
	JOIN tasks t ON t.id = r.task_id
	JOIN context_entries c ON c.id = r.context_entry_id`

func scanRelation(row rowScanner) (models.TaskContextRelation, error) {
	var rel models.TaskContextRelation
	var createdAt string
	err := row.Scan(&rel.ID, &rel.TaskID, &rel.ContextEntryID,
		&rel.RelevanceScore, &createdAt, &rel.TaskTitle, &rel.ContextContent)
	if err != nil {
		return rel, err
	}
	rel.CreatedAt = timeFromDB(createdAt)
	return rel, nil
}

// GetRelation retrieves a relation by id with its denormalized fields.
func (s *SQLiteStore) GetRelation(id string) (models.TaskContextRelation, error) {
	row := s.db.QueryRow(relationSelect+` WHERE r.id = ?`, id)
	rel, err := scanRelation(row)
	if err == sql.ErrNoRows {
		return rel, fmt.Errorf("%w: %s", ErrRelationNotFound, id)
	}
	if err != nil {
		return rel, fmt.Errorf("query relation: %w", err)
	}
	return rel, nil
}

// ListRelations returns relations matching the filter, highest relevance first.
func (s *SQLiteStore) ListRelations(f RelationFilter) ([]models.TaskContextRelation, error) {
	var where []string
	var args []any

	if f.TaskID != "" {
		where = append(where, "r.task_id = ?")
		args = append(args, f.TaskID)
	}
	if f.ContextEntryID != "" {
		where = append(where, "r.context_entry_id = ?")
		args = append(args, f.ContextEntryID)
	}

	query := relationSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.relevance_score DESC, r.created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var relations []models.TaskContextRelation
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

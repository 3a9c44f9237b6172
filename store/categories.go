package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josephgoksu/tasksense/models"
)

const categoryColumns = `id, name, color, icon, description, usage_count, created_at, updated_at`

func scanCategory(row rowScanner) (models.Category, error) {
	var c models.Category
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.Description,
		&c.UsageCount, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	c.CreatedAt = timeFromDB(createdAt)
	c.UpdatedAt = timeFromDB(updatedAt)
	return c, nil
}

// CreateCategory inserts a new category. Name is unique.
func (s *SQLiteStore) CreateCategory(c models.Category) (models.Category, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Color == "" {
		c.Color = models.DefaultCategoryColor
	}
	if c.Icon == "" {
		c.Icon = models.DefaultCategoryIcon
	}

	if err := models.ValidateStruct(c); err != nil {
		return c, err
	}

	_, err := s.db.Exec(`
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Color, c.Icon, c.Description, c.UsageCount,
		timeToDB(c.CreatedAt), timeToDB(c.UpdatedAt))
	if err != nil {
		return c, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// GetCategory retrieves a category by id.
func (s *SQLiteStore) GetCategory(id string) (models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	if err != nil {
		return c, fmt.Errorf("query category: %w", err)
	}
	return c, nil
}

// GetOrCreateCategory looks a category up by name, creating it with default
// display hints when absent. Used by the task create/update flows that take
// a category_name.
func (s *SQLiteStore) GetOrCreateCategory(name string) (models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name)
	c, err := scanCategory(row)
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return c, fmt.Errorf("query category by name: %w", err)
	}
	return s.CreateCategory(*models.NewCategory(name))
}

var categoryUpdateFields = map[string]bool{
	"name": true, "color": true, "icon": true, "description": true,
}

// UpdateCategory applies a partial update. usage_count is not writable.
func (s *SQLiteStore) UpdateCategory(id string, updates map[string]any) (models.Category, error) {
	c, err := s.GetCategory(id)
	if err != nil {
		return c, err
	}
	for key, val := range updates {
		if !categoryUpdateFields[key] {
			continue
		}
		v, ok := val.(string)
		if !ok {
			return c, fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
		}
		switch key {
		case "name":
			c.Name = v
		case "color":
			c.Color = v
		case "icon":
			c.Icon = v
		case "description":
			c.Description = v
		}
	}
	c.UpdatedAt = time.Now().UTC()

	if err := models.ValidateStruct(c); err != nil {
		return c, err
	}

	result, err := s.db.Exec(`
		UPDATE categories SET name = ?, color = ?, icon = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Color, c.Icon, c.Description, timeToDB(c.UpdatedAt), c.ID)
	if err != nil {
		return c, fmt.Errorf("update category: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return c, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	return c, nil
}

// DeleteCategory removes a category. Tasks referencing it keep existing
// with their category reference nulled, not cascaded.
func (s *SQLiteStore) DeleteCategory(id string) error {
	result, err := s.db.Exec("DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	return nil
}

// ListCategories returns all categories ordered by usage then name.
func (s *SQLiteStore) ListCategories() ([]models.Category, error) {
	rows, err := s.db.Query(`SELECT ` + categoryColumns + ` FROM categories ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// PopularCategories returns the most-used categories, excluding unused ones.
func (s *SQLiteStore) PopularCategories(limit int) ([]models.Category, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT `+categoryColumns+` FROM categories
		WHERE usage_count > 0 ORDER BY usage_count DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryTaskCount returns how many tasks currently reference the category.
func (s *SQLiteStore) CategoryTaskCount(id string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE category_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count category tasks: %w", err)
	}
	return count, nil
}

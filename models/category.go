package models

import "time"

// Category groups tasks under a named label with display hints.
// UsageCount is incremented by the store whenever a task referencing the
// category is saved; it is an on-write side effect, not a derived aggregate.
type Category struct {
	ID          string    `json:"id" validate:"omitempty,uuid4"`
	Name        string    `json:"name" validate:"required,max=100"`
	Color       string    `json:"color"` // hex, e.g. #3B82F6
	Icon        string    `json:"icon"`
	Description string    `json:"description,omitempty"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Default display hints for categories created implicitly by name.
const (
	DefaultCategoryColor = "#3B82F6"
	DefaultCategoryIcon  = "folder"
)

// NewCategory creates a category with default display hints.
func NewCategory(name string) *Category {
	now := time.Now().UTC()
	return &Category{
		Name:      name,
		Color:     DefaultCategoryColor,
		Icon:      DefaultCategoryIcon,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

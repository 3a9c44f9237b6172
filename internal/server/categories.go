package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, s.categoryViewOf(c))
	}
	writeAPIJSON(w, views)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// usage_count is store-maintained
	category.UsageCount = 0

	created, err := s.store.CreateCategory(category)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIStatus(w, http.StatusCreated, s.categoryViewOf(created))
}

func (s *Server) handlePopularCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.PopularCategories(10)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, s.categoryViewOf(c))
	}
	writeAPIJSON(w, views)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.store.GetCategory(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "category not found")
		return
	}
	writeAPIJSON(w, s.categoryViewOf(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := s.store.UpdateCategory(r.PathValue("id"), updates)
	switch {
	case errors.Is(err, store.ErrCategoryNotFound):
		writeAPIError(w, http.StatusNotFound, "category not found")
		return
	case err != nil:
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIJSON(w, s.categoryViewOf(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.PathValue("id")); err != nil {
		writeAPIError(w, http.StatusNotFound, "category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

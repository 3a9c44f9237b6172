package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	entries, err := s.store.ListContextEntries(store.ContextFilter{
		SourceType:  models.ContextSource(q.Get("source_type")),
		IsProcessed: queryBoolPtr(r, "is_processed"),
		Search:      q.Get("search"),
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]contextView, 0, len(entries))
	for _, e := range entries {
		views = append(views, s.contextViewOf(e))
	}
	writeAPIJSON(w, views)
}

func (s *Server) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	var entry models.ContextEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.store.CreateContextEntry(entry)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIStatus(w, http.StatusCreated, s.contextViewOf(created))
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetContextEntry(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "context entry not found")
		return
	}
	writeAPIJSON(w, s.contextViewOf(entry))
}

func (s *Server) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetContextEntry(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "context entry not found")
		return
	}

	// Partial update: decode the body over the stored entry so absent fields
	// keep their values. Identity and processing timestamps stay server-side.
	id, timestamp, processedAt := entry.ID, entry.Timestamp, entry.ProcessedAt
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry.ID, entry.Timestamp, entry.ProcessedAt = id, timestamp, processedAt

	saved, err := s.store.SaveContextEntry(entry)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIJSON(w, s.contextViewOf(saved))
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteContextEntry(r.PathValue("id")); err != nil {
		writeAPIError(w, http.StatusNotFound, "context entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnalyzeContextEntry marks the entry processed. Entry-level AI
// analysis is not implemented yet; the processed flag is the only effect.
// TODO: run keyword/urgency extraction here once the engine grows a
// per-entry analysis operation.
func (s *Server) handleAnalyzeContextEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.MarkContextProcessed(r.PathValue("id"), time.Now().UTC())
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "context entry not found")
		return
	}
	writeAPIJSON(w, s.contextViewOf(entry))
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	relations, err := s.store.ListRelations(store.RelationFilter{
		TaskID:         q.Get("task"),
		ContextEntryID: q.Get("context_entry"),
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, relations)
}

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var rel models.TaskContextRelation
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.store.LinkTaskContext(rel)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIStatus(w, http.StatusCreated, created)
}

func (s *Server) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	rel, err := s.store.GetRelation(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "relation not found")
		return
	}
	writeAPIJSON(w, rel)
}

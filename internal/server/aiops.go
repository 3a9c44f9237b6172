package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

// === AI insight CRUD ===

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	// Inactive rows are hidden from the collection; soft-delete keeps them
	// in the table for history.
	insights, err := s.store.ListInsights(store.InsightFilter{
		Type:       models.InsightType(r.URL.Query().Get("insight_type")),
		ActiveOnly: true,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, insights)
}

func (s *Server) handleCreateInsight(w http.ResponseWriter, r *http.Request) {
	// is_active defaults to true when absent from the payload.
	req := struct {
		models.AIInsight
		IsActive *bool `json:"is_active"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	insight := req.AIInsight
	insight.IsActive = req.IsActive == nil || *req.IsActive

	created, err := s.store.CreateInsight(insight)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAPIStatus(w, http.StatusCreated, created)
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	insight, err := s.store.GetInsight(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "insight not found")
		return
	}
	writeAPIJSON(w, insight)
}

func (s *Server) handleUpdateInsight(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	insight, err := s.store.UpdateInsight(r.PathValue("id"), updates)
	switch {
	case errors.Is(err, store.ErrInsightNotFound):
		writeAPIError(w, http.StatusNotFound, "insight not found")
		return
	case errors.Is(err, store.ErrInvalidField):
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, insight)
}

func (s *Server) handleDeleteInsight(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteInsight(r.PathValue("id")); err != nil {
		writeAPIError(w, http.StatusNotFound, "insight not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === AI operations ===

func (s *Server) handleEnhanceTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID == "" {
		writeAPIError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	enhanced, err := s.ai.EnhanceTask(r.Context(), req.TaskID)
	if errors.Is(err, store.ErrTaskNotFound) {
		writeAPIError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		fmt.Printf("[API] Enhance task failed: %v\n", err)
		writeAPIError(w, http.StatusInternalServerError, "Failed to enhance task")
		return
	}

	writeAPIJSON(w, map[string]any{
		"message":       "Task enhanced successfully",
		"enhanced_data": enhanced,
	})
}

func (s *Server) handleAnalyzeContext(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.ai.AnalyzeContext(r.Context())
	if err != nil {
		fmt.Printf("[API] Context analysis failed: %v\n", err)
		writeAPIError(w, http.StatusInternalServerError, "Failed to analyze context")
		return
	}
	writeAPIJSON(w, analysis)
}

func (s *Server) handleProductivityInsights(w http.ResponseWriter, r *http.Request) {
	report, err := s.ai.ProductivityInsights(r.Context())
	if err != nil {
		fmt.Printf("[API] Productivity insights failed: %v\n", err)
		writeAPIError(w, http.StatusInternalServerError, "Failed to get insights")
		return
	}
	writeAPIJSON(w, report)
}

// === Read-only AI artifacts ===

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, analyses)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.store.GetAnalysis(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeAPIJSON(w, analysis)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.ListMetrics(nil)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, metrics)
}

func (s *Server) handleUpsertMetrics(w http.ResponseWriter, r *http.Request) {
	var metrics models.ProductivityMetrics
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if metrics.Date.IsZero() {
		writeAPIError(w, http.StatusBadRequest, "date is required")
		return
	}

	stored, err := s.store.UpsertMetrics(metrics)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIStatus(w, http.StatusCreated, stored)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.GetMetrics(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "metrics not found")
		return
	}
	writeAPIJSON(w, metrics)
}

func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ai.WeeklySummary(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		writeAPIJSON(w, map[string]string{"message": "No data available for the past week"})
		return
	}
	writeAPIJSON(w, summary)
}

func (s *Server) handleListProcessingLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListProcessingLogs(store.LogFilter{
		OperationType: models.OperationType(r.URL.Query().Get("operation_type")),
		Success:       queryBoolPtr(r, "success"),
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, logs)
}

func (s *Server) handleGetProcessingLog(w http.ResponseWriter, r *http.Request) {
	logEntry, err := s.store.GetProcessingLog(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "processing log not found")
		return
	}
	writeAPIJSON(w, logEntry)
}

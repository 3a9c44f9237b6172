// Package server exposes the REST API: task, category and context CRUD plus
// the AI operation endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/josephgoksu/tasksense/internal/insights"
	"github.com/josephgoksu/tasksense/store"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "TaskSense Backend"

type Server struct {
	store  store.Store
	ai     *insights.Service
	port   int
	server *http.Server
}

func New(port int, st store.Store, aiSvc *insights.Service) *Server {
	s := &Server{
		store: st,
		ai:    aiSvc,
		port:  port,
	}

	mux := http.NewServeMux()

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks/stats", s.handleTaskStats)
	mux.HandleFunc("GET /api/tasks/today", s.handleTasksToday)
	mux.HandleFunc("GET /api/tasks/upcoming", s.handleTasksUpcoming)
	mux.HandleFunc("GET /api/tasks/overdue", s.handleTasksOverdue)
	mux.HandleFunc("POST /api/tasks/bulk_update", s.handleBulkUpdateTasks)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/toggle_status", s.handleToggleTaskStatus)

	// Categories
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/popular", s.handlePopularCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	// Context entries and relations
	mux.HandleFunc("GET /api/contexts", s.handleListContexts)
	mux.HandleFunc("POST /api/contexts", s.handleCreateContext)
	mux.HandleFunc("GET /api/contexts/{id}", s.handleGetContext)
	mux.HandleFunc("PUT /api/contexts/{id}", s.handleUpdateContext)
	mux.HandleFunc("PATCH /api/contexts/{id}", s.handleUpdateContext)
	mux.HandleFunc("DELETE /api/contexts/{id}", s.handleDeleteContext)
	mux.HandleFunc("POST /api/contexts/{id}/analyze", s.handleAnalyzeContextEntry)
	mux.HandleFunc("GET /api/task-context-relations", s.handleListRelations)
	mux.HandleFunc("POST /api/task-context-relations", s.handleCreateRelation)
	mux.HandleFunc("GET /api/task-context-relations/{id}", s.handleGetRelation)

	// AI insights and operations
	mux.HandleFunc("GET /api/ai/insights", s.handleListInsights)
	mux.HandleFunc("POST /api/ai/insights", s.handleCreateInsight)
	mux.HandleFunc("POST /api/ai/insights/enhance_task", s.handleEnhanceTask)
	mux.HandleFunc("POST /api/ai/insights/analyze_context", s.handleAnalyzeContext)
	mux.HandleFunc("GET /api/ai/insights/productivity_insights", s.handleProductivityInsights)
	mux.HandleFunc("GET /api/ai/insights/{id}", s.handleGetInsight)
	mux.HandleFunc("PUT /api/ai/insights/{id}", s.handleUpdateInsight)
	mux.HandleFunc("PATCH /api/ai/insights/{id}", s.handleUpdateInsight)
	mux.HandleFunc("DELETE /api/ai/insights/{id}", s.handleDeleteInsight)

	// Read-only AI artifacts
	mux.HandleFunc("GET /api/ai/context-analysis", s.handleListAnalyses)
	mux.HandleFunc("GET /api/ai/context-analysis/{id}", s.handleGetAnalysis)
	mux.HandleFunc("GET /api/ai/productivity-metrics", s.handleListMetrics)
	mux.HandleFunc("POST /api/ai/productivity-metrics", s.handleUpsertMetrics)
	mux.HandleFunc("GET /api/ai/productivity-metrics/weekly_summary", s.handleWeeklySummary)
	mux.HandleFunc("GET /api/ai/productivity-metrics/{id}", s.handleGetMetrics)
	mux.HandleFunc("GET /api/ai/processing-logs", s.handleListProcessingLogs)
	mux.HandleFunc("GET /api/ai/processing-logs/{id}", s.handleGetProcessingLog)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("OPTIONS /api/", s.handleCORS)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: corsMiddleware(mux),
	}

	return s
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeAPIJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeAPIStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIStatus(w, status, map[string]string{"error": msg})
}

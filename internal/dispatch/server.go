package dispatch

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/chipcliff/internal/task"
	"github.com/kazz187/chipcliff/pkg/cerr"
)

// Server exposes the task lifecycle over HTTP.
type Server struct {
	dispatcher *Dispatcher
	repo       task.Repository
}

func NewServer(dispatcher *Dispatcher, repo task.Repository) *Server {
	return &Server{
		dispatcher: dispatcher,
		repo:       repo,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/task", s.createTask)
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/{taskID}", s.getTask)
	r.Get("/tasks/{taskID}/status", s.getTaskStatus)
}

type createTaskRequest struct {
	Description string `json:"description"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "description is required", nil)
		return
	}

	result, err := s.dispatcher.Handle(ctx, req.Description)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type taskStatusResponse struct {
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status"`
}

func (s *Server) getTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.repo.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, taskStatusResponse{TaskID: t.ID, Status: t.Status})
}

package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/provix/provix-api/internal/api/shared"
	"github.com/provix/provix-api/internal/service"
)

// TaskHandler serves the account provisioning task endpoints.
type TaskHandler struct {
	taskService service.TaskService
	validator   *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
	}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, req.InviteLink, req.Quantity)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewTaskResponse(task))
}

// GetTask handles GET /tasks/{id}: the task with its per-slot logs and
// progress derived from them.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	progress, err := h.taskService.GetTaskProgress(r.Context(), userID, taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := TaskProgressResponse{
		TaskResponse: NewTaskResponse(progress.Task),
		Logs:         make([]TaskLogResponse, 0, len(progress.Logs)),
	}
	resp.ProgressPercent = progress.ProgressPercent
	for _, l := range progress.Logs {
		resp.Logs = append(resp.Logs, TaskLogResponse{
			AccountNumber: l.AccountNumber,
			Email:         l.Email,
			Status:        string(l.Status),
			ProjectID:     l.ProjectID,
			ProjectURL:    l.ProjectURL,
			ErrorMessage:  l.ErrorMessage,
			CompletedAt:   l.CompletedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, NewTaskResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CancelTask handles POST /tasks/{id}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.CancelTask(r.Context(), userID, taskID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "cancelled"})
}

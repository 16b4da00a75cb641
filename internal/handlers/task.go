package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/project-management-api/internal/dto"
	apierrors "github.com/taskflow/project-management-api/internal/errors"
	"github.com/taskflow/project-management-api/internal/middleware"
	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/services"
	"github.com/taskflow/project-management-api/internal/utils"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns one page of a project's tasks, filtered and sorted per
// query parameters. status and priority accept comma-separated value sets.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		ProjectID: projectID,
		UserID:    userID,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      params.Page,
		PageSize:  params.PageSize,
	}

	for _, s := range splitCSV(c.Query("status")) {
		input.Statuses = append(input.Statuses, models.TaskStatus(s))
	}
	for _, p := range splitCSV(c.Query("priority")) {
		input.Priorities = append(input.Priorities, models.TaskPriority(p))
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		id, err := strconv.ParseUint(assignee, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id")
			return
		}
		input.AssigneeID = &id
	}

	page, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(page))
}

// CreateTask creates a new task in a project. Status always starts at todo.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required,min=1,max=200"`
		Description string     `json:"description" binding:"max=5000"`
		Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high critical"`
		AssigneeID  *uint64    `json:"assignee_id"`
		DueDate     *time.Time `json:"due_date"`
		Tags        []string   `json:"tags"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		ProjectID:   projectID,
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.TaskPriority(req.Priority),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a specific task by ID.
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask updates a task. The raw body is inspected so that an absent
// field keeps its value while an explicit null clears assignee or due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := buildUpdateTaskInput(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(taskID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task. Creator or project owner only.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// buildUpdateTaskInput translates the raw JSON body into an update input,
// distinguishing absent keys from explicit nulls.
func buildUpdateTaskInput(raw map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	if v, ok := raw["title"]; ok {
		if s, ok := v.(string); ok {
			input.Title = &s
		}
	}
	if v, ok := raw["description"]; ok {
		if s, ok := v.(string); ok {
			input.Description = &s
		}
	}
	if v, ok := raw["status"]; ok {
		if s, ok := v.(string); ok {
			status := models.TaskStatus(s)
			if !status.Valid() {
				return input, errors.New("invalid status")
			}
			input.Status = &status
		}
	}
	if v, ok := raw["priority"]; ok {
		if s, ok := v.(string); ok {
			priority := models.TaskPriority(s)
			if !priority.Valid() {
				return input, errors.New("invalid priority")
			}
			input.Priority = &priority
		}
	}
	if v, ok := raw["assignee_id"]; ok {
		if v == nil {
			input.ClearAssignee = true
		} else if n, ok := v.(float64); ok {
			id := uint64(n)
			input.AssigneeID = &id
		}
	}
	if v, ok := raw["due_date"]; ok {
		if v == nil {
			input.ClearDueDate = true
		} else if s, ok := v.(string); ok {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return input, errors.New("invalid due_date, expected RFC 3339")
			}
			input.DueDate = &parsed
		}
	}
	if v, ok := raw["tags"]; ok {
		if items, ok := v.([]any); ok {
			tags := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok {
					tags = append(tags, s)
				}
			}
			input.Tags = &tags
		}
	}

	return input, nil
}

// splitCSV splits a comma-separated query value, dropping empty entries.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotProjectMember),
		errors.Is(err, services.ErrTaskDeleteForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/repository"
	"github.com/taskflow/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskDeleteForbidden = errors.New("only the task creator or the project owner can delete this task")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	authz    *AuthorizationService
	notifier *NotificationService
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, authz *AuthorizationService, notifier *NotificationService) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		authz:    authz,
		notifier: notifier,
	}
}

// requireAssignee fails with ErrUserNotFound unless the referenced user
// exists. Assignments must never point at a user row that is not there.
func (s *TaskService) requireAssignee(userID uint64) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	return nil
}

// ListTasksInput carries the optional filter clauses for listing tasks.
// Absent clauses are omitted from the predicate entirely.
type ListTasksInput struct {
	ProjectID  uint64
	UserID     uint64
	Statuses   []models.TaskStatus
	Priorities []models.TaskPriority
	AssigneeID *uint64
	Search     string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// TaskPage is one window of a filtered task listing.
type TaskPage struct {
	Items    []models.Task
	Total    int64
	Page     int
	PageSize int
	HasMore  bool
}

// ListTasks runs the filter/sort/paginate pipeline over a project's tasks.
// The caller must be a member of the project.
func (s *TaskService) ListTasks(input ListTasksInput) (*TaskPage, error) {
	if err := s.authz.RequireMember(input.ProjectID, input.UserID); err != nil {
		return nil, err
	}

	params := utils.NewPaginationParams(input.Page, input.PageSize)

	filter := repository.TaskFilter{
		ProjectID:  input.ProjectID,
		Statuses:   input.Statuses,
		Priorities: input.Priorities,
		AssigneeID: input.AssigneeID,
		Search:     input.Search,
		SortBy:     input.SortBy,
		SortOrder:  input.SortOrder,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &TaskPage{
		Items:    tasks,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		HasMore:  int64(params.Offset+len(tasks)) < total,
	}, nil
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	CreatorID   uint64
	Title       string
	Description string
	Priority    models.TaskPriority
	AssigneeID  *uint64
	DueDate     *time.Time
	Tags        []string
}

// CreateTask creates a new task. Status always starts at todo regardless of
// caller input; priority defaults to medium; tags default to an empty list.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if err := s.authz.RequireMember(input.ProjectID, input.CreatorID); err != nil {
		return nil, err
	}

	if input.AssigneeID != nil {
		if err := s.requireAssignee(*input.AssigneeID); err != nil {
			return nil, err
		}
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if input.Tags == nil {
		input.Tags = []string{}
	}

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.TaskStatusTodo,
		Priority:    input.Priority,
		AssigneeID:  input.AssigneeID,
		CreatorID:   input.CreatorID,
		DueDate:     input.DueDate,
		Tags:        input.Tags,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if task.AssigneeID != nil {
		s.notifier.NotifyAll([]uint64{*task.AssigneeID}, input.CreatorID, func(target uint64) Notification {
			return s.assignedNotification(task, target)
		})
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// GetTask returns a task with related data. The caller must be a member of
// the task's project.
func (s *TaskService) GetTask(taskID, userID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.RequireMember(task.ProjectID, userID); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateTaskInput represents a partial task update. Nil fields keep their
// previous value; the Clear flags express an explicit null. Tags, when
// provided, replace the whole previous list.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uint64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	Tags          *[]string
}

// UpdateTask updates a task. Any project member may update any field; status
// transitions are unrestricted in every direction.
func (s *TaskService) UpdateTask(taskID, userID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.RequireMember(task.ProjectID, userID); err != nil {
		return nil, err
	}

	prevStatus := task.Status
	prevAssignee := task.AssigneeID

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.requireAssignee(*input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.notifyTaskChanges(task, userID, prevStatus, prevAssignee)

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// DeleteTask deletes a task. Allowed for the task's creator or the project
// owner; either status implies project access, so no separate membership
// gate applies.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID && !s.authz.IsOwner(task.ProjectID, actorID) {
		return ErrTaskDeleteForbidden
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// notifyTaskChanges emits assignment and status-change notifications after a
// successful update. Dispatching is fire-and-forget.
func (s *TaskService) notifyTaskChanges(task *models.Task, actorID uint64, prevStatus models.TaskStatus, prevAssignee *uint64) {
	if task.AssigneeID != nil && (prevAssignee == nil || *prevAssignee != *task.AssigneeID) {
		s.notifier.NotifyAll([]uint64{*task.AssigneeID}, actorID, func(target uint64) Notification {
			return s.assignedNotification(task, target)
		})
	}

	if task.Status != prevStatus {
		targets := []uint64{task.CreatorID}
		if task.AssigneeID != nil {
			targets = append(targets, *task.AssigneeID)
		}
		s.notifier.NotifyAll(targets, actorID, func(target uint64) Notification {
			return Notification{
				TargetUserID: target,
				EventType:    EventTaskStatusChanged,
				Title:        "Task status changed",
				Body:         fmt.Sprintf("%q moved from %s to %s", task.Title, prevStatus, task.Status),
				Metadata: map[string]string{
					"task_id":    fmt.Sprintf("%d", task.ID),
					"project_id": fmt.Sprintf("%d", task.ProjectID),
					"status":     string(task.Status),
				},
			}
		})
	}
}

func (s *TaskService) assignedNotification(task *models.Task, target uint64) Notification {
	return Notification{
		TargetUserID: target,
		EventType:    EventTaskAssigned,
		Title:        "Task assigned to you",
		Body:         fmt.Sprintf("You were assigned to %q", task.Title),
		Metadata: map[string]string{
			"task_id":    fmt.Sprintf("%d", task.ID),
			"project_id": fmt.Sprintf("%d", task.ProjectID),
		},
	}
}

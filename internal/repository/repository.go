package repository

import (
	"github.com/taskflow/project-management-api/internal/models"
)

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithOwner creates a project and its owner membership in a single
	// transaction. A project without an owner row must never be observable.
	CreateWithOwner(project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// ListByMember retrieves projects the user holds any membership in,
	// newest first, with the total count for the same predicate
	ListByMember(userID uint64, page, pageSize int) ([]models.Project, int64, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete removes a project and cascades to memberships, tasks and comments
	Delete(id uint64) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// FindMember finds a specific project membership
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists all memberships of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)

	// UpdateMember persists a membership row
	UpdateMember(member *models.ProjectMember) error

	// RemoveMember removes a membership row
	RemoveMember(projectID, userID uint64) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks matching the filter along with the total count
	// of rows matching the same predicate without the page window
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task and its comments
	Delete(id uint64) error
}

// TaskFilter holds the composable predicate clauses for listing tasks.
// Every field is optional; provided clauses combine with logical AND.
type TaskFilter struct {
	ProjectID  uint64
	Statuses   []models.TaskStatus
	Priorities []models.TaskPriority
	AssigneeID *uint64
	Search     string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(id uint64) (*models.Comment, error)

	// ListByTask lists a task's comments, oldest first
	ListByTask(taskID uint64) ([]models.Comment, error)

	// Delete soft deletes a comment
	Delete(id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}

package services

import (
	"errors"
	"fmt"

	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound        = errors.New("comment not found")
	ErrCommentDeleteForbidden = errors.New("only the comment author or an admin can delete this comment")
)

// CommentService handles comment business logic. Authorization is resolved
// through the comment's task and its project.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	authz       *AuthorizationService
	notifier    *NotificationService
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository, authz *AuthorizationService, notifier *NotificationService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		authz:       authz,
		notifier:    notifier,
	}
}

// CreateComment adds a comment to a task and notifies the task's assignee
// and creator. The comment author never receives a notification, even when
// they are also the assignee.
func (s *CommentService) CreateComment(taskID, authorID uint64, body string) (*models.Comment, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authz.RequireMember(task.ProjectID, authorID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		TaskID:   taskID,
		AuthorID: authorID,
		Body:     body,
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	targets := []uint64{task.CreatorID}
	if task.AssigneeID != nil {
		targets = append(targets, *task.AssigneeID)
	}
	s.notifier.NotifyAll(targets, authorID, func(target uint64) Notification {
		return Notification{
			TargetUserID: target,
			EventType:    EventCommentAdded,
			Title:        "New comment",
			Body:         fmt.Sprintf("New comment on %q", task.Title),
			Metadata: map[string]string{
				"task_id":    fmt.Sprintf("%d", task.ID),
				"project_id": fmt.Sprintf("%d", task.ProjectID),
				"comment_id": fmt.Sprintf("%d", comment.ID),
			},
		}
	})

	return comment, nil
}

// ListComments returns a task's comments, oldest first.
func (s *CommentService) ListComments(taskID, userID uint64) ([]models.Comment, error) {
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

	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// DeleteComment deletes a comment. Allowed for the comment's author, or for
// a caller whose global role is admin. The admin role comes from the
// caller's identity, not from project membership.
func (s *CommentService) DeleteComment(commentID, userID uint64, role models.UserRole) error {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.AuthorID != userID && role != models.UserRoleAdmin {
		return ErrCommentDeleteForbidden
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

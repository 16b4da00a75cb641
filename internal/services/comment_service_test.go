package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type commentNotifyFixture struct {
	db      *gorm.DB
	service *CommentService

	creator  *models.User
	assignee *models.User
	task     *models.Task
}

// newCommentNotifyFixture builds a project whose task is created by one user
// and assigned to another, with the comment service wired to the given
// notification endpoint.
func newCommentNotifyFixture(t *testing.T, endpoint string) *commentNotifyFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
	))

	creator := &models.User{Email: "creator@example.com", PasswordHash: "x", Role: models.UserRoleUser}
	require.NoError(t, db.Create(creator).Error)
	assignee := &models.User{Email: "assignee@example.com", PasswordHash: "x", Role: models.UserRoleUser}
	require.NoError(t, db.Create(assignee).Error)

	project := &models.Project{Name: "Fixture", OwnerID: creator.ID}
	require.NoError(t, db.Create(project).Error)
	for userID, role := range map[uint64]models.ProjectRole{
		creator.ID:  models.RoleOwner,
		assignee.ID: models.RoleMember,
	} {
		require.NoError(t, db.Create(&models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      role,
			JoinedAt:  time.Now(),
		}).Error)
	}

	task := &models.Task{
		ProjectID:  project.ID,
		Title:      "Discussed task",
		Status:     models.TaskStatusTodo,
		Priority:   models.TaskPriorityMedium,
		AssigneeID: &assignee.ID,
		CreatorID:  creator.ID,
		Tags:       []string{},
	}
	require.NoError(t, db.Create(task).Error)

	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	authz := NewAuthorizationService(projectRepo)

	return &commentNotifyFixture{
		db:       db,
		service:  NewCommentService(commentRepo, taskRepo, authz, NewNotificationService(endpoint)),
		creator:  creator,
		assignee: assignee,
		task:     task,
	}
}

// TestCreateComment_AuthorAlsoAssigneeNotifiesCreatorOnly covers the case
// where the commenter is the task's assignee: the creator still hears about
// the comment, the author never does, and the overlap produces no second
// delivery.
func TestCreateComment_AuthorAlsoAssigneeNotifiesCreatorOnly(t *testing.T) {
	server, received := notificationCollector(t)
	defer server.Close()

	f := newCommentNotifyFixture(t, server.URL)

	comment, err := f.service.CreateComment(f.task.ID, f.assignee.ID, "I'm on it")
	require.NoError(t, err)
	assert.Equal(t, f.assignee.ID, comment.AuthorID)

	got := waitForNotifications(t, received, 1)
	assert.Equal(t, f.creator.ID, got[0].TargetUserID)
	assert.Equal(t, EventCommentAdded, got[0].EventType)
	assert.Equal(t, fmt.Sprintf("%d", f.task.ID), got[0].Metadata["task_id"])
	assert.Equal(t, fmt.Sprintf("%d", comment.ID), got[0].Metadata["comment_id"])
	assertNoMoreNotifications(t, received)
}

// TestCreateComment_CreatorCommentNotifiesAssigneeOnly is the mirror case:
// the task creator comments, so only the assignee is notified.
func TestCreateComment_CreatorCommentNotifiesAssigneeOnly(t *testing.T) {
	server, received := notificationCollector(t)
	defer server.Close()

	f := newCommentNotifyFixture(t, server.URL)

	_, err := f.service.CreateComment(f.task.ID, f.creator.ID, "any progress?")
	require.NoError(t, err)

	got := waitForNotifications(t, received, 1)
	assert.Equal(t, f.assignee.ID, got[0].TargetUserID)
	assert.Equal(t, EventCommentAdded, got[0].EventType)
	assertNoMoreNotifications(t, received)
}

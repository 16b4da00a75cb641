package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/repository"
	"github.com/taskflow/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CommentHandlerTestSuite defines the test suite for CommentHandler
type CommentHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *CommentHandler

	owner   *models.User
	member  *models.User
	project *models.Project
	task    *models.Task
}

// SetupTest runs before each test
func (suite *CommentHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
	)
	suite.Require().NoError(err)

	projectRepo := repository.NewProjectRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	commentRepo := repository.NewCommentRepository(suite.db)
	authz := services.NewAuthorizationService(projectRepo)
	notifier := services.NewNotificationService("")

	suite.handler = NewCommentHandler(services.NewCommentService(commentRepo, taskRepo, authz, notifier))

	gin.SetMode(gin.TestMode)

	// Shared fixture: a project with an owner, a member and one task
	suite.owner = suite.createTestUser("owner@example.com", models.UserRoleUser)
	suite.member = suite.createTestUser("member@example.com", models.UserRoleUser)

	projectService := services.NewProjectService(projectRepo, repository.NewUserRepository(suite.db), authz)
	suite.project, err = projectService.CreateProject(services.CreateProjectInput{
		Name:    "Test Project",
		OwnerID: suite.owner.ID,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Create(&models.ProjectMember{
		ProjectID: suite.project.ID,
		UserID:    suite.member.ID,
		Role:      models.RoleMember,
		JoinedAt:  time.Now(),
	}).Error)

	suite.task = &models.Task{
		ProjectID: suite.project.ID,
		Title:     "Discussed task",
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		CreatorID: suite.owner.ID,
		Tags:      []string{},
	}
	suite.Require().NoError(suite.db.Create(suite.task).Error)
}

// TearDownTest runs after each test
func (suite *CommentHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *CommentHandlerTestSuite) createTestUser(email string, role models.UserRole) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

// Helper function to create an authenticated context
func (suite *CommentHandlerTestSuite) createAuthContext(method, url string, body []byte, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", user.ID)
	c.Set("user_role", string(user.Role))

	return c, w
}

func (suite *CommentHandlerTestSuite) createCommentVia(user *models.User, body string) (uint64, *httptest.ResponseRecorder) {
	payload, _ := json.Marshal(map[string]interface{}{"body": body})
	c, w := suite.createAuthContext("POST", "/api/tasks/1/comments", payload, user)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", suite.task.ID)}}
	suite.handler.CreateComment(c)

	if w.Code != http.StatusCreated {
		return 0, w
	}
	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return uint64(response["id"].(float64)), w
}

// TestCreateComment_Success tests posting a comment as a member
func (suite *CommentHandlerTestSuite) TestCreateComment_Success() {
	id, w := suite.createCommentVia(suite.member, "Looks good to me")
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.NotZero(suite.T(), id)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Looks good to me", response["body"])
	assert.Equal(suite.T(), float64(suite.member.ID), response["author_id"])
}

// TestCreateComment_NonMemberForbidden tests posting by a non-member
func (suite *CommentHandlerTestSuite) TestCreateComment_NonMemberForbidden() {
	outsider := suite.createTestUser("outsider@example.com", models.UserRoleUser)

	_, w := suite.createCommentVia(outsider, "Let me in")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestCreateComment_TaskNotFound tests commenting on a missing task
func (suite *CommentHandlerTestSuite) TestCreateComment_TaskNotFound() {
	payload, _ := json.Marshal(map[string]interface{}{"body": "hello"})
	c, w := suite.createAuthContext("POST", "/api/tasks/999/comments", payload, suite.member)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	suite.handler.CreateComment(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestCreateComment_EmptyBody tests body validation
func (suite *CommentHandlerTestSuite) TestCreateComment_EmptyBody() {
	_, w := suite.createCommentVia(suite.member, "")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestListComments_ChronologicalOrder tests ascending created_at ordering
func (suite *CommentHandlerTestSuite) TestListComments_ChronologicalOrder() {
	base := time.Now().Add(-time.Hour)
	for i, body := range []string{"first", "second", "third"} {
		comment := &models.Comment{
			TaskID:   suite.task.ID,
			AuthorID: suite.owner.ID,
			Body:     body,
		}
		suite.Require().NoError(suite.db.Create(comment).Error)
		suite.db.Model(comment).Update("created_at", base.Add(time.Duration(i)*time.Minute))
	}

	c, w := suite.createAuthContext("GET", "/api/tasks/1/comments", nil, suite.member)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", suite.task.ID)}}
	suite.handler.ListComments(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	comments := response["comments"].([]interface{})
	suite.Require().Len(comments, 3)

	var bodies []string
	for _, item := range comments {
		bodies = append(bodies, item.(map[string]interface{})["body"].(string))
	}
	assert.Equal(suite.T(), []string{"first", "second", "third"}, bodies)
}

// TestListComments_NonMemberForbidden tests read access control
func (suite *CommentHandlerTestSuite) TestListComments_NonMemberForbidden() {
	outsider := suite.createTestUser("outsider@example.com", models.UserRoleUser)

	c, w := suite.createAuthContext("GET", "/api/tasks/1/comments", nil, outsider)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", suite.task.ID)}}
	suite.handler.ListComments(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestDeleteComment_AuthorCanDelete tests the author branch
func (suite *CommentHandlerTestSuite) TestDeleteComment_AuthorCanDelete() {
	id, w := suite.createCommentVia(suite.member, "my own words")
	suite.Require().Equal(http.StatusCreated, w.Code)

	c, w := suite.createAuthContext("DELETE", "/api/comments/1", nil, suite.member)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", id)}}
	suite.handler.DeleteComment(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestDeleteComment_OtherUserForbidden tests that neither membership nor
// project ownership grants comment deletion
func (suite *CommentHandlerTestSuite) TestDeleteComment_OtherUserForbidden() {
	id, w := suite.createCommentVia(suite.member, "hands off")
	suite.Require().Equal(http.StatusCreated, w.Code)

	c, w := suite.createAuthContext("DELETE", "/api/comments/1", nil, suite.owner)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", id)}}
	suite.handler.DeleteComment(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestDeleteComment_AdminCanDelete tests the global admin branch
func (suite *CommentHandlerTestSuite) TestDeleteComment_AdminCanDelete() {
	admin := suite.createTestUser("admin@example.com", models.UserRoleAdmin)

	id, w := suite.createCommentVia(suite.member, "moderated away")
	suite.Require().Equal(http.StatusCreated, w.Code)

	c, w := suite.createAuthContext("DELETE", "/api/comments/1", nil, admin)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", id)}}
	suite.handler.DeleteComment(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Where("id = ?", id).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestDeleteComment_NotFound tests deleting a missing comment
func (suite *CommentHandlerTestSuite) TestDeleteComment_NotFound() {
	c, w := suite.createAuthContext("DELETE", "/api/comments/999", nil, suite.member)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	suite.handler.DeleteComment(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestCommentHandlerTestSuite runs the test suite
func TestCommentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CommentHandlerTestSuite))
}

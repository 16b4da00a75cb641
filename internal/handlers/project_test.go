package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/project-management-api/internal/models"
	"github.com/taskflow/project-management-api/internal/repository"
	"github.com/taskflow/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProjectHandlerTestSuite defines the test suite for ProjectHandler
type ProjectHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *ProjectHandler
}

// SetupTest runs before each test
func (suite *ProjectHandlerTestSuite) SetupTest() {
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
	userRepo := repository.NewUserRepository(suite.db)
	authz := services.NewAuthorizationService(projectRepo)
	suite.handler = NewProjectHandler(services.NewProjectService(projectRepo, userRepo, authz))

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *ProjectHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ProjectHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         models.UserRoleUser,
	}
	suite.db.Create(user)
	return user
}

// Helper function to create an authenticated context
func (suite *ProjectHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Set("user_id", userID)

	return c, w
}

func (suite *ProjectHandlerTestSuite) createProjectVia(userID uint64, name string) uint64 {
	body, _ := json.Marshal(map[string]interface{}{"name": name})
	c, w := suite.createAuthContext("POST", "/api/projects", body, userID)
	suite.handler.CreateProject(c)
	suite.Require().Equal(http.StatusCreated, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return uint64(response["id"].(float64))
}

func (suite *ProjectHandlerTestSuite) addMemberVia(ownerID, projectID, userID uint64, role string) *httptest.ResponseRecorder {
	payload := map[string]interface{}{"user_id": userID}
	if role != "" {
		payload["role"] = role
	}
	body, _ := json.Marshal(payload)
	c, w := suite.createAuthContext("POST", "/api/projects/1/members", body, ownerID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.AddMember(c)
	return w
}

// TestCreateProject_OwnerMembershipCreated tests that project creation also
// writes the owner membership row
func (suite *ProjectHandlerTestSuite) TestCreateProject_OwnerMembershipCreated() {
	user := suite.createTestUser("owner@example.com")

	projectID := suite.createProjectVia(user.ID, "My Project")

	var member models.ProjectMember
	err := suite.db.Where("project_id = ? AND user_id = ?", projectID, user.ID).First(&member).Error
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleOwner, member.Role)
}

// TestCreateProject_MissingName tests validation of the required name
func (suite *ProjectHandlerTestSuite) TestCreateProject_MissingName() {
	user := suite.createTestUser("owner@example.com")

	body, _ := json.Marshal(map[string]interface{}{"description": "no name"})
	c, w := suite.createAuthContext("POST", "/api/projects", body, user.ID)
	suite.handler.CreateProject(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestListProjects_MembershipOnly tests that a user sees a project exactly
// when they hold a membership in it
func (suite *ProjectHandlerTestSuite) TestListProjects_MembershipOnly() {
	userA := suite.createTestUser("a@example.com")
	userB := suite.createTestUser("b@example.com")

	suite.createProjectVia(userA.ID, "A Project")
	bProjectID := suite.createProjectVia(userB.ID, "B Project")

	c, w := suite.createAuthContext("GET", "/api/projects", nil, userA.ID)
	suite.handler.ListProjects(c)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	projects := response["projects"].([]interface{})
	suite.Require().Len(projects, 1)
	assert.Equal(suite.T(), "A Project", projects[0].(map[string]interface{})["name"])

	// After B adds A as a member, A sees both
	w = suite.addMemberVia(userB.ID, bProjectID, userA.ID, "member")
	suite.Require().Equal(http.StatusCreated, w.Code)

	c, w = suite.createAuthContext("GET", "/api/projects", nil, userA.ID)
	suite.handler.ListProjects(c)
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), float64(2), response["total"])
}

// TestGetProject_NonMemberForbidden tests read access control
func (suite *ProjectHandlerTestSuite) TestGetProject_NonMemberForbidden() {
	owner := suite.createTestUser("owner@example.com")
	outsider := suite.createTestUser("outsider@example.com")
	projectID := suite.createProjectVia(owner.ID, "Private")

	c, w := suite.createAuthContext("GET", "/api/projects/1", nil, outsider.ID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.GetProject(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestUpdateProject_MemberForbidden tests that a plain member cannot update
// project metadata
func (suite *ProjectHandlerTestSuite) TestUpdateProject_MemberForbidden() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, member.ID, "member").Code)

	body, _ := json.Marshal(map[string]interface{}{"name": "Renamed"})
	c, w := suite.createAuthContext("PATCH", "/api/projects/1", body, member.ID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.UpdateProject(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestUpdateProject_PartialUpdate tests that omitted fields are untouched
func (suite *ProjectHandlerTestSuite) TestUpdateProject_PartialUpdate() {
	owner := suite.createTestUser("owner@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.db.Model(&models.Project{}).Where("id = ?", projectID).Update("description", "keep me")

	body, _ := json.Marshal(map[string]interface{}{"name": "Renamed"})
	c, w := suite.createAuthContext("PATCH", "/api/projects/1", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.UpdateProject(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Renamed", response["name"])
	assert.Equal(suite.T(), "keep me", response["description"])
}

// TestAddMember_DuplicateForbidden tests that adding an existing member fails
func (suite *ProjectHandlerTestSuite) TestAddMember_DuplicateForbidden() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	w := suite.addMemberVia(owner.ID, projectID, member.ID, "member")
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.addMemberVia(owner.ID, projectID, member.ID, "member")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestAddMember_UnknownUserRejected tests that a membership can never point
// at a user row that does not exist
func (suite *ProjectHandlerTestSuite) TestAddMember_UnknownUserRejected() {
	owner := suite.createTestUser("owner@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	w := suite.addMemberVia(owner.ID, projectID, 99999, "member")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var count int64
	suite.db.Model(&models.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, 99999).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestAddMember_ByNonOwnerForbidden tests that members cannot grow the roster
func (suite *ProjectHandlerTestSuite) TestAddMember_ByNonOwnerForbidden() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	third := suite.createTestUser("third@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, member.ID, "member").Code)

	w := suite.addMemberVia(member.ID, projectID, third.ID, "member")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestAddMember_UnknownRoleDefaultsToMember tests role sanitization
func (suite *ProjectHandlerTestSuite) TestAddMember_UnknownRoleDefaultsToMember() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	w := suite.addMemberVia(owner.ID, projectID, member.ID, "supreme_leader")
	suite.Require().Equal(http.StatusCreated, w.Code)

	var row models.ProjectMember
	err := suite.db.Where("project_id = ? AND user_id = ?", projectID, member.ID).First(&row).Error
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleMember, row.Role)
}

// TestListMembers_ExcludesOwner tests that the roster listing omits the
// owner row
func (suite *ProjectHandlerTestSuite) TestListMembers_ExcludesOwner() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	viewer := suite.createTestUser("viewer@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, member.ID, "member").Code)
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, viewer.ID, "viewer").Code)

	c, w := suite.createAuthContext("GET", "/api/projects/1/members", nil, member.ID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.ListMembers(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	members := response["members"].([]interface{})
	assert.Len(suite.T(), members, 2)
	for _, m := range members {
		assert.NotEqual(suite.T(), "owner", m.(map[string]interface{})["role"])
	}
}

// TestUpdateMemberRole_OwnerRowImmutable tests that the owner's own row
// cannot be reassigned
func (suite *ProjectHandlerTestSuite) TestUpdateMemberRole_OwnerRowImmutable() {
	owner := suite.createTestUser("owner@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	body, _ := json.Marshal(map[string]interface{}{"role": "viewer"})
	c, w := suite.createAuthContext("PATCH", "/api/projects/1/members/1", body, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: fmt.Sprintf("%d", projectID)},
		{Key: "user_id", Value: fmt.Sprintf("%d", owner.ID)},
	}
	suite.handler.UpdateMemberRole(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestUpdateMemberRole_MemberToViewer tests a plain role change
func (suite *ProjectHandlerTestSuite) TestUpdateMemberRole_MemberToViewer() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, member.ID, "member").Code)

	body, _ := json.Marshal(map[string]interface{}{"role": "viewer"})
	c, w := suite.createAuthContext("PATCH", "/api/projects/1/members/2", body, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: fmt.Sprintf("%d", projectID)},
		{Key: "user_id", Value: fmt.Sprintf("%d", member.ID)},
	}
	suite.handler.UpdateMemberRole(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var row models.ProjectMember
	err := suite.db.Where("project_id = ? AND user_id = ?", projectID, member.ID).First(&row).Error
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleViewer, row.Role)
}

// TestRemoveMember_OwnerSelfRemovalForbidden tests that an owner cannot
// leave their own project
func (suite *ProjectHandlerTestSuite) TestRemoveMember_OwnerSelfRemovalForbidden() {
	owner := suite.createTestUser("owner@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	c, w := suite.createAuthContext("DELETE", "/api/projects/1/members/1", nil, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: fmt.Sprintf("%d", projectID)},
		{Key: "user_id", Value: fmt.Sprintf("%d", owner.ID)},
	}
	suite.handler.RemoveMember(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	var count int64
	suite.db.Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

// TestRemoveMember_Success tests removing a plain member
func (suite *ProjectHandlerTestSuite) TestRemoveMember_Success() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")
	suite.Require().Equal(http.StatusCreated, suite.addMemberVia(owner.ID, projectID, member.ID, "member").Code)

	c, w := suite.createAuthContext("DELETE", "/api/projects/1/members/2", nil, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: fmt.Sprintf("%d", projectID)},
		{Key: "user_id", Value: fmt.Sprintf("%d", member.ID)},
	}
	suite.handler.RemoveMember(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, member.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestDeleteProject_CascadesTasksAndComments tests that deleting a project
// removes its tasks, comments and memberships
func (suite *ProjectHandlerTestSuite) TestDeleteProject_CascadesTasksAndComments() {
	owner := suite.createTestUser("owner@example.com")
	projectID := suite.createProjectVia(owner.ID, "Project")

	task := &models.Task{
		ProjectID: projectID,
		Title:     "doomed",
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		CreatorID: owner.ID,
		Tags:      []string{},
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	suite.Require().NoError(suite.db.Create(&models.Comment{
		TaskID:   task.ID,
		AuthorID: owner.ID,
		Body:     "also doomed",
	}).Error)

	c, w := suite.createAuthContext("DELETE", "/api/projects/1", nil, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", projectID)}}
	suite.handler.DeleteProject(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var taskCount, commentCount, memberCount int64
	suite.db.Model(&models.Task{}).Where("project_id = ?", projectID).Count(&taskCount)
	suite.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&commentCount)
	suite.db.Model(&models.ProjectMember{}).Where("project_id = ?", projectID).Count(&memberCount)
	assert.Equal(suite.T(), int64(0), taskCount)
	assert.Equal(suite.T(), int64(0), commentCount)
	assert.Equal(suite.T(), int64(0), memberCount)
}

// TestDeleteProject_NotFound tests deleting a missing project
func (suite *ProjectHandlerTestSuite) TestDeleteProject_NotFound() {
	user := suite.createTestUser("owner@example.com")

	c, w := suite.createAuthContext("DELETE", "/api/projects/999", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	suite.handler.DeleteProject(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestProjectHandlerTestSuite runs the test suite
func TestProjectHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectHandlerTestSuite))
}

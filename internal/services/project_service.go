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
	ErrProjectNotFound       = errors.New("project not found")
	ErrAlreadyProjectMember  = errors.New("user is already a member of this project")
	ErrProjectMemberNotFound = errors.New("project member not found")
	ErrCannotRemoveOwner     = errors.New("the project owner cannot be removed from their own project")
	ErrCannotChangeOwnerRole = errors.New("the owner membership cannot be modified")
)

// ProjectService provides business logic for project and membership operations.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	authz       *AuthorizationService
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, authz *AuthorizationService) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		authz:       authz,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	OwnerID     uint64
}

// CreateProject creates a project together with its owner membership. The two
// inserts run in one transaction so a project without an owner row is never
// observable.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}

	owner := &models.ProjectMember{
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithOwner(project, owner); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// ListUserProjects returns projects the user holds any membership in,
// newest first.
func (s *ProjectService) ListUserProjects(userID uint64, page, pageSize int) ([]models.Project, int64, utils.PaginationParams, error) {
	params := utils.NewPaginationParams(page, pageSize)

	projects, total, err := s.projectRepo.ListByMember(userID, params.Page, params.PageSize)
	if err != nil {
		return nil, 0, params, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, total, params, nil
}

// GetProject returns a project the caller is a member of.
func (s *ProjectService) GetProject(projectID, userID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.authz.RequireMember(projectID, userID); err != nil {
		return nil, err
	}

	return project, nil
}

// UpdateProjectInput represents a partial project update. Nil fields keep
// their previous value.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// UpdateProject updates a project's fields. Owner only.
func (s *ProjectService) UpdateProject(projectID, userID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.authz.RequireOwner(projectID, userID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// DeleteProject removes a project and cascades to memberships, tasks and
// comments. Owner only.
func (s *ProjectService) DeleteProject(projectID, userID uint64) error {
	if err := s.authz.RequireOwner(projectID, userID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// ListMembers returns a project's non-owner memberships. The owner is never
// reported as a regular member.
func (s *ProjectService) ListMembers(projectID, userID uint64) ([]models.ProjectMember, error) {
	if _, err := s.projectRepo.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if err := s.authz.RequireMember(projectID, userID); err != nil {
		return nil, err
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}

	filtered := make([]models.ProjectMember, 0, len(members))
	for _, m := range members {
		if m.Role == models.RoleOwner {
			continue
		}
		filtered = append(filtered, m)
	}

	return filtered, nil
}

// AddMemberInput represents parameters to add a project member.
type AddMemberInput struct {
	ProjectID   uint64
	UserID      uint64
	RequesterID uint64
	Role        models.ProjectRole
}

// AddMember adds a member to a project. Owner only. The target user must
// exist; duplicate memberships are rejected, not merged. Roles outside
// {member, viewer} silently become member.
func (s *ProjectService) AddMember(input AddMemberInput) (*models.ProjectMember, error) {
	if err := s.authz.RequireOwner(input.ProjectID, input.RequesterID); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(input.ProjectID, input.UserID); err == nil {
		return nil, ErrAlreadyProjectMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
		Role:      sanitizeMemberRole(input.Role),
		JoinedAt:  time.Now(),
	}

	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// UpdateMemberRole changes a member's role. Owner only. The owner membership
// itself cannot be touched.
func (s *ProjectService) UpdateMemberRole(projectID, targetID, requesterID uint64, role models.ProjectRole) (*models.ProjectMember, error) {
	if err := s.authz.RequireOwner(projectID, requesterID); err != nil {
		return nil, err
	}

	member, err := s.projectRepo.FindMember(projectID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectMemberNotFound
		}
		return nil, fmt.Errorf("failed to find project member: %w", err)
	}

	if member.Role == models.RoleOwner {
		return nil, ErrCannotChangeOwnerRole
	}

	member.Role = sanitizeMemberRole(role)
	if err := s.projectRepo.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	return member, nil
}

// RemoveMember removes a member from a project. Owner only. The owner can
// never remove themselves; the only way out is project deletion.
func (s *ProjectService) RemoveMember(projectID, targetID, requesterID uint64) error {
	if err := s.authz.RequireOwner(projectID, requesterID); err != nil {
		return err
	}

	if targetID == requesterID {
		return ErrCannotRemoveOwner
	}

	if _, err := s.projectRepo.FindMember(projectID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectMemberNotFound
		}
		return fmt.Errorf("failed to find project member: %w", err)
	}

	if err := s.projectRepo.RemoveMember(projectID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// sanitizeMemberRole restricts assignable roles to member and viewer.
func sanitizeMemberRole(role models.ProjectRole) models.ProjectRole {
	switch role {
	case models.RoleMember, models.RoleViewer:
		return role
	default:
		return models.RoleMember
	}
}

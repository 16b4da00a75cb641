package services

import (
	"errors"
	"fmt"

	"github.com/taskflow/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotProjectMember = errors.New("user is not a member of the project")
	ErrNotProjectOwner  = errors.New("only the project owner can perform this action")
)

// AuthorizationService holds the membership and ownership checks shared by
// the project, task and comment services. All checks are pure reads.
type AuthorizationService struct {
	projectRepo repository.ProjectRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(projectRepo repository.ProjectRepository) *AuthorizationService {
	return &AuthorizationService{
		projectRepo: projectRepo,
	}
}

// RequireMember fails with ErrNotProjectMember unless the user holds a
// membership row in the project. Any role is sufficient.
func (s *AuthorizationService) RequireMember(projectID, userID uint64) error {
	_, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotProjectMember
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

// RequireOwner fails with ErrNotProjectOwner unless the user owns the
// project, or with ErrProjectNotFound when the project does not exist.
func (s *AuthorizationService) RequireOwner(projectID, userID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID != userID {
		return ErrNotProjectOwner
	}
	return nil
}

// IsOwner reports whether the user owns the project.
func (s *AuthorizationService) IsOwner(projectID, userID uint64) bool {
	return s.RequireOwner(projectID, userID) == nil
}

// IsMember reports whether the user holds any membership in the project.
func (s *AuthorizationService) IsMember(projectID, userID uint64) bool {
	return s.RequireMember(projectID, userID) == nil
}

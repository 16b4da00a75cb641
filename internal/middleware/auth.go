package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/taskflow/project-management-api/internal/constants"
	apierrors "github.com/taskflow/project-management-api/internal/errors"
	"github.com/taskflow/project-management-api/internal/models"
)

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)

		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		if role := session.Get(constants.ContextKeyUserRole); role != nil {
			c.Set(constants.ContextKeyUserRole, role)
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserRole retrieves the caller's global role from context. Absent or
// malformed values degrade to the plain user role.
func GetUserRole(c *gin.Context) models.UserRole {
	role, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return models.UserRoleUser
	}

	switch v := role.(type) {
	case models.UserRole:
		return v
	case string:
		return models.UserRole(v)
	default:
		return models.UserRoleUser
	}
}

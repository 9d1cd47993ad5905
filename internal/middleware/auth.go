package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/config"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/utils"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
	doctorKey   = "doctor"
)

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userRoleKey, claims.Role)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "User role not found in context. AuthMiddleware might be missing.")
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		utils.Forbidden(c, "You do not have permission to access this resource.")
	}
}

// DoctorFinder loads the doctor profile of a user.
type DoctorFinder interface {
	FindDoctorByUser(ctx context.Context, userID string) (*models.Doctor, error)
}

// ApprovedDoctorMiddleware only lets through doctors whose application was
// approved, and stores their profile in the context. Use after RoleAuthMiddleware(RoleDoctor).
func ApprovedDoctorMiddleware(doctors DoctorFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			utils.Unauthorized(c, "User not authenticated")
			return
		}

		doctor, err := doctors.FindDoctorByUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Forbidden(c, "No doctor profile for this account")
				return
			}
			utils.RespondError(c, err)
			return
		}
		if !doctor.IsApproved() {
			utils.Forbidden(c, "Your doctor application is "+string(doctor.Status))
			return
		}

		c.Set(doctorKey, doctor)
		c.Next()
	}
}

// GetUserIDFromContext returns the authenticated user's id.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// GetUserRoleFromContext returns the authenticated user's role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(userRoleKey)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}

// GetDoctorFromContext returns the profile set by ApprovedDoctorMiddleware.
func GetDoctorFromContext(c *gin.Context) (*models.Doctor, bool) {
	v, exists := c.Get(doctorKey)
	if !exists {
		return nil, false
	}
	doctor, ok := v.(*models.Doctor)
	return doctor, ok
}

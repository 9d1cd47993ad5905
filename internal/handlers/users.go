package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/utils"
)

// UserHandler handles user management requests (admin operations).
type UserHandler struct {
	Users UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{Users: users}
}

// CreateAdminRequest represents the request body for creating an admin account.
type CreateAdminRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

// CreateAdmin creates another admin account. Patients register themselves
// and doctors go through the application workflow.
func (h *UserHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      models.RoleAdmin,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.Users.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			utils.Conflict(c, "User with this email already exists")
			return
		}
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// UserListQuery filters the user listing.
type UserListQuery struct {
	ListQuery
	Role   string `form:"role" binding:"omitempty,oneof=patient doctor admin"`
	Search string `form:"search" binding:"max=100"`
}

// GetUsers lists users, newest first.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var q UserListQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	users, total, err := h.Users.ListUsers(c.Request.Context(), repository.UserFilter{
		Role:   models.Role(q.Role),
		Search: q.Search,
	}, q.page())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i := range users {
		sanitized[i] = users[i].Sanitize()
	}
	utils.Paginated(c, "Users fetched successfully", sanitized, q.meta(total))
}

// GetUserByID fetches a single user.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.Users.FindUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Roles are not changed here.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
}

// UpdateUser edits a user's name or email.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.Users.FindUser(ctx, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			taken, err := h.Users.EmailTaken(ctx, email)
			if err != nil {
				utils.RespondError(c, err)
				return
			}
			if taken {
				utils.Conflict(c, "New email is already in use")
				return
			}
			user.Email = email
		}
	}

	if err := h.Users.SaveUser(ctx, user); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser deletes a user without appointments or a doctor profile.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID := c.Param("id")
	if userID == adminID {
		utils.BadRequest(c, "You cannot delete your own account")
		return
	}

	if err := h.Users.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			utils.Conflict(c, "User has appointments or a doctor profile and cannot be deleted")
			return
		}
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}

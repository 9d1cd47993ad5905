package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/config"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Users        UserStore
	Tokens       TokenStore
	Applications Applications
	Resets       PasswordResetter
	Hasher       services.Hasher
	Cfg          *config.Config
	now          func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UserStore, tokens TokenStore, applications Applications, resets PasswordResetter, hasher services.Hasher, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		Applications: applications,
		Resets:       resets,
		Hasher:       hasher,
		Cfg:          cfg,
		now:          time.Now,
	}
}

// RegisterRequest represents the request body for patient registration.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	CPF         string `json:"cpf" binding:"required,cpf"`
	Phone       string `json:"phone" binding:"omitempty,min=10,max=20"`
	DateOfBirth string `json:"dateOfBirth" binding:"omitempty,date"`
}

// Register creates a patient account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if taken, err := h.Users.EmailTaken(ctx, email); err != nil {
		utils.RespondError(c, err)
		return
	} else if taken {
		utils.Conflict(c, "User with this email already exists")
		return
	}

	cpf := models.OnlyDigits(req.CPF)
	cpfHash := h.Hasher.BlindIndex(cpf)
	if taken, err := h.Users.CPFTaken(ctx, cpfHash); err != nil {
		utils.RespondError(c, err)
		return
	} else if taken {
		utils.Conflict(c, "User with this CPF already exists")
		return
	}

	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	user := models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Role:        models.RolePatient,
		DateOfBirth: dob,
		CPF:         cpf,
		CPFHash:     &cpfHash,
		Phone:       models.OnlyDigits(req.Phone),
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.Users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			utils.Conflict(c, "User with this email or CPF already exists")
			return
		}
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// DoctorApplicationForm is the text part of the multipart doctor application.
type DoctorApplicationForm struct {
	FirstName         string `form:"firstName" binding:"required,max=100"`
	LastName          string `form:"lastName" binding:"required,max=100"`
	Email             string `form:"email" binding:"required,email,max=255"`
	Password          string `form:"password" binding:"required,min=8,max=72"`
	CPF               string `form:"cpf" binding:"required,cpf"`
	Phone             string `form:"phone" binding:"omitempty,min=10,max=20"`
	DateOfBirth       string `form:"dateOfBirth" binding:"omitempty,date"`
	CRM               string `form:"crm" binding:"required,crm"`
	CRMState          string `form:"crmState" binding:"required,uf"`
	SpecialtyID       string `form:"specialtyId" binding:"required,uuid"`
	Bio               string `form:"bio" binding:"max=2000"`
	ConsultationPrice int64  `form:"consultationPrice" binding:"min=0"`
}

// ApplyDoctor registers a doctor account whose application waits for review.
// Documents are sent as files under form fields named after their kind.
func (h *AuthHandler) ApplyDoctor(c *gin.Context) {
	var form DoctorApplicationForm
	if !utils.BindForm(c, &form) {
		return
	}
	dob, err := parseOptionalDate(form.DateOfBirth)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	files, closeFiles, err := documentFiles(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	doctor, err := h.Applications.Apply(c.Request.Context(), services.ApplicationInput{
		Email:             form.Email,
		Password:          form.Password,
		FirstName:         strings.TrimSpace(form.FirstName),
		LastName:          strings.TrimSpace(form.LastName),
		CPF:               form.CPF,
		Phone:             form.Phone,
		DateOfBirth:       dob,
		CRM:               form.CRM,
		CRMState:          form.CRMState,
		SpecialtyID:       form.SpecialtyID,
		Bio:               form.Bio,
		ConsultationPrice: form.ConsultationPrice,
	}, files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Application submitted successfully", applicationView(doctor))
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Users.FindUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		utils.RespondError(c, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	tokens, err := utils.GenerateTokens(user, h.Cfg, h.now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	err = h.Tokens.CreateRefreshToken(c.Request.Context(), &models.RefreshToken{
		UserID:    user.ID,
		Token:     tokens.RefreshToken,
		ExpiresAt: tokens.RefreshExpiresAt,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken exchanges a refresh token for a new pair, revoking the old one.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		raw = req.RefreshToken
	}
	ctx := c.Request.Context()

	claims, err := utils.ValidateToken(raw, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}
	now := h.now()
	stored, err := h.Tokens.FindActiveRefreshToken(ctx, raw, claims.UserID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
			return
		}
		utils.RespondError(c, err)
		return
	}
	user, err := h.Users.FindUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "User no longer exists")
			return
		}
		utils.RespondError(c, err)
		return
	}

	tokens, err := utils.GenerateTokens(user, h.Cfg, now)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	next := &models.RefreshToken{UserID: user.ID, Token: tokens.RefreshToken, ExpiresAt: tokens.RefreshExpiresAt}
	if err := h.Tokens.RotateRefreshToken(ctx, stored, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Refresh token was already used")
			return
		}
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)
	utils.Success(c, "Access token refreshed successfully", tokens)
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the refresh token from the cookie or body.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindOptional(c, &req) {
		return
	}
	raw := req.RefreshToken
	if raw == "" {
		raw, _ = c.Cookie(refreshCookie)
	}
	if raw == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if err := h.Tokens.RevokeRefreshToken(c.Request.Context(), raw); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", h.Cfg.IsProduction(), true)
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.Users.FindUser(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email and CPF cannot be changed through this endpoint.
type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,min=10,max=20"`
	DateOfBirth *string `json:"dateOfBirth" binding:"omitempty,date"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Users.FindUser(c.Request.Context(), userID)
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
	if req.Phone != nil {
		user.Phone = models.OnlyDigits(*req.Phone)
	}
	if req.DateOfBirth != nil {
		dob, err := parseOptionalDate(*req.DateOfBirth)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		user.DateOfBirth = dob
	}

	if err := h.Users.SaveUser(c.Request.Context(), user); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword emails a reset code. The response does not reveal whether
// the email is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := h.Resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "If the email is registered, a reset code has been sent.", nil)
}

// ResetPasswordRequest redeems a reset code.
type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// ResetPassword sets a new password and signs the user out everywhere.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := h.Resets.Reset(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Password has been reset. Please log in again.", nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(
		refreshCookie,
		token,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.IsProduction(),
		true,
	)
}

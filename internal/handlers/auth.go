package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	logger zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, logger: logger.With().Str("component", "auth").Logger()}
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			h.fail(c, err, "load user")
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.issue(c, &user)
	if err != nil {
		h.fail(c, err, "issue tokens")
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and
// a new pair is issued.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Cookie first, body as fallback.
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	now := time.Now()
	var stored models.RefreshToken
	err = db.Where("token = ? AND user_id = ?", presented, claims.UserID).Order("created_at desc").First(&stored).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.fail(c, err, "load refresh token")
		return
	}
	if err != nil || !stored.Usable(now) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}

	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "User no longer exists")
		} else {
			h.fail(c, err, "load user")
		}
		return
	}

	stored.Revoke(now)
	if err := db.Model(&stored).Select("is_revoked", "expires_at").Updates(&stored).Error; err != nil {
		h.fail(c, err, "revoke refresh token")
		return
	}

	accessToken, refreshToken, err := h.issue(c, &user)
	if err != nil {
		h.fail(c, err, "issue tokens")
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Logout revokes the presented refresh token and clears the cookie.
// An unknown or already revoked token still logs out.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res := h.DB.WithContext(c.Request.Context()).
		Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", req.RefreshToken, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()})
	if res.Error != nil {
		h.fail(c, res.Error, "revoke refresh token")
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", !h.Cfg.IsDevelopment(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email changes are not accepted here.
type UpdateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload")
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}

	if err := h.DB.WithContext(c.Request.Context()).Omit("Groups", "RefreshTokens").Save(user).Error; err != nil {
		h.fail(c, err, "update profile")
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User profile not found")
		} else {
			h.fail(c, err, "load user")
		}
		return nil, false
	}
	return &user, true
}

// issue signs a token pair, stores the refresh token and sets its cookie.
func (h *AuthHandler) issue(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", err
	}

	ttl := time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour
	record := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.DB.WithContext(c.Request.Context()).Omit("User").Create(&record).Error; err != nil {
		return "", "", err
	}

	c.SetCookie(refreshCookie, refreshToken, int(ttl.Seconds()), "/", "", !h.Cfg.IsDevelopment(), true)
	return accessToken, refreshToken, nil
}

func (h *AuthHandler) fail(c *gin.Context, err error, op string) {
	h.logger.Error().Err(err).Str("op", op).Str("request_id", c.GetString("request_id")).Msg("auth request failed")
	utils.InternalServerError(c, "Internal server error")
}

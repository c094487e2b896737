package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/service"
)

type AuthHandler struct {
	auth           *service.AuthService
	cookieSecure   bool
	accessTokenTTL time.Duration
}

func NewAuthHandler(auth *service.AuthService, cookieSecure bool, accessTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure, accessTokenTTL: accessTokenTTL}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.setSessionCookie(c, pair.AccessToken)
	respondOK(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.setSessionCookie(c, pair.AccessToken)
	respondOK(c, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(accessCookie, "", -1, "/", "", h.cookieSecure, true)
	respondOK(c, gin.H{"message": "logged out"})
}

// Me returns the authenticated user, letting the web client restore a
// session from its cookie.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toUserResponse(user))
}

type profileResponse struct {
	userResponse
	Phone            string                   `json:"phone,omitempty"`
	DateOfBirth      *time.Time               `json:"date_of_birth,omitempty"`
	Allergies        []string                 `json:"allergies,omitempty"`
	Conditions       []string                 `json:"conditions,omitempty"`
	EmergencyContact *domain.EmergencyContact `json:"emergency_contact,omitempty"`
	PushEnabled      bool                     `json:"push_enabled"`
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.auth.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, profileResponse{
		userResponse:     toUserResponse(user),
		Phone:            user.Phone,
		DateOfBirth:      user.DateOfBirth,
		Allergies:        user.Allergies,
		Conditions:       user.Conditions,
		EmergencyContact: user.EmergencyContact,
		PushEnabled:      user.PushEnabled(),
	})
}

type updateProfileRequest struct {
	Name             *string                  `json:"name"`
	Phone            *string                  `json:"phone"`
	DateOfBirth      *time.Time               `json:"date_of_birth"`
	Allergies        []string                 `json:"allergies"`
	Conditions       []string                 `json:"conditions"`
	EmergencyContact *domain.EmergencyContact `json:"emergency_contact"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, &service.UpdateProfileCommand{
		Name:             req.Name,
		Phone:            req.Phone,
		DateOfBirth:      req.DateOfBirth,
		Allergies:        req.Allergies,
		Conditions:       req.Conditions,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toUserResponse(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "password updated"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, token, int(h.accessTokenTTL.Seconds()), "/", "", h.cookieSecure, true)
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/gin-gonic/gin"
)

type Registry interface {
	Register(ctx context.Context, name, email, password string) (models.PublicUser, error)
}

type SessionService interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context, sessionID string) (bool, error)
	Refresh(ctx context.Context, sessionID, refreshToken string) (*models.Session, error)
	ValidateAccess(ctx context.Context, accessToken string) (models.PublicUser, error)
}

type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type OAuthService interface {
	AuthorizationURL() string
	LoginOrSignup(ctx context.Context, code string) (*models.Session, error)
}

type Handler struct {
	users         Registry
	sessions      SessionService
	reset         ResetService
	oauth         OAuthService
	logger        logging.Logger
	secureCookies bool
}

// NewHandler wires the services. oauth may be nil, in which case the OAuth
// endpoints answer 404.
func NewHandler(users Registry, sessions SessionService, reset ResetService, oauth OAuthService, l logging.Logger, secureCookies bool) *Handler {
	return &Handler{
		users:         users,
		sessions:      sessions,
		reset:         reset,
		oauth:         oauth,
		logger:        l.With("module", "http_handler"),
		secureCookies: secureCookies,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

type confirmOAuthRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "Registered", "user_id", user.ID)
	respond(c, http.StatusCreated, "Successfully registered a user!", user)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setupSession(c, session)
	respond(c, http.StatusOK, "Successfully logged in a user!", gin.H{"accessToken": session.AccessToken})
}

// Logout without a session cookie is 401; with one it is always 204, even
// if the session was already gone.
func (h *Handler) Logout(c *gin.Context) {
	sessionID := cookieValue(c, common.SessionCookieName)
	if sessionID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if _, err := h.sessions.Logout(c.Request.Context(), sessionID); err != nil {
		h.fail(c, err)
		return
	}

	h.clearSession(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Refresh(c *gin.Context) {
	session, err := h.sessions.Refresh(c.Request.Context(),
		cookieValue(c, common.SessionCookieName),
		cookieValue(c, common.RefreshTokenCookieName))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setupSession(c, session)
	respond(c, http.StatusOK, "Successfully refreshed a session!", gin.H{"accessToken": session.AccessToken})
}

func (h *Handler) SendResetEmail(c *gin.Context) {
	var req resetEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Reset password email has been successfully sent.", nil)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.reset.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, "Password has been successfully reset.", nil)
}

func (h *Handler) GetOAuthURL(c *gin.Context) {
	if h.oauth == nil {
		h.fail(c, common.ErrorNotFound)
		return
	}
	respond(c, http.StatusOK, "Successfully got OAuth url!", gin.H{"url": h.oauth.AuthorizationURL()})
}

func (h *Handler) ConfirmOAuth(c *gin.Context) {
	if h.oauth == nil {
		h.fail(c, common.ErrorNotFound)
		return
	}

	var req confirmOAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	session, err := h.oauth.LoginOrSignup(c.Request.Context(), req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setupSession(c, session)
	respond(c, http.StatusOK, "Logged in with OAuth!", gin.H{"accessToken": session.AccessToken})
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		h.fail(c, common.ErrorUnauthorized)
		return
	}
	respond(c, http.StatusOK, "Current user", user)
}

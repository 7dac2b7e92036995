package httpapi

import "github.com/gin-gonic/gin"

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger)

	a := r.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.POST("/refresh", h.Refresh)
	a.POST("/send-reset-email", h.SendResetEmail)
	a.POST("/reset-pwd", h.ResetPassword)
	a.GET("/get-oauth-url", h.GetOAuthURL)
	a.POST("/confirm-oauth", h.ConfirmOAuth)
	a.GET("/me", h.requireAccess, h.Me)

	return r
}

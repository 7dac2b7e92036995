package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/gin-gonic/gin"
)

// setupSession hands the session id and refresh token to the client. Both
// cookies live exactly as long as the refresh token.
func (h *Handler) setupSession(c *gin.Context, s *models.Session) {
	h.setCookie(c, common.SessionCookieName, s.ID, s.RefreshTokenValidUntil, 0)
	h.setCookie(c, common.RefreshTokenCookieName, s.RefreshToken, s.RefreshTokenValidUntil, 0)
}

func (h *Handler) clearSession(c *gin.Context) {
	h.setCookie(c, common.SessionCookieName, "", time.Time{}, -1)
	h.setCookie(c, common.RefreshTokenCookieName, "", time.Time{}, -1)
}

func (h *Handler) setCookie(c *gin.Context, name, value string, expires time.Time, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}

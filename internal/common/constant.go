package common

// Cookie names carrying the session identifier and the refresh token
// between the client and the HTTP transport.
const (
	SessionCookieName      = "sessionId"
	RefreshTokenCookieName = "refreshToken"
)

// AccessTokenHeaderName is the header used for bearer access tokens.
const AccessTokenHeaderName = "Authorization"

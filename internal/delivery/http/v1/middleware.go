package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDCtxKey    = "user_id"
	sessionIDCtxKey = "session_id"
)

var (
	errNoCredentials        = errors.New("no credentials provided")
	errInvalidAuthorization = errors.New("invalid authorization header")
)

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	sessionID, ok := h.authenticate(c)
	if !ok {
		return
	}

	session, err := h.sessions.GetSessionByID(c, sessionID)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Msg("failed to fetch session")
		abort(c, serviceError(err))
		return
	}

	browserFingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	if browserFingerprint != session.Fingerprint {
		h.logger.Error().
			Str("session_id", session.ID).
			Msg("fingerprint mismatch")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	c.Set(userIDCtxKey, session.UserID)
	c.Set(sessionIDCtxKey, session.ID)
	c.Next()
}

// authenticate resolves the session ID from the access token, refreshing
// the token pair when the access token is expired or gone.
func (h *handlerImpl) authenticate(c *gin.Context) (string, bool) {
	accessToken, err := accessTokenFromRequest(c)
	if err != nil && !errors.Is(err, errNoCredentials) {
		h.logger.Error().
			Err(err).
			Msg("failed to read access token")
		abort(c, newUnauthorizedError(err.Error()))
		return "", false
	}

	if err == nil {
		claims, err := h.auth.ParseJWTToken(accessToken)
		if err == nil {
			return claims.Subject, true
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Error().
				Err(err).
				Msg("failed to parse token")
			abort(c, newStatusTextError(http.StatusUnauthorized))
			return "", false
		}
	} else if _, err := c.Cookie(refreshTokenCookie); err != nil {
		h.logger.Error().Msg("authorization required")
		abort(c, newUnauthorizedError(errNoCredentials.Error()))
		return "", false
	}

	result, ok := h.refresh(c)
	if !ok {
		return "", false
	}
	h.logger.Debug().
		Str("session_id", result.SessionID).
		Msg("refreshed expired access token")
	return result.SessionID, true
}

// accessTokenFromRequest prefers the Authorization header and falls back to
// the access token cookie, which is all a browser websocket can send.
func accessTokenFromRequest(c *gin.Context) (string, error) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		token, err := c.Cookie(accessTokenCookie)
		if err != nil || token == "" {
			return "", errNoCredentials
		}
		return token, nil
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		return "", errInvalidAuthorization
	}
	return parts[1], nil
}

func (h *handlerImpl) requireUserID(c *gin.Context) (string, bool) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok || userID == "" {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return "", false
	}
	return userID, true
}

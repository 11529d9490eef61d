// Package middleware holds the session gates applied per request: identity
// resolution from the access cookie, role gates and the email-verified gate.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/lib"
	"github.com/efeozell/SocialMedia-API/internals/models"
	"github.com/efeozell/SocialMedia-API/internals/stores"
	"github.com/efeozell/SocialMedia-API/internals/utils"
)

// identityKey is where RequireAuth stores the resolved user in the gin context.
const identityKey = "user"

type RequireAuthMiddleware struct {
	Users        stores.UserStore
	TokenManager *utils.TokenManager
	Logger       *zap.Logger
}

func NewRequireAuthMiddleware(users stores.UserStore, tokenManager *utils.TokenManager, logger *zap.Logger) *RequireAuthMiddleware {
	return &RequireAuthMiddleware{
		Users:        users,
		TokenManager: tokenManager,
		Logger:       logger,
	}
}

// RequireAuth resolves the acting identity from the access-token cookie.
// Expired tokens get a distinguishable response so clients call refresh
// instead of re-login. The loaded identity never includes the password.
func (m *RequireAuthMiddleware) RequireAuth(c *gin.Context) {
	tokenStr, err := c.Cookie(utils.AccessCookieName)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, lib.ErrorResponse(lib.NewAppError(http.StatusUnauthorized, "Unauthorized", "Unauthorized")))
		return
	}

	userID, err := m.TokenManager.ParseAccessToken(tokenStr)
	if err != nil {
		if errors.Is(err, errs.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, lib.ErrorResponse(lib.NewAppError(http.StatusUnauthorized, "Access token expired", "Access token expired")))
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, lib.ErrorResponse(lib.NewAppError(http.StatusUnauthorized, "Unauthorized", "Unauthorized")))
		return
	}

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, lib.ErrorResponse(lib.NewAppError(http.StatusUnauthorized, "Unauthorized", "Unauthorized")))
		return
	}

	user, err := m.Users.FindByID(c.Request.Context(), oid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		m.Logger.Error("resolve identity", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	SetCurrentUser(c, user)
	c.Next()
}

// SetCurrentUser stores the acting identity in the context. RequireAuth does
// this on every authenticated request; tests use it to skip the cookie dance.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(identityKey, user)
}

// RequireRole rejects with Forbidden unless the authenticated identity has
// the given role. Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, lib.ErrorResponse(lib.NewAppError(http.StatusForbidden, "Forbidden", "Insufficient privileges")))
			return
		}
		c.Next()
	}
}

// RequireEmailVerified rejects unverified accounts with a response distinct
// from the generic forbidden. Must run after RequireAuth.
func RequireEmailVerified(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || !user.IsEmailVerified {
		c.AbortWithStatusJSON(http.StatusForbidden, lib.ErrorResponse(lib.NewAppError(http.StatusForbidden, "Email Not Verified", "Please verify your email address!")))
		return
	}
	c.Next()
}

// CurrentUser returns the identity RequireAuth stored in the context.
func CurrentUser(c *gin.Context) *models.User {
	val, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

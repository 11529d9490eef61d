package utils

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/cache"
	"github.com/efeozell/SocialMedia-API/internals/config"
	"github.com/efeozell/SocialMedia-API/internals/errs"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// TokenManager handles token generation, refresh-token persistence and cookie
// management. Access tokens are stateless; the refresh token is stateful with
// exactly one honored value per user in the cache.
type TokenManager struct {
	// Cache stores the single active refresh token per user
	Cache cache.TokenCache
	// CookieConfig holds the shared security baseline for all cookies issued by the server
	CookieConfig *config.CookieConfig
	// AccessSecret signs access tokens, RefreshSecret signs refresh tokens
	AccessSecret  string
	RefreshSecret string
	// AccessTTL is the access token lifetime (short), RefreshTTL the refresh lifetime (long)
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Logger     *zap.Logger
}

// TokenMetadata holds the results of token generation.
type TokenMetadata struct {
	AccessToken  string
	RefreshToken string
}

// NewTokenManager initializes and returns a new TokenManager instance.
func NewTokenManager(tokenCache cache.TokenCache, cookieConfig *config.CookieConfig, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		Cache:         tokenCache,
		CookieConfig:  cookieConfig,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Logger:        logger,
	}
}

// GenerateAccessToken creates a signed JWT access token carrying the user id.
func (tm *TokenManager) GenerateAccessToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"jti":    uuid.New().String(),
		"exp":    time.Now().Add(tm.AccessTTL).Unix(),
	})
	return token.SignedString([]byte(tm.AccessSecret))
}

func (tm *TokenManager) generateRefreshToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(tm.RefreshTTL).Unix(),
	})
	return token.SignedString([]byte(tm.RefreshSecret))
}

// GenerateAndSetTokens signs a fresh access/refresh pair, persists the refresh
// token in the cache (overwriting any prior session) and sets both cookies.
// The cache write completes before any cookie is set; on failure the caller
// must surface an infrastructure error instead of returning unusable tokens.
func (tm *TokenManager) GenerateAndSetTokens(c *gin.Context, userID string) (*TokenMetadata, error) {
	accessToken, err := tm.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := tm.generateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := tm.Cache.StoreRefreshToken(c.Request.Context(), userID, refreshToken, tm.RefreshTTL); err != nil {
		// Do not leave the client with "half-valid" state.
		tm.ClearAuthCookies(c)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	tm.setCookie(c, AccessCookieName, accessToken, int(tm.AccessTTL.Seconds()))
	tm.setCookie(c, RefreshCookieName, refreshToken, int(tm.RefreshTTL.Seconds()))

	return &TokenMetadata{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// SetAccessCookie sets a new access token cookie only. Used by token refresh,
// which does not rotate the refresh token.
func (tm *TokenManager) SetAccessCookie(c *gin.Context, accessToken string) {
	tm.setCookie(c, AccessCookieName, accessToken, int(tm.AccessTTL.Seconds()))
}

// ClearAuthCookies removes both auth cookies from the client. Called on
// logout and on any failure path that must not leave stale client state.
func (tm *TokenManager) ClearAuthCookies(c *gin.Context) {
	tm.setCookie(c, AccessCookieName, "", -1)
	tm.setCookie(c, RefreshCookieName, "", -1)
}

func (tm *TokenManager) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", tm.CookieConfig.Domain, tm.CookieConfig.IsSecure, tm.CookieConfig.HttpOnly)
}

// RevokeRefreshToken deletes the cached refresh token for the user.
func (tm *TokenManager) RevokeRefreshToken(c *gin.Context, userID string) error {
	return tm.Cache.DeleteRefreshToken(c.Request.Context(), userID)
}

// ParseAccessToken validates an access token and returns its user id.
// Expiry is reported as errs.ErrTokenExpired so the middleware can tell the
// client to refresh rather than re-login.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (string, error) {
	return parseToken(tokenStr, tm.AccessSecret)
}

// ParseRefreshToken validates a refresh token signature/expiry and returns
// its user id. Matching against the cached value is the caller's job.
func (tm *TokenManager) ParseRefreshToken(tokenStr string) (string, error) {
	return parseToken(tokenStr, tm.RefreshSecret)
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errs.ErrTokenExpired
		}
		return "", errs.ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errs.ErrTokenInvalid
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", errs.ErrTokenInvalid
	}
	return userID, nil
}

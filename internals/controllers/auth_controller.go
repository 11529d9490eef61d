// Package controllers contains the HTTP handlers. Each controller is
// constructed with its collaborators and registered in routes.SetupRouter.
package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/lib"
	"github.com/efeozell/SocialMedia-API/internals/middleware"
	"github.com/efeozell/SocialMedia-API/internals/models"
	"github.com/efeozell/SocialMedia-API/internals/stores"
	"github.com/efeozell/SocialMedia-API/internals/utils"
)

// Mailer delivers verification artifacts. Implemented by utils.EmailManager.
type Mailer interface {
	SendVerificationEmail(toEmail string, token string) error
	SendTwoFactorCode(toEmail string, code string) error
}

type AuthController struct {
	Users        stores.UserStore
	TokenManager *utils.TokenManager
	Mailer       Mailer
	Logger       *zap.Logger
	// VerificationTTL bounds email verification tokens, TwoFactorTTL the 2FA codes
	VerificationTTL time.Duration
	TwoFactorTTL    time.Duration
}

func NewAuthController(users stores.UserStore, tokenManager *utils.TokenManager, mailer Mailer, logger *zap.Logger, verificationTTL, twoFactorTTL time.Duration) *AuthController {
	return &AuthController{
		Users:           users,
		TokenManager:    tokenManager,
		Mailer:          mailer,
		Logger:          logger,
		VerificationTTL: verificationTTL,
		TwoFactorTTL:    twoFactorTTL,
	}
}

type signupBody struct {
	Name            string `json:"name" binding:"required,min=3"`
	Username        string `json:"username" binding:"required,lowercase,min=3"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// Signup creates an unverified account and emails a one-time verification
// link. Validation rejects before any store write; a hashing failure aborts
// the write entirely.
func (a *AuthController) Signup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid signup payload", err.Error())))
		return
	}
	if body.Password != body.PasswordConfirm {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Password Confirmation incorrect", "Password Confirmation incorrect")))
		return
	}

	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		a.Logger.Error("hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	plainToken, digest, err := utils.NewEmailVerificationToken()
	if err != nil {
		a.Logger.Error("generate verification token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	user := &models.User{
		Name:                     body.Name,
		Username:                 body.Username,
		Email:                    body.Email,
		Password:                 hash,
		Role:                     models.RoleUser,
		EmailVerificationToken:   digest,
		EmailVerificationExpires: time.Now().Add(a.VerificationTTL),
	}

	if err := a.Users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, errs.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, lib.ErrorResponse(lib.ErrConflict))
			return
		}
		a.Logger.Error("create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Mailer.SendVerificationEmail(user.Email, plainToken); err != nil {
		// Roll the secret back so the account sits in a clean
		// "must re-request verification" state.
		a.Logger.Warn("send verification email", zap.Error(err), zap.String("userId", user.ID.Hex()))
		if clearErr := a.Users.ClearEmailVerification(c.Request.Context(), user.ID); clearErr != nil {
			a.Logger.Error("clear verification artifact", zap.Error(clearErr), zap.String("userId", user.ID.Hex()))
		}
	}

	user.Password = ""
	c.JSON(http.StatusCreated, lib.SuccessResponse(user, http.StatusCreated))
}

type loginBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates credentials. Accounts with two-factor enabled get a
// pending-code response with no cookies; everyone else gets a full session.
func (a *AuthController) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Email and password are required", err.Error())))
		return
	}

	user, err := a.Users.FindByEmail(c.Request.Context(), body.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		a.Logger.Error("find user by email", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if !utils.CheckPassword(body.Password, user.Password) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid email or password", "Invalid email or password")))
		return
	}

	if user.IsTwoFactorEnabled {
		a.startTwoFactorChallenge(c, user)
		return
	}

	if _, err := a.TokenManager.GenerateAndSetTokens(c, user.ID.Hex()); err != nil {
		a.Logger.Error("issue session", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	user.Password = ""
	c.JSON(http.StatusOK, lib.SuccessResponse(user, http.StatusOK))
}

// startTwoFactorChallenge stores a fresh code digest and emails the plaintext.
// No session cookies are set until the code is verified.
func (a *AuthController) startTwoFactorChallenge(c *gin.Context, user *models.User) {
	code, digest, err := utils.NewTwoFactorCode()
	if err != nil {
		a.Logger.Error("generate 2fa code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Users.SetTwoFactorCode(c.Request.Context(), user.ID, digest, time.Now().Add(a.TwoFactorTTL)); err != nil {
		a.Logger.Error("store 2fa code", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Mailer.SendTwoFactorCode(user.Email, code); err != nil {
		a.Logger.Error("send 2fa code", zap.Error(err), zap.String("userId", user.ID.Hex()))
		if clearErr := a.Users.ClearTwoFactorCode(c.Request.Context(), user.ID); clearErr != nil {
			a.Logger.Error("clear 2fa code", zap.Error(clearErr), zap.String("userId", user.ID.Hex()))
		}
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.NewAppError(http.StatusInternalServerError, "Could not send the verification code", "Could not send the verification code")))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"twoFactorRequired": true,
		"userId":            user.ID.Hex(),
		"message":           "Please enter the verification code sent to your email",
	})
}

type verifyTwoFactorBody struct {
	UserID string `json:"userId" binding:"required"`
	Code   string `json:"twoFactorCode" binding:"required"`
}

// VerifyTwoFactor consumes a pending login code and issues the full session.
// Wrong, expired and absent codes are indistinguishable to the caller.
func (a *AuthController) VerifyTwoFactor(c *gin.Context) {
	var body verifyTwoFactorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "userId and twoFactorCode are required", err.Error())))
		return
	}

	invalidCode := lib.NewAppError(http.StatusUnauthorized, "Invalid or expired code", "Invalid or expired code")

	oid, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid user id", "Invalid user id")))
		return
	}

	user, err := a.Users.FindByIDWithSecrets(c.Request.Context(), oid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, lib.ErrorResponse(invalidCode))
			return
		}
		a.Logger.Error("load user for 2fa", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if user.TwoFactorCode == "" || time.Now().After(user.TwoFactorCodeExpires) ||
		!utils.ConstantTimeEquals(utils.DigestToken(body.Code), user.TwoFactorCode) {
		c.JSON(http.StatusUnauthorized, lib.ErrorResponse(invalidCode))
		return
	}

	// Single use: the code is gone before the session exists.
	if err := a.Users.ClearTwoFactorCode(c.Request.Context(), user.ID); err != nil {
		a.Logger.Error("clear 2fa code", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if _, err := a.TokenManager.GenerateAndSetTokens(c, user.ID.Hex()); err != nil {
		a.Logger.Error("issue session", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	user.Password = ""
	user.TwoFactorCode = ""
	c.JSON(http.StatusOK, lib.SuccessResponse(user, http.StatusOK))
}

// RefreshToken exchanges a valid refresh token for a new access token. The
// presented token must match the cached value exactly; a superseded token is
// a replay and gets Forbidden, distinct from plain expiry.
func (a *AuthController) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(utils.RefreshCookieName)
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "No refresh token provided", "No refresh token provided")))
		return
	}

	userID, err := a.TokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, lib.ErrorResponse(lib.NewAppError(http.StatusUnauthorized, "Invalid or expired refresh token", "Invalid or expired refresh token")))
		return
	}

	cached, err := a.TokenManager.Cache.GetRefreshToken(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		a.Logger.Error("read cached refresh token", zap.Error(err), zap.String("userId", userID))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	if cached != refreshToken {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	accessToken, err := a.TokenManager.GenerateAccessToken(userID)
	if err != nil {
		a.Logger.Error("sign access token", zap.Error(err), zap.String("userId", userID))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	a.TokenManager.SetAccessCookie(c, accessToken)

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Token refreshed"}, http.StatusOK))
}

// Logout revokes the cached refresh token. Cookies are cleared on every path
// so the client is never left with stale state.
func (a *AuthController) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(utils.RefreshCookieName)
	if err != nil {
		a.TokenManager.ClearAuthCookies(c)
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "No refresh token provided", "No refresh token provided")))
		return
	}

	if userID, parseErr := a.TokenManager.ParseRefreshToken(refreshToken); parseErr == nil {
		if err := a.TokenManager.RevokeRefreshToken(c, userID); err != nil {
			a.Logger.Error("revoke refresh token", zap.Error(err), zap.String("userId", userID))
			a.TokenManager.ClearAuthCookies(c)
			c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
			return
		}
	}

	a.TokenManager.ClearAuthCookies(c)
	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Logged out successfully"}, http.StatusOK))
}

// VerifyEmail consumes a one-time verification token. Wrong, expired and
// already consumed tokens produce the same response; the distinction must not
// be observable.
func (a *AuthController) VerifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Verification token is required", "Verification token is required")))
		return
	}

	user, err := a.Users.ConsumeEmailVerification(c.Request.Context(), utils.DigestToken(token), time.Now())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid or expired verification token", "Invalid or expired verification token")))
			return
		}
		a.Logger.Error("consume verification token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Email verified successfully", "userId": user.ID.Hex()}, http.StatusOK))
}

// EnableTwoFactor turns on the email-code second factor for the acting user.
func (a *AuthController) EnableTwoFactor(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := a.Users.EnableTwoFactor(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		a.Logger.Error("enable 2fa", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Two-factor authentication enabled"}, http.StatusOK))
}

type resetPasswordBody struct {
	CurrentPassword    string `json:"currentPassword" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required,min=8"`
	NewPasswordConfirm string `json:"newPasswordConfirm" binding:"required"`
}

// ResetPassword replaces the acting user's password after re-proving the
// current one. The cached refresh token is revoked and the cookies cleared,
// so every session ends and the user logs in again with the new password.
func (a *AuthController) ResetPassword(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var body resetPasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid password payload", err.Error())))
		return
	}
	if body.NewPassword != body.NewPasswordConfirm {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Password Confirmation incorrect", "Password Confirmation incorrect")))
		return
	}

	// The session identity carries no password hash; reload it.
	user, err := a.Users.FindByIDWithSecrets(c.Request.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		a.Logger.Error("load user for password reset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if !utils.CheckPassword(body.CurrentPassword, user.Password) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Current password is incorrect", "Current password is incorrect")))
		return
	}

	hash, err := utils.HashPassword(body.NewPassword)
	if err != nil {
		a.Logger.Error("hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Users.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		a.Logger.Error("update password", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.TokenManager.RevokeRefreshToken(c, user.ID.Hex()); err != nil {
		a.Logger.Error("revoke refresh token", zap.Error(err), zap.String("userId", user.ID.Hex()))
	}
	a.TokenManager.ClearAuthCookies(c)

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Password updated successfully, please log in again"}, http.StatusOK))
}

// ResendVerification issues a fresh verification token for an unverified
// account, replacing any prior one.
func (a *AuthController) ResendVerification(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if user.IsEmailVerified {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Email already verified", "Email already verified")))
		return
	}

	plainToken, digest, err := utils.NewEmailVerificationToken()
	if err != nil {
		a.Logger.Error("generate verification token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Users.SetEmailVerification(c.Request.Context(), user.ID, digest, time.Now().Add(a.VerificationTTL)); err != nil {
		a.Logger.Error("store verification artifact", zap.Error(err), zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if err := a.Mailer.SendVerificationEmail(user.Email, plainToken); err != nil {
		a.Logger.Error("send verification email", zap.Error(err), zap.String("userId", user.ID.Hex()))
		if clearErr := a.Users.ClearEmailVerification(c.Request.Context(), user.ID); clearErr != nil {
			a.Logger.Error("clear verification artifact", zap.Error(clearErr), zap.String("userId", user.ID.Hex()))
		}
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.NewAppError(http.StatusInternalServerError, "Could not send the verification email", "Could not send the verification email")))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "A new verification email has been sent"}, http.StatusOK))
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/authz"
	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/lib"
	"github.com/efeozell/SocialMedia-API/internals/middleware"
	"github.com/efeozell/SocialMedia-API/internals/models"
	"github.com/efeozell/SocialMedia-API/internals/stores"
)

type UserController struct {
	Users  stores.UserStore
	Logger *zap.Logger
}

func NewUserController(users stores.UserStore, logger *zap.Logger) *UserController {
	return &UserController{Users: users, Logger: logger}
}

// profileView is the public projection of a user document.
type profileView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Bio            string `json:"bio,omitempty"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
}

func newProfileView(u *models.User) profileView {
	return profileView{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
	}
}

// briefView is the reduced projection used by search and block lists.
type briefView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func newBriefView(u *models.User) briefView {
	return briefView{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

func (uc *UserController) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, lib.SuccessResponse(newProfileView(user), http.StatusOK))
}

// GetUserByID returns another user's public profile. Blocked relationships
// get the uniform forbidden response in either direction.
func (uc *UserController) GetUserByID(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, ok := uc.pathUserID(c)
	if !ok {
		return
	}
	if targetID == actor.ID {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Cannot fetch your own profile, use /users/me", "Cannot fetch your own profile, use /users/me")))
		return
	}

	target, ok := uc.loadUser(c, targetID)
	if !ok {
		return
	}

	if d := authz.Decide(actor, target, authz.OpViewProfile); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(newProfileView(target), http.StatusOK))
}

type updateProfileBody struct {
	Name           *string `json:"name" binding:"omitempty,min=3"`
	Username       *string `json:"username" binding:"omitempty,lowercase,min=3"`
	Bio            *string `json:"bio" binding:"omitempty,max=160"`
	ProfilePicture *string `json:"profilePicture"`
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid profile payload", err.Error())))
		return
	}

	if body.Username != nil {
		inUse, err := uc.Users.UsernameInUse(c.Request.Context(), *body.Username, actor.ID)
		if err != nil {
			uc.Logger.Error("check username", zap.Error(err))
			c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
			return
		}
		if inUse {
			c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Username already in use", "Username already in use")))
			return
		}
	}

	updated, err := uc.Users.UpdateProfile(c.Request.Context(), actor.ID, stores.ProfileUpdate{
		Name:           body.Name,
		Username:       body.Username,
		Bio:            body.Bio,
		ProfilePicture: body.ProfilePicture,
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		if errors.Is(err, errs.ErrDuplicateKey) {
			c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Username already in use", "Username already in use")))
			return
		}
		uc.Logger.Error("update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(newProfileView(updated), http.StatusOK))
}

// Follow adds a directional edge. Both sides are written with set semantics;
// the pair is not transactional and reads tolerate a one-sided edge.
func (uc *UserController) Follow(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, ok := uc.pathUserID(c)
	if !ok {
		return
	}
	if targetID == actor.ID {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "You cannot follow yourself", "You cannot follow yourself")))
		return
	}

	target, ok := uc.loadUser(c, targetID)
	if !ok {
		return
	}

	if d := authz.Decide(actor, target, authz.OpFollow); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	if actor.Follows(targetID) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Already following this user", "Already following this user")))
		return
	}

	if err := uc.Users.Follow(c.Request.Context(), actor.ID, targetID); err != nil {
		uc.Logger.Error("follow user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "User successfully followed"}, http.StatusOK))
}

func (uc *UserController) Unfollow(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, ok := uc.pathUserID(c)
	if !ok {
		return
	}
	if targetID == actor.ID {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "You cannot unfollow yourself", "You cannot unfollow yourself")))
		return
	}

	if _, ok := uc.loadUser(c, targetID); !ok {
		return
	}

	if !actor.Follows(targetID) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "You are not following this user", "You are not following this user")))
		return
	}

	if err := uc.Users.Unfollow(c.Request.Context(), actor.ID, targetID); err != nil {
		uc.Logger.Error("unfollow user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "User successfully unfollowed"}, http.StatusOK))
}

// Block records the block edge and severs every follow edge between the pair.
func (uc *UserController) Block(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, ok := uc.pathUserID(c)
	if !ok {
		return
	}
	if targetID == actor.ID {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "You cannot block yourself", "You cannot block yourself")))
		return
	}

	if _, ok := uc.loadUser(c, targetID); !ok {
		return
	}

	if actor.HasBlocked(targetID) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "User already blocked", "User already blocked")))
		return
	}

	if err := uc.Users.Block(c.Request.Context(), actor.ID, targetID); err != nil {
		uc.Logger.Error("block user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "User successfully blocked"}, http.StatusOK))
}

func (uc *UserController) Unblock(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, ok := uc.pathUserID(c)
	if !ok {
		return
	}
	if targetID == actor.ID {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "You cannot unblock yourself", "You cannot unblock yourself")))
		return
	}

	if _, ok := uc.loadUser(c, targetID); !ok {
		return
	}

	if !actor.HasBlocked(targetID) {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "User is not in your block list", "User is not in your block list")))
		return
	}

	if err := uc.Users.Unblock(c.Request.Context(), actor.ID, targetID); err != nil {
		uc.Logger.Error("unblock user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "User successfully unblocked"}, http.StatusOK))
}

func (uc *UserController) GetBlockedUsers(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	users, err := uc.Users.FindMany(c.Request.Context(), actor.BlockList)
	if err != nil {
		uc.Logger.Error("load blocked users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	views := make([]briefView, 0, len(users))
	for i := range users {
		views = append(views, newBriefView(&users[i]))
	}
	c.JSON(http.StatusOK, lib.SuccessResponse(views, http.StatusOK))
}

const (
	searchTermMinLength = 2
	searchTermMaxLength = 10
	searchResultLimit   = 10
)

func (uc *UserController) SearchUsers(c *gin.Context) {
	term := c.Query("q")
	if len(term) < searchTermMinLength {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Search term must be at least 2 characters long", "Search term must be at least 2 characters long")))
		return
	}
	if len(term) > searchTermMaxLength {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Search term is too long", "Search term is too long")))
		return
	}

	users, err := uc.Users.Search(c.Request.Context(), term, searchResultLimit)
	if err != nil {
		uc.Logger.Error("search users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	views := make([]briefView, 0, len(users))
	for i := range users {
		views = append(views, newBriefView(&users[i]))
	}
	c.JSON(http.StatusOK, lib.SuccessResponse(views, http.StatusOK))
}

// ListUsers is the admin-only account listing.
func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.Users.List(c.Request.Context(), 100)
	if err != nil {
		uc.Logger.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	views := make([]profileView, 0, len(users))
	for i := range users {
		views = append(views, newProfileView(&users[i]))
	}
	c.JSON(http.StatusOK, lib.SuccessResponse(views, http.StatusOK))
}

// pathUserID parses the :userId path parameter, responding 400 on garbage.
func (uc *UserController) pathUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid user id", "Invalid user id")))
		return primitive.NilObjectID, false
	}
	return id, true
}

// loadUser fetches the target user, responding 404/500 on failure.
func (uc *UserController) loadUser(c *gin.Context, id primitive.ObjectID) (*models.User, bool) {
	user, err := uc.Users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return nil, false
		}
		uc.Logger.Error("load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return nil, false
	}
	return user, true
}

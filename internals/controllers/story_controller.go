package controllers

import (
	"errors"
	"net/http"
	"time"

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

type StoryController struct {
	Stories stores.StoryStore
	Users   stores.UserStore
	Logger  *zap.Logger
}

func NewStoryController(stories stores.StoryStore, users stores.UserStore, logger *zap.Logger) *StoryController {
	return &StoryController{Stories: stories, Users: users, Logger: logger}
}

type createStoryBody struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func (sc *StoryController) Create(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var body createStoryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid story payload", err.Error())))
		return
	}
	if body.Text == "" && body.Image == "" {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Story needs text or an image", "Story needs text or an image")))
		return
	}

	story := &models.Story{
		User:  actor.ID,
		Text:  body.Text,
		Image: body.Image,
	}
	if err := sc.Stories.Create(c.Request.Context(), story); err != nil {
		sc.Logger.Error("create story", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusCreated, lib.SuccessResponse(story, http.StatusCreated))
}

// GetFeed returns the last day of stories from the users the actor follows,
// plus the actor's own.
func (sc *StoryController) GetFeed(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	userIDs := append([]primitive.ObjectID{actor.ID}, actor.Following...)
	since := time.Now().Add(-models.StoryLifetime)

	stories, err := sc.Stories.FindRecentByUsers(c.Request.Context(), userIDs, since)
	if err != nil {
		sc.Logger.Error("load story feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	if len(stories) == 0 {
		c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "No stories found from followed users", "No stories found from followed users")))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(stories, http.StatusOK))
}

// GetUserStories returns another user's recent stories. Viewing stories is
// follow-gated through the relationship engine; own stories are always
// visible.
func (sc *StoryController) GetUserStories(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid user id", "Invalid user id")))
		return
	}

	target, err := sc.Users.FindByID(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		sc.Logger.Error("load story owner", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if d := authz.Decide(actor, target, authz.OpViewStories); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	since := time.Now().Add(-models.StoryLifetime)
	stories, err := sc.Stories.FindRecentByUsers(c.Request.Context(), []primitive.ObjectID{target.ID}, since)
	if err != nil {
		sc.Logger.Error("load user stories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	if len(stories) == 0 {
		c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "No stories found for this user", "No stories found for this user")))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(stories, http.StatusOK))
}

// Delete removes the actor's own story.
func (sc *StoryController) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	storyID, err := primitive.ObjectIDFromHex(c.Param("storyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid story id", "Invalid story id")))
		return
	}

	story, err := sc.Stories.FindByID(c.Request.Context(), storyID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Missing story and someone else's story look the same here.
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		sc.Logger.Error("load story", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	if story.User != actor.ID {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	if err := sc.Stories.Delete(c.Request.Context(), storyID, actor.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		sc.Logger.Error("delete story", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Story deleted successfully"}, http.StatusOK))
}

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

const postFeedLimit = 50

type PostController struct {
	Posts  stores.PostStore
	Users  stores.UserStore
	Logger *zap.Logger
}

func NewPostController(posts stores.PostStore, users stores.UserStore, logger *zap.Logger) *PostController {
	return &PostController{Posts: posts, Users: users, Logger: logger}
}

type createPostBody struct {
	Header string   `json:"header" binding:"required"`
	Images []string `json:"images" binding:"required"`
}

func (pc *PostController) Create(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var body createPostBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Post field is required", err.Error())))
		return
	}

	post := &models.Post{
		Author: actor.ID,
		Header: body.Header,
		Images: body.Images,
	}
	if err := pc.Posts.Create(c.Request.Context(), post); err != nil {
		pc.Logger.Error("create post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusCreated, lib.SuccessResponse(post, http.StatusCreated))
}

// GetByID loads a post. Viewing is open by default but a block edge between
// viewer and author denies it.
func (pc *PostController) GetByID(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	postID, ok := pc.pathPostID(c)
	if !ok {
		return
	}

	post, err := pc.Posts.FindByID(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "Post not found", "Post not found")))
			return
		}
		pc.Logger.Error("load post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if !pc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpViewPost) {
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(post, http.StatusOK))
}

// GetFeed returns the newest posts of the users the actor follows.
func (pc *PostController) GetFeed(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	posts, err := pc.Posts.FindByAuthors(c.Request.Context(), actor.Following, postFeedLimit)
	if err != nil {
		pc.Logger.Error("load post feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}
	if len(posts) == 0 {
		c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "No posts found from followed users", "No posts found from followed users")))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(posts, http.StatusOK))
}

// GetUserPosts lists another user's posts. Browsing a profile's posts is
// follow-gated, unlike fetching a single post by id; own posts are always
// visible.
func (pc *PostController) GetUserPosts(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid user id", "Invalid user id")))
		return
	}

	target, err := pc.Users.FindByID(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return
		}
		pc.Logger.Error("load post owner", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if d := authz.Decide(actor, target, authz.OpViewUserPosts); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return
	}

	posts, err := pc.Posts.FindByAuthors(c.Request.Context(), []primitive.ObjectID{target.ID}, postFeedLimit)
	if err != nil {
		pc.Logger.Error("load user posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(posts, http.StatusOK))
}

type updatePostBody struct {
	Header *string   `json:"header"`
	Images *[]string `json:"images"`
}

// Update edits a post. Only the post's author may edit it.
func (pc *PostController) Update(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	postID, ok := pc.pathPostID(c)
	if !ok {
		return
	}

	var body updatePostBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid post payload", err.Error())))
		return
	}
	if body.Header == nil && body.Images == nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Post field is required", "Post field is required")))
		return
	}

	updated, err := pc.Posts.Update(c.Request.Context(), postID, actor.ID, stores.PostUpdate{
		Header: body.Header,
		Images: body.Images,
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Missing post and someone else's post look the same here.
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		pc.Logger.Error("update post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(updated, http.StatusOK))
}

// Delete removes a post. Only the post's author may delete it.
func (pc *PostController) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	postID, ok := pc.pathPostID(c)
	if !ok {
		return
	}

	if err := pc.Posts.Delete(c.Request.Context(), postID, actor.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		pc.Logger.Error("delete post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Post deleted successfully"}, http.StatusOK))
}

// Like records the actor's like, withdrawing any dislike.
func (pc *PostController) Like(c *gin.Context) {
	pc.setReaction(c, true)
}

// Dislike records the actor's dislike, withdrawing any like.
func (pc *PostController) Dislike(c *gin.Context) {
	pc.setReaction(c, false)
}

func (pc *PostController) setReaction(c *gin.Context, liked bool) {
	actor := middleware.CurrentUser(c)

	postID, ok := pc.pathPostID(c)
	if !ok {
		return
	}

	post, err := pc.Posts.FindByID(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "Post not found", "Post not found")))
			return
		}
		pc.Logger.Error("load post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	if !pc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpViewPost) {
		return
	}

	msg := "Post liked"
	if liked {
		err = pc.Posts.Like(c.Request.Context(), post.ID, actor.ID)
	} else {
		err = pc.Posts.Dislike(c.Request.Context(), post.ID, actor.ID)
		msg = "Post disliked"
	}
	if err != nil {
		pc.Logger.Error("set post reaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": msg}, http.StatusOK))
}

func (pc *PostController) pathPostID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid post id", "Invalid post id")))
		return primitive.NilObjectID, false
	}
	return id, true
}

// authorizeAgainstAuthor loads the post author and applies the relationship
// engine. Denials are the uniform forbidden response.
func (pc *PostController) authorizeAgainstAuthor(c *gin.Context, actor *models.User, authorID primitive.ObjectID, op authz.Operation) bool {
	author, err := pc.Users.FindByID(c.Request.Context(), authorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return false
		}
		pc.Logger.Error("load post author", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return false
	}

	if d := authz.Decide(actor, author, op); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return false
	}
	return true
}

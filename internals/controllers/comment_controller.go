package controllers

import (
	"errors"
	"net/http"
	"strings"

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

type CommentController struct {
	Comments stores.CommentStore
	Posts    stores.PostStore
	Users    stores.UserStore
	Logger   *zap.Logger
}

func NewCommentController(comments stores.CommentStore, posts stores.PostStore, users stores.UserStore, logger *zap.Logger) *CommentController {
	return &CommentController{Comments: comments, Posts: posts, Users: users, Logger: logger}
}

type createCommentBody struct {
	PostID string `json:"postId" binding:"required"`
	Text   string `json:"text"`
}

// Create adds a top-level comment. Commenting requires a follow edge in at
// least one direction between the actor and the post author.
func (cc *CommentController) Create(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var body createCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "postId is required", err.Error())))
		return
	}

	postID, err := primitive.ObjectIDFromHex(body.PostID)
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid post id", "Invalid post id")))
		return
	}

	post, ok := cc.loadPost(c, postID)
	if !ok {
		return
	}
	if !cc.validateCommentText(c, body.Text) {
		return
	}
	if !cc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpComment) {
		return
	}

	comment := &models.Comment{
		Post:    post.ID,
		Author:  actor.ID,
		Content: body.Text,
	}
	if err := cc.Comments.Create(c.Request.Context(), comment); err != nil {
		cc.Logger.Error("create comment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusCreated, lib.SuccessResponse(comment, http.StatusCreated))
}

type replyBody struct {
	Text string `json:"text"`
}

// Reply adds a nested comment under :commentId. The parent fixes the post,
// and the follow gate is evaluated against that post's author.
func (cc *CommentController) Reply(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	parentID, ok := cc.pathCommentID(c)
	if !ok {
		return
	}

	var body replyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid reply payload", err.Error())))
		return
	}

	parent, ok := cc.loadComment(c, parentID)
	if !ok {
		return
	}
	post, ok := cc.loadPost(c, parent.Post)
	if !ok {
		return
	}
	if !cc.validateCommentText(c, body.Text) {
		return
	}
	if !cc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpReplyComment) {
		return
	}

	reply := &models.Comment{
		Post:          post.ID,
		Author:        actor.ID,
		Content:       body.Text,
		ParentComment: &parent.ID,
	}
	if err := cc.Comments.Create(c.Request.Context(), reply); err != nil {
		cc.Logger.Error("create reply", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusCreated, lib.SuccessResponse(reply, http.StatusCreated))
}

// GetForPost lists a post's comments, follow-gated against the post author.
func (cc *CommentController) GetForPost(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid post id", "Invalid post id")))
		return
	}

	post, ok := cc.loadPost(c, postID)
	if !ok {
		return
	}
	if !cc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpViewComments) {
		return
	}

	comments, err := cc.Comments.FindByPost(c.Request.Context(), post.ID)
	if err != nil {
		cc.Logger.Error("list comments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(comments, http.StatusOK))
}

type updateCommentBody struct {
	Text string `json:"text"`
}

// Update edits a comment body. Only the comment's author may edit it.
func (cc *CommentController) Update(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	commentID, ok := cc.pathCommentID(c)
	if !ok {
		return
	}

	var body updateCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid comment payload", err.Error())))
		return
	}
	if !cc.validateCommentText(c, body.Text) {
		return
	}

	updated, err := cc.Comments.UpdateContent(c.Request.Context(), commentID, actor.ID, body.Text)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Missing comment and someone else's comment look the same here.
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		cc.Logger.Error("update comment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(updated, http.StatusOK))
}

// Delete removes a comment. Only the comment's author may delete it.
func (cc *CommentController) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	commentID, ok := cc.pathCommentID(c)
	if !ok {
		return
	}

	if err := cc.Comments.Delete(c.Request.Context(), commentID, actor.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
			return
		}
		cc.Logger.Error("delete comment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": "Comment deleted successfully"}, http.StatusOK))
}

// Like records the actor's like on a comment, follow-gated against the post
// author like every other comment interaction.
func (cc *CommentController) Like(c *gin.Context) {
	cc.setLike(c, true)
}

// Unlike removes the actor's like.
func (cc *CommentController) Unlike(c *gin.Context) {
	cc.setLike(c, false)
}

func (cc *CommentController) setLike(c *gin.Context, liked bool) {
	actor := middleware.CurrentUser(c)

	commentID, ok := cc.pathCommentID(c)
	if !ok {
		return
	}

	comment, ok := cc.loadComment(c, commentID)
	if !ok {
		return
	}
	post, ok := cc.loadPost(c, comment.Post)
	if !ok {
		return
	}
	if !cc.authorizeAgainstAuthor(c, actor, post.Author, authz.OpLikeComment) {
		return
	}

	var err error
	msg := "Comment liked"
	if liked {
		err = cc.Comments.AddLike(c.Request.Context(), comment.ID, actor.ID)
	} else {
		err = cc.Comments.RemoveLike(c.Request.Context(), comment.ID, actor.ID)
		msg = "Comment unliked"
	}
	if err != nil {
		cc.Logger.Error("set comment like", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return
	}

	c.JSON(http.StatusOK, lib.SuccessResponse(gin.H{"message": msg}, http.StatusOK))
}

// authorizeAgainstAuthor loads the content author and applies the
// relationship engine. Denials are the uniform forbidden response.
func (cc *CommentController) authorizeAgainstAuthor(c *gin.Context, actor *models.User, authorID primitive.ObjectID, op authz.Operation) bool {
	author, err := cc.Users.FindByID(c.Request.Context(), authorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "User not found", "User not found")))
			return false
		}
		cc.Logger.Error("load content author", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return false
	}

	if d := authz.Decide(actor, author, op); !d.Allowed {
		c.JSON(http.StatusForbidden, lib.ErrorResponse(lib.ErrForbidden))
		return false
	}
	return true
}

func (cc *CommentController) validateCommentText(c *gin.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Comment text cannot be empty", "Comment text cannot be empty")))
		return false
	}
	if len(text) > models.MaxCommentLength {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Comment is too long", "Comment is too long")))
		return false
	}
	return true
}

func (cc *CommentController) pathCommentID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, lib.ErrorResponse(lib.NewAppError(http.StatusBadRequest, "Invalid comment id", "Invalid comment id")))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (cc *CommentController) loadComment(c *gin.Context, id primitive.ObjectID) (*models.Comment, bool) {
	comment, err := cc.Comments.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "Comment not found", "Comment not found")))
			return nil, false
		}
		cc.Logger.Error("load comment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return nil, false
	}
	return comment, true
}

func (cc *CommentController) loadPost(c *gin.Context, id primitive.ObjectID) (*models.Post, bool) {
	post, err := cc.Posts.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusNotFound, lib.ErrorResponse(lib.NewAppError(http.StatusNotFound, "Post not found", "Post not found")))
			return nil, false
		}
		cc.Logger.Error("load post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, lib.ErrorResponse(lib.ErrInternal))
		return nil, false
	}
	return post, true
}

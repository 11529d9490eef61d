package stores

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/models"
)

type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	FindByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	// UpdateContent edits a comment only when authorID matches its author.
	UpdateContent(ctx context.Context, id, authorID primitive.ObjectID, content string) (*models.Comment, error)
	// Delete removes a comment only when authorID matches its author.
	Delete(ctx context.Context, id, authorID primitive.ObjectID) error
	AddLike(ctx context.Context, id, userID primitive.ObjectID) error
	RemoveLike(ctx context.Context, id, userID primitive.ObjectID) error
}

type MongoCommentStore struct {
	coll *mongo.Collection
}

var _ CommentStore = (*MongoCommentStore)(nil)

func NewMongoCommentStore(db *mongo.Database) *MongoCommentStore {
	return &MongoCommentStore{coll: db.Collection("comments")}
}

func (s *MongoCommentStore) Create(ctx context.Context, comment *models.Comment) error {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if comment.Likes == nil {
		comment.Likes = []primitive.ObjectID{}
	}
	res, err := s.coll.InsertOne(ctx, comment)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		comment.ID = oid
	}
	return nil
}

func (s *MongoCommentStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *MongoCommentStore) FindByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"post": postID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *MongoCommentStore) UpdateContent(ctx context.Context, id, authorID primitive.ObjectID, content string) (*models.Comment, error) {
	var comment models.Comment
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "author": authorID},
		bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *MongoCommentStore) Delete(ctx context.Context, id, authorID primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "author": authorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *MongoCommentStore) AddLike(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (s *MongoCommentStore) RemoveLike(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *MongoCommentStore) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

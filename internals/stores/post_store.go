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

// PostUpdate carries the mutable post fields. Nil means "leave as is".
type PostUpdate struct {
	Header *string
	Images *[]string
}

type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	// FindByAuthors returns posts by any of the authors, newest first.
	FindByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, limit int64) ([]models.Post, error)
	// Update edits a post only when authorID matches its author.
	Update(ctx context.Context, id, authorID primitive.ObjectID, update PostUpdate) (*models.Post, error)
	// Delete removes a post only when authorID matches its author.
	Delete(ctx context.Context, id, authorID primitive.ObjectID) error
	// Like records userID in likes and withdraws any dislike, one update.
	Like(ctx context.Context, id, userID primitive.ObjectID) error
	// Dislike records userID in dislikes and withdraws any like.
	Dislike(ctx context.Context, id, userID primitive.ObjectID) error
}

type MongoPostStore struct {
	coll *mongo.Collection
}

var _ PostStore = (*MongoPostStore)(nil)

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{coll: db.Collection("posts")}
}

func (s *MongoPostStore) Create(ctx context.Context, post *models.Post) error {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Dislikes == nil {
		post.Dislikes = []primitive.ObjectID{}
	}
	res, err := s.coll.InsertOne(ctx, post)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *MongoPostStore) FindByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, limit int64) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}
	cursor, err := s.coll.Find(ctx,
		bson.M{"author": bson.M{"$in": authorIDs}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *MongoPostStore) Update(ctx context.Context, id, authorID primitive.ObjectID, update PostUpdate) (*models.Post, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Header != nil {
		set["header"] = *update.Header
	}
	if update.Images != nil {
		set["images"] = *update.Images
	}

	var post models.Post
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "author": authorID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id, authorID primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "author": authorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *MongoPostStore) Like(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"likes": userID},
		"$pull":     bson.M{"dislikes": userID},
	})
}

func (s *MongoPostStore) Dislike(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"dislikes": userID},
		"$pull":     bson.M{"likes": userID},
	})
}

func (s *MongoPostStore) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

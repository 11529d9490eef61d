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

type StoryStore interface {
	Create(ctx context.Context, story *models.Story) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	// FindRecentByUsers returns stories by any of the users created after since.
	FindRecentByUsers(ctx context.Context, userIDs []primitive.ObjectID, since time.Time) ([]models.Story, error)
	// Delete removes a story only when userID matches its owner.
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

type MongoStoryStore struct {
	coll *mongo.Collection
}

var _ StoryStore = (*MongoStoryStore)(nil)

func NewMongoStoryStore(db *mongo.Database) *MongoStoryStore {
	return &MongoStoryStore{coll: db.Collection("stories")}
}

func (s *MongoStoryStore) Create(ctx context.Context, story *models.Story) error {
	story.CreatedAt = time.Now()
	res, err := s.coll.InsertOne(ctx, story)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		story.ID = oid
	}
	return nil
}

func (s *MongoStoryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var story models.Story
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *MongoStoryStore) FindRecentByUsers(ctx context.Context, userIDs []primitive.ObjectID, since time.Time) ([]models.Story, error) {
	if len(userIDs) == 0 {
		return []models.Story{}, nil
	}
	cursor, err := s.coll.Find(ctx,
		bson.M{"user": bson.M{"$in": userIDs}, "createdAt": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	stories := []models.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (s *MongoStoryStore) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "user": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

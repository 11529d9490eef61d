// Package stores contains the persistence interfaces consumed by the
// controllers and their MongoDB implementations. Relationship mutations use
// per-document atomic update operators ($addToSet/$pull), never
// read-modify-write, so concurrent edits stay self-consistent.
package stores

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/models"
)

// ProfileUpdate carries the mutable profile fields. Nil means "leave as is".
type ProfileUpdate struct {
	Name           *string
	Username       *string
	Bio            *string
	ProfilePicture *string
}

// UserStore persists user documents and their relationship edges.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	// FindByID loads a user without password or artifact digests. This is the
	// projection the session middleware resolves identities with.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByIDWithSecrets loads the full document including artifact digests.
	FindByIDWithSecrets(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByEmail loads the full document including the password hash.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context, limit int64) ([]models.User, error)
	Search(ctx context.Context, term string, limit int64) ([]models.User, error)
	UsernameInUse(ctx context.Context, username string, excludeID primitive.ObjectID) (bool, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error)
	// UpdatePassword replaces the stored hash. Callers hash before this call.
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error

	Follow(ctx context.Context, actorID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error
	Block(ctx context.Context, actorID, targetID primitive.ObjectID) error
	Unblock(ctx context.Context, actorID, targetID primitive.ObjectID) error

	SetEmailVerification(ctx context.Context, id primitive.ObjectID, digest string, expires time.Time) error
	ClearEmailVerification(ctx context.Context, id primitive.ObjectID) error
	// ConsumeEmailVerification atomically marks the matching unexpired user as
	// verified and clears the artifact. A wrong, expired or already consumed
	// token is the same ErrNotFound; callers must not distinguish them.
	ConsumeEmailVerification(ctx context.Context, digest string, now time.Time) (*models.User, error)

	SetTwoFactorCode(ctx context.Context, id primitive.ObjectID, digest string, expires time.Time) error
	ClearTwoFactorCode(ctx context.Context, id primitive.ObjectID) error
	EnableTwoFactor(ctx context.Context, id primitive.ObjectID) error
}

// secretFields are excluded from the default identity projection.
var secretFields = bson.M{
	"password":                 0,
	"emailVerificationToken":   0,
	"emailVerificationExpires": 0,
	"twoFactorCode":            0,
	"twoFactorCodeExpires":     0,
}

type MongoUserStore struct {
	coll *mongo.Collection
}

var _ UserStore = (*MongoUserStore)(nil)

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection("users")}
}

// EnsureIndexes creates the unique username/email indexes. Emails are stored
// lowercased, which makes the unique index effectively case-insensitive.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.BlockList == nil {
		user.BlockList = []primitive.ObjectID{}
	}

	res, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrDuplicateKey
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(secretFields))
}

func (s *MongoUserStore) FindByIDWithSecrets(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, filter, opts...).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) FindMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.findAll(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(secretFields))
}

func (s *MongoUserStore) List(ctx context.Context, limit int64) ([]models.User, error) {
	return s.findAll(ctx, bson.M{}, options.Find().SetProjection(secretFields).SetLimit(limit))
}

func (s *MongoUserStore) Search(ctx context.Context, term string, limit int64) ([]models.User, error) {
	regex := primitive.Regex{Pattern: regexQuoteMeta(term), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": regex},
		bson.M{"email": regex},
	}}
	return s.findAll(ctx, filter, options.Find().SetProjection(secretFields).SetLimit(limit))
}

func (s *MongoUserStore) findAll(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cursor, err := s.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoUserStore) UsernameInUse(ctx context.Context, username string, excludeID primitive.ObjectID) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"username": username,
		"_id":      bson.M{"$ne": excludeID},
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoUserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.ProfilePicture != nil {
		set["profilePicture"] = *update.ProfilePicture
	}

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(secretFields),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.ErrDuplicateKey
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"password":  hash,
		"updatedAt": time.Now(),
	}})
}

// Follow writes both directional edges. The two updates are not atomic across
// documents; read paths tolerate a one-sided edge as "not following".
func (s *MongoUserStore) Follow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if err := s.updateByID(ctx, actorID, bson.M{"$addToSet": bson.M{"following": targetID}}); err != nil {
		return err
	}
	return s.updateByID(ctx, targetID, bson.M{"$addToSet": bson.M{"followers": actorID}})
}

func (s *MongoUserStore) Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	if err := s.updateByID(ctx, actorID, bson.M{"$pull": bson.M{"following": targetID}}); err != nil {
		return err
	}
	return s.updateByID(ctx, targetID, bson.M{"$pull": bson.M{"followers": actorID}})
}

// Block records the one-sided block edge and severs every follow edge between
// the pair so the final state cannot be simultaneously following and blocked.
func (s *MongoUserStore) Block(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	err := s.updateByID(ctx, actorID, bson.M{
		"$addToSet": bson.M{"blockList": targetID},
		"$pull":     bson.M{"following": targetID, "followers": targetID},
	})
	if err != nil {
		return err
	}
	return s.updateByID(ctx, targetID, bson.M{
		"$pull": bson.M{"following": actorID, "followers": actorID},
	})
}

func (s *MongoUserStore) Unblock(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	return s.updateByID(ctx, actorID, bson.M{"$pull": bson.M{"blockList": targetID}})
}

func (s *MongoUserStore) SetEmailVerification(ctx context.Context, id primitive.ObjectID, digest string, expires time.Time) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"emailVerificationToken":   digest,
		"emailVerificationExpires": expires,
		"updatedAt":                time.Now(),
	}})
}

func (s *MongoUserStore) ClearEmailVerification(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{"$unset": bson.M{
		"emailVerificationToken":   "",
		"emailVerificationExpires": "",
	}})
}

func (s *MongoUserStore) ConsumeEmailVerification(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	var user models.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{
			"emailVerificationToken":   digest,
			"emailVerificationExpires": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"isEmailVerified": true, "updatedAt": now},
			"$unset": bson.M{"emailVerificationToken": "", "emailVerificationExpires": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(secretFields),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) SetTwoFactorCode(ctx context.Context, id primitive.ObjectID, digest string, expires time.Time) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"twoFactorCode":        digest,
		"twoFactorCodeExpires": expires,
		"updatedAt":            time.Now(),
	}})
}

func (s *MongoUserStore) ClearTwoFactorCode(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{"$unset": bson.M{
		"twoFactorCode":        "",
		"twoFactorCodeExpires": "",
	}})
}

func (s *MongoUserStore) EnableTwoFactor(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"isTwoFactorEnabled": true,
		"updatedAt":          time.Now(),
	}})
}

// normalizeEmail lowercases and trims an address; emails are unique
// case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func regexQuoteMeta(term string) string {
	return regexp.QuoteMeta(term)
}

func (s *MongoUserStore) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

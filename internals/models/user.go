package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the account document. Verification and two-factor artifacts are
// stored only as sha256 digests next to an absolute expiry; the plaintext is
// handed to the user once by email and never persisted.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password,omitempty" json:"-"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Bio            string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Role           string             `bson:"role" json:"role"`

	IsEmailVerified          bool      `bson:"isEmailVerified" json:"isEmailVerified"`
	EmailVerificationToken   string    `bson:"emailVerificationToken,omitempty" json:"-"`
	EmailVerificationExpires time.Time `bson:"emailVerificationExpires,omitempty" json:"-"`

	IsTwoFactorEnabled   bool      `bson:"isTwoFactorEnabled" json:"isTwoFactorEnabled"`
	TwoFactorCode        string    `bson:"twoFactorCode,omitempty" json:"-"`
	TwoFactorCodeExpires time.Time `bson:"twoFactorCodeExpires,omitempty" json:"-"`

	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	BlockList []primitive.ObjectID `bson:"blockList" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Follows reports whether u has a follow edge towards id.
func (u *User) Follows(id primitive.ObjectID) bool {
	return containsID(u.Following, id)
}

// FollowedBy reports whether id has a follow edge towards u. A one-sided edge
// left by a crash between the paired updates reads as "not following".
func (u *User) FollowedBy(id primitive.ObjectID) bool {
	return containsID(u.Followers, id)
}

// HasBlocked reports whether id is on u's block list.
func (u *User) HasBlocked(id primitive.ObjectID) bool {
	return containsID(u.BlockList, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

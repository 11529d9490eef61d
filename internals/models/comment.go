package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxCommentLength bounds comment and reply bodies.
const MaxCommentLength = 256

// Comment is a top-level comment or, when ParentComment is set, a reply.
// A reply's parent must belong to the same post.
type Comment struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Post          primitive.ObjectID   `bson:"post" json:"post"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	Content       string               `bson:"content" json:"content"`
	ParentComment *primitive.ObjectID  `bson:"parentComment,omitempty" json:"parentComment,omitempty"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

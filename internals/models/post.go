package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post reactions are mutually exclusive: a user appears in likes or dislikes,
// never both.
type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Author    primitive.ObjectID   `bson:"author" json:"author"`
	Header    string               `bson:"header" json:"header"`
	Images    []string             `bson:"images" json:"images"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes  []primitive.ObjectID `bson:"dislikes" json:"dislikes"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

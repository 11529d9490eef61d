package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryLifetime is how long a story stays visible after creation.
const StoryLifetime = 24 * time.Hour

type Story struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text,omitempty" json:"text,omitempty"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

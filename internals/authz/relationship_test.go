package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/efeozell/SocialMedia-API/internals/models"
)

func newUser() *models.User {
	return &models.User{ID: primitive.NewObjectID()}
}

func TestDecideSelfAlwaysAllowed(t *testing.T) {
	u := newUser()
	// Even with a nonsensical self-block on record, self wins.
	u.BlockList = []primitive.ObjectID{u.ID}

	for _, op := range []Operation{OpViewProfile, OpComment, OpViewStories, OpLikeComment} {
		d := Decide(u, u, op)
		assert.True(t, d.Allowed, "op %d", op)
	}
}

func TestDecideBlockDeniesEverything(t *testing.T) {
	actor := newUser()
	target := newUser()
	target.BlockList = []primitive.ObjectID{actor.ID}

	// A follow edge does not override a block.
	actor.Following = []primitive.ObjectID{target.ID}
	target.Followers = []primitive.ObjectID{actor.ID}

	for _, op := range []Operation{OpViewProfile, OpViewPost, OpFollow, OpComment, OpViewStories} {
		d := Decide(actor, target, op)
		assert.False(t, d.Allowed, "op %d", op)
		assert.Equal(t, "block edge between users", d.Reason)
	}
}

func TestDecideBlockIsSymmetric(t *testing.T) {
	actor := newUser()
	target := newUser()
	actor.BlockList = []primitive.ObjectID{target.ID}

	assert.False(t, Decide(actor, target, OpViewProfile).Allowed)
	assert.False(t, Decide(target, actor, OpViewProfile).Allowed)
}

func TestDecideFollowGatedNeedsOneEdge(t *testing.T) {
	actor := newUser()
	target := newUser()

	d := Decide(actor, target, OpComment)
	assert.False(t, d.Allowed)
	assert.Equal(t, "no follow edge between users", d.Reason)

	// actor -> target edge is enough.
	actor.Following = []primitive.ObjectID{target.ID}
	assert.True(t, Decide(actor, target, OpComment).Allowed)

	// target -> actor edge alone is also enough.
	actor.Following = nil
	target.Following = []primitive.ObjectID{actor.ID}
	assert.True(t, Decide(actor, target, OpComment).Allowed)
}

func TestDecideFollowGateCoversStories(t *testing.T) {
	actor := newUser()
	target := newUser()

	assert.False(t, Decide(actor, target, OpViewStories).Allowed)

	actor.Following = []primitive.ObjectID{target.ID}
	assert.True(t, Decide(actor, target, OpViewStories).Allowed)
}

func TestDecideFollowGateCoversUserPostListings(t *testing.T) {
	actor := newUser()
	target := newUser()

	// A single post is open to strangers but browsing a profile's posts is not.
	assert.True(t, Decide(actor, target, OpViewPost).Allowed)
	assert.False(t, Decide(actor, target, OpViewUserPosts).Allowed)

	actor.Following = []primitive.ObjectID{target.ID}
	assert.True(t, Decide(actor, target, OpViewUserPosts).Allowed)
}

func TestDecideDefaultAllow(t *testing.T) {
	actor := newUser()
	target := newUser()

	// Strangers may view profiles, view posts and follow.
	assert.True(t, Decide(actor, target, OpViewProfile).Allowed)
	assert.True(t, Decide(actor, target, OpViewPost).Allowed)
	assert.True(t, Decide(actor, target, OpFollow).Allowed)
}

func TestDecideBlockAfterFollow(t *testing.T) {
	// A follows B, then B blocks A: the previously allowed interaction is cut off.
	a := newUser()
	b := newUser()
	a.Following = []primitive.ObjectID{b.ID}
	b.Followers = []primitive.ObjectID{a.ID}

	assert.True(t, Decide(a, b, OpComment).Allowed)

	b.BlockList = []primitive.ObjectID{a.ID}
	assert.False(t, Decide(a, b, OpComment).Allowed)
	assert.False(t, Decide(a, b, OpViewProfile).Allowed)
}

// Package authz decides whether one user may act on another user's resources
// based on their block and follow edges. The decision is a pure function over
// two loaded user documents so every route handler applies the same policy
// instead of re-deriving ad hoc boolean checks.
package authz

import "github.com/efeozell/SocialMedia-API/internals/models"

// Operation classifies what the actor is trying to do to the target's resources.
type Operation int

const (
	OpViewProfile Operation = iota
	OpViewPost
	OpViewUserPosts
	OpFollow
	OpComment
	OpReplyComment
	OpViewComments
	OpLikeComment
	OpViewStories
)

// followGated reports whether op requires a follow edge between the users.
// Policy: a single edge in either direction suffices. This applies uniformly
// to every content interaction, stories included.
func (op Operation) followGated() bool {
	switch op {
	case OpViewUserPosts, OpComment, OpReplyComment, OpViewComments, OpLikeComment, OpViewStories:
		return true
	}
	return false
}

// Decision is the outcome of an authorization check. Reason is for logs only;
// handlers must respond with the uniform forbidden body regardless of reason.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision          { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Decide evaluates the relationship rules in order, first match wins:
//
//  1. acting on your own resources is always allowed
//  2. a block edge in either direction denies everything; storage is
//     one-sided but the effect is symmetric
//  3. follow-gated operations need at least one directional follow edge
//  4. everything else is allowed
//
// Self-targeting validation (follow-self, block-self) is a request-shape
// error decided by the handler before this check runs.
func Decide(actor, target *models.User, op Operation) Decision {
	if actor.ID == target.ID {
		return allow()
	}
	if actor.HasBlocked(target.ID) || target.HasBlocked(actor.ID) {
		return deny("block edge between users")
	}
	if op.followGated() && !actor.Follows(target.ID) && !target.Follows(actor.ID) {
		return deny("no follow edge between users")
	}
	return allow()
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/efeozell/SocialMedia-API/internals/errs"
	"github.com/efeozell/SocialMedia-API/internals/middleware"
	"github.com/efeozell/SocialMedia-API/internals/models"
	"github.com/efeozell/SocialMedia-API/internals/stores"
)

// fakeUserStore is an in-memory UserStore with the same duplicate-key and
// not-found semantics as the mongo implementation.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	createErr error
	findErr   error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	cp.Following = append([]primitive.ObjectID(nil), u.Following...)
	cp.BlockList = append([]primitive.ObjectID(nil), u.BlockList...)
	return &cp
}

func stripSecrets(u *models.User) *models.User {
	cp := cloneUser(u)
	cp.Password = ""
	cp.EmailVerificationToken = ""
	cp.EmailVerificationExpires = time.Time{}
	cp.TwoFactorCode = ""
	cp.TwoFactorCodeExpires = time.Time{}
	return cp
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == email {
			return errs.ErrDuplicateKey
		}
	}
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return stripSecrets(user), nil
}

func (f *fakeUserStore) FindByIDWithSecrets(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(user), nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range f.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUserStore) FindMany(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out = append(out, *stripSecrets(user))
		}
	}
	return out, nil
}

func (f *fakeUserStore) List(_ context.Context, limit int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *stripSecrets(user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserStore) Search(_ context.Context, term string, limit int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term = strings.ToLower(term)
	out := []models.User{}
	for _, user := range f.users {
		if strings.Contains(strings.ToLower(user.Username), term) || strings.Contains(strings.ToLower(user.Name), term) {
			out = append(out, *stripSecrets(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserStore) UsernameInUse(_ context.Context, username string, excludeID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, update stores.ProfileUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if update.Username != nil {
		for _, other := range f.users {
			if other.ID != id && other.Username == *update.Username {
				return nil, errs.ErrDuplicateKey
			}
		}
		user.Username = *update.Username
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}
	user.UpdatedAt = time.Now()
	return stripSecrets(user), nil
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func (f *fakeUserStore) Follow(_ context.Context, actorID, targetID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor, target := f.users[actorID], f.users[targetID]
	if actor == nil || target == nil {
		return errs.ErrNotFound
	}
	actor.Following = addID(actor.Following, targetID)
	target.Followers = addID(target.Followers, actorID)
	return nil
}

func (f *fakeUserStore) Unfollow(_ context.Context, actorID, targetID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor, target := f.users[actorID], f.users[targetID]
	if actor == nil || target == nil {
		return errs.ErrNotFound
	}
	actor.Following = removeID(actor.Following, targetID)
	target.Followers = removeID(target.Followers, actorID)
	return nil
}

func (f *fakeUserStore) Block(_ context.Context, actorID, targetID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor, target := f.users[actorID], f.users[targetID]
	if actor == nil || target == nil {
		return errs.ErrNotFound
	}
	actor.BlockList = addID(actor.BlockList, targetID)
	actor.Following = removeID(actor.Following, targetID)
	actor.Followers = removeID(actor.Followers, targetID)
	target.Following = removeID(target.Following, actorID)
	target.Followers = removeID(target.Followers, actorID)
	return nil
}

func (f *fakeUserStore) Unblock(_ context.Context, actorID, targetID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor := f.users[actorID]
	if actor == nil {
		return errs.ErrNotFound
	}
	actor.BlockList = removeID(actor.BlockList, targetID)
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.Password = hash
	user.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserStore) SetEmailVerification(_ context.Context, id primitive.ObjectID, digest string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.EmailVerificationToken = digest
	user.EmailVerificationExpires = expires
	return nil
}

func (f *fakeUserStore) ClearEmailVerification(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.EmailVerificationToken = ""
	user.EmailVerificationExpires = time.Time{}
	return nil
}

func (f *fakeUserStore) ConsumeEmailVerification(_ context.Context, digest string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.EmailVerificationToken != "" && user.EmailVerificationToken == digest && user.EmailVerificationExpires.After(now) {
			user.IsEmailVerified = true
			user.EmailVerificationToken = ""
			user.EmailVerificationExpires = time.Time{}
			return stripSecrets(user), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUserStore) SetTwoFactorCode(_ context.Context, id primitive.ObjectID, digest string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.TwoFactorCode = digest
	user.TwoFactorCodeExpires = expires
	return nil
}

func (f *fakeUserStore) ClearTwoFactorCode(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.TwoFactorCode = ""
	user.TwoFactorCodeExpires = time.Time{}
	return nil
}

func (f *fakeUserStore) EnableTwoFactor(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	user.IsTwoFactorEnabled = true
	return nil
}

// mustGet returns the stored document for assertions on persisted state.
func (f *fakeUserStore) mustGet(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	require.True(t, ok, "user %s not in store", id.Hex())
	return cloneUser(user)
}

func (f *fakeUserStore) byUsername(t *testing.T, username string) *models.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return cloneUser(user)
		}
	}
	t.Fatalf("user %q not in store", username)
	return nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// seed inserts a user directly, bypassing Create's defaults.
func (f *fakeUserStore) seed(user *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	f.users[user.ID] = cloneUser(user)
	return user
}

// fakeTokenCache mirrors the redis cache semantics in memory.
type fakeTokenCache struct {
	mu       sync.Mutex
	tokens   map[string]string
	storeErr error
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{tokens: map[string]string{}}
}

func (f *fakeTokenCache) StoreRefreshToken(_ context.Context, userID, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	f.tokens[userID] = token
	return nil
}

func (f *fakeTokenCache) GetRefreshToken(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[userID]
	if !ok {
		return "", errs.ErrNotFound
	}
	return token, nil
}

func (f *fakeTokenCache) DeleteRefreshToken(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	return nil
}

// fakeMailer records the plaintext artifacts instead of sending them.
type fakeMailer struct {
	mu sync.Mutex

	verificationTokens map[string]string
	twoFactorCodes     map[string]string

	failVerification bool
	failTwoFactor    bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		verificationTokens: map[string]string{},
		twoFactorCodes:     map[string]string{},
	}
}

func (f *fakeMailer) SendVerificationEmail(toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVerification {
		return errSMTPDown
	}
	f.verificationTokens[toEmail] = token
	return nil
}

func (f *fakeMailer) SendTwoFactorCode(toEmail, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTwoFactor {
		return errSMTPDown
	}
	f.twoFactorCodes[toEmail] = code
	return nil
}

func (f *fakeMailer) verificationToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verificationTokens[email]
}

func (f *fakeMailer) twoFactorCode(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.twoFactorCodes[email]
}

var errSMTPDown = &smtpDownError{}

type smtpDownError struct{}

func (*smtpDownError) Error() string { return "smtp unavailable" }

// fakePostStore is an in-memory PostStore.
type fakePostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[primitive.ObjectID]*models.Post{}}
}

func (f *fakePostStore) Create(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakePostStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *post
	return &cp, nil
}

func (f *fakePostStore) FindByAuthors(_ context.Context, authorIDs []primitive.ObjectID, limit int64) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range authorIDs {
		wanted[id] = true
	}
	out := []models.Post{}
	for _, post := range f.posts {
		if wanted[post.Author] {
			out = append(out, *post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostStore) Update(_ context.Context, id, authorID primitive.ObjectID, update stores.PostUpdate) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok || post.Author != authorID {
		return nil, errs.ErrNotFound
	}
	if update.Header != nil {
		post.Header = *update.Header
	}
	if update.Images != nil {
		post.Images = append([]string(nil), (*update.Images)...)
	}
	post.UpdatedAt = time.Now()
	cp := *post
	return &cp, nil
}

func (f *fakePostStore) Delete(_ context.Context, id, authorID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok || post.Author != authorID {
		return errs.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostStore) Like(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return errs.ErrNotFound
	}
	post.Likes = addID(post.Likes, userID)
	post.Dislikes = removeID(post.Dislikes, userID)
	return nil
}

func (f *fakePostStore) Dislike(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return errs.ErrNotFound
	}
	post.Dislikes = addID(post.Dislikes, userID)
	post.Likes = removeID(post.Likes, userID)
	return nil
}

// fakeCommentStore is an in-memory CommentStore with author-scoped mutation.
type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[primitive.ObjectID]*models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: map[primitive.ObjectID]*models.Comment{}}
}

func (f *fakeCommentStore) Create(_ context.Context, comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	cp := *comment
	f.comments[comment.ID] = &cp
	return nil
}

func (f *fakeCommentStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *comment
	return &cp, nil
}

func (f *fakeCommentStore) FindByPost(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Comment{}
	for _, comment := range f.comments {
		if comment.Post == postID {
			out = append(out, *comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCommentStore) UpdateContent(_ context.Context, id, authorID primitive.ObjectID, content string) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok || comment.Author != authorID {
		return nil, errs.ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = time.Now()
	cp := *comment
	return &cp, nil
}

func (f *fakeCommentStore) Delete(_ context.Context, id, authorID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok || comment.Author != authorID {
		return errs.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeCommentStore) AddLike(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok {
		return errs.ErrNotFound
	}
	comment.Likes = addID(comment.Likes, userID)
	return nil
}

func (f *fakeCommentStore) RemoveLike(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[id]
	if !ok {
		return errs.ErrNotFound
	}
	comment.Likes = removeID(comment.Likes, userID)
	return nil
}

// fakeStoryStore is an in-memory StoryStore with owner-scoped delete.
type fakeStoryStore struct {
	mu      sync.Mutex
	stories map[primitive.ObjectID]*models.Story
}

func newFakeStoryStore() *fakeStoryStore {
	return &fakeStoryStore{stories: map[primitive.ObjectID]*models.Story{}}
}

func (f *fakeStoryStore) Create(_ context.Context, story *models.Story) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	story.ID = primitive.NewObjectID()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	cp := *story
	f.stories[story.ID] = &cp
	return nil
}

func (f *fakeStoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	story, ok := f.stories[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *story
	return &cp, nil
}

func (f *fakeStoryStore) FindRecentByUsers(_ context.Context, userIDs []primitive.ObjectID, since time.Time) ([]models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range userIDs {
		wanted[id] = true
	}
	out := []models.Story{}
	for _, story := range f.stories {
		if wanted[story.User] && story.CreatedAt.After(since) {
			out = append(out, *story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStoryStore) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	story, ok := f.stories[id]
	if !ok || story.User != userID {
		return errs.ErrNotFound
	}
	delete(f.stories, id)
	return nil
}

// asUser builds middleware that injects a fresh copy of the user the way
// RequireAuth would have resolved it.
func asUser(users *fakeUserStore, id primitive.ObjectID) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.FindByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		middleware.SetCurrentUser(c, user)
		c.Next()
	}
}

// performJSON runs one request through the router and returns the recorder.
func performJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/store"
)

// UserRef is the author identity embedded in question and answer payloads.
// It never carries credentials; PasswordHash stays inside the store layer.
type UserRef struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	AvatarColor    string `json:"avatar_color"`
	AvatarHash     string `json:"avatar_hash,omitempty"`
	AvatarBlurHash string `json:"avatar_blur_hash,omitempty"`
}

// TagRef is the compact tag reference embedded in question payloads.
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagView is the full client-facing projection of a tag.
type TagView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Questions int       `json:"questions"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionView is the full client-facing projection of a question, with
// author and tag references resolved.
type QuestionView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    UserRef   `json:"author"`
	Tags      []TagRef  `json:"tags"`
	Views     int64     `json:"views"`
	Answers   int       `json:"answers"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionSummary is the reduced projection used by list endpoints. Content
// is omitted; everything needed to render a result row is present.
type QuestionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    UserRef   `json:"author"`
	Tags      []TagRef  `json:"tags"`
	Views     int64     `json:"views"`
	Answers   int       `json:"answers"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerView is the client-facing projection of an answer.
type AnswerView struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Content    string    `json:"content"`
	Author     UserRef   `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// userRef builds the author reference for a user.
func userRef(u *domain.User) UserRef {
	return UserRef{
		ID:             u.ID,
		DisplayName:    u.Name(),
		AvatarColor:    u.AvatarColor,
		AvatarHash:     u.AvatarHash,
		AvatarBlurHash: u.AvatarBlurHash,
	}
}

// tagRefs builds compact references from full tag records.
func tagRefs(tags []*domain.Tag) []TagRef {
	refs := make([]TagRef, 0, len(tags))
	for _, t := range tags {
		refs = append(refs, TagRef{ID: t.ID, Name: t.Name})
	}
	return refs
}

// authorResolver batches author lookups for a page of questions or answers
// so each distinct user is fetched once.
type authorResolver struct {
	store *store.Store
	seen  map[string]UserRef
}

func newAuthorResolver(s *store.Store) *authorResolver {
	return &authorResolver{store: s, seen: make(map[string]UserRef)}
}

// resolve returns the author reference for a user ID. A missing user, which
// can happen when content outlives its account, degrades to an anonymous
// reference instead of failing the whole page.
func (r *authorResolver) resolve(ctx context.Context, userID string) UserRef {
	if ref, ok := r.seen[userID]; ok {
		return ref
	}

	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		ref := UserRef{ID: userID, DisplayName: "unknown"}
		r.seen[userID] = ref
		return ref
	}

	ref := userRef(user)
	r.seen[userID] = ref
	return ref
}

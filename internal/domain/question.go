package domain

import (
	"slices"
	"time"
)

// Question represents a community question with its tag associations and
// denormalized activity counters. AuthorID is set once at creation and
// never changes; Tags only ever contains IDs of tags that have a live
// TagQuestion join record for this question.
type Question struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // Markdown
	AuthorID  string    `json:"author_id"`
	Tags      []string  `json:"tags"` // Tag IDs, order not meaningful
	Views     int64     `json:"views"`
	Answers   int       `json:"answers"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (q *Question) Touch() {
	q.UpdatedAt = time.Now()
}

// HasTag reports whether the question currently references the given tag ID.
func (q *Question) HasTag(tagID string) bool {
	return slices.Contains(q.Tags, tagID)
}

// Score returns the net vote score.
func (q *Question) Score() int {
	return q.Upvotes - q.Downvotes
}

// Answer represents a single answer to a question.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"` // Markdown
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (a *Answer) Touch() {
	a.UpdatedAt = time.Now()
}

// Vote records one user's vote on a question. At most one vote exists per
// (question, user) pair; Value is +1 or -1.
type Vote struct {
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id"`
	Value      int       `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

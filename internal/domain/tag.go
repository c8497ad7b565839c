package domain

import "time"

// Tag represents a global community tag for categorizing questions.
// Tags are shared across all users with no ownership model. Identity is
// case-insensitive: Canonical is the folded form used for lookups and
// uniqueness, Name keeps the exact casing from the first time anyone
// used the tag.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`      // Display form, casing preserved from first use
	Canonical string    `json:"canonical"` // Folded form: the case-insensitive identity key
	Questions int       `json:"questions"` // Denormalized count of questions with this tag
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// TagQuestion represents the many-to-many relationship between tags and
// questions. One record per active association, keyed by the pair; it has
// no independent identity beyond it.
type TagQuestion struct {
	TagID      string    `json:"tag_id"`
	QuestionID string    `json:"question_id"`
	CreatedAt  time.Time `json:"created_at"`
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SnapshotTotals summarizes the snapshot as a whole.
type SnapshotTotals struct {
	TakenAt   time.Time `json:"taken_at"`
	Questions int       `json:"questions"`
	Answers   int       `json:"answers"`
	Tags      int       `json:"tags"`
	Users     int       `json:"users"`
}

// TagActivity is one tag's usage in the snapshot.
type TagActivity struct {
	TagID     string `json:"tag_id"`
	Name      string `json:"name"`
	Questions int    `json:"questions"`
}

// QuestionActivity is one question's engagement in the snapshot.
type QuestionActivity struct {
	QuestionID string `json:"question_id"`
	Title      string `json:"title"`
	AuthorID   string `json:"author_id"`
	Views      int64  `json:"views"`
	Answers    int    `json:"answers"`
	Score      int    `json:"score"`
}

// DayActivity is one calendar day's creation counts.
type DayActivity struct {
	Day              string `json:"day"`
	QuestionsCreated int    `json:"questions_created"`
	AnswersCreated   int    `json:"answers_created"`
}

// Totals retrieves the snapshot summary.
// Returns nil, nil if no snapshot has been taken yet.
func (s *Store) Totals(ctx context.Context) (*SnapshotTotals, error) {
	var totals SnapshotTotals
	var takenAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT taken_at, question_count, answer_count, tag_count, user_count
		FROM snapshot_meta WHERE id = 1`).Scan(
		&takenAt,
		&totals.Questions,
		&totals.Answers,
		&totals.Tags,
		&totals.Users,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	totals.TakenAt, err = parseTime(takenAt)
	if err != nil {
		return nil, err
	}

	return &totals, nil
}

// TopTags returns the most used tags, busiest first.
func (s *Store) TopTags(ctx context.Context, limit int) ([]*TagActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, name, questions
		FROM tag_stats
		ORDER BY questions DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*TagActivity
	for rows.Next() {
		var t TagActivity
		if err := rows.Scan(&t.TagID, &t.Name, &t.Questions); err != nil {
			return nil, err
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}

// TopQuestions returns the highest scoring questions.
func (s *Store) TopQuestions(ctx context.Context, limit int) ([]*QuestionActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, title, author_id, views, answers, score
		FROM question_stats
		ORDER BY score DESC, views DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*QuestionActivity
	for rows.Next() {
		var q QuestionActivity
		if err := rows.Scan(&q.QuestionID, &q.Title, &q.AuthorID, &q.Views, &q.Answers, &q.Score); err != nil {
			return nil, err
		}
		results = append(results, &q)
	}
	return results, rows.Err()
}

// RecentActivity returns creation counts for the most recent days in the
// snapshot, newest first.
func (s *Store) RecentActivity(ctx context.Context, days int) ([]*DayActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, questions_created, answers_created
		FROM daily_activity
		ORDER BY day DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*DayActivity
	for rows.Next() {
		var d DayActivity
		if err := rows.Scan(&d.Day, &d.QuestionsCreated, &d.AnswersCreated); err != nil {
			return nil, err
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

package sqlite

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/devflowapp/devflow-server/internal/domain"
)

// Source streams entities out of the primary store for snapshotting.
type Source interface {
	StreamQuestions(ctx context.Context) iter.Seq2[*domain.Question, error]
	StreamTags(ctx context.Context) iter.Seq2[*domain.Tag, error]
	StreamAnswers(ctx context.Context) iter.Seq2[*domain.Answer, error]
	StreamUsers(ctx context.Context) iter.Seq2[*domain.User, error]
}

// Rebuild replaces the entire snapshot with fresh aggregates from the
// primary store. The swap happens in one SQLite transaction, so readers
// see either the old snapshot or the new one, never a half-built mix.
func (s *Store) Rebuild(ctx context.Context, src Source) error {
	started := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"question_stats", "tag_stats", "daily_activity", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	questionsByDay := make(map[string]int)
	answersByDay := make(map[string]int)
	var questionCount, answerCount, tagCount, userCount int

	for q, err := range src.StreamQuestions(ctx) {
		if err != nil {
			return fmt.Errorf("stream questions: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_stats (
				question_id, title, author_id, views, answers,
				upvotes, downvotes, score, tag_count, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.Title, q.AuthorID, q.Views, q.Answers,
			q.Upvotes, q.Downvotes, q.Score(), len(q.Tags), formatTime(q.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert question stats: %w", err)
		}
		questionsByDay[dayOf(q.CreatedAt)]++
		questionCount++
	}

	for t, err := range src.StreamTags(ctx) {
		if err != nil {
			return fmt.Errorf("stream tags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tag_stats (tag_id, name, questions, created_at)
			VALUES (?, ?, ?, ?)`,
			t.ID, t.Name, t.Questions, formatTime(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert tag stats: %w", err)
		}
		tagCount++
	}

	for a, err := range src.StreamAnswers(ctx) {
		if err != nil {
			return fmt.Errorf("stream answers: %w", err)
		}
		answersByDay[dayOf(a.CreatedAt)]++
		answerCount++
	}

	for _, err := range src.StreamUsers(ctx) {
		if err != nil {
			return fmt.Errorf("stream users: %w", err)
		}
		userCount++
	}

	days := make(map[string]bool, len(questionsByDay)+len(answersByDay))
	for day := range questionsByDay {
		days[day] = true
	}
	for day := range answersByDay {
		days[day] = true
	}
	for day := range days {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO daily_activity (day, questions_created, answers_created)
			VALUES (?, ?, ?)`,
			day, questionsByDay[day], answersByDay[day],
		)
		if err != nil {
			return fmt.Errorf("insert daily activity: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, taken_at, question_count, answer_count, tag_count, user_count)
		VALUES (1, ?, ?, ?, ?, ?)`,
		formatTime(time.Now()), questionCount, answerCount, tagCount, userCount,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot rebuild: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Analytics snapshot rebuilt",
			"questions", questionCount,
			"answers", answerCount,
			"tags", tagCount,
			"users", userCount,
			"duration", time.Since(started),
		)
	}

	return nil
}

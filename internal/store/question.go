package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/id"
)

const questionPrefix = "q:"

// Question errors.
var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrNotQuestionAuthor = errors.New("caller is not the question author")
)

func (s *Store) getQuestionTxn(txn *badger.Txn, questionID string) (*domain.Question, error) {
	var q domain.Question
	err := getTxn(txn, []byte(questionPrefix+questionID), &q)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %s: %w", questionID, err)
	}
	return &q, nil
}

func (s *Store) putQuestionTxn(txn *badger.Txn, q *domain.Question) error {
	return setTxn(txn, []byte(questionPrefix+q.ID), q)
}

// CreateQuestion persists a new question together with its tag
// associations in a single transaction. Tag names resolve through the
// case-insensitive identity rules, counters and join records move with
// the question document, and nothing is visible until commit. The
// returned question carries the final tag IDs.
func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question, tagNames []string) (*domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.AuthorID == "" {
		return nil, errors.New("question author is required")
	}

	if q.ID == "" {
		questionID, err := id.Generate("q")
		if err != nil {
			return nil, fmt.Errorf("generate question ID: %w", err)
		}
		q.ID = questionID
	}

	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	var created []*domain.Tag
	err := s.update(func(txn *badger.Txn) error {
		// A conflict replay starts the tag sync over from nothing.
		q.Tags = nil

		newTags, err := s.syncQuestionTagsTxn(txn, q, tagNames)
		if err != nil {
			return err
		}
		created = newTags

		return s.putQuestionTxn(txn, q)
	})
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	for _, t := range created {
		s.publish(events.NewTagCreatedEvent(t))
	}
	s.publish(events.NewQuestionCreatedEvent(q, tagNames))

	return q, nil
}

// UpdateQuestion applies a full edit (title, content, desired tag names)
// to a question the caller owns. The ownership check, the field update,
// and the tag synchronization all happen inside one transaction; a
// failure at any step leaves every counter, join record, and question
// field untouched. An edit that changes nothing skips the write.
func (s *Store) UpdateQuestion(ctx context.Context, questionID, authorID, title, content string, tagNames []string) (*domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var q *domain.Question
	var created []*domain.Tag
	err := s.update(func(txn *badger.Txn) error {
		loaded, err := s.getQuestionTxn(txn, questionID)
		if err != nil {
			return err
		}
		if loaded.AuthorID != authorID {
			return ErrNotQuestionAuthor
		}

		dirty := false
		if loaded.Title != title || loaded.Content != content {
			loaded.Title = title
			loaded.Content = content
			dirty = true
		}

		before := slices.Clone(loaded.Tags)
		newTags, err := s.syncQuestionTagsTxn(txn, loaded, tagNames)
		if err != nil {
			return err
		}
		created = newTags

		if dirty || !slices.Equal(before, loaded.Tags) {
			loaded.Touch()
			if err := s.putQuestionTxn(txn, loaded); err != nil {
				return err
			}
		}

		q = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrNotQuestionAuthor) {
			return nil, err
		}
		return nil, fmt.Errorf("update question: %w", err)
	}

	for _, t := range created {
		s.publish(events.NewTagCreatedEvent(t))
	}
	s.publish(events.NewQuestionUpdatedEvent(q, tagNames))

	return q, nil
}

// DeleteQuestion removes a question the caller owns, along with its
// answers, votes, and tag associations, releasing each tag's counter.
// All of it commits as one transaction.
func (s *Store) DeleteQuestion(ctx context.Context, questionID, authorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(func(txn *badger.Txn) error {
		q, err := s.getQuestionTxn(txn, questionID)
		if err != nil {
			return err
		}
		if q.AuthorID != authorID {
			return ErrNotQuestionAuthor
		}

		for _, tagID := range q.Tags {
			if err := s.releaseTagTxn(txn, tagID); err != nil {
				return err
			}
			forward, reverse := joinKeys(tagID, questionID)
			if err := txn.Delete(forward); err != nil {
				return err
			}
			if err := txn.Delete(reverse); err != nil {
				return err
			}
		}

		if err := s.deleteQuestionAnswersTxn(txn, questionID); err != nil {
			return err
		}
		if err := s.deleteQuestionVotesTxn(txn, questionID); err != nil {
			return err
		}

		return txn.Delete([]byte(questionPrefix + questionID))
	})
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrNotQuestionAuthor) {
			return err
		}
		return fmt.Errorf("delete question: %w", err)
	}

	s.publish(events.NewQuestionDeletedEvent(questionID, time.Now()))
	return nil
}

// GetQuestion retrieves a question by ID.
func (s *Store) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var q domain.Question
	if err := s.get([]byte(questionPrefix+questionID), &q); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}

	return &q, nil
}

// GetQuestionWithTags retrieves a question and the full tag records its
// tag IDs reference.
func (s *Store) GetQuestionWithTags(ctx context.Context, questionID string) (*domain.Question, []*domain.Tag, error) {
	q, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, nil, err
	}

	tags, err := s.GetTagsByIDs(ctx, q.Tags)
	if err != nil {
		return nil, nil, err
	}

	return q, tags, nil
}

// RecordQuestionView increments a question's view counter and returns the
// new total. Views do not count as content edits, so UpdatedAt stays put.
func (s *Store) RecordQuestionView(ctx context.Context, questionID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var views int64
	err := s.update(func(txn *badger.Txn) error {
		q, err := s.getQuestionTxn(txn, questionID)
		if err != nil {
			return err
		}
		q.Views++
		views = q.Views
		return s.putQuestionTxn(txn, q)
	})
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("record question view: %w", err)
	}

	return views, nil
}

// SearchQuestions returns one page of questions, optionally restricted
// to titles containing the query, ordered per params.Filter.
func (s *Store) SearchQuestions(ctx context.Context, params SearchParams) (*PagedResult[*domain.Question], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Normalize()

	prefix := []byte(questionPrefix)
	var questions []*domain.Question

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var q domain.Question
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &q)
			})
			if err != nil {
				continue
			}
			if !matchesQuery(q.Title, params.Query) {
				continue
			}
			questions = append(questions, &q)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}

	sortQuestions(questions, params.Filter)

	return pageOf(questions, params), nil
}

// sortQuestions orders questions per the filter key. Popular means net
// vote score, then views. ID breaks remaining ties for stable pages.
func sortQuestions(questions []*domain.Question, filter Filter) {
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		switch filter {
		case FilterRecent:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case FilterOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case FilterName:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		default: // FilterPopular
			if a.Score() != b.Score() {
				return a.Score() > b.Score()
			}
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		}
		return a.ID < b.ID
	})
}

// ListQuestionsForTag returns the tag record and one page of its
// questions, newest first, optionally restricted to titles containing
// params.Query.
func (s *Store) ListQuestionsForTag(ctx context.Context, tagID string, params SearchParams) (*domain.Tag, *PagedResult[*domain.Question], error) {
	t, err := s.GetTag(ctx, tagID)
	if err != nil {
		return nil, nil, err
	}
	params.Normalize()

	questionIDs, err := s.QuestionIDsForTag(ctx, tagID)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions for tag: %w", err)
	}

	questions := make([]*domain.Question, 0, len(questionIDs))
	err = s.db.View(func(txn *badger.Txn) error {
		for _, questionID := range questionIDs {
			var q domain.Question
			err := getTxn(txn, []byte(questionPrefix+questionID), &q)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // Stale join record.
			}
			if err != nil {
				return err
			}
			if !matchesQuery(q.Title, params.Query) {
				continue
			}
			questions = append(questions, &q)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list questions for tag: %w", err)
	}

	sort.Slice(questions, func(i, j int) bool {
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.After(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})

	return t, pageOf(questions, params), nil
}

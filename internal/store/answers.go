package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/id"
)

const (
	answerPrefix       = "ans:"           // ans:{id} → Answer JSON
	questionAnswersKey = "idx:q:answers:" // idx:q:answers:{questionID}:{answerID} → empty
)

// Answer errors.
var (
	ErrAnswerNotFound  = errors.New("answer not found")
	ErrNotAnswerAuthor = errors.New("caller is not the answer author")
)

// CreateAnswer persists an answer and bumps the question's answer
// counter in the same transaction.
func (s *Store) CreateAnswer(ctx context.Context, a *domain.Answer) (*domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.AuthorID == "" {
		return nil, errors.New("answer author is required")
	}

	if a.ID == "" {
		answerID, err := id.Generate("ans")
		if err != nil {
			return nil, fmt.Errorf("generate answer ID: %w", err)
		}
		a.ID = answerID
	}

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	err := s.update(func(txn *badger.Txn) error {
		q, err := s.getQuestionTxn(txn, a.QuestionID)
		if err != nil {
			return err
		}

		if err := setTxn(txn, []byte(answerPrefix+a.ID), a); err != nil {
			return err
		}
		indexKey := []byte(questionAnswersKey + a.QuestionID + ":" + a.ID)
		if err := txn.Set(indexKey, nil); err != nil {
			return err
		}

		q.Answers++
		return s.putQuestionTxn(txn, q)
	})
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create answer: %w", err)
	}

	s.publish(events.NewAnswerCreatedEvent(a))
	return a, nil
}

// GetAnswer retrieves an answer by ID.
func (s *Store) GetAnswer(ctx context.Context, answerID string) (*domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a domain.Answer
	if err := s.get([]byte(answerPrefix+answerID), &a); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("get answer: %w", err)
	}

	return &a, nil
}

// ListAnswersForQuestion returns one page of a question's answers.
// FilterOldest orders oldest first; everything else orders newest first.
func (s *Store) ListAnswersForQuestion(ctx context.Context, questionID string, params SearchParams) (*PagedResult[*domain.Answer], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	params.Normalize()

	prefix := questionAnswersKey + questionID + ":"
	var answers []*domain.Answer

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			answerID := strings.TrimPrefix(string(it.Item().Key()), prefix)

			var a domain.Answer
			err := getTxn(txn, []byte(answerPrefix+answerID), &a)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // Stale index entry.
			}
			if err != nil {
				return err
			}
			answers = append(answers, &a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	sort.Slice(answers, func(i, j int) bool {
		a, b := answers[i], answers[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if params.Filter == FilterOldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return pageOf(answers, params), nil
}

// DeleteAnswer removes an answer the caller owns and decrements the
// question's answer counter in the same transaction.
func (s *Store) DeleteAnswer(ctx context.Context, answerID, authorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var questionID string
	err := s.update(func(txn *badger.Txn) error {
		var a domain.Answer
		err := getTxn(txn, []byte(answerPrefix+answerID), &a)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAnswerNotFound
		}
		if err != nil {
			return err
		}
		if a.AuthorID != authorID {
			return ErrNotAnswerAuthor
		}
		questionID = a.QuestionID

		if err := txn.Delete([]byte(answerPrefix + answerID)); err != nil {
			return err
		}
		indexKey := []byte(questionAnswersKey + a.QuestionID + ":" + answerID)
		if err := txn.Delete(indexKey); err != nil {
			return err
		}

		q, err := s.getQuestionTxn(txn, a.QuestionID)
		if errors.Is(err, ErrQuestionNotFound) {
			return nil // Question already gone; nothing to decrement.
		}
		if err != nil {
			return err
		}
		q.Answers--
		if q.Answers < 0 {
			q.Answers = 0
		}
		return s.putQuestionTxn(txn, q)
	})
	if err != nil {
		if errors.Is(err, ErrAnswerNotFound) || errors.Is(err, ErrNotAnswerAuthor) {
			return err
		}
		return fmt.Errorf("delete answer: %w", err)
	}

	s.publish(events.NewAnswerDeletedEvent(answerID, questionID))
	return nil
}

// deleteQuestionAnswersTxn removes all answers for a question inside the
// caller's transaction, used when the question itself is deleted.
func (s *Store) deleteQuestionAnswersTxn(txn *badger.Txn, questionID string) error {
	prefix := questionAnswersKey + questionID + ":"

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		indexKey := it.Item().KeyCopy(nil)
		answerID := strings.TrimPrefix(string(indexKey), prefix)

		if err := txn.Delete([]byte(answerPrefix + answerID)); err != nil {
			return err
		}
		if err := txn.Delete(indexKey); err != nil {
			return err
		}
	}
	return nil
}

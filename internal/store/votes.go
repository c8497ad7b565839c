package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
)

const votePrefix = "vote:" // vote:{questionID}:{userID} → Vote JSON

// ErrVoteNotFound is returned when a user has no vote on a question.
var ErrVoteNotFound = errors.New("vote not found")

func voteKey(questionID, userID string) []byte {
	return []byte(votePrefix + questionID + ":" + userID)
}

// VoteQuestion records a user's vote on a question. Value must be +1 or
// -1. Casting the same vote again retracts it; casting the opposite vote
// flips it. The vote record and the question's counters change in one
// transaction, so the counters always equal the live vote records.
func (s *Store) VoteQuestion(ctx context.Context, questionID, userID string, value int) (*domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("invalid vote value %d", value)
	}

	var q *domain.Question
	err := s.update(func(txn *badger.Txn) error {
		loaded, err := s.getQuestionTxn(txn, questionID)
		if err != nil {
			return err
		}

		key := voteKey(questionID, userID)
		var existing *domain.Vote
		var v domain.Vote
		switch err := getTxn(txn, key, &v); {
		case err == nil:
			existing = &v
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		applyToCounters := func(voteValue, delta int) {
			if voteValue > 0 {
				loaded.Upvotes += delta
			} else {
				loaded.Downvotes += delta
			}
		}

		now := time.Now()
		switch {
		case existing == nil:
			// First vote.
			applyToCounters(value, 1)
			vote := &domain.Vote{
				QuestionID: questionID,
				UserID:     userID,
				Value:      value,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := setTxn(txn, key, vote); err != nil {
				return err
			}

		case existing.Value == value:
			// Same vote again retracts it.
			applyToCounters(value, -1)
			if err := txn.Delete(key); err != nil {
				return err
			}

		default:
			// Opposite vote flips it.
			applyToCounters(existing.Value, -1)
			applyToCounters(value, 1)
			existing.Value = value
			existing.UpdatedAt = now
			if err := setTxn(txn, key, existing); err != nil {
				return err
			}
		}

		if loaded.Upvotes < 0 {
			loaded.Upvotes = 0
		}
		if loaded.Downvotes < 0 {
			loaded.Downvotes = 0
		}

		if err := s.putQuestionTxn(txn, loaded); err != nil {
			return err
		}
		q = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("vote question: %w", err)
	}

	return q, nil
}

// GetUserVote returns the user's current vote on a question.
func (s *Store) GetUserVote(ctx context.Context, questionID, userID string) (*domain.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var v domain.Vote
	if err := s.get(voteKey(questionID, userID), &v); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("get vote: %w", err)
	}

	return &v, nil
}

// deleteQuestionVotesTxn removes all votes for a question inside the
// caller's transaction, used when the question itself is deleted.
func (s *Store) deleteQuestionVotesTxn(txn *badger.Txn, questionID string) error {
	prefix := votePrefix + questionID + ":"

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

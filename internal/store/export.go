package store

import (
	"context"
	"iter"

	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
)

// StreamQuestions returns an iterator over all questions for backup export.
func (s *Store) StreamQuestions(ctx context.Context) iter.Seq2[*domain.Question, error] {
	return streamEntities[domain.Question](s.db, ctx, questionPrefix)
}

// StreamTags returns an iterator over all tags.
func (s *Store) StreamTags(ctx context.Context) iter.Seq2[*domain.Tag, error] {
	return streamEntities[domain.Tag](s.db, ctx, tagPrefix)
}

// StreamTagQuestions returns an iterator over all tag-question join records.
func (s *Store) StreamTagQuestions(ctx context.Context) iter.Seq2[*domain.TagQuestion, error] {
	return streamEntities[domain.TagQuestion](s.db, ctx, tagQuestionsKey)
}

// StreamAnswers returns an iterator over all answers.
func (s *Store) StreamAnswers(ctx context.Context) iter.Seq2[*domain.Answer, error] {
	return streamEntities[domain.Answer](s.db, ctx, answerPrefix)
}

// StreamVotes returns an iterator over all votes.
func (s *Store) StreamVotes(ctx context.Context) iter.Seq2[*domain.Vote, error] {
	return streamEntities[domain.Vote](s.db, ctx, votePrefix)
}

// StreamUsers returns an iterator over all users, password hashes included.
func (s *Store) StreamUsers(ctx context.Context) iter.Seq2[*domain.User, error] {
	return streamEntities[domain.User](s.db, ctx, userPrefix)
}

// streamEntities is a generic streaming iterator for any entity type.
func streamEntities[T any](db *badger.DB, ctx context.Context, prefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})

				if err != nil {
					if !yield(nil, err) {
						return nil
					}
					continue
				}

				if !yield(&entity, nil) {
					return nil
				}
			}

			return nil
		})
	}
}

// ClearAllData removes all data from the store. Used for full restore.
// Sessions are cleared but not restored, so every device logs in again.
func (s *Store) ClearAllData(ctx context.Context) error {
	prefixes := []string{
		userPrefix,
		userByEmailPrefix,
		sessionPrefix,
		sessionByUserPrefix,
		sessionByTokenPrefix,
		questionPrefix,
		tagPrefix,
		tagByNamePrefix,
		tagQuestionsKey,
		questionTagsKey,
		answerPrefix,
		questionAnswersKey,
		votePrefix,
		"instance:",
	}

	for _, prefix := range prefixes {
		if err := s.deleteByPrefix(ctx, prefix); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) deleteByPrefix(ctx context.Context, prefix string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			key := it.Item().KeyCopy(nil)
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return nil
	})
}

// RestoreUser writes a user document verbatim and rebuilds its email
// index. For restore operations only.
func (s *Store) RestoreUser(_ context.Context, user *domain.User) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setTxn(txn, []byte(userPrefix+user.ID), user); err != nil {
			return err
		}
		emailKey := []byte(userByEmailPrefix + normalizeEmail(user.Email))
		return txn.Set(emailKey, []byte(user.ID))
	})
}

// RestoreTag writes a tag document verbatim and rebuilds its name index.
// For restore operations only.
func (s *Store) RestoreTag(_ context.Context, t *domain.Tag) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setTxn(txn, []byte(tagPrefix+t.ID), t); err != nil {
			return err
		}
		nameKey := []byte(tagByNamePrefix + t.Canonical)
		return txn.Set(nameKey, []byte(t.ID))
	})
}

// RestoreQuestion writes a question document verbatim. Join records are
// restored separately via RestoreTagQuestion. For restore operations only.
func (s *Store) RestoreQuestion(_ context.Context, q *domain.Question) error {
	return s.set([]byte(questionPrefix+q.ID), q)
}

// RestoreTagQuestion writes a join record and its reverse index.
// For restore operations only.
func (s *Store) RestoreTagQuestion(_ context.Context, tq *domain.TagQuestion) error {
	return s.db.Update(func(txn *badger.Txn) error {
		forward, reverse := joinKeys(tq.TagID, tq.QuestionID)
		if err := setTxn(txn, forward, tq); err != nil {
			return err
		}
		return txn.Set(reverse, nil)
	})
}

// RestoreAnswer writes an answer document verbatim and rebuilds the
// question's answer index. For restore operations only.
func (s *Store) RestoreAnswer(_ context.Context, a *domain.Answer) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setTxn(txn, []byte(answerPrefix+a.ID), a); err != nil {
			return err
		}
		indexKey := []byte(questionAnswersKey + a.QuestionID + ":" + a.ID)
		return txn.Set(indexKey, nil)
	})
}

// RestoreVote writes a vote record verbatim. For restore operations only.
func (s *Store) RestoreVote(_ context.Context, v *domain.Vote) error {
	return s.set(voteKey(v.QuestionID, v.UserID), v)
}

// RestoreInstance writes the instance configuration verbatim.
// For restore operations only.
func (s *Store) RestoreInstance(_ context.Context, instance *domain.Instance) error {
	return s.set(instanceKey, instance)
}

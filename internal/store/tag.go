package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/id"
	"github.com/devflowapp/devflow-server/internal/util"
)

// Key prefixes for global tag storage.
// Tags are community-wide; no user ownership.
const (
	tagPrefix       = "tag:"           // tag:{id} → Tag JSON
	tagByNamePrefix = "idx:tags:name:" // idx:tags:name:{canonical} → tagID
	tagQuestionsKey = "tq:"            // tq:{tagID}:{questionID} → TagQuestion JSON
	questionTagsKey = "idx:q:tags:"    // idx:q:tags:{questionID}:{tagID} → empty
)

// Tag errors.
var (
	ErrTagNotFound = errors.New("tag not found")
	ErrEmptyTag    = errors.New("tag name is empty after normalization")
)

// getTagTxn loads a tag document inside an open transaction.
func (s *Store) getTagTxn(txn *badger.Txn, tagID string) (*domain.Tag, error) {
	var t domain.Tag
	err := getTxn(txn, []byte(tagPrefix+tagID), &t)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", tagID, err)
	}
	return &t, nil
}

// putTagTxn writes a tag document inside an open transaction.
func (s *Store) putTagTxn(txn *badger.Txn, t *domain.Tag) error {
	return setTxn(txn, []byte(tagPrefix+t.ID), t)
}

// resolveTagTxn finds or creates the tag for name within the caller's
// transaction. Identity is the canonical fold of the name, so any casing
// of an existing tag resolves to the same document. A match increments
// the question counter; a miss creates the tag with the supplied casing
// as its display name and a counter of one.
//
// Concurrent resolvers racing on the same new name are safe: the losing
// transaction conflicts at commit, and its replay finds the winner's
// document and increments instead. Exactly one tag document ever exists
// per canonical name.
func (s *Store) resolveTagTxn(txn *badger.Txn, name string) (*domain.Tag, bool, error) {
	canonical := util.CanonicalTagName(name)
	if canonical == "" {
		return nil, false, ErrEmptyTag
	}

	nameKey := []byte(tagByNamePrefix + canonical)

	item, err := txn.Get(nameKey)
	switch {
	case err == nil:
		// Existing tag: bump its counter.
		var tagID string
		if err := item.Value(func(val []byte) error {
			tagID = string(val)
			return nil
		}); err != nil {
			return nil, false, err
		}

		t, err := s.getTagTxn(txn, tagID)
		if err != nil {
			return nil, false, err
		}
		t.Questions++
		t.Touch()
		return t, false, s.putTagTxn(txn, t)

	case errors.Is(err, badger.ErrKeyNotFound):
		// New tag: the first use decides the display casing.
		tagID, err := id.Generate("tag")
		if err != nil {
			return nil, false, err
		}

		now := time.Now()
		t := &domain.Tag{
			ID:        tagID,
			Name:      util.DisplayTagName(name),
			Canonical: canonical,
			Questions: 1,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.putTagTxn(txn, t); err != nil {
			return nil, false, err
		}
		if err := txn.Set(nameKey, []byte(tagID)); err != nil {
			return nil, false, err
		}
		return t, true, nil

	default:
		return nil, false, fmt.Errorf("lookup tag name %q: %w", canonical, err)
	}
}

// releaseTagTxn decrements a tag's question counter within the caller's
// transaction. The counter clamps at zero and the tag document is never
// deleted: a tag that drops out of use keeps its identity for the next
// question that wants it.
func (s *Store) releaseTagTxn(txn *badger.Txn, tagID string) error {
	t, err := s.getTagTxn(txn, tagID)
	if err != nil {
		return err
	}

	t.Questions--
	if t.Questions < 0 {
		t.Questions = 0
	}
	t.Touch()

	return s.putTagTxn(txn, t)
}

// joinKeys returns the forward and reverse keys for one association.
func joinKeys(tagID, questionID string) (forward, reverse []byte) {
	forward = []byte(tagQuestionsKey + tagID + ":" + questionID)
	reverse = []byte(questionTagsKey + questionID + ":" + tagID)
	return forward, reverse
}

// syncQuestionTagsTxn reconciles a question's tag associations with the
// desired tag names inside the caller's transaction. Names are compared
// case-insensitively; duplicates in desired collapse to their first
// occurrence. Additions resolve through resolveTagTxn, removals release
// the counter, and all join records are staged then applied as one batch
// so the counters, join records, and the question's tag set change
// together or not at all.
//
// On return q.Tags holds exactly the tag IDs for desired. The caller is
// responsible for persisting q. Returns the tags created for the first
// time, for post-commit announcements.
func (s *Store) syncQuestionTagsTxn(txn *badger.Txn, q *domain.Question, desired []string) ([]*domain.Tag, error) {
	// Load current associations, keyed by canonical name.
	currentByID := make(map[string]*domain.Tag, len(q.Tags))
	currentCanonical := make(map[string]bool, len(q.Tags))
	for _, tagID := range q.Tags {
		t, err := s.getTagTxn(txn, tagID)
		if err != nil {
			return nil, fmt.Errorf("load associated tag %s: %w", tagID, err)
		}
		currentByID[tagID] = t
		currentCanonical[t.Canonical] = true
	}

	// Resolve the desired set. The first casing of a duplicate wins, and
	// names that fold to nothing are ignored.
	want := make(map[string]bool, len(desired))
	var toAdd []string
	for _, name := range desired {
		canonical := util.CanonicalTagName(name)
		if canonical == "" || want[canonical] {
			continue
		}
		want[canonical] = true
		if !currentCanonical[canonical] {
			toAdd = append(toAdd, name)
		}
	}

	// Removals: walk the question's existing tags in order, releasing
	// anything the desired set no longer names. Kept tags preserve their
	// original order.
	keptIDs := make([]string, 0, len(q.Tags)+len(toAdd))
	var removeJoins [][]byte
	for _, tagID := range q.Tags {
		t := currentByID[tagID]
		if want[t.Canonical] {
			keptIDs = append(keptIDs, tagID)
			continue
		}

		if err := s.releaseTagTxn(txn, tagID); err != nil {
			return nil, err
		}
		forward, reverse := joinKeys(tagID, q.ID)
		removeJoins = append(removeJoins, forward, reverse)
	}

	// Additions: resolve each new name, staging its join record.
	now := time.Now()
	var created []*domain.Tag
	var addJoins []*domain.TagQuestion
	for _, name := range toAdd {
		t, isNew, err := s.resolveTagTxn(txn, name)
		if err != nil {
			return nil, err
		}
		if isNew {
			created = append(created, t)
		}
		addJoins = append(addJoins, &domain.TagQuestion{
			TagID:      t.ID,
			QuestionID: q.ID,
			CreatedAt:  now,
		})
		keptIDs = append(keptIDs, t.ID)
	}

	// Apply the staged join writes as one batch: inserts, then deletions.
	for _, tq := range addJoins {
		forward, reverse := joinKeys(tq.TagID, tq.QuestionID)
		if err := setTxn(txn, forward, tq); err != nil {
			return nil, err
		}
		if err := txn.Set(reverse, nil); err != nil {
			return nil, err
		}
	}
	for _, key := range removeJoins {
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return nil, err
		}
	}

	q.Tags = keptIDs
	return created, nil
}

// GetTag retrieves a tag by ID.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Tag
	if err := s.get([]byte(tagPrefix+tagID), &t); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	return &t, nil
}

// GetTagByName retrieves a tag by any casing of its name.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canonical := util.CanonicalTagName(name)
	nameKey := []byte(tagByNamePrefix + canonical)

	var tagID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nameKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tagID = string(val)
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("lookup tag by name: %w", err)
	}

	return s.GetTag(ctx, tagID)
}

// GetTagsByIDs loads the given tags in order. Missing IDs are skipped
// rather than failing the whole read.
func (s *Store) GetTagsByIDs(ctx context.Context, tagIDs []string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, tagID := range tagIDs {
			var t domain.Tag
			err := getTxn(txn, []byte(tagPrefix+tagID), &t)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tags = append(tags, &t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}

	return tags, nil
}

// SearchTags returns one page of tags, optionally restricted to names
// containing the query, ordered per params.Filter.
func (s *Store) SearchTags(ctx context.Context, params SearchParams) (*PagedResult[*domain.Tag], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Normalize()

	prefix := []byte(tagPrefix)
	var tags []*domain.Tag

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var t domain.Tag
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				continue
			}
			if !matchesQuery(t.Name, params.Query) {
				continue
			}
			tags = append(tags, &t)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}

	sortTags(tags, params.Filter)

	return pageOf(tags, params), nil
}

// sortTags orders tags per the filter key. Canonical name breaks ties so
// pages are stable across requests.
func sortTags(tags []*domain.Tag, filter Filter) {
	sort.Slice(tags, func(i, j int) bool {
		switch filter {
		case FilterRecent:
			if !tags[i].CreatedAt.Equal(tags[j].CreatedAt) {
				return tags[i].CreatedAt.After(tags[j].CreatedAt)
			}
		case FilterOldest:
			if !tags[i].CreatedAt.Equal(tags[j].CreatedAt) {
				return tags[i].CreatedAt.Before(tags[j].CreatedAt)
			}
		case FilterName:
			// Fall through to the name tiebreak.
		default: // FilterPopular
			if tags[i].Questions != tags[j].Questions {
				return tags[i].Questions > tags[j].Questions
			}
		}
		return tags[i].Canonical < tags[j].Canonical
	})
}

// QuestionIDsForTag returns the IDs of all questions associated with a tag.
func (s *Store) QuestionIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := tagQuestionsKey + tagID + ":"
	var questionIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			questionIDs = append(questionIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})

	return questionIDs, err
}

// TagsForQuestion returns all tags on a question, sorted by name.
func (s *Store) TagsForQuestion(ctx context.Context, questionID string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := questionTagsKey + questionID + ":"
	var tagIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			tagIDs = append(tagIDs, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		t, err := s.GetTag(ctx, tagID)
		if err != nil {
			continue // Skip missing tags.
		}
		tags = append(tags, t)
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Canonical < tags[j].Canonical
	})

	return tags, nil
}

// ResolveTag finds or creates a tag in its own transaction and publishes
// a creation event for first use. Question flows resolve inside their
// coordinating transaction instead; this entry point serves direct tag
// administration.
func (s *Store) ResolveTag(ctx context.Context, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var resolved *domain.Tag
	var isNew bool
	err := s.update(func(txn *badger.Txn) error {
		t, created, err := s.resolveTagTxn(txn, name)
		if err != nil {
			return err
		}
		resolved, isNew = t, created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if isNew {
		s.publish(events.NewTagCreatedEvent(resolved))
	}

	return resolved, nil
}

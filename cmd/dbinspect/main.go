// Package main provides a read-only inspector for the DevFlow database.
//
// It counts documents per keyspace and cross-checks the denormalized
// counters (tag question counts, question answer counts) against the
// association entries they summarize.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/devflowapp/devflow-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/devflow/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	questions := map[string]*domain.Question{}
	tags := map[string]*domain.Tag{}
	tagAssoc := map[string]int{}   // tagID → tq: entry count
	answerCount := map[string]int{} // questionID → idx entry count
	userCount := 0
	voteCount := 0
	mismatches := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "q:"):
				var q domain.Question
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &q)
				}); err != nil {
					log.Printf("Bad question record %s: %v", key, err)
					continue
				}
				questions[q.ID] = &q
			case strings.HasPrefix(key, "tag:"):
				var t domain.Tag
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &t)
				}); err != nil {
					log.Printf("Bad tag record %s: %v", key, err)
					continue
				}
				tags[t.ID] = &t
			case strings.HasPrefix(key, "tq:"):
				// tq:{tagID}:{questionID}
				parts := strings.SplitN(strings.TrimPrefix(key, "tq:"), ":", 2)
				if len(parts) == 2 {
					tagAssoc[parts[0]]++
				}
			case strings.HasPrefix(key, "idx:q:answers:"):
				parts := strings.SplitN(strings.TrimPrefix(key, "idx:q:answers:"), ":", 2)
				if len(parts) == 2 {
					answerCount[parts[0]]++
				}
			case strings.HasPrefix(key, "user:"):
				userCount++
			case strings.HasPrefix(key, "vote:"):
				voteCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	fmt.Printf("Questions: %d\n", len(questions))
	fmt.Printf("Tags:      %d\n", len(tags))
	fmt.Printf("Users:     %d\n", userCount)
	fmt.Printf("Votes:     %d\n", voteCount)
	fmt.Println()

	fmt.Println("=== Tag Counter Check ===")
	for _, t := range tags {
		actual := tagAssoc[t.ID]
		marker := ""
		if actual != t.Questions {
			marker = "  <-- MISMATCH"
			mismatches++
		}
		fmt.Printf("  %-24s counter=%d entries=%d%s\n", t.Name, t.Questions, actual, marker)
	}
	fmt.Println()

	fmt.Println("=== Answer Counter Check ===")
	for _, q := range questions {
		actual := answerCount[q.ID]
		if actual != q.Answers {
			fmt.Printf("  %s (%s): counter=%d entries=%d  <-- MISMATCH\n", q.Title, q.ID, q.Answers, actual)
			mismatches++
		}
	}

	// Orphaned associations point at deleted questions or tags
	orphans := 0
	for tagID, n := range tagAssoc {
		if _, ok := tags[tagID]; !ok {
			fmt.Printf("  Orphaned associations for missing tag %s: %d\n", tagID, n)
			orphans += n
		}
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	if mismatches == 0 && orphans == 0 {
		fmt.Println("All counters consistent.")
	} else {
		fmt.Printf("Counter mismatches: %d, orphaned associations: %d\n", mismatches, orphans)
	}
}

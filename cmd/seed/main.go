// Package main provides a tool to seed the database with demo Q&A data.
//
// This reads existing users from the database and creates realistic
// questions, answers, and votes to test listings, tag counters, and stats.
//
// Usage:
//
//	DB_PATH=~/devflow/db go run ./cmd/seed
//	DB_PATH=~/devflow/db go run ./cmd/seed --create-users  # Also create test users
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/devflowapp/devflow-server/internal/auth"
	"github.com/devflowapp/devflow-server/internal/color"
	"github.com/devflowapp/devflow-server/internal/domain"
	"github.com/devflowapp/devflow-server/internal/id"
	"github.com/devflowapp/devflow-server/internal/store"
)

var createUsers = flag.Bool("create-users", false, "Create test users before seeding")

// seedQuestions are title/content/tag templates for generated questions.
// Tag casing is intentionally inconsistent to exercise canonical folding.
var seedQuestions = []struct {
	title   string
	content string
	tags    []string
}{
	{
		"How do I cancel a goroutine that is blocked on a channel read?",
		"I have a worker goroutine reading from a channel in a loop. When the service shuts down the goroutine leaks. What is the idiomatic way to stop it?",
		[]string{"Go", "concurrency"},
	},
	{
		"Postgres index not used for LIKE query with leading wildcard",
		"EXPLAIN shows a sequential scan for `WHERE name LIKE '%foo%'` even though I have a btree index on name. Is there an index type that helps here?",
		[]string{"PostgreSQL", "performance", "indexing"},
	},
	{
		"What does 'cannot use x (type T) as type U' mean for identical structs?",
		"Both structs have exactly the same fields but the compiler refuses the assignment. Why are they not interchangeable?",
		[]string{"go", "type-system"},
	},
	{
		"Docker container cannot reach host database on localhost",
		"My app inside a container fails to connect to `localhost:5432`, but the database is running on the host. What address should the container use?",
		[]string{"docker", "networking", "postgresql"},
	},
	{
		"When should I use a pointer receiver versus a value receiver?",
		"I keep seeing both in the standard library. Is there a rule for which one to pick, and does mixing them on one type cause problems?",
		[]string{"GO", "best-practices"},
	},
	{
		"How to profile memory allocations in a long-running service?",
		"RSS keeps climbing over days. I suspect allocation churn rather than a leak. How do I capture and read a heap profile in production?",
		[]string{"go", "Performance", "profiling"},
	},
	{
		"git rebase keeps replaying already-merged commits",
		"After rebasing my feature branch onto main, old commits that were already merged show up again as duplicates. What am I doing wrong?",
		[]string{"git"},
	},
	{
		"Is it safe to share a single http.Client across goroutines?",
		"The docs say Client is safe for concurrent use, but what about per-request timeouts and cookie jars? Should I create one client per request instead?",
		[]string{"go", "Networking", "concurrency"},
	},
}

// seedAnswers are content templates paired round-robin with questions.
var seedAnswers = []string{
	"Use a context.Context and select on ctx.Done() alongside the channel read. Cancelling the context unblocks the select and the goroutine can return.",
	"A plain btree index cannot serve a leading wildcard. Create a trigram index with the pg_trgm extension and the planner will use it for both LIKE patterns.",
	"Named struct types are distinct even when structurally identical. You need an explicit conversion, which is free at runtime for identical layouts.",
	"Inside the container, localhost is the container itself. Use host.docker.internal on Docker Desktop, or the docker0 bridge address on Linux.",
	"Pick pointer receivers when the method mutates state or the struct is large. Whatever you choose, keep it consistent across the whole method set.",
	"Expose net/http/pprof on an internal port and pull /debug/pprof/heap. Compare two profiles taken an hour apart with `go tool pprof -diff_base`.",
	"That usually means the branch was previously merged with a squash. Rebase with --onto against the squash commit instead of the original base.",
	"Yes, share one client. Timeouts belong on the request context, not the client, so concurrent requests with different deadlines work fine.",
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/devflow/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopPublisher())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *createUsers {
		createTestUsers(ctx, s)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to get users: %v", err)
	}

	if len(users) == 0 {
		log.Fatal("No users found in database. Run the server and complete setup first, or pass --create-users.")
	}

	fmt.Printf("Found %d users\n", len(users))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	var created []*domain.Question

	for i, tmpl := range seedQuestions {
		author := users[i%len(users)]

		// Spread creation times over the past two weeks
		createdAt := now.AddDate(0, 0, -rng.Intn(14)).Add(-time.Duration(rng.Intn(12)) * time.Hour)

		q := &domain.Question{
			ID:        id.MustGenerate("qst"),
			Title:     tmpl.title,
			Content:   tmpl.content,
			AuthorID:  author.ID,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}

		saved, err := s.CreateQuestion(ctx, q, tmpl.tags)
		if err != nil {
			log.Printf("Failed to create question %q: %v", tmpl.title, err)
			continue
		}
		created = append(created, saved)

		fmt.Printf("Created question: %s (tags: %v)\n", saved.Title, tmpl.tags)
	}

	answersCreated := 0
	for i, q := range created {
		// 1-3 answers per question, from users other than the author where possible
		numAnswers := 1 + rng.Intn(3)
		for n := 0; n < numAnswers; n++ {
			author := users[(i+n+1)%len(users)]

			a := &domain.Answer{
				ID:         id.MustGenerate("ans"),
				QuestionID: q.ID,
				AuthorID:   author.ID,
				Content:    seedAnswers[(i+n)%len(seedAnswers)],
				CreatedAt:  q.CreatedAt.Add(time.Duration(1+n) * time.Hour),
				UpdatedAt:  q.CreatedAt.Add(time.Duration(1+n) * time.Hour),
			}

			if _, err := s.CreateAnswer(ctx, a); err != nil {
				log.Printf("Failed to create answer: %v", err)
				continue
			}
			answersCreated++
		}

		// Votes from a random subset of users
		for _, voter := range users {
			if voter.ID == q.AuthorID || rng.Float32() > 0.6 {
				continue
			}
			value := 1
			if rng.Float32() < 0.2 {
				value = -1
			}
			if _, err := s.VoteQuestion(ctx, q.ID, voter.ID, value); err != nil {
				log.Printf("Failed to vote on %s: %v", q.ID, err)
			}
		}

		// View counter
		views := 3 + rng.Intn(40)
		for v := 0; v < views; v++ {
			if _, err := s.RecordQuestionView(ctx, q.ID); err != nil {
				log.Printf("Failed to record view on %s: %v", q.ID, err)
				break
			}
		}
	}

	fmt.Printf("\nSeeding complete: %d questions, %d answers\n", len(created), answersCreated)
}

// testUserNames are display names for generated test users.
var testUserNames = []string{
	"Alex Rivera",
	"Jordan Chen",
	"Sam Taylor",
	"Casey Morgan",
	"Riley Kim",
}

// createTestUsers creates member users with a fixed password.
func createTestUsers(ctx context.Context, s *store.Store) {
	fmt.Println("\n=== Creating Test Users ===")

	passwordHash, err := auth.HashPassword("testpass123")
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return
	}

	now := time.Now()

	for i, name := range testUserNames {
		email := fmt.Sprintf("test%d@example.com", i+1)

		if existing, _ := s.GetUserByEmail(ctx, email); existing != nil {
			fmt.Printf("  User %s already exists, skipping\n", email)
			continue
		}

		userID := id.MustGenerate("usr")
		user := &domain.User{
			ID:           userID,
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  name,
			IsRoot:       false,
			AvatarColor:  color.ForUser(userID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.CreateUser(ctx, user); err != nil {
			log.Printf("  Failed to create user %s: %v", name, err)
			continue
		}

		fmt.Printf("  Created user: %s (%s)\n", name, email)
	}

	fmt.Println("=== Test Users Created ===")
}

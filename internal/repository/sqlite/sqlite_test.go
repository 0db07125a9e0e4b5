package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/dayeon-k/examboard/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(\":memory:\") error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func createTestUser(t *testing.T, db *DB, name string) *model.User {
	t.Helper()

	user := &model.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$04$fakehashfortesting",
		Nickname:     name + "-nick",
		Role:         model.RoleUser,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return user
}

// createTestUserInput builds a user struct without inserting it, for tests
// that exercise CreateUser failures themselves.
func createTestUserInput(name, email string) *model.User {
	return &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$fakehashfortesting",
		Nickname:     name + "-nick",
		Role:         model.RoleUser,
	}
}

func createTestPost(t *testing.T, db *DB, author *model.User, tags ...string) *model.Post {
	t.Helper()

	post := &model.Post{
		UserID:   author.ID,
		Title:    "test post",
		Content:  "test content",
		Category: model.CategoryAdmissions,
	}
	if err := db.CreatePost(context.Background(), post, tags); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	return post
}

func createTestProblemInput(year, month, number int) *model.Problem {
	return &model.Problem{
		Year:       year,
		Month:      month,
		Number:     number,
		Title:      fmt.Sprintf("%d-%d #%d", year, month, number),
		Difficulty: "medium",
		FileURL:    "https://files.example.com/p.pdf",
	}
}

func createTestProblem(t *testing.T, db *DB, year, month, number int) *model.Problem {
	t.Helper()

	problem := createTestProblemInput(year, month, number)
	if err := db.CreateProblem(context.Background(), problem); err != nil {
		t.Fatalf("CreateProblem(%d, %d, %d) error = %v", year, month, number, err)
	}
	return problem
}

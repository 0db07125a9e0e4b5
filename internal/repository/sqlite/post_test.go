package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

// ====== CREATE / TAG TESTS ======

func TestCreatePost_WithTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")

	post := createTestPost(t, db, user, "notice", "2026", " notice ", "")

	// Duplicates (after trimming) and empties are dropped.
	if len(post.Tags) != 2 || post.Tags[0] != "notice" || post.Tags[1] != "2026" {
		t.Errorf("Tags = %v, want [notice 2026]", post.Tags)
	}

	got, err := db.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPostByID() error = %v", err)
	}
	if len(got.Tags) != 2 {
		t.Errorf("loaded Tags = %v, want 2 entries", got.Tags)
	}
	if got.Author.Name != "admin" {
		t.Errorf("joined author name = %q, want %q", got.Author.Name, "admin")
	}
}

func TestCreatePost_SharedTagRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")

	createTestPost(t, db, user, "notice")
	createTestPost(t, db, user, "notice")

	tag, err := db.GetTagByName(ctx, "notice")
	if err != nil {
		t.Fatalf("GetTagByName() error = %v", err)
	}

	_, total, err := db.ListPostsByTag(ctx, tag.ID, repository.PostFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListPostsByTag() error = %v", err)
	}
	if total != 2 {
		t.Errorf("posts under shared tag = %d, want 2", total)
	}
}

func TestGetTagByName_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTagByName(context.Background(), "no-such-tag")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTagByName() error = %v, want ErrNotFound", err)
	}
}

// ====== LIST TESTS ======

func seedPosts(t *testing.T, db *DB, user *model.User) {
	t.Helper()
	ctx := context.Background()

	for _, p := range []struct {
		title, content, category string
	}{
		{"admissions schedule", "the yearly schedule", model.CategoryAdmissions},
		{"english tips", "reading comprehension tricks", model.CategoryEnglish},
		{"holiday notice", "closed next week", model.CategoryAdmissions},
	} {
		post := &model.Post{
			UserID:   user.ID,
			Title:    p.title,
			Content:  p.content,
			Category: p.category,
		}
		if err := db.CreatePost(ctx, post, nil); err != nil {
			t.Fatalf("CreatePost(%q) error = %v", p.title, err)
		}
	}
}

func TestListPosts_Search(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")
	seedPosts(t, db, user)

	// Matches title of one post and content of none.
	posts, total, err := db.ListPosts(ctx, repository.PostFilter{Search: "schedule", Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if total != 1 || len(posts) != 1 {
		t.Fatalf("search %q: total = %d, len = %d, want 1/1", "schedule", total, len(posts))
	}
	if posts[0].Title != "admissions schedule" {
		t.Errorf("matched title = %q", posts[0].Title)
	}

	// Content is searched too.
	_, total, err = db.ListPosts(ctx, repository.PostFilter{Search: "comprehension", Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if total != 1 {
		t.Errorf("content search total = %d, want 1", total)
	}
}

func TestListPosts_CategoryFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")
	seedPosts(t, db, user)

	posts, total, err := db.ListPosts(ctx, repository.PostFilter{
		Category: model.CategoryAdmissions,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if total != 2 {
		t.Errorf("admissions total = %d, want 2", total)
	}
	for _, p := range posts {
		if p.Category != model.CategoryAdmissions {
			t.Errorf("post %d category = %q", p.ID, p.Category)
		}
	}
}

func TestListPosts_SortOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")
	seedPosts(t, db, user)

	newest, _, err := db.ListPosts(ctx, repository.PostFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if newest[0].Title != "holiday notice" {
		t.Errorf("default order first = %q, want newest post", newest[0].Title)
	}

	oldest, _, err := db.ListPosts(ctx, repository.PostFilter{SortAsc: true, Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if oldest[0].Title != "admissions schedule" {
		t.Errorf("ascending order first = %q, want oldest post", oldest[0].Title)
	}
}

func TestListPosts_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")
	seedPosts(t, db, user)

	posts, total, err := db.ListPosts(ctx, repository.PostFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3 (count ignores paging)", total)
	}
	if len(posts) != 1 {
		t.Errorf("page len = %d, want 1", len(posts))
	}
}

// ====== UPDATE / DELETE TESTS ======

func TestUpdatePost_ReplacesTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "admin")
	post := createTestPost(t, db, user, "old-tag")

	post.Title = "updated title"
	if err := db.UpdatePost(ctx, post, []string{"new-tag"}); err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}

	got, err := db.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPostByID() error = %v", err)
	}
	if got.Title != "updated title" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "new-tag" {
		t.Errorf("Tags = %v, want [new-tag]", got.Tags)
	}
}

func TestUpdatePost_NotFound(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "admin")

	ghost := &model.Post{
		ID:       999,
		UserID:   user.ID,
		Title:    "t",
		Content:  "c",
		Category: model.CategoryEnglish,
	}
	err := db.UpdatePost(context.Background(), ghost, nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdatePost() on missing post error = %v, want ErrNotFound", err)
	}
}

func TestDeletePost_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeletePost(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeletePost(999) error = %v, want ErrNotFound", err)
	}
}

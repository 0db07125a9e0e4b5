package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
)

func createTestComment(t *testing.T, db *DB, postID int64, author *model.User, parentID *int64, content string) *model.Comment {
	t.Helper()

	comment := &model.Comment{
		PostID:   postID,
		UserID:   author.ID,
		ParentID: parentID,
		Content:  content,
	}
	if err := db.CreateComment(context.Background(), comment); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	return comment
}

// ====== CREATE / GET TESTS ======

func TestCreateComment_TopLevelAndReply(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)

	root := createTestComment(t, db, post.ID, user, nil, "first")
	if root.ID == 0 {
		t.Error("CreateComment() left ID zero")
	}

	reply := createTestComment(t, db, post.ID, user, &root.ID, "a reply")

	got, err := db.GetComment(ctx, post.ID, reply.ID)
	if err != nil {
		t.Fatalf("GetComment() error = %v", err)
	}
	if got.ParentID == nil || *got.ParentID != root.ID {
		t.Errorf("reply ParentID = %v, want %d", got.ParentID, root.ID)
	}
	if got.Author.Name != "alice" {
		t.Errorf("joined author name = %q, want %q", got.Author.Name, "alice")
	}
}

func TestGetComment_ScopedToPost(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	postA := createTestPost(t, db, user)
	postB := createTestPost(t, db, user)

	comment := createTestComment(t, db, postA.ID, user, nil, "on post A")

	// Right comment id, wrong post id: must look like a miss.
	if _, err := db.GetComment(ctx, postB.ID, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetComment() across posts error = %v, want ErrNotFound", err)
	}
}

// ====== ORDERING TESTS ======

func TestListTopLevelComments_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)

	first := createTestComment(t, db, post.ID, user, nil, "first")
	second := createTestComment(t, db, post.ID, user, nil, "second")
	createTestComment(t, db, post.ID, user, &first.ID, "reply to first")

	roots, err := db.ListTopLevelComments(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListTopLevelComments() error = %v", err)
	}

	if len(roots) != 2 {
		t.Fatalf("got %d top-level comments, want 2 (replies must be excluded)", len(roots))
	}
	if roots[0].ID != second.ID || roots[1].ID != first.ID {
		t.Errorf("order = [%d, %d], want newest first [%d, %d]",
			roots[0].ID, roots[1].ID, second.ID, first.ID)
	}
}

func TestListReplies_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)
	root := createTestComment(t, db, post.ID, user, nil, "root")

	r1 := createTestComment(t, db, post.ID, user, &root.ID, "reply one")
	r2 := createTestComment(t, db, post.ID, user, &root.ID, "reply two")

	replies, err := db.ListReplies(ctx, root.ID)
	if err != nil {
		t.Fatalf("ListReplies() error = %v", err)
	}

	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2", len(replies))
	}
	if replies[0].ID != r1.ID || replies[1].ID != r2.ID {
		t.Errorf("order = [%d, %d], want oldest first [%d, %d]",
			replies[0].ID, replies[1].ID, r1.ID, r2.ID)
	}
}

// ====== COUNT TESTS ======

func TestCountComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)

	root := createTestComment(t, db, post.ID, user, nil, "root")
	createTestComment(t, db, post.ID, user, &root.ID, "reply one")
	createTestComment(t, db, post.ID, user, &root.ID, "reply two")

	total, err := db.CountCommentsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("CountCommentsByPost() error = %v", err)
	}
	if total != 3 {
		t.Errorf("CountCommentsByPost() = %d, want 3", total)
	}

	replies, err := db.CountReplies(ctx, root.ID)
	if err != nil {
		t.Fatalf("CountReplies() error = %v", err)
	}
	if replies != 2 {
		t.Errorf("CountReplies() = %d, want 2", replies)
	}
}

// ====== UPDATE / DELETE TESTS ======

func TestUpdateCommentContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)
	comment := createTestComment(t, db, post.ID, user, nil, "original")

	err := db.UpdateCommentContent(ctx, comment.ID, model.DeletedCommentPlaceholder, time.Now())
	if err != nil {
		t.Fatalf("UpdateCommentContent() error = %v", err)
	}

	got, err := db.GetComment(ctx, post.ID, comment.ID)
	if err != nil {
		t.Fatalf("GetComment() error = %v", err)
	}
	if got.Content != model.DeletedCommentPlaceholder {
		t.Errorf("content = %q, want placeholder", got.Content)
	}
}

func TestDeleteComment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)
	comment := createTestComment(t, db, post.ID, user, nil, "doomed")

	if err := db.DeleteComment(ctx, comment.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}

	if _, err := db.GetComment(ctx, post.ID, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetComment() after delete error = %v, want ErrNotFound", err)
	}

	if err := db.DeleteComment(ctx, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteComment() twice error = %v, want ErrNotFound", err)
	}
}

func TestDeletePost_CascadesToComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user)
	createTestComment(t, db, post.ID, user, nil, "will vanish with the post")

	if err := db.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	total, err := db.CountCommentsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("CountCommentsByPost() error = %v", err)
	}
	if total != 0 {
		t.Errorf("comments after post delete = %d, want 0", total)
	}
}

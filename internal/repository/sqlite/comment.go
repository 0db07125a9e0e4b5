package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

// commentSelect joins the author's public profile so every comment read
// carries the embedded user shape without per-row lookups.
const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content,
	       c.created_at, c.updated_at, u.id, u.name, u.nickname
	FROM comments c
	JOIN users u ON u.id = c.user_id`

func scanComment(scan func(dest ...any) error) (*model.Comment, error) {
	var (
		c        model.Comment
		parentID sql.NullInt64
	)
	err := scan(
		&c.ID,
		&c.PostID,
		&c.UserID,
		&parentID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Author.ID,
		&c.Author.Name,
		&c.Author.Nickname,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}

// CreateComment inserts a comment (top-level or reply, depending on
// ParentID) and populates ID and timestamps on the passed struct.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	var parentID any
	if comment.ParentID != nil {
		parentID = *comment.ParentID
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (post_id, user_id, parent_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.PostID,
		comment.UserID,
		parentID,
		comment.Content,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %d: %w", comment.PostID, err)
	}

	comment.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading comment insert id: %w", err)
	}

	return nil
}

// GetComment retrieves a comment scoped to its post. A real comment id
// paired with a different post id returns NotFound — comment routes are
// nested under a post, and the scoping keeps cross-post probing useless.
func (db *DB) GetComment(ctx context.Context, postID, id int64) (*model.Comment, error) {
	row := db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? AND c.post_id = ?`, id, postID)

	c, err := scanComment(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	return c, nil
}

// ListTopLevelComments returns the parentless comments of a post, newest
// first. The id tiebreak keeps the order stable when two comments land on
// the same timestamp.
func (db *DB) ListTopLevelComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = ? AND c.parent_id IS NULL
		 ORDER BY c.created_at DESC, c.id DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	return collectComments(rows)
}

// ListReplies returns the direct replies of a comment, oldest first.
func (db *DB) ListReplies(ctx context.Context, parentID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.parent_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing replies of comment %d: %w", parentID, err)
	}
	defer rows.Close()

	return collectComments(rows)
}

func collectComments(rows *sql.Rows) ([]model.Comment, error) {
	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

// CountCommentsByPost counts every comment on the post, top-level and
// replies alike.
func (db *DB) CountCommentsByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting comments for post %d: %w", postID, err)
	}
	return count, nil
}

// CountReplies counts the direct replies of a comment. The delete policy
// branches on this: any replies and the parent is tombstoned instead of
// removed.
func (db *DB) CountReplies(ctx context.Context, parentID int64) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE parent_id = ?`, parentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting replies of comment %d: %w", parentID, err)
	}
	return count, nil
}

// UpdateCommentContent overwrites a comment's content and updated_at. Both
// editing and tombstoning go through here.
func (db *DB) UpdateCommentContent(ctx context.Context, id int64, content string, updatedAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		content, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}

// DeleteComment removes a comment row entirely (purge). Callers must have
// already established that the comment has no replies.
func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}

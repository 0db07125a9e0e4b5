package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

const postSelect = `
	SELECT p.id, p.user_id, p.title, p.content, p.category,
	       p.created_at, p.updated_at, u.id, u.name, u.nickname
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(scan func(dest ...any) error) (*model.Post, error) {
	var p model.Post
	err := scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Content,
		&p.Category,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Author.ID,
		&p.Author.Name,
		&p.Author.Nickname,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts the post and links its tags in one transaction, so a
// failed tag insert never leaves a half-tagged post behind.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, tags []string) error {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning post transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (user_id, title, content, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.UserID,
		post.Title,
		post.Content,
		post.Category,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	post.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading post insert id: %w", err)
	}

	if err := linkTags(ctx, tx, post.ID, tags, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post: %w", err)
	}

	post.Tags = normalizeTags(tags)
	return nil
}

// linkTags upserts each tag by name and connects it to the post. Tag names
// are shared across posts; only the post_tags link is per-post.
func linkTags(ctx context.Context, tx *sql.Tx, postID int64, tags []string, now time.Time) error {
	for _, name := range normalizeTags(tags) {
		var tagID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM tags WHERE name = ?`, name,
		).Scan(&tagID)
		if err == sql.ErrNoRows {
			res, insErr := tx.ExecContext(ctx,
				`INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, now)
			if insErr != nil {
				return fmt.Errorf("sqlite: inserting tag %q: %w", name, insErr)
			}
			tagID, insErr = res.LastInsertId()
			if insErr != nil {
				return fmt.Errorf("sqlite: reading tag insert id: %w", insErr)
			}
		} else if err != nil {
			return fmt.Errorf("sqlite: looking up tag %q: %w", name, err)
		}

		// OR IGNORE: linking the same tag twice is a no-op, not an error.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id, created_at) VALUES (?, ?, ?)`,
			postID, tagID, now,
		); err != nil {
			return fmt.Errorf("sqlite: linking tag %q to post %d: %w", name, postID, err)
		}
	}
	return nil
}

// normalizeTags trims whitespace and drops empties and duplicates, keeping
// first-seen order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// GetPostByID retrieves a post with its author and tags.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)

	p, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}

	if err := db.loadTags(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) loadTags(ctx context.Context, post *model.Post) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.name FROM tags t
		 JOIN post_tags pt ON pt.tag_id = t.id
		 WHERE pt.post_id = ?
		 ORDER BY pt.id`, post.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags for post %d: %w", post.ID, err)
	}
	defer rows.Close()

	post.Tags = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		post.Tags = append(post.Tags, name)
	}
	return rows.Err()
}

// ListPosts returns one page of posts matching the filter plus the total
// match count. Search matches a substring of title or content.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.Post, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		where += ` AND (p.title LIKE ? OR p.content LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		where += ` AND p.category = ?`
		args = append(args, filter.Category)
	}

	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}

	order := ` ORDER BY p.created_at DESC, p.id DESC`
	if filter.SortAsc {
		order = ` ORDER BY p.created_at ASC, p.id ASC`
	}

	rows, err := db.conn.QueryContext(ctx,
		postSelect+where+order+` LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts, err := db.collectPosts(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListPostsByTag returns one page of posts linked to the tag.
func (db *DB) ListPostsByTag(ctx context.Context, tagID int64, filter repository.PostFilter) ([]model.Post, int64, error) {
	join := ` JOIN post_tags pt ON pt.post_id = p.id AND pt.tag_id = ?`

	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+join, tagID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting posts for tag %d: %w", tagID, err)
	}

	order := ` ORDER BY p.created_at DESC, p.id DESC`
	if filter.SortAsc {
		order = ` ORDER BY p.created_at ASC, p.id ASC`
	}

	query := `
	SELECT p.id, p.user_id, p.title, p.content, p.category,
	       p.created_at, p.updated_at, u.id, u.name, u.nickname
	FROM posts p` + join + `
	JOIN users u ON u.id = p.user_id` + order + ` LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, tagID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing posts for tag %d: %w", tagID, err)
	}
	defer rows.Close()

	posts, err := db.collectPosts(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (db *DB) collectPosts(ctx context.Context, rows *sql.Rows) ([]model.Post, error) {
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	// Tags are loaded per post; page sizes are capped at 100 so the extra
	// queries stay bounded.
	for i := range posts {
		if err := db.loadTags(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// GetTagByName retrieves a tag by its unique name.
func (db *DB) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundNamed("tag", name)
		}
		return nil, fmt.Errorf("sqlite: getting tag %q: %w", name, err)
	}
	return &t, nil
}

// UpdatePost saves title/content/category and replaces the tag links.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post, tags []string) error {
	post.UpdatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning post update transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, category = ?, updated_at = ? WHERE id = ?`,
		post.Title,
		post.Content,
		post.Category,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %d: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_tags WHERE post_id = ?`, post.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing tags for post %d: %w", post.ID, err)
	}

	if err := linkTags(ctx, tx, post.ID, tags, post.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post update: %w", err)
	}

	post.Tags = normalizeTags(tags)
	return nil
}

// DeletePost removes a post; comments and tag links follow via
// ON DELETE CASCADE.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

package model

import "time"

// DeletedCommentPlaceholder replaces the content of a comment that was
// deleted while it still had replies. The row itself stays in place so the
// replies keep a valid parent to hang off — removing it would orphan them.
const DeletedCommentPlaceholder = "This comment has been deleted."

// Comment is a single comment on a post.
//
// ParentID is nil for a top-level comment and points at a top-level comment
// for a reply. Nesting is capped at one level: a comment whose ParentID is
// non-nil can never itself be a parent. The cap is enforced at write time
// (service layer), not by the schema — the foreign key alone would happily
// allow arbitrary depth.
//
// WHY *int64 AND NOT int64?
// SQL NULL has no natural zero-value representation in Go. A pointer makes
// "no parent" explicit and unambiguous: nil means top-level, any non-nil
// value is a real comment id. Using 0 as a sentinel would collide with the
// column being NOT NULL-able in spirit and scan poorly from a nullable column.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	ParentID  *int64    `json:"parent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Author is joined in by the repository so responses can embed the
	// public profile without a second lookup per comment.
	Author Author `json:"user"`
}

// IsReply reports whether the comment sits under a parent comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

// MaxCommentLength caps comment bodies.
const MaxCommentLength = 2000

// CommentService manages the two-level comment tree of a post.
//
// The tree invariants it owns:
//   - depth is capped at one: a reply's parent is always a top-level
//     comment, checked at write time rather than by the schema;
//   - deleting a comment with replies tombstones it (fixed placeholder
//     content, row kept) so the replies keep their parent link, while a
//     comment without replies is purged outright;
//   - threaded listing orders roots newest-first and replies oldest-first.
//     The asymmetry is the intended reading experience: fresh conversations
//     surface at the top, but each conversation reads top to bottom.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		logger:   logger,
	}
}

// ThreadedComment is a top-level comment with its replies attached.
type ThreadedComment struct {
	model.Comment
	Replies []model.Comment `json:"replies"`
}

// CommentThread is the full two-level listing for a post. Total counts every
// comment on the post, replies included.
type CommentThread struct {
	PostID   int64             `json:"post_id"`
	Total    int64             `json:"total"`
	Comments []ThreadedComment `json:"comments"`
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "comment content is required")
	}
	if len(content) > MaxCommentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return content, nil
}

// Create adds a top-level comment to a post. Any authenticated user may
// comment; the only precondition is that the post exists.
func (s *CommentService) Create(ctx context.Context, postID int64, author *model.User, content string) (*model.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  author.ID,
		Content: content,
		Author:  model.AuthorOf(author),
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.Int64("commentID", comment.ID),
		slog.Int64("postID", postID),
		slog.Int64("userID", author.ID),
	)

	return comment, nil
}

// CreateReply adds a reply under a top-level comment.
//
// The depth check is the heart of the tree invariant: if the parent itself
// has a parent, the reply would be two levels deep, which is never allowed.
// The check runs after the existence checks — replying to a missing comment
// is NotFound, not a depth violation.
func (s *CommentService) CreateReply(ctx context.Context, postID, parentID int64, author *model.User, content string) (*model.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	parent, err := s.comments.GetComment(ctx, postID, parentID)
	if err != nil {
		return nil, err
	}

	if parent.IsReply() {
		return nil, apperror.InvalidOperation(
			"cannot reply to a reply: only one level of replies is allowed")
	}

	reply := &model.Comment{
		PostID:   postID,
		UserID:   author.ID,
		ParentID: &parentID,
		Content:  content,
		Author:   model.AuthorOf(author),
	}

	if err := s.comments.CreateComment(ctx, reply); err != nil {
		return nil, fmt.Errorf("creating reply: %w", err)
	}

	s.logger.Info("reply created",
		slog.Int64("commentID", reply.ID),
		slog.Int64("parentID", parentID),
		slog.Int64("postID", postID),
	)

	return reply, nil
}

// ListThread returns the two-level comment tree of a post: roots newest
// first, each with its replies oldest first.
func (s *CommentService) ListThread(ctx context.Context, postID int64) (*CommentThread, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	roots, err := s.comments.ListTopLevelComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	threaded := make([]ThreadedComment, 0, len(roots))
	for _, root := range roots {
		replies, err := s.comments.ListReplies(ctx, root.ID)
		if err != nil {
			return nil, fmt.Errorf("listing replies of comment %d: %w", root.ID, err)
		}
		threaded = append(threaded, ThreadedComment{Comment: root, Replies: replies})
	}

	total, err := s.comments.CountCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}

	return &CommentThread{
		PostID:   postID,
		Total:    total,
		Comments: threaded,
	}, nil
}

// Edit updates a comment's content. Only the author may edit.
func (s *CommentService) Edit(ctx context.Context, postID, commentID int64, actor *model.User, content string) (*model.Comment, error) {
	comment, err := s.comments.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != actor.ID {
		return nil, apperror.Forbidden("only the author may edit this comment")
	}

	content, err = validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.comments.UpdateCommentContent(ctx, commentID, content, now); err != nil {
		return nil, fmt.Errorf("editing comment %d: %w", commentID, err)
	}

	comment.Content = content
	comment.UpdatedAt = now
	return comment, nil
}

// Delete removes a comment, or tombstones it if replies exist.
//
// The branch is deliberate: replies reference their parent by id, so
// removing a parent that has live replies would orphan them. Instead the
// parent's content is overwritten with a fixed placeholder and the row
// stays. Once tombstoned (or purged) a comment never comes back — edits on
// a tombstone are possible in principle but the client hides the affordance,
// and nothing in the ordering or counting treats a tombstone specially.
func (s *CommentService) Delete(ctx context.Context, postID, commentID int64, actor *model.User) error {
	comment, err := s.comments.GetComment(ctx, postID, commentID)
	if err != nil {
		return err
	}

	if comment.UserID != actor.ID {
		return apperror.Forbidden("only the author may delete this comment")
	}

	replyCount, err := s.comments.CountReplies(ctx, commentID)
	if err != nil {
		return fmt.Errorf("counting replies of comment %d: %w", commentID, err)
	}

	if replyCount > 0 {
		if err := s.comments.UpdateCommentContent(ctx, commentID,
			model.DeletedCommentPlaceholder, time.Now()); err != nil {
			return fmt.Errorf("tombstoning comment %d: %w", commentID, err)
		}
		s.logger.Info("comment tombstoned",
			slog.Int64("commentID", commentID),
			slog.Int64("replies", replyCount),
		)
		return nil
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment %d: %w", commentID, err)
	}

	s.logger.Info("comment deleted", slog.Int64("commentID", commentID))
	return nil
}

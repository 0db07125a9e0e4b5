// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage provides the concrete
// implementation; tests substitute in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/dayeon-k/examboard/internal/model"
)

// ListOptions carries pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// PostFilter narrows and orders post listings.
type PostFilter struct {
	Search   string // match against title or content, empty = no search
	Category string // exact category, empty = all
	SortAsc  bool   // false = newest first (default)
	Limit    int
	Offset   int
}

// ProblemFilter narrows problem listings.
type ProblemFilter struct {
	Year   int // 0 = all years
	Month  int // 0 = all months
	Limit  int
	Offset int
}

// SelectionTotal is one row of the popularity rebuild query: a problem and
// the sum of its selection counts across all users.
type SelectionTotal struct {
	ProblemID int64
	Total     int64
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type PostRepository interface {
	// CreatePost inserts the post and links its tags, creating tag rows for
	// names not seen before.
	CreatePost(ctx context.Context, post *model.Post, tags []string) error
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	// ListPosts returns one page of posts plus the total match count.
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, int64, error)
	ListPostsByTag(ctx context.Context, tagID int64, filter PostFilter) ([]model.Post, int64, error)
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	UpdatePost(ctx context.Context, post *model.Post, tags []string) error
	DeletePost(ctx context.Context, id int64) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	// GetComment looks up a comment scoped to its post; a valid comment id
	// paired with the wrong post id is a miss.
	GetComment(ctx context.Context, postID, id int64) (*model.Comment, error)
	// ListTopLevelComments returns parentless comments for the post,
	// newest first.
	ListTopLevelComments(ctx context.Context, postID int64) ([]model.Comment, error)
	// ListReplies returns the direct replies of a comment, oldest first.
	ListReplies(ctx context.Context, parentID int64) ([]model.Comment, error)
	CountCommentsByPost(ctx context.Context, postID int64) (int64, error)
	CountReplies(ctx context.Context, parentID int64) (int64, error)
	UpdateCommentContent(ctx context.Context, id int64, content string, updatedAt time.Time) error
	DeleteComment(ctx context.Context, id int64) error
}

type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem *model.Problem) error
	GetProblemByID(ctx context.Context, id int64) (*model.Problem, error)
	ListProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, int64, error)

	// UpsertSelection records one selection of a problem by a user: the
	// first call creates the row with count 1, subsequent calls increment
	// the counter and refresh last_selected_at. The returned row reflects
	// the state after this call.
	UpsertSelection(ctx context.Context, userID, problemID int64, at time.Time) (*model.UserProblem, error)
	GetSelectionByID(ctx context.Context, id int64) (*model.UserProblem, error)
	// ListSelections returns one page of a user's selections, newest first,
	// with the problem joined in, plus the total count.
	ListSelections(ctx context.Context, userID int64, opts ListOptions) ([]model.UserProblem, int64, error)
	DeleteSelection(ctx context.Context, id int64) error
	// SelectionTotals aggregates selection counts per problem; the
	// popularity rebuild reseeds the ranked cache from it.
	SelectionTotals(ctx context.Context) ([]SelectionTotal, error)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

const (
	MaxPostTitleLength = 255
	DefaultPostLimit   = 10
	MaxPostLimit       = 100
)

// PostService handles the blog section: admin-authored posts with free-form
// tags, search and category filtering.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// PostPage is one page of a post listing.
type PostPage struct {
	Total   int64        `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Posts   []model.Post `json:"posts"`
	Keyword string       `json:"keyword,omitempty"`
	Tag     string       `json:"tag,omitempty"`
}

func validCategory(category string) bool {
	return category == model.CategoryAdmissions || category == model.CategoryEnglish
}

func validatePostFields(title, content, category string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxPostTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxPostTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		return "", apperror.ValidationFailed("content", "content is required")
	}
	if !validCategory(category) {
		return "", apperror.ValidationFailed("category",
			fmt.Sprintf("category must be %q or %q", model.CategoryAdmissions, model.CategoryEnglish))
	}
	return title, nil
}

// Create publishes a new post. The admin-role gate sits at the router; the
// author recorded here is whoever passed it.
func (s *PostService) Create(ctx context.Context, author *model.User, title, content, category string, tags []string) (*model.Post, error) {
	title, err := validatePostFields(title, content, category)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:   author.ID,
		Title:    title,
		Content:  content,
		Category: category,
		Author:   model.AuthorOf(author),
	}

	if err := s.posts.CreatePost(ctx, post, tags); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("userID", author.ID),
		slog.String("category", category),
	)

	return post, nil
}

// GetByID returns a single post.
func (s *PostService) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// ListParams are the query options for List.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	SortAsc  bool
	Search   string
}

func clampPage(page, limit, def, max int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit, (page - 1) * limit
}

// List returns one page of posts, optionally filtered by category and a
// title/content search term.
func (s *PostService) List(ctx context.Context, params ListParams) (*PostPage, error) {
	if params.Category != "" && !validCategory(params.Category) {
		return nil, apperror.ValidationFailed("category", "unknown category")
	}

	page, limit, offset := clampPage(params.Page, params.Limit, DefaultPostLimit, MaxPostLimit)

	posts, total, err := s.posts.ListPosts(ctx, repository.PostFilter{
		Search:   strings.TrimSpace(params.Search),
		Category: params.Category,
		SortAsc:  params.SortAsc,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &PostPage{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Posts:   posts,
		Keyword: strings.TrimSpace(params.Search),
	}, nil
}

// ListByTag returns one page of posts carrying the named tag. Unknown tags
// are NotFound rather than an empty page, so clients can tell a dead link
// from a quiet tag.
func (s *PostService) ListByTag(ctx context.Context, tagName string, params ListParams) (*PostPage, error) {
	tag, err := s.posts.GetTagByName(ctx, strings.TrimSpace(tagName))
	if err != nil {
		return nil, err
	}

	page, limit, offset := clampPage(params.Page, params.Limit, DefaultPostLimit, MaxPostLimit)

	posts, total, err := s.posts.ListPostsByTag(ctx, tag.ID, repository.PostFilter{
		SortAsc: params.SortAsc,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing posts for tag %q: %w", tagName, err)
	}

	return &PostPage{
		Total: total,
		Page:  page,
		Limit: limit,
		Posts: posts,
		Tag:   tag.Name,
	}, nil
}

// Update edits a post. Only the author may edit, admin or not — ownership is
// the rule for mutation across the board.
func (s *PostService) Update(ctx context.Context, postID int64, actor *model.User, title, content, category string, tags []string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.UserID != actor.ID {
		return nil, apperror.Forbidden("only the author may edit this post")
	}

	title, err = validatePostFields(title, content, category)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content
	post.Category = category

	if err := s.posts.UpdatePost(ctx, post, tags); err != nil {
		return nil, fmt.Errorf("updating post %d: %w", postID, err)
	}

	s.logger.Info("post updated", slog.Int64("postID", postID))
	return post, nil
}

// Delete removes a post and, via the schema's cascading deletes, all its
// comments and tag links.
func (s *PostService) Delete(ctx context.Context, postID int64, actor *model.User) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}

	if post.UserID != actor.ID {
		return apperror.Forbidden("only the author may delete this post")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("deleting post %d: %w", postID, err)
	}

	s.logger.Info("post deleted", slog.Int64("postID", postID))
	return nil
}

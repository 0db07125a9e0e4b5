package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/cache"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ====== USER REPO MOCK ======

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Name == user.Name || u.Email == user.Email {
			return apperror.Conflict("name or email already in use")
		}
	}
	m.nextID++
	user.ID = m.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (m *mockUserRepo) GetUserByName(_ context.Context, name string) (*model.User, error) {
	for _, u := range m.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFoundNamed("user", name)
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFoundNamed("user", email)
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// ====== POST REPO MOCK ======

type mockPostRepo struct {
	posts     map[int64]*model.Post
	tags      map[string]*model.Tag
	links     map[int64][]int64 // post id -> tag ids
	nextID    int64
	nextTagID int64
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{
		posts: make(map[int64]*model.Post),
		tags:  make(map[string]*model.Tag),
		links: make(map[int64][]int64),
	}
}

func (m *mockPostRepo) linkTags(postID int64, tags []string) []string {
	seen := make(map[string]bool)
	names := []string{}
	m.links[postID] = nil
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tag, ok := m.tags[name]
		if !ok {
			m.nextTagID++
			tag = &model.Tag{ID: m.nextTagID, Name: name, CreatedAt: time.Now()}
			m.tags[name] = tag
		}
		m.links[postID] = append(m.links[postID], tag.ID)
		names = append(names, name)
	}
	return names
}

func (m *mockPostRepo) CreatePost(_ context.Context, post *model.Post, tags []string) error {
	m.nextID++
	post.ID = m.nextID
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.Tags = m.linkTags(post.ID, tags)
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepo) GetPostByID(_ context.Context, id int64) (*model.Post, error) {
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.NotFound("post", id)
}

func (m *mockPostRepo) sortedPosts(asc bool) []model.Post {
	ids := make([]int64, 0, len(m.posts))
	for id := range m.posts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if asc {
			return ids[i] < ids[j]
		}
		return ids[i] > ids[j]
	})
	out := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.posts[id])
	}
	return out
}

func pagePosts(posts []model.Post, limit, offset int) []model.Post {
	if offset >= len(posts) {
		return []model.Post{}
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}

func (m *mockPostRepo) ListPosts(_ context.Context, filter repository.PostFilter) ([]model.Post, int64, error) {
	matched := []model.Post{}
	for _, p := range m.sortedPosts(filter.SortAsc) {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(p.Title, filter.Search) &&
			!strings.Contains(p.Content, filter.Search) {
			continue
		}
		matched = append(matched, p)
	}
	return pagePosts(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (m *mockPostRepo) ListPostsByTag(_ context.Context, tagID int64, filter repository.PostFilter) ([]model.Post, int64, error) {
	matched := []model.Post{}
	for _, p := range m.sortedPosts(filter.SortAsc) {
		for _, linked := range m.links[p.ID] {
			if linked == tagID {
				matched = append(matched, p)
				break
			}
		}
	}
	return pagePosts(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (m *mockPostRepo) GetTagByName(_ context.Context, name string) (*model.Tag, error) {
	if tag, ok := m.tags[name]; ok {
		cp := *tag
		return &cp, nil
	}
	return nil, apperror.NotFoundNamed("tag", name)
}

func (m *mockPostRepo) UpdatePost(_ context.Context, post *model.Post, tags []string) error {
	if _, ok := m.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	post.UpdatedAt = time.Now()
	post.Tags = m.linkTags(post.ID, tags)
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepo) DeletePost(_ context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(m.posts, id)
	delete(m.links, id)
	return nil
}

// ====== COMMENT REPO MOCK ======

type mockCommentRepo struct {
	comments map[int64]*model.Comment
	order    []int64 // insertion order; listing derives both directions from it
	nextID   int64
}

var _ repository.CommentRepository = (*mockCommentRepo)(nil)

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[int64]*model.Comment)}
}

func (m *mockCommentRepo) CreateComment(_ context.Context, comment *model.Comment) error {
	m.nextID++
	comment.ID = m.nextID
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	cp := *comment
	m.comments[comment.ID] = &cp
	m.order = append(m.order, comment.ID)
	return nil
}

func (m *mockCommentRepo) GetComment(_ context.Context, postID, id int64) (*model.Comment, error) {
	if c, ok := m.comments[id]; ok && c.PostID == postID {
		cp := *c
		return &cp, nil
	}
	return nil, apperror.NotFound("comment", id)
}

func (m *mockCommentRepo) ListTopLevelComments(_ context.Context, postID int64) ([]model.Comment, error) {
	out := []model.Comment{}
	for i := len(m.order) - 1; i >= 0; i-- { // newest first
		c, ok := m.comments[m.order[i]]
		if ok && c.PostID == postID && c.ParentID == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) ListReplies(_ context.Context, parentID int64) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, id := range m.order { // oldest first
		c, ok := m.comments[id]
		if ok && c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) CountCommentsByPost(_ context.Context, postID int64) (int64, error) {
	var count int64
	for _, c := range m.comments {
		if c.PostID == postID {
			count++
		}
	}
	return count, nil
}

func (m *mockCommentRepo) CountReplies(_ context.Context, parentID int64) (int64, error) {
	var count int64
	for _, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func (m *mockCommentRepo) UpdateCommentContent(_ context.Context, id int64, content string, updatedAt time.Time) error {
	c, ok := m.comments[id]
	if !ok {
		return apperror.NotFound("comment", id)
	}
	c.Content = content
	c.UpdatedAt = updatedAt
	return nil
}

func (m *mockCommentRepo) DeleteComment(_ context.Context, id int64) error {
	if _, ok := m.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(m.comments, id)
	return nil
}

// ====== PROBLEM REPO MOCK ======

type mockProblemRepo struct {
	problems   map[int64]*model.Problem
	selections map[int64]*model.UserProblem
	nextID     int64
	nextSelID  int64
}

var _ repository.ProblemRepository = (*mockProblemRepo)(nil)

func newMockProblemRepo() *mockProblemRepo {
	return &mockProblemRepo{
		problems:   make(map[int64]*model.Problem),
		selections: make(map[int64]*model.UserProblem),
	}
}

func (m *mockProblemRepo) CreateProblem(_ context.Context, problem *model.Problem) error {
	for _, p := range m.problems {
		if p.Year == problem.Year && p.Month == problem.Month && p.Number == problem.Number {
			return apperror.Conflict("problem already exists")
		}
	}
	m.nextID++
	problem.ID = m.nextID
	problem.CreatedAt = time.Now()
	cp := *problem
	m.problems[problem.ID] = &cp
	return nil
}

func (m *mockProblemRepo) GetProblemByID(_ context.Context, id int64) (*model.Problem, error) {
	if p, ok := m.problems[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.NotFound("problem", id)
}

func (m *mockProblemRepo) ListProblems(_ context.Context, filter repository.ProblemFilter) ([]model.Problem, int64, error) {
	matched := []model.Problem{}
	ids := make([]int64, 0, len(m.problems))
	for id := range m.problems {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := m.problems[id]
		if filter.Year != 0 && p.Year != filter.Year {
			continue
		}
		if filter.Month != 0 && p.Month != filter.Month {
			continue
		}
		matched = append(matched, *p)
	}
	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []model.Problem{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *mockProblemRepo) UpsertSelection(_ context.Context, userID, problemID int64, at time.Time) (*model.UserProblem, error) {
	for _, s := range m.selections {
		if s.UserID == userID && s.ProblemID == problemID {
			s.SelectionCount++
			s.LastSelectedAt = at
			cp := *s
			return &cp, nil
		}
	}
	m.nextSelID++
	problem := m.problems[problemID]
	sel := &model.UserProblem{
		ID:              m.nextSelID,
		UserID:          userID,
		ProblemID:       problemID,
		SelectionCount:  1,
		FirstSelectedAt: at,
		LastSelectedAt:  at,
		CreatedAt:       at,
		Problem:         problem,
	}
	m.selections[sel.ID] = sel
	cp := *sel
	return &cp, nil
}

func (m *mockProblemRepo) GetSelectionByID(_ context.Context, id int64) (*model.UserProblem, error) {
	if s, ok := m.selections[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperror.NotFound("selection", id)
}

func (m *mockProblemRepo) ListSelections(_ context.Context, userID int64, opts repository.ListOptions) ([]model.UserProblem, int64, error) {
	ids := make([]int64, 0, len(m.selections))
	for id, s := range m.selections {
		if s.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] }) // newest first
	total := int64(len(ids))
	if opts.Offset >= len(ids) {
		return []model.UserProblem{}, total, nil
	}
	ids = ids[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}
	out := make([]model.UserProblem, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.selections[id])
	}
	return out, total, nil
}

func (m *mockProblemRepo) DeleteSelection(_ context.Context, id int64) error {
	if _, ok := m.selections[id]; !ok {
		return apperror.NotFound("selection", id)
	}
	delete(m.selections, id)
	return nil
}

func (m *mockProblemRepo) SelectionTotals(_ context.Context) ([]repository.SelectionTotal, error) {
	byProblem := map[int64]int64{}
	for _, s := range m.selections {
		byProblem[s.ProblemID] += s.SelectionCount
	}
	totals := make([]repository.SelectionTotal, 0, len(byProblem))
	for id, total := range byProblem {
		totals = append(totals, repository.SelectionTotal{ProblemID: id, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].ProblemID < totals[j].ProblemID })
	return totals, nil
}

// ====== RANKER FAKE ======

// fakeRanker is an in-memory stand-in for the Redis sorted set. Setting err
// simulates the cache being unreachable.
type fakeRanker struct {
	scores  map[int64]int64
	err     error
	rebuilt bool
}

var _ cache.Ranker = (*fakeRanker)(nil)

func newFakeRanker() *fakeRanker {
	return &fakeRanker{scores: make(map[int64]int64)}
}

func (f *fakeRanker) Increment(_ context.Context, problemID, delta int64) error {
	if f.err != nil {
		return f.err
	}
	f.scores[problemID] += delta
	return nil
}

func (f *fakeRanker) TopN(_ context.Context, n int64) ([]cache.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries := make([]cache.Entry, 0, len(f.scores))
	for id, score := range f.scores {
		entries = append(entries, cache.Entry{ProblemID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ProblemID < entries[j].ProblemID
	})
	if int64(len(entries)) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (f *fakeRanker) Rebuild(_ context.Context, entries []cache.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.scores = make(map[int64]int64, len(entries))
	for _, e := range entries {
		f.scores[e.ProblemID] = e.Score
	}
	f.rebuilt = true
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dayeon-k/examboard/internal/apperror"
	"github.com/dayeon-k/examboard/internal/cache"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/repository"
)

const (
	DefaultProblemLimit = 20
	MaxProblemLimit     = 100
	// TopPopularCount is how many problems the popularity ranking returns.
	TopPopularCount = 10
)

// allowedMonths are the exam months in which problems exist; registration
// for any other month is rejected.
var allowedMonths = map[int]bool{3: true, 6: true, 9: true, 11: true}

// allowedExtensions for a problem's file URL.
var allowedExtensions = map[string]bool{
	".hwp": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
}

// ProblemService manages the exam-problem catalog and the "my problems"
// selections with their popularity ranking.
//
// The ranking lives in a Redis sorted set and is deliberately
// non-authoritative: select and deselect update it best-effort (a cache
// failure is logged and the relational write stands), while TopPopular
// requires it and fails with Unavailable when the cache is down. Rebuild
// reseeds the set from the selection rows whenever the two drift apart.
type ProblemService struct {
	problems repository.ProblemRepository
	ranker   cache.Ranker
	logger   *slog.Logger
}

func NewProblemService(
	problems repository.ProblemRepository,
	ranker cache.Ranker,
	logger *slog.Logger,
) *ProblemService {
	return &ProblemService{
		problems: problems,
		ranker:   ranker,
		logger:   logger,
	}
}

// ProblemPage is one page of the catalog listing.
type ProblemPage struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Problems []model.Problem `json:"problems"`
}

// SelectionPage is one page of a user's selected problems.
type SelectionPage struct {
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	MyProblems []model.UserProblem `json:"my_problems"`
}

// Register adds a problem to the catalog (admin-gated at the router).
//
// The month whitelist and the file-type whitelist are domain rules, not
// input syntax, so violations map to InvalidOperation; a duplicate
// (year, month, number) triple comes back from the repository as Conflict.
func (s *ProblemService) Register(ctx context.Context, year, month, number int, title, difficulty, fileURL string) (*model.Problem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if year <= 0 {
		return nil, apperror.ValidationFailed("year", "year is required")
	}
	if number <= 0 {
		return nil, apperror.ValidationFailed("number", "number is required")
	}
	if !allowedMonths[month] {
		return nil, apperror.InvalidOperation("problems can only be registered for months 3, 6, 9 and 11")
	}

	if fileURL != "" {
		ext := strings.ToLower(path.Ext(fileURL))
		if !allowedExtensions[ext] {
			return nil, apperror.InvalidOperation(
				"unsupported file type; allowed: .hwp, .pdf, .png, .jpg, .jpeg")
		}
	}

	problem := &model.Problem{
		Year:       year,
		Month:      month,
		Number:     number,
		Title:      title,
		Difficulty: strings.TrimSpace(difficulty),
		FileURL:    fileURL,
	}

	if err := s.problems.CreateProblem(ctx, problem); err != nil {
		return nil, fmt.Errorf("registering problem: %w", err)
	}

	s.logger.Info("problem registered",
		slog.Int64("problemID", problem.ID),
		slog.Int("year", year),
		slog.Int("month", month),
		slog.Int("number", number),
	)

	return problem, nil
}

// List returns one page of the catalog, optionally filtered by year/month.
func (s *ProblemService) List(ctx context.Context, year, month, pageNum, limitNum int) (*ProblemPage, error) {
	page, limit, offset := clampPage(pageNum, limitNum, DefaultProblemLimit, MaxProblemLimit)

	problems, total, err := s.problems.ListProblems(ctx, repository.ProblemFilter{
		Year:   year,
		Month:  month,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing problems: %w", err)
	}

	return &ProblemPage{Total: total, Page: page, Limit: limit, Problems: problems}, nil
}

// Select adds a problem to the user's list, bumping the counter when it was
// already there, then nudges the popularity score.
//
// The relational write and the cache write are not transactionally linked.
// If the cache is unreachable the selection still succeeds — the score can
// be recovered later via Rebuild, the selection row cannot.
func (s *ProblemService) Select(ctx context.Context, user *model.User, problemID int64) (*model.UserProblem, error) {
	if _, err := s.problems.GetProblemByID(ctx, problemID); err != nil {
		return nil, err
	}

	selection, err := s.problems.UpsertSelection(ctx, user.ID, problemID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("selecting problem %d: %w", problemID, err)
	}

	if err := s.ranker.Increment(ctx, problemID, 1); err != nil {
		s.logger.Warn("popularity increment failed",
			slog.Int64("problemID", problemID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("problem selected",
		slog.Int64("problemID", problemID),
		slog.Int64("userID", user.ID),
		slog.Int64("count", selection.SelectionCount),
	)

	return selection, nil
}

// Deselect removes one of the user's selection records and decrements the
// problem's popularity score.
func (s *ProblemService) Deselect(ctx context.Context, user *model.User, selectionID int64) error {
	selection, err := s.problems.GetSelectionByID(ctx, selectionID)
	if err != nil {
		return err
	}

	if selection.UserID != user.ID {
		return apperror.Forbidden("only the owner may remove this selection")
	}

	if err := s.problems.DeleteSelection(ctx, selectionID); err != nil {
		return fmt.Errorf("removing selection %d: %w", selectionID, err)
	}

	if err := s.ranker.Increment(ctx, selection.ProblemID, -1); err != nil {
		s.logger.Warn("popularity decrement failed",
			slog.Int64("problemID", selection.ProblemID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("problem deselected",
		slog.Int64("problemID", selection.ProblemID),
		slog.Int64("userID", user.ID),
	)

	return nil
}

// ListMine returns one page of the user's selected problems, newest first.
func (s *ProblemService) ListMine(ctx context.Context, user *model.User, pageNum, limitNum int) (*SelectionPage, error) {
	page, limit, offset := clampPage(pageNum, limitNum, DefaultProblemLimit, MaxProblemLimit)

	selections, total, err := s.problems.ListSelections(ctx, user.ID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing selections for user %d: %w", user.ID, err)
	}

	return &SelectionPage{Total: total, Page: page, Limit: limit, MyProblems: selections}, nil
}

// TopPopular returns the ten most-selected problems, best first.
//
// Unlike select/deselect, this read requires the cache: there is no
// relational fallback, so a cache failure is surfaced as Unavailable. The
// repair path for a lost or drifted cache is Rebuild, not per-request
// recomputation.
func (s *ProblemService) TopPopular(ctx context.Context) ([]model.PopularProblem, error) {
	entries, err := s.ranker.TopN(ctx, TopPopularCount)
	if err != nil {
		s.logger.Error("popularity ranking unavailable", slog.String("error", err.Error()))
		return nil, apperror.Unavailable("popularity ranking is temporarily unavailable")
	}

	popular := make([]model.PopularProblem, 0, len(entries))
	for _, entry := range entries {
		problem, err := s.problems.GetProblemByID(ctx, entry.ProblemID)
		if err != nil {
			// A ranked id without a catalog row means the cache is stale
			// (e.g. the problem was removed); skip it rather than fail the
			// whole ranking.
			s.logger.Warn("ranked problem missing from catalog",
				slog.Int64("problemID", entry.ProblemID))
			continue
		}
		popular = append(popular, model.PopularProblem{
			ProblemID:      problem.ID,
			Year:           problem.Year,
			Month:          problem.Month,
			Number:         problem.Number,
			Title:          problem.Title,
			Difficulty:     problem.Difficulty,
			SelectionCount: entry.Score,
		})
	}

	return popular, nil
}

// RebuildPopularity reseeds the ranked cache from the selection rows. The
// score of each problem becomes the sum of its selection counts — the same
// quantity the incremental updates approximate.
func (s *ProblemService) RebuildPopularity(ctx context.Context) error {
	totals, err := s.problems.SelectionTotals(ctx)
	if err != nil {
		return fmt.Errorf("aggregating selection totals: %w", err)
	}

	entries := make([]cache.Entry, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, cache.Entry{ProblemID: t.ProblemID, Score: t.Total})
	}

	if err := s.ranker.Rebuild(ctx, entries); err != nil {
		return apperror.Unavailable("popularity ranking is temporarily unavailable")
	}

	s.logger.Info("popularity index rebuilt", slog.Int("problems", len(entries)))
	return nil
}

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

// compile-time check that *DB implements repository.ProblemRepository
var _ repository.ProblemRepository = (*DB)(nil)

// CreateProblem inserts a catalog entry. A duplicate (year, month, number)
// triple surfaces as apperror.Conflict via the UNIQUE constraint.
func (db *DB) CreateProblem(ctx context.Context, problem *model.Problem) error {
	problem.CreatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO problems (year, month, number, title, difficulty, file_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		problem.Year,
		problem.Month,
		problem.Number,
		problem.Title,
		problem.Difficulty,
		problem.FileURL,
		problem.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf(
				"problem %d-%d #%d already exists", problem.Year, problem.Month, problem.Number))
		}
		return fmt.Errorf("sqlite: inserting problem: %w", err)
	}

	problem.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading problem insert id: %w", err)
	}

	return nil
}

const problemColumns = `id, year, month, number, title, difficulty, file_url, created_at`

// GetProblemByID retrieves one catalog entry.
func (db *DB) GetProblemByID(ctx context.Context, id int64) (*model.Problem, error) {
	var p model.Problem
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+problemColumns+` FROM problems WHERE id = ?`, id,
	).Scan(&p.ID, &p.Year, &p.Month, &p.Number, &p.Title, &p.Difficulty, &p.FileURL, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("problem", id)
		}
		return nil, fmt.Errorf("sqlite: getting problem %d: %w", id, err)
	}
	return &p, nil
}

// ListProblems returns one page of the catalog plus the total match count,
// ordered newest exam first (year desc, month desc) then by problem number.
func (db *DB) ListProblems(ctx context.Context, filter repository.ProblemFilter) ([]model.Problem, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Year != 0 {
		where += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.Month != 0 {
		where += ` AND month = ?`
		args = append(args, filter.Month)
	}

	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM problems`+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting problems: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+problemColumns+` FROM problems`+where+`
		 ORDER BY year DESC, month DESC, number ASC
		 LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing problems: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Year, &p.Month, &p.Number, &p.Title,
			&p.Difficulty, &p.FileURL, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating problems: %w", err)
	}

	return problems, total, nil
}

// UpsertSelection records one selection of a problem by a user.
//
// Re-selecting is a counter bump, not a duplicate row: the UNIQUE
// (user_id, problem_id) pair carries the relationship and selection_count
// says how many times it happened. Two concurrent bumps for the same pair
// may race under read-committed isolation; that's acceptable for a
// monotonic counter.
func (db *DB) UpsertSelection(ctx context.Context, userID, problemID int64, at time.Time) (*model.UserProblem, error) {
	var existingID int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM user_problems WHERE user_id = ? AND problem_id = ?`,
		userID, problemID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: looking up selection (user=%d, problem=%d): %w", userID, problemID, err)
	}

	if err == sql.ErrNoRows {
		res, insErr := db.conn.ExecContext(ctx,
			`INSERT INTO user_problems
			 (user_id, problem_id, selection_count, first_selected_at, last_selected_at, created_at)
			 VALUES (?, ?, 1, ?, ?, ?)`,
			userID, problemID, at, at, at,
		)
		if insErr != nil {
			return nil, fmt.Errorf("sqlite: inserting selection (user=%d, problem=%d): %w", userID, problemID, insErr)
		}
		existingID, insErr = res.LastInsertId()
		if insErr != nil {
			return nil, fmt.Errorf("sqlite: reading selection insert id: %w", insErr)
		}
	} else {
		if _, updErr := db.conn.ExecContext(ctx,
			`UPDATE user_problems
			 SET selection_count = selection_count + 1, last_selected_at = ?
			 WHERE id = ?`,
			at, existingID,
		); updErr != nil {
			return nil, fmt.Errorf("sqlite: incrementing selection %d: %w", existingID, updErr)
		}
	}

	return db.GetSelectionByID(ctx, existingID)
}

// GetSelectionByID retrieves a selection record with its problem joined in.
func (db *DB) GetSelectionByID(ctx context.Context, id int64) (*model.UserProblem, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT up.id, up.user_id, up.problem_id, up.selection_count,
		       up.first_selected_at, up.last_selected_at, up.created_at,
		       p.id, p.year, p.month, p.number, p.title, p.difficulty, p.file_url, p.created_at
		FROM user_problems up
		JOIN problems p ON p.id = up.problem_id
		WHERE up.id = ?`, id)

	up, err := scanSelection(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("selection", id)
		}
		return nil, fmt.Errorf("sqlite: getting selection %d: %w", id, err)
	}
	return up, nil
}

func scanSelection(scan func(dest ...any) error) (*model.UserProblem, error) {
	var (
		up model.UserProblem
		p  model.Problem
	)
	err := scan(
		&up.ID, &up.UserID, &up.ProblemID, &up.SelectionCount,
		&up.FirstSelectedAt, &up.LastSelectedAt, &up.CreatedAt,
		&p.ID, &p.Year, &p.Month, &p.Number, &p.Title, &p.Difficulty, &p.FileURL, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	up.Problem = &p
	return &up, nil
}

// ListSelections returns one page of a user's selections, newest first.
func (db *DB) ListSelections(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.UserProblem, int64, error) {
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_problems WHERE user_id = ?`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting selections for user %d: %w", userID, err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT up.id, up.user_id, up.problem_id, up.selection_count,
		       up.first_selected_at, up.last_selected_at, up.created_at,
		       p.id, p.year, p.month, p.number, p.title, p.difficulty, p.file_url, p.created_at
		FROM user_problems up
		JOIN problems p ON p.id = up.problem_id
		WHERE up.user_id = ?
		ORDER BY up.created_at DESC, up.id DESC
		LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing selections for user %d: %w", userID, err)
	}
	defer rows.Close()

	selections := []model.UserProblem{}
	for rows.Next() {
		up, err := scanSelection(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning selection row: %w", err)
		}
		selections = append(selections, *up)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating selections: %w", err)
	}

	return selections, total, nil
}

// DeleteSelection removes a selection record.
func (db *DB) DeleteSelection(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_problems WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting selection %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("selection", id)
	}

	return nil
}

// SelectionTotals sums selection counts per problem across all users. The
// popularity rebuild reseeds the ranked cache from this — the relational
// rows are the source of truth, the cache only an index over them.
func (db *DB) SelectionTotals(ctx context.Context) ([]repository.SelectionTotal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT problem_id, SUM(selection_count)
		 FROM user_problems
		 GROUP BY problem_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating selection totals: %w", err)
	}
	defer rows.Close()

	totals := []repository.SelectionTotal{}
	for rows.Next() {
		var t repository.SelectionTotal
		if err := rows.Scan(&t.ProblemID, &t.Total); err != nil {
			return nil, fmt.Errorf("sqlite: scanning selection total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating selection totals: %w", err)
	}

	return totals, nil
}

package model

import "time"

// Problem is one exam problem in the catalog, identified by its
// (year, month, number) triple — that combination is unique.
//
// FileURL points at the uploaded problem sheet. Storage of the file itself
// is handled outside this service; we only carry the location.
type Problem struct {
	ID         int64     `json:"problem_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Difficulty string    `json:"difficulty"`
	FileURL    string    `json:"file_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserProblem records that a user selected a problem into their personal
// list. The (user, problem) pair is unique: selecting the same problem again
// bumps SelectionCount instead of inserting a second row.
type UserProblem struct {
	ID              int64     `json:"user_problem_id"`
	UserID          int64     `json:"user_id"`
	ProblemID       int64     `json:"problem_id"`
	SelectionCount  int64     `json:"selection_count"`
	FirstSelectedAt time.Time `json:"first_selected_at"`
	LastSelectedAt  time.Time `json:"last_selected_at"`
	CreatedAt       time.Time `json:"created_at"`

	// Problem is joined in by the repository for selection responses.
	Problem *Problem `json:"problem,omitempty"`
}

// PopularProblem is one entry of the top-N popularity ranking: the catalog
// row hydrated with its score from the ranked cache.
type PopularProblem struct {
	ProblemID      int64  `json:"problem_id"`
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Difficulty     string `json:"difficulty"`
	SelectionCount int64  `json:"selection_count"`
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/dayeon-k/examboard/internal/auth"
	"github.com/dayeon-k/examboard/internal/model"
	"github.com/dayeon-k/examboard/internal/service"
)

// ProblemHandler exposes the exam-problem catalog, the "my problems"
// selections, and the popularity ranking.
type ProblemHandler struct {
	svc    *service.ProblemService
	logger *slog.Logger
}

func NewProblemHandler(svc *service.ProblemService, logger *slog.Logger) *ProblemHandler {
	return &ProblemHandler{svc: svc, logger: logger}
}

type registerProblemRequest struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Number     int    `json:"number"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	FileURL    string `json:"file_url"`
}

// HandleRegister adds a problem to the catalog.
//
// HTTP: POST /problems/admin (admin)
func (h *ProblemHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerProblemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	problem, err := h.svc.Register(r.Context(),
		req.Year, req.Month, req.Number, req.Title, req.Difficulty, req.FileURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, problem)
}

// HandleList lists the catalog with optional year/month filters.
//
// HTTP: GET /problems?year=&month=&page=&limit= (public)
func (h *ProblemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(),
		queryInt(r, "year", 0),
		queryInt(r, "month", 0),
		queryInt(r, "page", 1),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

type selectProblemRequest struct {
	ProblemID int64 `json:"problem_id"`
}

// HandleSelect adds a problem to the caller's list (or bumps its counter).
//
// HTTP: POST /problems/my (authenticated)
func (h *ProblemHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req selectProblemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	selection, err := h.svc.Select(r.Context(), user, req.ProblemID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, selection)
}

// HandleListMine lists the caller's selected problems.
//
// HTTP: GET /problems/my?page=&limit= (authenticated)
func (h *ProblemHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	page, err := h.svc.ListMine(r.Context(), user,
		queryInt(r, "page", 1),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleDeselect removes one of the caller's selections.
//
// HTTP: DELETE /problems/my/{selectionID} (authenticated)
func (h *ProblemHandler) HandleDeselect(w http.ResponseWriter, r *http.Request) {
	selectionID, err := pathID(r, "selectionID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	if err := h.svc.Deselect(r.Context(), user, selectionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "selection removed"})
}

type popularResponse struct {
	PopularProblems []model.PopularProblem `json:"popular_problems"`
}

// HandlePopular returns the top-10 most selected problems. 503 when the
// ranking cache is unreachable.
//
// HTTP: GET /problems/popular (public)
func (h *ProblemHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	popular, err := h.svc.TopPopular(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, popularResponse{PopularProblems: popular})
}

// HandleRebuildPopularity reseeds the ranking from the selection records.
//
// HTTP: POST /problems/admin/popular/rebuild (admin)
func (h *ProblemHandler) HandleRebuildPopularity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RebuildPopularity(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "popularity index rebuilt"})
}

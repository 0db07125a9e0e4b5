package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dayeon-k/examboard/internal/auth"
	"github.com/dayeon-k/examboard/internal/service"
)

// PostHandler exposes the blog endpoints.
type PostHandler struct {
	svc    *service.PostService
	logger *slog.Logger
}

func NewPostHandler(svc *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{svc: svc, logger: logger}
}

type postRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// HandleCreate publishes a post.
//
// HTTP: POST /blog (admin)
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.svc.Create(r.Context(), user, req.Title, req.Content, req.Category, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func listParams(r *http.Request) service.ListParams {
	q := r.URL.Query()
	return service.ListParams{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 0),
		Category: q.Get("category"),
		SortAsc:  q.Get("sort") == "asc",
		Search:   q.Get("search"),
	}
}

// HandleList lists and searches posts.
//
// HTTP: GET /blog?page=&limit=&category=&sort=&search= (public)
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleListByTag lists posts carrying a tag.
//
// HTTP: GET /blog/tags/{tag} (public)
func (h *PostHandler) HandleListByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	page, err := h.svc.ListByTag(r.Context(), tag, listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns one post.
//
// HTTP: GET /blog/{postID} (public)
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.svc.GetByID(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate edits a post (author only).
//
// HTTP: PUT /blog/{postID} (authenticated)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.svc.Update(r.Context(), postID, user, req.Title, req.Content, req.Category, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post and its comments (author only).
//
// HTTP: DELETE /blog/{postID} (authenticated)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), postID, user); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/dayeon-k/examboard/internal/auth"
	"github.com/dayeon-k/examboard/internal/service"
)

// CommentHandler exposes the threaded comment endpoints, nested under a
// post: /blog/{postID}/comments...
type CommentHandler struct {
	svc    *service.CommentService
	logger *slog.Logger
}

func NewCommentHandler(svc *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, logger: logger}
}

type commentRequest struct {
	Content string `json:"content"`
}

// HandleCreate adds a top-level comment.
//
// HTTP: POST /blog/{postID}/comments (authenticated)
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.svc.Create(r.Context(), postID, user, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleCreateReply adds a reply under a top-level comment.
//
// HTTP: POST /blog/{postID}/comments/{commentID}/replies (authenticated)
func (h *CommentHandler) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	parentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reply, err := h.svc.CreateReply(r.Context(), postID, parentID, user, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reply)
}

// HandleList returns the post's full two-level comment tree.
//
// HTTP: GET /blog/{postID}/comments (public)
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}

	thread, err := h.svc.ListThread(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

// HandleUpdate edits a comment (author only).
//
// HTTP: PUT /blog/{postID}/comments/{commentID} (authenticated)
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	commentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.svc.Edit(r.Context(), postID, commentID, user, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

// HandleDelete deletes a comment (author only): purged when it has no
// replies, tombstoned when it does.
//
// HTTP: DELETE /blog/{postID}/comments/{commentID} (authenticated)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	commentID, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), postID, commentID, user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}

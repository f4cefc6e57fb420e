package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// CommentHandler serves /api/articles/{id}/comments.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentListResponse struct {
	Comments []model.Comment `json:"comments"`
	Count    int             `json:"count"`
}

// HandleList returns the active comments of a visible article, newest first.
//
// HTTP: GET /api/articles/{id}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, "listing comments failed", err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, commentListResponse{Comments: comments, Count: len(comments)})
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	Comment *model.Comment `json:"comment"`
}

// HandleCreate adds a comment.
//
// HTTP: POST /api/articles/{id}/comments
// REQUEST BODY: {"content":"…"}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), callerFrom(r), r.PathValue("id"), req.Content)
	if err != nil {
		fail(h.logger, w, r, "creating comment failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, commentResponse{Comment: comment})
}

// LikeHandler serves /api/articles/{id}/like.
type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

// HandleStatus reports whether the caller likes the article and its count.
// Anonymous callers always see isLiked=false.
//
// HTTP: GET /api/articles/{id}/like
// RESPONSE: {"isLiked": true, "likeCount": 12}
func (h *LikeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.likes.Status(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, "loading like status failed", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleToggle flips the caller's like.
//
// HTTP: POST /api/articles/{id}/like
func (h *LikeHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	state, err := h.likes.Toggle(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, "toggling like failed", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// ArticleHandler exposes the article lifecycle over HTTP. Visibility and
// ownership are decided by the service; the handler only decodes input and
// passes the caller along.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// HandleList returns a page of published articles, newest first.
//
// HTTP: GET /api/articles?page=2&limit=20
//
// Missing or malformed page/limit values fall back to the defaults (page 1,
// limit 10); limit is clamped to 50 by the service.
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	result, err := h.articles.List(r.Context(), page, limit)
	if err != nil {
		fail(h.logger, w, r, "listing articles failed", err)
		return
	}
	if result.Items == nil {
		result.Items = []model.Article{}
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleCreate stores a new article for the caller.
//
// HTTP: POST /api/articles
// REQUEST BODY: {"title":"…","subtitle":"…","content":"markdown","publish":true,"categoryId":"…"}
// RESPONSE: 201 with the stored article
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateArticleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	article, err := h.articles.Create(r.Context(), callerFrom(r), in)
	if err != nil {
		fail(h.logger, w, r, "creating article failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

// HandleGet returns one article if the caller may see it.
//
// HTTP: GET /api/articles/{id}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), callerFrom(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, "loading article failed", err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// HandleUpdate patches an article. Omitted fields stay unchanged.
//
// HTTP: PATCH /api/articles/{id}
// REQUEST BODY: any of {"title","subtitle","content","status","categoryId"}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateArticleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	article, err := h.articles.Update(r.Context(), callerFrom(r), r.PathValue("id"), in)
	if err != nil {
		fail(h.logger, w, r, "updating article failed", err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

type deleteResponse struct {
	Success   bool   `json:"success"`
	ArticleID string `json:"articleId"`
}

// HandleDelete soft-deletes an article.
//
// HTTP: DELETE /api/articles/{id}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.articles.Delete(r.Context(), callerFrom(r), id); err != nil {
		fail(h.logger, w, r, "deleting article failed", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, ArticleID: id})
}

// queryInt parses a query parameter, returning 0 when it is absent or not a
// number.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// UserHandler serves public profile pages.
type UserHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewUserHandler(profiles *service.ProfileService, logger *slog.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, logger: logger}
}

// HandleGet returns a user's public profile and the articles the caller may
// see. The path segment may be a username or a user ID.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	page, err := h.profiles.Get(r.Context(), callerFrom(r), r.PathValue("username"))
	if err != nil {
		fail(h.logger, w, r, "loading user profile failed", err)
		return
	}
	if page.Articles == nil {
		page.Articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, page)
}

// CategoryHandler lists the categories articles can be filed under.
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

type categoryListResponse struct {
	Categories []model.Category `json:"categories"`
}

// HandleList returns active categories in name order.
//
// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		fail(h.logger, w, r, "listing categories failed", err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categoryListResponse{Categories: categories})
}

// Pinger is satisfied by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleHealth answers 200 when the database responds within two seconds
// and 503 otherwise.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/model"
)

func TestUserHandler_HandleGet(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signUp(t, "essayist")
	visitor := env.signUp(t, "lurker")
	env.postArticle(t, owner, "Public", true)
	env.postArticle(t, owner, "Private", false)

	t.Run("visitor", func(t *testing.T) {
		rr := call(env.user.HandleGet, http.MethodGet, "/api/users/essayist", "", visitor, "username", "essayist")
		require.Equal(t, http.StatusOK, rr.Code)

		var page model.ProfilePage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.False(t, page.User.IsOwnProfile)
		assert.Equal(t, "0", page.User.FollowersCount)
		require.Len(t, page.Articles, 1)
		assert.Equal(t, "Public", page.Articles[0].Title)
	})

	t.Run("owner", func(t *testing.T) {
		rr := call(env.user.HandleGet, http.MethodGet, "/api/users/essayist", "", owner, "username", "essayist")
		require.Equal(t, http.StatusOK, rr.Code)

		var page model.ProfilePage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
		assert.True(t, page.User.IsOwnProfile)
		assert.Len(t, page.Articles, 2)
	})

	t.Run("no articles is an empty array", func(t *testing.T) {
		rr := call(env.user.HandleGet, http.MethodGet, "/api/users/lurker", "", nil, "username", "lurker")
		require.Equal(t, http.StatusOK, rr.Code)

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
		assert.JSONEq(t, `[]`, string(raw["articles"]))
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := call(env.user.HandleGet, http.MethodGet, "/api/users/ghost", "", nil, "username", "ghost")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCategoryHandler_HandleList(t *testing.T) {
	env := newTestEnv(t)

	rr := call(env.category.HandleList, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"categories":[]}`, rr.Body.String())

	require.NoError(t, env.categories.Seed(context.Background(), []string{"Science", "Art"}))

	rr = call(env.category.HandleList, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Categories []model.Category `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	require.Len(t, res.Categories, 2)
	assert.Equal(t, "Art", res.Categories[0].Name)
	assert.Equal(t, "Science", res.Categories[1].Name)
}

// stubPinger fails when err is set.
type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_HandleHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4}))

	t.Run("real database", func(t *testing.T) {
		env := newTestEnv(t)
		h := handler.NewHealthHandler(env.db, logger)

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rr.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		h := handler.NewHealthHandler(stubPinger{err: errors.New("disk on fire")}, logger)

		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.NotContains(t, rr.Body.String(), "disk on fire")
	})
}

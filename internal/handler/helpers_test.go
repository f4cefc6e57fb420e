package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/markdown"
	"github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

// testEnv wires real services over an in-memory database, so handler tests
// exercise the full request path minus the router.
type testEnv struct {
	db       *sqlite.DB
	tokens   *auth.TokenService
	identity *service.IdentityService
	articles *service.ArticleService

	auth       *handler.AuthHandler
	profile    *handler.ProfileHandler
	article    *handler.ArticleHandler
	comment    *handler.CommentHandler
	like       *handler.LikeHandler
	user       *handler.UserHandler
	category   *handler.CategoryHandler
	categories *service.CategoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	identity := service.NewIdentityService(db, tokens, auth.NewPasswordService(bcrypt.MinCost), logger)
	articles := service.NewArticleService(db, db, markdown.New(), logger)
	categories := service.NewCategoryService(db, logger)
	session := handler.Session{TTL: tokens.TTL()}

	return &testEnv{
		db:         db,
		tokens:     tokens,
		identity:   identity,
		articles:   articles,
		categories: categories,
		auth:       handler.NewAuthHandler(identity, session, logger),
		profile:    handler.NewProfileHandler(identity, session, logger),
		article:    handler.NewArticleHandler(articles, logger),
		comment:    handler.NewCommentHandler(service.NewCommentService(db, db, logger), logger),
		like:       handler.NewLikeHandler(service.NewLikeService(db, db, logger), logger),
		user:       handler.NewUserHandler(service.NewProfileService(db, db, logger), logger),
		category:   handler.NewCategoryHandler(categories, logger),
	}
}

// signUp registers username and returns the claims of a fresh session.
func (e *testEnv) signUp(t *testing.T, username string) *auth.Claims {
	t.Helper()
	ctx := context.Background()
	_, err := e.identity.Register(ctx, service.RegisterInput{
		Name:     "User " + username,
		Email:    username + "@example.com",
		Password: "password123",
		Username: username,
	})
	require.NoError(t, err)

	result, err := e.identity.Login(ctx, username+"@example.com", "password123")
	require.NoError(t, err)
	claims, err := e.tokens.Parse(result.Token)
	require.NoError(t, err)
	return claims
}

// postArticle creates an article through the handler and returns its ID.
func (e *testEnv) postArticle(t *testing.T, claims *auth.Claims, title string, publish bool) string {
	t.Helper()
	body := `{"title":"` + title + `","content":"Some **markdown**","publish":` + boolString(publish) + `}`
	rr := call(e.article.HandleCreate, http.MethodPost, "/api/articles", body, claims)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out.ID
}

// call runs h against a request built from the arguments. pathValues are
// name/value pairs standing in for the router's path parameters.
func call(h http.HandlerFunc, method, target, body string, claims *auth.Claims, pathValues ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}

	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookie)
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/markdown"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================
//
// memStore implements every repository interface with maps behind one
// mutex. It mirrors the SQLite store's contracts (Conflict on duplicates,
// NotFound on missing rows, compare-and-set likes) so services can be
// tested without a database.

type memStore struct {
	mu sync.Mutex

	seq        int
	base       time.Time
	users      map[string]*model.User
	articles   map[string]*model.Article
	comments   map[string]*model.Comment
	likes      map[string]*model.Like
	categories map[string]*model.Category
	links      map[string]string // article id → category id

	// injected failures
	listErr error
}

var (
	_ repository.UserRepository     = (*memStore)(nil)
	_ repository.ArticleRepository  = (*memStore)(nil)
	_ repository.CommentRepository  = (*memStore)(nil)
	_ repository.LikeRepository     = (*memStore)(nil)
	_ repository.CategoryRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		base:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:      map[string]*model.User{},
		articles:   map[string]*model.Article{},
		comments:   map[string]*model.Comment{},
		likes:      map[string]*model.Like{},
		categories: map[string]*model.Category{},
		links:      map[string]string{},
	}
}

// next returns a fresh id and a timestamp one second after the previous.
func (m *memStore) next(prefix string) (string, time.Time) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.base.Add(time.Duration(m.seq) * time.Second)
}

// --- users ---

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperror.Conflict("email", "email is already taken")
		}
		if existing.Username == u.Username {
			return apperror.Conflict("username", "username is already taken")
		}
	}
	u.ID, u.CreatedAt = m.next("user")
	u.UpdatedAt = u.CreatedAt
	if u.Status == 0 {
		u.Status = model.StatusActive
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *memStore) findUser(match func(*model.User) bool, key string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.ID == id }, id)
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Email == email }, email)
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Username == username }, username)
}

func (m *memStore) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	_, err := m.findUser(func(u *model.User) bool { return u.Email == email && u.ID != excludeID }, email)
	return err == nil, nil
}

func (m *memStore) UsernameTaken(_ context.Context, username, excludeID string) (bool, error) {
	_, err := m.findUser(func(u *model.User) bool { return u.Username == username && u.ID != excludeID }, username)
	return err == nil, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored.Name, stored.Username, stored.Bio = u.Name, u.Username, u.Bio
	return nil
}

func (m *memStore) UpdateUserPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.PasswordHash = hash
	return nil
}

// --- articles ---

func (m *memStore) CreateArticle(_ context.Context, a *model.Article, categoryID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID, a.CreatedAt = m.next("article")
	a.UpdatedAt = a.CreatedAt
	stored := *a
	m.articles[a.ID] = &stored
	m.link(a.ID, categoryID)
	return nil
}

// readModel copies a stored article and fills the joined fields. Caller
// holds the lock.
func (m *memStore) readModel(a *model.Article) model.Article {
	result := *a
	if u, ok := m.users[a.AuthorID]; ok {
		result.Author = &model.Author{ID: u.ID, Name: u.Name, Username: u.Username}
	}
	if catID, ok := m.links[a.ID]; ok {
		if c, ok := m.categories[catID]; ok && c.Status == model.StatusActive {
			cat := *c
			result.Category = &cat
		}
	}
	result.LikeCount = m.countActive(a.ID)
	return result
}

func (m *memStore) GetArticle(_ context.Context, id string) (*model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, apperror.NotFound("article", id)
	}
	result := m.readModel(a)
	return &result, nil
}

func (m *memStore) UpdateArticle(_ context.Context, a *model.Article, from model.ArticleStatus, categoryID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.articles[a.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Title, stored.Subtitle, stored.Content, stored.Status = a.Title, a.Subtitle, a.Content, a.Status
	m.link(a.ID, categoryID)
	return true, nil
}

func (m *memStore) SetArticleStatus(_ context.Context, id string, from, to model.ArticleStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.articles[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

// link applies a category change. Caller holds the lock.
func (m *memStore) link(articleID string, categoryID *string) {
	switch {
	case categoryID == nil:
	case *categoryID == "":
		delete(m.links, articleID)
	default:
		m.links[articleID] = *categoryID
	}
}

func (m *memStore) sortedArticles(match func(*model.Article) bool) []model.Article {
	result := []model.Article{}
	for _, a := range m.articles {
		if match(a) {
			result = append(result, m.readModel(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (m *memStore) ListPublished(_ context.Context, opts repository.ListOptions) ([]model.Article, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	all := m.sortedArticles(func(a *model.Article) bool { return a.Status == model.ArticlePublished })
	total := len(all)
	if opts.Offset >= total {
		return []model.Article{}, total, nil
	}
	all = all[opts.Offset:]
	if opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, total, nil
}

func (m *memStore) ListByAuthor(_ context.Context, authorID string, statuses []model.ArticleStatus) ([]model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedArticles(func(a *model.Article) bool {
		if a.AuthorID != authorID {
			return false
		}
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}), nil
}

// --- comments ---

func (m *memStore) CreateComment(_ context.Context, c *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID, c.CreatedAt = m.next("comment")
	if u, ok := m.users[c.AuthorID]; ok {
		c.AuthorName = u.Name
	}
	stored := *c
	m.comments[c.ID] = &stored
	return nil
}

func (m *memStore) ListActiveComments(_ context.Context, articleID string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.Comment{}
	for _, c := range m.comments {
		if c.ArticleID == articleID && c.Status.IsActive() {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- likes ---

func likeKey(userID, articleID string) string { return userID + "/" + articleID }

func (m *memStore) GetLike(_ context.Context, userID, articleID string) (*model.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.likes[likeKey(userID, articleID)]
	if !ok {
		return nil, apperror.NotFound("like", likeKey(userID, articleID))
	}
	result := *l
	return &result, nil
}

func (m *memStore) CreateLike(_ context.Context, l *model.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := likeKey(l.UserID, l.ArticleID)
	if _, ok := m.likes[key]; ok {
		return apperror.Conflict("like", "like already exists")
	}
	l.ID, l.CreatedAt = m.next("like")
	l.UpdatedAt = l.CreatedAt
	stored := *l
	m.likes[key] = &stored
	return nil
}

func (m *memStore) SetLikeStatus(_ context.Context, id string, from, to model.ModerationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.likes {
		if l.ID == id {
			if l.Status != from {
				return false, nil
			}
			l.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) countActive(articleID string) int {
	n := 0
	for _, l := range m.likes {
		if l.ArticleID == articleID && l.Status.IsActive() {
			n++
		}
	}
	return n
}

func (m *memStore) CountActiveLikes(_ context.Context, articleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countActive(articleID), nil
}

// --- categories ---

func (m *memStore) ListActiveCategories(_ context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.Category{}
	for _, c := range m.categories {
		if c.Status == model.StatusActive {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memStore) GetActiveCategory(_ context.Context, id string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.Status != model.StatusActive {
		return nil, apperror.NotFound("category", id)
	}
	result := *c
	return &result, nil
}

func (m *memStore) EnsureCategory(_ context.Context, name string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == name {
			result := *c
			return &result, nil
		}
	}
	id, _ := m.next("category")
	c := &model.Category{ID: id, Name: name, Status: model.StatusActive}
	m.categories[id] = c
	result := *c
	return &result, nil
}

// =========================================================================
// FIXTURES
// =========================================================================

const testSecret = "test-secret-0123456789"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, 0)
	require.NoError(t, err)
	return tokens
}

// services bundles every service over one store.
type services struct {
	identity   *IdentityService
	articles   *ArticleService
	likes      *LikeService
	comments   *CommentService
	profiles   *ProfileService
	categories *CategoryService
	tokens     *auth.TokenService
}

type fullStore interface {
	repository.UserRepository
	repository.ArticleRepository
	repository.CommentRepository
	repository.LikeRepository
	repository.CategoryRepository
}

func newServices(t *testing.T, store fullStore) *services {
	t.Helper()
	logger := newTestLogger()
	tokens := newTestTokens(t)
	return &services{
		identity:   NewIdentityService(store, tokens, auth.NewPasswordService(bcrypt.MinCost), logger),
		articles:   NewArticleService(store, store, markdown.New(), logger),
		likes:      NewLikeService(store, store, logger),
		comments:   NewCommentService(store, store, logger),
		profiles:   NewProfileService(store, store, logger),
		categories: NewCategoryService(store, logger),
		tokens:     tokens,
	}
}

// register creates an account and returns its caller.
func (s *services) register(t *testing.T, username string) access.Caller {
	t.Helper()
	user, err := s.identity.Register(context.Background(), RegisterInput{
		Name:     "User " + username,
		Email:    username + "@example.com",
		Password: "password123",
		Username: username,
	})
	require.NoError(t, err)
	return access.Caller{UserID: user.ID, Email: user.Email, Name: user.Name, Username: user.Username}
}

func (s *services) publish(t *testing.T, caller access.Caller, title string, publish bool) *model.Article {
	t.Helper()
	article, err := s.articles.Create(context.Background(), caller, CreateArticleInput{
		Title:   title,
		Content: "Body of **" + title + "**",
		Publish: publish,
	})
	require.NoError(t, err)
	return article
}

func ptr[T any](v T) *T { return &v }

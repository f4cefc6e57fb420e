// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes to the database
//
// Every operation takes the acting access.Caller explicitly. Nothing in this
// package reads identity from a context or a global.
//
// Services depend on repository interfaces, never on *sqlite.DB, so tests
// run against in-memory fakes (see fakes_test.go).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/xid"
	"golang.org/x/text/unicode/norm"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 2
	MaxBioLength      = 160

	// derivedUsernameAttempts bounds the random-suffix retries when a
	// username derived from an email collides.
	derivedUsernameAttempts = 5
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9_]`)
)

// errInvalidCredentials is the single error for unknown email, wrong
// password and inactive account, so callers cannot tell which one it was.
func errInvalidCredentials() error {
	return apperror.Unauthenticated("invalid email or password")
}

// RegisterInput is the payload for Register. Username is optional.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// ProfileInput is the payload for UpdateProfile. Nil pointers leave the
// field unchanged; Name is always required.
type ProfileInput struct {
	Name     string  `json:"name"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// IdentityService owns accounts and credentials.
//
// DEPENDENCIES (injected via NewIdentityService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → sign session tokens
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type IdentityService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// suffix generates the tail for derived usernames that collide.
	suffix func() string
}

func NewIdentityService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		suffix:    randomToken,
	}
}

// Register creates an Active account.
//
// VALIDATION ORDER:
// name → email present → email format → password length → username shape.
// Then email uniqueness is checked before username uniqueness, so a request
// that collides on both reports the email.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	supplied := strings.TrimSpace(in.Username) != ""

	var username string
	if supplied {
		username = Slugify(in.Username)
	} else {
		username = deriveUsername(email)
	}

	if name == "" {
		return nil, apperror.ValidationFailed("name", "full name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "invalid email format")
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	emailTaken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if emailTaken {
		return nil, apperror.Conflict("email", "an account with this email already exists")
	}

	username, err = s.availableUsername(ctx, username, supplied)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		Status:       model.StatusActive,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent registration can win the race between the check
		// and the insert; the store reports that as a Conflict already.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// availableUsername returns username if free. A supplied username that is
// taken is a Conflict; a derived one gets a random suffix instead.
func (s *IdentityService) availableUsername(ctx context.Context, username string, supplied bool) (string, error) {
	candidate := username
	for attempt := 0; attempt <= derivedUsernameAttempts; attempt++ {
		taken, err := s.users.UsernameTaken(ctx, candidate, "")
		if err != nil {
			return "", fmt.Errorf("checking username: %w", err)
		}
		if !taken {
			if err := validateUsername(candidate); err != nil {
				return "", err
			}
			return candidate, nil
		}
		if supplied {
			return "", apperror.Conflict("username", "username is already taken")
		}
		candidate = username + "_" + s.suffix()
	}
	return "", apperror.Conflict("username", "could not find a free username, please choose one")
}

// Authenticate checks credentials against Active users only.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user.Status != model.StatusActive {
		return nil, errInvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, errInvalidCredentials()
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return result, nil
}

// Me returns the caller's current, active account.
func (s *IdentityService) Me(ctx context.Context, caller access.Caller) (*model.User, error) {
	if err := access.RequireCaller(caller); err != nil {
		return nil, err
	}
	return s.activeUser(ctx, caller.UserID)
}

// ChangePassword re-verifies the current password, stores the new hash and
// re-issues the session.
func (s *IdentityService) ChangePassword(ctx context.Context, caller access.Caller, current, next string) (*AuthResult, error) {
	if err := access.RequireCaller(caller); err != nil {
		return nil, err
	}
	if current == "" {
		return nil, apperror.ValidationFailed("currentPassword", "current password is required")
	}
	if err := validatePassword("newPassword", next); err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		return nil, apperror.Unauthenticated("current password is incorrect")
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("updating password: %w", err)
	}
	user.PasswordHash = hash

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	return s.issue(user)
}

// UpdateProfile patches name, username and bio, then re-issues the session
// so the token's claims match the stored profile.
func (s *IdentityService) UpdateProfile(ctx context.Context, caller access.Caller, in ProfileInput) (*AuthResult, error) {
	if err := access.RequireCaller(caller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	var username string
	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		username = Slugify(*in.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		taken, err := s.users.UsernameTaken(ctx, username, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("checking username: %w", err)
		}
		if taken {
			return nil, apperror.Conflict("username", "username is already taken")
		}
	}

	user, err := s.activeUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if username != "" {
		user.Username = username
	}
	if in.Bio != nil {
		user.Bio = truncateRunes(strings.TrimSpace(*in.Bio), MaxBioLength)
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.String("user_id", user.ID))
	return s.issue(user)
}

func (s *IdentityService) activeUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user.Status != model.StatusActive {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

func (s *IdentityService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Username: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// =========================================================================
// NORMALISATION HELPERS
// =========================================================================

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Slugify turns free text into a username candidate: NFKC-normalise, trim,
// lowercase, collapse whitespace runs to "_", drop anything outside
// [a-z0-9_]. The result may be empty.
func Slugify(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "_")
	return nonSlugChars.ReplaceAllString(s, "")
}

// deriveUsername builds a username from the email's local part. Slugs too
// short to be valid get a random token appended.
func deriveUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	slug := Slugify(local)
	if slug == "" {
		return "user" + randomToken()
	}
	if len(slug) < MinUsernameLength {
		return slug + "_" + randomToken()
	}
	return slug
}

// randomToken returns a short lowercase token. xid's trailing characters
// encode its randomly seeded counter, so consecutive calls differ.
func randomToken() string {
	id := xid.New().String()
	return id[len(id)-6:]
}

func validatePassword(field, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) || len(username) < MinUsernameLength {
		return apperror.ValidationFailed("username",
			"username must be 2+ characters, letters, numbers, underscores only")
	}
	return nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

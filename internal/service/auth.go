package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/learnhub/internal/models"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/util"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 128

	msgInvalidCredentials = "Invalid email or password"
	msgInvalidRefresh     = "Invalid refresh token"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
}

type TokenIssuer interface {
	IssuePair(id tokens.Identity) (*tokens.Pair, error)
	VerifyRefreshToken(token string) (*tokens.Claims, error)
}

type AuthService struct {
	Users            UserStore
	Hasher           PasswordHasher
	Tokens           TokenIssuer
	Events           mykafka.Publisher
	AllowAdminSignup bool
	Now              func() time.Time
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	Pair *tokens.Pair
	User *models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func identityOf(u *models.User) tokens.Identity {
	return tokens.Identity{ID: u.ID.String(), Email: u.Email, Role: u.Role}
}

func checkPasswordLength(password string) *apperr.FieldError {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLen:
		return &apperr.FieldError{Field: "password", Message: "Password must be at least 6 characters long"}
	case utf8.RuneCountInString(password) > maxPasswordLen:
		return &apperr.FieldError{Field: "password", Message: "Password must be less than 128 characters"}
	}
	return nil
}

// issue mints a pair and stores the refresh token in the user's single slot,
// superseding whatever was there.
func (s *AuthService) issue(ctx context.Context, u *models.User) (*tokens.Pair, error) {
	pair, err := s.Tokens.IssuePair(identityOf(u))
	if err != nil {
		return nil, apperr.Internal("cannot issue tokens", err)
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return nil, apperr.Internal("cannot store refresh token", err)
	}
	u.RefreshToken = &pair.RefreshToken
	return pair, nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	var fields []apperr.FieldError
	name := util.SanitizeString(in.Name)
	if name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "Name is required"})
	} else if utf8.RuneCountInString(name) > 100 {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "Name must be less than 100 characters"})
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if fe := checkPasswordLength(in.Password); fe != nil {
		fields = append(fields, *fe)
	}
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !models.ValidRole(role) {
		fields = append(fields, apperr.FieldError{Field: "role", Message: "Invalid role. Must be student, instructor, or admin"})
	}
	if len(fields) > 0 {
		l.Warn("signup_error", "status", 400, "reason", "validation failed")
		return nil, apperr.Validation("Validation failed", fields...)
	}

	if role == models.RoleAdmin && !s.AllowAdminSignup {
		l.Warn("signup_error", "status", 403, "reason", "admin signup disabled")
		return nil, apperr.Forbidden("Admin accounts cannot be created through signup")
	}

	duplicate := apperr.Conflict("User already exists with that email").WithStatus(400)
	if _, err := s.Users.GetUserByEmail(ctx, email); err == nil {
		l.Warn("signup_error", "status", 400, "reason", "email taken")
		return nil, duplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("signup_error", "status", 500, "reason", "cannot look up user", "error", err)
		return nil, apperr.Internal("cannot look up user", err)
	}

	pwHash, err := s.Hasher.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperr.Internal("cannot hash the password", err)
	}

	u := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		CreatedAt:    nowOr(s.Now),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_error", "status", 400, "reason", "email taken concurrently")
			return nil, duplicate.Wrap(err)
		}
		l.Error("signup_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, apperr.Internal("cannot create user", err)
	}

	pair, err := s.issue(ctx, u)
	if err != nil {
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, u.ID.String(), Event{
		Type: EventUserSignedUp, At: u.CreatedAt, UserID: u.ID.String(), Email: u.Email, Role: u.Role,
	})
	l.Info("signup_success", "user_id", u.ID.String(), "role", u.Role)
	return &AuthResult{Pair: pair, User: u}, nil
}

// Login answers "no such user" and "wrong password" identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, apperr.Validation("Please provide email and password")
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, apperr.Unauthorized(msgInvalidCredentials)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperr.Internal("cannot look up user", err)
	}
	if u.PasswordHash == "" || !s.Hasher.CheckPassword(u.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "bad password", "user_id", u.ID.String())
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	pair, err := s.issue(ctx, u)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	l.Info("login_success", "user_id", u.ID.String())
	return &AuthResult{Pair: pair, User: u}, nil
}

// Refresh rotates the pair. The presented token must still occupy the
// user's slot; two concurrent refreshes with the same token may both pass
// and the later write wins.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, apperr.Validation("Refresh token is required")
	}

	claims, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "verify", "error", err)
		return nil, apperr.Unauthorized("Invalid or expired refresh token").Wrap(err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidRefresh).Wrap(err)
	}
	u, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "user gone")
			return nil, apperr.Unauthorized(msgInvalidRefresh)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, apperr.Internal("cannot look up user", err)
	}
	if u.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(refreshToken)) != 1 {
		l.Warn("refresh_failed", "status", 401, "reason", "superseded", "user_id", u.ID.String())
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}

	pair, err := s.issue(ctx, u)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	l.Info("refresh_success", "user_id", u.ID.String())
	return pair, nil
}

// Logout clears the stored refresh token. Repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperr.Unauthorized("Invalid token").Wrap(err)
	}
	if err := s.Users.SetRefreshToken(ctx, id, nil); err != nil {
		return apperr.Internal("cannot clear refresh token", err)
	}
	logging.FromContext(ctx).Info("logout_success", "svc", "auth.logout", "user_id", userID)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token").Wrap(err)
	}
	u, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("cannot look up user", err)
	}
	return u, nil
}

// ForgotPassword never reveals whether the address is registered. No reset
// token is stored or mailed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Please provide a valid email address")
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		l.Info("password_reset_requested", "user_id", u.ID.String())
	case errors.Is(err, gorm.ErrRecordNotFound):
		l.Info("password_reset_requested", "reason", "unknown email")
	default:
		l.Error("password_reset_error", "status", 500, "error", err)
		return apperr.Internal("cannot look up user", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(_ context.Context, token, password string) error {
	if token == "" || password == "" {
		return apperr.Validation("Token and password are required")
	}
	if fe := checkPasswordLength(password); fe != nil {
		return apperr.Validation(fe.Message, *fe)
	}
	return apperr.NotImplemented("Password reset is not available yet")
}

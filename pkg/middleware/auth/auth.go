package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"

	RoleAdmin = "admin"
)

// AccessVerifier is the part of the token service the middleware needs.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*tokens.Claims, error)
}

type Authenticator struct {
	Tokens AccessVerifier
}

func NewAuthenticator(v AccessVerifier) *Authenticator {
	return &Authenticator{Tokens: v}
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth verifies the bearer access token and stores the caller's
// identity on the echo context. It runs on every request; nothing is cached.
func (a *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return apperr.Unauthorized("No token provided, authorization denied")
		}

		claims, err := a.Tokens.VerifyAccessToken(token)
		if err != nil {
			l := logging.FromContext(c.Request().Context())
			if errors.Is(err, tokens.ErrTokenExpired) {
				l.Info("auth_rejected", "status", 401, "reason", "expired")
				return apperr.Unauthorized("Token has expired").Wrap(err)
			}
			l.Warn("auth_rejected", "status", 401, "reason", "invalid", "error", err)
			return apperr.Unauthorized("Invalid token").Wrap(err)
		}

		setIdentity(c, claims.Identity())
		return next(c)
	}
}

func setIdentity(c echo.Context, id tokens.Identity) {
	c.Set(CtxUserID, id.ID)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxRole, id.Role)
}

// Identity returns the authenticated caller, if RequireAuth ran.
func Identity(c echo.Context) (tokens.Identity, bool) {
	id, _ := c.Get(CtxUserID).(string)
	if id == "" {
		return tokens.Identity{}, false
	}
	email, _ := c.Get(CtxEmail).(string)
	role, _ := c.Get(CtxRole).(string)
	return tokens.Identity{ID: id, Email: email, Role: role}, true
}

func RequireRole(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" {
				return apperr.Unauthorized("Authentication required")
			}
			if !slices.Contains(allowed, role) {
				return apperr.Forbidden("Access denied. Required role: " + strings.Join(allowed, " or "))
			}
			return next(c)
		}
	}
}

// OwnerResolver derives the id of the user owning the addressed resource.
type OwnerResolver func(c echo.Context) (string, error)

// RequireOwnershipOrAdmin admits admins and the resource owner. Typed
// resolver errors (e.g. not found) keep their status; anything else is a 500.
func RequireOwnershipOrAdmin(resolve OwnerResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := Identity(c)
			if !ok {
				return apperr.Unauthorized("Authentication required")
			}
			if caller.Role == RoleAdmin {
				return next(c)
			}

			ownerID, err := resolve(c)
			if err != nil {
				if _, typed := apperr.As(err); typed {
					return err
				}
				logging.FromContext(c.Request().Context()).Error("ownership_check_error", "status", 500, "error", err)
				return apperr.Internal("Error checking resource ownership", err)
			}

			if ownerID != "" && ownerID == caller.ID {
				return next(c)
			}
			return apperr.Forbidden("Access denied. You can only access your own resources.")
		}
	}
}

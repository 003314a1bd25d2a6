package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/internal/transport"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	middleware "github.com/Skotchmaster/learnhub/pkg/middleware/auth"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func caller(c echo.Context) (tokens.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return tokens.Identity{}, apperr.Unauthorized("Authentication required")
	}
	return id, nil
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	l := handlerLogger(c, "auth.signup")

	var req transport.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "signup_error", err)
	}

	res, err := h.Svc.Signup(c.Request().Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return failed(l, "signup_error", err)
	}

	return c.JSON(http.StatusCreated, transport.OK("User registered successfully", transport.AuthData{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		User:         transport.NewUserView(res.User, false),
	}))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	l := handlerLogger(c, "auth.login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "login_error", err)
	}

	res, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return failed(l, "login_error", err)
	}

	return c.JSON(http.StatusOK, transport.OK("Login successful", transport.AuthData{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		User:         transport.NewUserView(res.User, false),
	}))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	l := handlerLogger(c, "auth.refresh")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "refresh_error", err)
	}

	pair, err := h.Svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return failed(l, "refresh_error", err)
	}

	return c.JSON(http.StatusOK, transport.OK("Token refreshed successfully", transport.AuthData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	l := handlerLogger(c, "auth.logout")

	who, err := caller(c)
	if err != nil {
		return failed(l, "logout_error", err)
	}
	if err := h.Svc.Logout(c.Request().Context(), who.ID); err != nil {
		return failed(l, "logout_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Logged out successfully", nil))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	l := handlerLogger(c, "auth.me")

	who, err := caller(c)
	if err != nil {
		return failed(l, "me_error", err)
	}
	u, err := h.Svc.Me(c.Request().Context(), who.ID)
	if err != nil {
		return failed(l, "me_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("User retrieved successfully", transport.UserData{
		User: transport.NewUserView(u, true),
	}))
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	l := handlerLogger(c, "auth.forgot_password")

	var req transport.ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "forgot_password_error", err)
	}
	if err := h.Svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return failed(l, "forgot_password_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("If an account exists with that email, a password reset link has been sent", nil))
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	l := handlerLogger(c, "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return failed(l, "reset_password_error", err)
	}
	if err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return failed(l, "reset_password_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Password has been reset", nil))
}

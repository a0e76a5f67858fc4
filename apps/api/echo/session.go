package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
)

type sessionApi struct {
	tokens   tokenIssuer
	mgr      *session.Manager
	validate *validator.Validate
	logger   core.Logger
}

func registerSessionAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	tokens tokenIssuer,
	mgr *session.Manager,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := sessionApi{
		tokens:   tokens,
		mgr:      mgr,
		validate: validate,
		logger:   logger,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login` & `/password-reset`
	ag.POST("/login", api.login)
	ag.GET("/session", api.retrieve)
	ag.POST("/password-reset", api.resetPassword)

	// authed endpoints
	ag.POST("/logout", api.logout, authed...)
}

// Handlers

func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sid, m, res := api.mgr.Login(ctx.Request().Context(), data.Email, data.Password)
	if !res.Success {
		var authErr *core.AuthError
		if errors.As(res.Err, &authErr) {
			return echo.NewHTTPError(http.StatusBadRequest, authErr.Error())
		}
		return errors.Wrap(res.Err, "logging in")
	}

	claims := api.tokens.claims(sid, m)
	token, err := api.tokens.GenerateToken(claims)
	if err != nil {
		api.abandon(ctx.Request().Context(), sid)
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		UserID:  claims.Subject,
		Email:   claims.Email,
		Roles:   claims.Roles,
		IsAdmin: claims.IsAdmin,
	})
}

// abandon releases a console session the client never got a token for.
func (api *sessionApi) abandon(ctx context.Context, sid string) {
	if err := api.mgr.Logout(ctx, sid); err != nil {
		api.logger.Warn(fmt.Sprintf("signing out session without token: %v", err), err)
		api.mgr.Drop(sid)
	}
}

func (api *sessionApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.mgr.Logout(ctx.Request().Context(), claims.SessionID); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// retrieve describes the console session of the request token, if any.
func (api *sessionApi) retrieve(ctx echo.Context) error {
	anonymous := SessionResponse{Roles: []string{}}

	raw := strings.TrimPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if raw == "" {
		return ctx.JSON(http.StatusOK, anonymous)
	}
	claims, err := api.tokens.parse(raw)
	if err != nil {
		return ctx.JSON(http.StatusOK, anonymous)
	}
	m, err := api.mgr.Get(claims.SessionID)
	if err != nil {
		return ctx.JSON(http.StatusOK, anonymous)
	}
	sess, ok := m.Session()
	if !ok {
		return ctx.JSON(http.StatusOK, anonymous)
	}

	return ctx.JSON(http.StatusOK, SessionResponse{
		Authenticated: true,
		UserID:        sess.UserID,
		Email:         sess.Email,
		Roles:         m.Roles(),
		IsAdmin:       m.IsAdmin(),
		ExpiresAt:     &sess.ExpiresAt,
	})
}

func (api *sessionApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.mgr.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.logger.Warn(fmt.Sprintf("requesting password reset: %v", err), err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string   `json:"token"`
		UserID  string   `json:"user_id"`
		Email   string   `json:"email"`
		Roles   []string `json:"roles"`
		IsAdmin bool     `json:"is_admin"`
	}

	SessionResponse struct {
		Authenticated bool       `json:"authenticated"`
		UserID        string     `json:"user_id,omitempty"`
		Email         string     `json:"email,omitempty"`
		Roles         []string   `json:"roles"`
		IsAdmin       bool       `json:"is_admin"`
		ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = strings.ToLower(core.CleanString(lr.Email))
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = strings.ToLower(core.CleanString(pr.Email))
	return validate.Struct(pr)
}

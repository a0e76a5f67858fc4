package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
)

const (
	contextTokenKey   = "userToken"
	contextMachineKey = "machine"
	tokenAudience     = "Console"
)

// Claims represents the authorization claims transmitted via a console JWT.
// The token only points at a console session: roles are read from the session itself on every request.
type Claims struct {
	jwt.StandardClaims
	SessionID string   `json:"sid"`
	Email     string   `json:"email,omitempty"`
	IsAdmin   bool     `json:"is_admin,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

type tokenIssuer struct {
	key     []byte
	issuer  string
	expires time.Duration
}

func newTokenIssuer(conf *core.Config) tokenIssuer {
	return tokenIssuer{
		key:     []byte(conf.SecretKey),
		issuer:  conf.AppName,
		expires: conf.Server.JWTExpirationDelta,
	}
}

func (ti tokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (ti tokenIssuer) claims(sessionID string, m *session.Machine) *Claims {
	now := time.Now()
	sess, _ := m.Session()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   sess.UserID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.expires).Unix(),
			IssuedAt:  now.Unix(),
		},
		SessionID: sessionID,
		Email:     sess.Email,
		IsAdmin:   m.IsAdmin(),
		Roles:     m.Roles(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (ti tokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parse validates a token outside of the JWT middleware.
func (ti tokenIssuer) parse(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return ti.key, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextMachine(ctx echo.Context) (*session.Machine, error) {
	if m, ok := ctx.Get(contextMachineKey).(*session.Machine); ok {
		return m, nil
	}
	return nil, errMachineNotInCtx
}

// sessionMiddleware loads the console session of the token. Requests made downstream act as its user.
func sessionMiddleware(mgr *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			m, err := mgr.Get(claims.SessionID)
			if err != nil {
				return errSessionExpired
			}
			sess, ok := m.Session()
			if !ok {
				return errSessionExpired
			}

			ctx.Set(contextMachineKey, m)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(session.NewContext(req.Context(), sess)))
			return next(ctx)
		}
	}
}

func contextLogUser(ctx echo.Context) core.LogUser {
	if m, err := getContextMachine(ctx); err == nil {
		if sess, ok := m.Session(); ok {
			return core.LogUser{ID: sess.UserID, Email: sess.Email}
		}
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return core.LogUser{ID: claims.Subject, Email: claims.Email}
	}
	return core.LogUser{}
}

package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/student"
)

const (
	sessionName       = "unireg-session"
	sessionStudentKey = "student_id"

	contextStudentKey = "student"
	contextClaimsKey  = "claims"

	tokenAudience = "Students"
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	EnrollmentNo string `json:"enrollment_no,omitempty"`
}

// sessionManager resolves the identity behind a request, from the session cookie or a bearer token.
type sessionManager struct {
	conf  *core.Config
	store sessions.Store
	svc   student.Service
}

func newSessionManager(conf *core.Config, svc student.Service) *sessionManager {
	store := sessions.NewCookieStore([]byte(conf.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Server.SessionMaxAge.Seconds()),
		Secure:   conf.Server.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionManager{conf: conf, store: store, svc: svc}
}

func (m *sessionManager) studentClaims(std student.Student, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 && origIat[0] > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    m.conf.AppName,
			Subject:   std.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(m.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        std.Email,
		EnrollmentNo: std.EnrollmentNo,
	}
}

// generateToken generates a signed JWT token string representing the student Claims.
func (m *sessionManager) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	ss, err := token.SignedString([]byte(m.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (m *sessionManager) parseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(m.conf.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// startSession stores the student in the session cookie and returns a fresh bearer token.
func (m *sessionManager) startSession(ctx echo.Context, std student.Student) (string, error) {
	// a cookie that fails to decode still yields a new session
	sess, _ := m.store.Get(ctx.Request(), sessionName)
	sess.Values[sessionStudentKey] = std.ID
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		return "", errors.Wrap(err, "saving session")
	}
	ctx.Set(contextStudentKey, std)
	return m.generateToken(m.studentClaims(std))
}

// endSession expires the session cookie.
func (m *sessionManager) endSession(ctx echo.Context) error {
	sess, _ := m.store.Get(ctx.Request(), sessionName)
	delete(sess.Values, sessionStudentKey)
	sess.Options.MaxAge = -1
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "saving session")
}

func (m *sessionManager) lookup(ctx echo.Context, id string) (student.Student, bool, error) {
	std, err := m.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, false, nil
		}
		return student.Student{}, false, errors.Wrap(err, "finding student by ID")
	}
	return std, true, nil
}

func (m *sessionManager) resolve(ctx echo.Context) (student.Student, error) {
	if sess, err := m.store.Get(ctx.Request(), sessionName); err == nil {
		if id, ok := sess.Values[sessionStudentKey].(string); ok && id != "" {
			std, found, err := m.lookup(ctx, id)
			if err != nil || found {
				return std, err
			}
		}
	}

	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if tokenStr := strings.TrimPrefix(auth, "Bearer "); tokenStr != auth && tokenStr != "" {
		claims, err := m.parseToken(tokenStr)
		if err != nil {
			return student.Student{}, errUnauthorized
		}
		std, found, err := m.lookup(ctx, claims.Subject)
		if err != nil || found {
			ctx.Set(contextClaimsKey, *claims)
			return std, err
		}
	}
	return student.Student{}, errUnauthorized
}

// identityMiddleware rejects requests that carry no known student.
func (m *sessionManager) identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		std, err := m.resolve(ctx)
		if err != nil {
			return err
		}
		ctx.Set(contextStudentKey, std)
		return next(ctx)
	}
}

// refreshToken re-issues a token until the refresh period of the original one has elapsed.
func (m *sessionManager) refreshToken(ctx echo.Context) (string, error) {
	std, err := getContextStudent(ctx)
	if err != nil {
		return "", err
	}

	var origIat int64
	if claims, ok := ctx.Get(contextClaimsKey).(Claims); ok {
		expTime := time.Unix(claims.OrigIssuedAt, 0).Add(m.conf.Server.JWTRefreshExpirationDelta)
		if time.Now().After(expTime) {
			return "", errRefreshExpired
		}
		origIat = claims.OrigIssuedAt
	}

	token, err := m.generateToken(m.studentClaims(std, origIat))
	return token, errors.Wrap(err, "generating token")
}

func getContextStudent(ctx echo.Context) (student.Student, error) {
	if std, ok := ctx.Get(contextStudentKey).(student.Student); ok {
		return std, nil
	}
	return student.Student{}, errUnauthorized
}

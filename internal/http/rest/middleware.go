package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwise1/bookgroups/internal/http/backend"
	"github.com/bwise1/bookgroups/internal/session"
	"github.com/bwise1/bookgroups/pkg/logger"
	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"
)

const sessionMaxAge = 30 * 24 * time.Hour

var errTokenExpired = errors.New("token expired")

type TokenClaims struct {
	UserID string
}

// RequestTracing handles the request tracing context. Browsers never send
// X-Request-Source, so it falls back to the default source.
func RequestTracing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		requestSource := r.Header.Get(values.HeaderRequestSource)
		if requestSource == "" {
			requestSource = values.DefaultRequestSource
		}

		requestID := r.Header.Get(values.HeaderRequestID)
		if requestID == "" {
			requestID = cuid.New()
		}
		w.Header().Set(values.HeaderRequestID, requestID)

		ctx := tracing.WithContext(r.Context(), tracing.Context{
			RequestID:     requestID,
			RequestSource: requestSource,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// RequestLogger puts a request-scoped logger in the context and logs every
// completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := tracing.FromContext(r.Context())
		log := zap.L().With(zap.String("request_id", tc.RequestID), zap.String("request_source", tc.RequestSource))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(logger.WithLogger(r.Context(), log)))

		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Sessions loads the UI state of the session cookie, issuing a new session
// when the cookie is missing, and saves it once the handler returns. Requests
// of one session run one at a time. The websocket route only reads the cookie
// and is left out.
func (api *API) Sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		log := logger.FromContext(ctx)

		var id string
		if c, err := r.Cookie(values.SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     values.SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		unlock := api.Deps.Locks.Lock(id)
		defer unlock()

		sess, err := session.Load(ctx, api.Deps.Sessions, id)
		if err != nil {
			log.Error("unable to load session", zap.Error(err))
			sess = session.New(id)
		}

		next.ServeHTTP(w, r.WithContext(session.WithState(ctx, sess)))

		if err := api.Deps.Sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
			log.Error("unable to save session", zap.Error(err))
		}
	})
}

// Authenticate reads the access token from the Authorization header or the
// access_token cookie. A valid token marks the session as authenticated and
// is forwarded on every upstream call; requests without one pass through
// anonymously.
func (api *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, hasSession := session.FromContext(ctx)

		authenticated := false
		if token := accessToken(r); token != "" {
			claims, err := api.verifyToken(token)
			if err != nil {
				logger.FromContext(ctx).Debug("ignoring access token", zap.Error(err))
				ctx = context.WithValue(ctx, values.ContextAuthErrorKey, err)
			} else {
				authenticated = true
				ctx = context.WithValue(ctx, values.ContextUserIDKey, claims.UserID)
				ctx = backend.WithToken(ctx, token)
			}
		}
		if hasSession {
			sess.Authenticated = authenticated
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin rejects anonymous calls to JSON routes. An expired token is
// reported as such so the client can refresh it.
func (api *API) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(values.ContextUserIDKey).(string); !ok {
			if err, _ := r.Context().Value(values.ContextAuthErrorKey).(error); errors.Is(err, errTokenExpired) {
				writeErrorResponse(w, err, values.TokenExpired, "token-expired")
				return
			}
			writeErrorResponse(w, errors.New(values.NotAuthorised), values.NotAuthorised, "not-authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLoginPage sends anonymous visitors of a page to the login page.
func (api *API) RequireLoginPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(values.ContextUserIDKey).(string); !ok {
			http.Redirect(w, r, api.Config.LoginURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SameOrigin rejects form posts sent from another site. The Origin header is
// checked, falling back to Referer for browsers that omit it.
func SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := r.Header.Get("Origin")
		if source == "" {
			source = r.Header.Get("Referer")
		}
		u, err := url.Parse(source)
		if source == "" || err != nil || u.Host != r.Host {
			logger.FromContext(r.Context()).Warn("cross-site form post rejected",
				zap.String("origin", source), zap.String("host", r.Host))
			http.Error(w, "cross-site request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessToken(r *http.Request) string {
	authorization := strings.Split(r.Header.Get("Authorization"), " ")
	if len(authorization) == 2 && authorization[0] == "Bearer" {
		return authorization[1]
	}
	if c, err := r.Cookie(values.AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// verifyToken checks the signature when a JWT secret is configured. Without
// one, and only when AUTH_UNVERIFIED is set, the claims and expiry are checked
// and the upstream API remains the authority on the token.
func (api *API) verifyToken(tokenString string) (*TokenClaims, error) {
	var (
		token *jwt.Token
		err   error
	)
	switch {
	case api.Config.JwtSecret == "" && !api.Config.AuthUnverified:
		return nil, fmt.Errorf("token verification not configured")
	case api.Config.JwtSecret == "":
		token, _, err = new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
		if err == nil {
			err = token.Claims.Valid()
			token.Valid = err == nil
		}
	default:
		token, err = jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(api.Config.JwtSecret), nil
		})
	}

	if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
		return nil, errTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	tokenType, _ := claims["typ"].(string)
	if tokenType != "" && tokenType != "access" {
		return nil, fmt.Errorf("invalid token type")
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("invalid user id")
	}

	return &TokenClaims{UserID: userID}, nil
}

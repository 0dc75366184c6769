package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/user"
	"github.com/xenking/barista-pos/internal/wire"
)

// CookieName is the session cookie set on login and registration.
const CookieName = "auth-token"

type userKey struct{}

// UserFromContext returns the user resolved by the auth middleware.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey{}).(*user.User)
	return u, ok
}

// currentUser is only called behind requireAuth.
func currentUser(r *http.Request) *user.User {
	u, _ := UserFromContext(r.Context())
	return u
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// requireAuth rejects requests without a valid session before any handler
// logic runs and stores the freshly loaded user in the context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.auth.Authenticate(r.Context(), sessionToken(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, u)
		ctx = zctx.With(ctx, zap.String("user_id", u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.crossSite {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.crossSite {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, c)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			req.Email, err = wire.DecodeStr(d, key)
		case "password":
			req.Password, err = wire.DecodeStr(d, key)
		case "name":
			req.Name, err = wire.DecodeStr(d, key)
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, s.Token, h.auth.TokenTTL())
	writeOK(w, http.StatusCreated, "User registered successfully", func(e *jx.Encoder) {
		encodeSession(e, s)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			email, err = wire.DecodeStr(d, key)
		case "password":
			password, err = wire.DecodeStr(d, key)
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, s.Token, h.auth.TokenTTL())
	writeOK(w, http.StatusOK, "Login successful", func(e *jx.Encoder) {
		encodeSession(e, s)
	})
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.clearSessionCookie(w)
	writeOK(w, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeOK(w, http.StatusOK, "User retrieved successfully", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("user", func(e *jx.Encoder) { encodeUser(e, u) })
		})
	})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeOK(w, http.StatusOK, "User is authenticated", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("isAuthenticated", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("user", func(e *jx.Encoder) { encodeUser(e, u) })
		})
	})
}

func encodeUser(e *jx.Encoder, u *user.User) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(u.ID) })
		e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
		e.Field("name", func(e *jx.Encoder) { e.Str(u.Name) })
	})
}

func encodeSession(e *jx.Encoder, s *auth.Session) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("user", func(e *jx.Encoder) { encodeUser(e, s.User) })
		e.Field("token", func(e *jx.Encoder) { e.Str(s.Token) })
	})
}

package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
)

const (
	BackendCookie = "cookie"
	BackendJWT    = "jwt"

	sessionName = "session"
	tokenCookie = "token"
	userIDKey   = "user_id"
)

// Sessions binds requests to an authenticated user id.
type Sessions interface {
	Establish(w http.ResponseWriter, r *http.Request, userID int64) error
	CurrentUser(r *http.Request) (int64, bool)
	Terminate(w http.ResponseWriter, r *http.Request) error
}

// NewSessions builds the backend named by backend.
func NewSessions(backend string, secret []byte, ttl time.Duration) (Sessions, error) {
	switch backend {
	case BackendCookie, "":
		return NewCookieSessions(secret, ttl), nil
	case BackendJWT:
		return NewTokenSessions(secret, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", backend)
	}
}

////////////////////////////////////////////////////////////////////////////////

// CookieSessions keeps the user id in a signed gorilla/sessions cookie.
type CookieSessions struct {
	store *sessions.CookieStore
}

func NewCookieSessions(secret []byte, ttl time.Duration) *CookieSessions {
	s := sessions.NewCookieStore(secret)
	s.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieSessions{store: s}
}

func (c *CookieSessions) Establish(w http.ResponseWriter, r *http.Request, userID int64) error {
	// A cookie that fails to decode still yields a fresh session to write.
	session, _ := c.store.Get(r, sessionName)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

func (c *CookieSessions) CurrentUser(r *http.Request) (int64, bool) {
	session, err := c.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	userID, ok := session.Values[userIDKey].(int64)
	return userID, ok
}

func (c *CookieSessions) Terminate(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.Get(r, sessionName)
	delete(session.Values, userIDKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

////////////////////////////////////////////////////////////////////////////////

// TokenSessions keeps the user id as the subject of an HS256 JWT carried in
// an HttpOnly cookie.
type TokenSessions struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenSessions(secret []byte, ttl time.Duration) *TokenSessions {
	return &TokenSessions{secret: secret, ttl: ttl}
}

func (t *TokenSessions) Establish(w http.ResponseWriter, r *http.Request, userID int64) error {
	now := time.Now()
	expires := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (t *TokenSessions) CurrentUser(r *http.Request) (int64, bool) {
	cookie, err := r.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		return 0, false
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}

func (t *TokenSessions) Terminate(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// Flashes carries one-shot page messages between a redirect and the page it
// lands on.
type Flashes struct {
	store *sessions.CookieStore
}

func NewFlashes(secret []byte) *Flashes {
	s := sessions.NewCookieStore(secret)
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
	}
	return &Flashes{store: s}
}

func (f *Flashes) Add(w http.ResponseWriter, r *http.Request, message string) error {
	session, _ := f.store.Get(r, "flash")
	session.AddFlash(message)
	return session.Save(r, w)
}

// Take returns and clears the pending messages.
func (f *Flashes) Take(w http.ResponseWriter, r *http.Request) []string {
	session, _ := f.store.Get(r, "flash")
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	session.Save(r, w)

	out := make([]string, 0, len(flashes))
	for _, v := range flashes {
		if msg, ok := v.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

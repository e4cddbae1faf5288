package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "view_session"

// SessionTTL is how long a view-session lives after creation.
const SessionTTL = 24 * time.Hour

const sessionCookieName = "feeminton_view"

// Session is an anonymous browser view-session. It anchors the per-browser
// schedule controllers and records whether the organizer passcode was entered.
type Session struct {
	Token     string
	Organizer bool
	CreatedAt time.Time
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a new session and returns it.
// PRE: none
// POST: Session is stored under a fresh random token
func (ss *SessionStore) Create() (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, CreatedAt: ss.now()}
	ss.mu.Lock()
	ss.sessions[token] = sess
	ss.mu.Unlock()
	return sess, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if present and not expired; expired sessions are removed
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(sess.CreatedAt) > SessionTTL {
		ss.Delete(token)
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session by token.
// PRE: token is non-empty
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// SetOrganizer marks a session as unlocked (or locked again).
// PRE: token exists in the store
// POST: Returns false when the session is unknown
func (ss *SessionStore) SetOrganizer(token string, organizer bool) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sess, ok := ss.sessions[token]
	if !ok {
		return false
	}
	sess.Organizer = organizer
	ss.sessions[token] = sess
	return true
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// ViewSession returns middleware that guarantees every request carries a
// session: an existing one from the cookie, or a freshly created one.
func ViewSession(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess Session
			found := false
			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				sess, found = sessions.Get(cookie.Value)
			}
			if !found {
				created, err := sessions.Create()
				if err != nil {
					slog.Error("session_create_failed", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				sess = created
				SetSessionCookie(w, sess.Token)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

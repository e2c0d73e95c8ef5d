package app

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName  = "advisor-session"
	sessionIDKey = "id"
)

// Sessions hands out a stable id per browser through a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
}

func NewSessions(key []byte, ttl time.Duration, secure bool) *Sessions {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// ID returns the session id of r, minting and saving a new one when the
// cookie is missing or fails verification. Call before writing the body.
func (s *Sessions) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// a tampered or expired cookie yields a fresh session plus an error
	sess, _ := s.store.Get(r, sessionName)
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// Lookup reads the id without creating one.
func (s *Sessions) Lookup(r *http.Request) (string, bool) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[sessionIDKey].(string)
	return id, ok && id != ""
}

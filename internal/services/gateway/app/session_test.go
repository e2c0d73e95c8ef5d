package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSessionKey = []byte("0123456789abcdef0123456789abcdef")

func TestSessionIDIsStable(t *testing.T) {
	s := NewSessions(testSessionKey, time.Hour, false)

	rec := httptest.NewRecorder()
	id, err := s.ID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "advisor-session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	again, err := s.ID(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	looked, ok := s.Lookup(req)
	assert.True(t, ok)
	assert.Equal(t, id, looked)
}

func TestTamperedCookieGetsNewSession(t *testing.T) {
	s := NewSessions(testSessionKey, time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "advisor-session", Value: "forged"})

	_, ok := s.Lookup(req)
	assert.False(t, ok)

	rec := httptest.NewRecorder()
	id, err := s.ID(rec, req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEmpty(t, rec.Result().Cookies())
}

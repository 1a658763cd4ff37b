package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"

	"taskflow/internal/model"
)

func testToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	assert.NoError(t, err)
	return token
}

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	assert.NoError(t, err)
	return store
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	session := &Session{
		Token: "some-token",
		User:  model.PublicUser{Name: "Ann Lee", Email: "ann@x.com"},
	}
	assert.NoError(t, store.Save(session))

	loaded, err = store.Load()
	assert.NoError(t, err)
	assert.Equal(t, session, loaded)

	assert.NoError(t, store.Clear())
	loaded, err = store.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	// clearing twice is fine
	assert.NoError(t, store.Clear())
}

func TestSession_Valid(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		valid   bool
	}{
		{"nil session", nil, false},
		{"empty token", &Session{}, false},
		{"garbage token", &Session{Token: "not.a.token"}, false},
		{"expired token", &Session{Token: testToken(t, time.Now().Add(-time.Minute))}, false},
		{"live token", &Session{Token: testToken(t, time.Now().Add(time.Hour))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.session.Valid())
		})
	}
}

func TestClient_LoginAttachesBearerToken(t *testing.T) {
	token := testToken(t, time.Now().Add(time.Hour))

	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Login successful",
			"token":   token,
			"user":    map[string]string{"name": "Ann Lee", "email": "ann@x.com"},
		})
	})
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]model.Task{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL, newTestStore(t))
	assert.NoError(t, err)

	session, err := c.Login("ann@x.com", "secret12")
	assert.NoError(t, err)
	assert.Equal(t, token, session.Token)
	assert.True(t, c.Authenticated())

	_, err = c.ListTasks()
	assert.NoError(t, err)
	assert.Equal(t, "Bearer "+token, gotAuth)
}

func TestClient_SessionSurvivesRestart(t *testing.T) {
	store := newTestStore(t)
	token := testToken(t, time.Now().Add(time.Hour))
	assert.NoError(t, store.Save(&Session{Token: token}))

	c, err := New("http://localhost:0", store)
	assert.NoError(t, err)
	assert.True(t, c.Authenticated())
}

func TestClient_UnauthorizedClearsSessionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Session expired. Please log in again."})
	}))
	defer srv.Close()

	store := newTestStore(t)
	assert.NoError(t, store.Save(&Session{Token: testToken(t, time.Now().Add(time.Hour))}))

	var mu sync.Mutex
	hookCalls := 0
	c, err := New(srv.URL, store, WithLogoutHook(func() {
		mu.Lock()
		hookCalls++
		mu.Unlock()
	}))
	assert.NoError(t, err)

	// several concurrent requests hitting 401 together trigger the hook once
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.ListTasks()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, hookCalls)
	assert.Nil(t, c.Session())

	stored, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestClient_ErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email is already in use"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, newTestStore(t))
	assert.NoError(t, err)

	_, err = c.Signup("Ann Lee", "ann@x.com", "secret12")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "email is already in use", apiErr.Message)
}

func TestClient_ProtectedCallWithoutSession(t *testing.T) {
	c, err := New("http://localhost:0", newTestStore(t))
	assert.NoError(t, err)

	_, err = c.Profile()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

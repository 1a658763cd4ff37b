package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/model"
)

// APIError carries the status and message of a failed API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// ErrNotAuthenticated is returned when a protected call is attempted without
// a valid session.
var ErrNotAuthenticated = &APIError{StatusCode: http.StatusUnauthorized, Message: "not logged in"}

// Client talks to the taskflow API. It attaches the stored session's bearer
// token to protected requests and, on any 401 response, clears the session
// and fires the logout hook exactly once until the next successful login.
type Client struct {
	baseURL string
	http    *http.Client
	store   *SessionStore

	mu        sync.Mutex
	session   *Session
	loggedOut bool
	onLogout  func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogoutHook registers a callback fired once when the session is
// invalidated by a 401 response.
func WithLogoutHook(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

// New builds a Client over the given API base URL and session store. The
// stored session, when present, is picked up so sessions survive restarts.
func New(baseURL string, store *SessionStore, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	session, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.session = session
	return c, nil
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Authenticated reports whether a syntactically valid, unexpired session is held.
func (c *Client) Authenticated() bool {
	return c.Session().Valid()
}

// Logout discards the session locally. The server keeps no session state.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return c.store.Clear()
}

func (c *Client) saveSession(token string, user model.PublicUser) error {
	session := &Session{Token: token, User: user}
	c.mu.Lock()
	c.session = session
	c.loggedOut = false
	c.mu.Unlock()
	return c.store.Save(session)
}

// expireSession clears local state on a 401. The loggedOut flag makes the
// hook single-flight when concurrent requests fail together; it resets on
// the next successful login.
func (c *Client) expireSession() {
	c.mu.Lock()
	alreadyOut := c.loggedOut
	c.loggedOut = true
	c.session = nil
	hook := c.onLogout
	c.mu.Unlock()

	_ = c.store.Clear()
	if !alreadyOut && hook != nil {
		hook()
	}
}

func (c *Client) do(method, path string, body interface{}, authed bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		session := c.Session()
		if session == nil || session.Token == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		if authed && resp.StatusCode == http.StatusUnauthorized {
			c.expireSession()
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// errorMessage pulls the message out of an {"error": ...} or {"message": ...}
// body, falling back to the raw body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}

type sessionResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// Signup registers a new account and stores the returned session.
func (c *Client) Signup(name, email, password string) (*Session, error) {
	var resp sessionResponse
	err := c.do(http.MethodPost, "/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, false, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.saveSession(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return c.Session(), nil
}

// Login authenticates and stores the returned session.
func (c *Client) Login(email, password string) (*Session, error) {
	var resp sessionResponse
	err := c.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.saveSession(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return c.Session(), nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile() (*model.User, error) {
	var user model.User
	if err := c.do(http.MethodGet, "/auth/profile", nil, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfilePatch carries the optional fields of a profile update.
type ProfilePatch struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UpdateProfile applies a partial profile update and refreshes the stored user.
func (c *Client) UpdateProfile(patch ProfilePatch) (*model.PublicUser, error) {
	var resp struct {
		Message string           `json:"message"`
		User    model.PublicUser `json:"user"`
	}
	if err := c.do(http.MethodPut, "/auth/profile", patch, true, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = resp.User
		_ = c.store.Save(c.session)
	}
	c.mu.Unlock()
	return &resp.User, nil
}

// TaskInput carries the fields of a task creation request.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status,omitempty"`
}

// TaskPatch carries the optional fields of a task update.
type TaskPatch struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateTask creates a task for the authenticated user.
func (c *Client) CreateTask(input TaskInput) (*model.Task, error) {
	var resp struct {
		Message string     `json:"message"`
		Task    model.Task `json:"task"`
	}
	if err := c.do(http.MethodPost, "/tasks", input, true, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// ListTasks returns the authenticated user's tasks, due date ascending.
func (c *Client) ListTasks() ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(http.MethodGet, "/tasks", nil, true, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask applies a partial update to one of the user's tasks.
func (c *Client) UpdateTask(id uuid.UUID, patch TaskPatch) (*model.Task, error) {
	var resp struct {
		Message string     `json:"message"`
		Task    model.Task `json:"task"`
	}
	if err := c.do(http.MethodPut, "/tasks/"+id.String(), patch, true, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// DeleteTask removes one of the user's tasks.
func (c *Client) DeleteTask(id uuid.UUID) error {
	return c.do(http.MethodDelete, "/tasks/"+id.String(), nil, true, nil)
}

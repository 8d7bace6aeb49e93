package main

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tweeter/internal/config"
	"tweeter/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Setup a test server with a fresh temp database
func setupTestServer(t *testing.T, backend string) (*httptest.Server, *http.Client) {
	t.Helper()

	store := storagetest.NewStore(t)

	a, err := newApp(&config.Config{
		Session: config.SessionConfig{
			Backend:  backend,
			Secret:   "test-session-secret-0123456789ab",
			TokenTTL: time.Hour,
		},
		Auth:      config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Templates: config.DirConfig{Dir: "templates"},
		Static:    config.DirConfig{Dir: "static"},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(setupRouter(a, store))
	t.Cleanup(ts.Close)

	// Client with cookie jar, follows redirects automatically
	jar, _ := cookiejar.New(nil)
	client := ts.Client()
	client.Jar = jar

	return ts, client
}

// Helper: read response body as string
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

// Helper: register a user
func register(t *testing.T, ts *httptest.Server, client *http.Client, username, password, password2, email string) string {
	t.Helper()
	if password2 == "" {
		password2 = password
	}
	if email == "" {
		email = username + "@example.com"
	}
	resp, err := client.PostForm(ts.URL+"/register", url.Values{
		"username":   {username},
		"password":   {password},
		"password2":  {password2},
		"first_name": {"First"},
		"last_name":  {"Last"},
		"email":      {email},
	})
	require.NoError(t, err)
	return readBody(t, resp)
}

// Helper: login
func login(t *testing.T, ts *httptest.Server, client *http.Client, username, password string) string {
	t.Helper()
	resp, err := client.PostForm(ts.URL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.NoError(t, err)
	return readBody(t, resp)
}

// Helper: GET a page and return the final URL path and body
func getPage(t *testing.T, ts *httptest.Server, client *http.Client, path string) (string, string) {
	t.Helper()
	resp, err := client.Get(ts.URL + path)
	require.NoError(t, err)
	return resp.Request.URL.Path, readBody(t, resp)
}

func TestRegister(t *testing.T) {
	ts, client := setupTestServer(t, "cookie")

	body := register(t, ts, client, "user1", "default-pw", "", "")
	assert.Contains(t, body, "You were successfully registered and can login now")

	body = register(t, ts, client, "user1", "default-pw", "", "")
	assert.Contains(t, body, "The username is already taken")

	body = register(t, ts, client, "", "default-pw", "", "test@example.com")
	assert.Contains(t, body, "username is required")

	body = register(t, ts, client, "meh", "", "", "meh@example.com")
	assert.Contains(t, body, "password is required")

	body = register(t, ts, client, "meh", "password-x", "password-y", "meh@example.com")
	assert.Contains(t, body, "The two passwords do not match")

	body = register(t, ts, client, "meh", "default-pw", "", "broken")
	assert.Contains(t, body, "email must be a valid email address")
}

func TestLoginLogout(t *testing.T) {
	for _, backend := range []string{"cookie", "jwt"} {
		t.Run(backend, func(t *testing.T) {
			ts, client := setupTestServer(t, backend)

			register(t, ts, client, "user1", "default-pw", "", "")
			body := login(t, ts, client, "user1", "default-pw")
			assert.Contains(t, body, "You were logged in")
			assert.Contains(t, body, "Logged in as user1")

			_, body = getPage(t, ts, client, "/logout")
			assert.Contains(t, body, "You were logged out")
			assert.Contains(t, body, "sign in")

			body = login(t, ts, client, "user1", "wrong-password")
			assert.Contains(t, body, "Invalid password")

			body = login(t, ts, client, "user2", "wrong-password")
			assert.Contains(t, body, "Invalid username")
		})
	}
}

func TestProfileRequiresSession(t *testing.T) {
	ts, client := setupTestServer(t, "cookie")

	path, body := getPage(t, ts, client, "/profile")
	assert.Equal(t, "/login", path)
	assert.Contains(t, body, "Sign In")
}

func TestProfileShowsTweets(t *testing.T) {
	ts, client := setupTestServer(t, "cookie")

	register(t, ts, client, "foo", "default-pw", "", "")
	login(t, ts, client, "foo", "default-pw")

	resp, err := client.Get(ts.URL + "/api/v1/user/foo")
	require.NoError(t, err)
	userBody := readBody(t, resp)
	require.Contains(t, userBody, `"user_id":1`)

	for _, msg := range []string{"test message 1", "<test message 2>"} {
		resp, err := client.PostForm(ts.URL+"/api/v1/tweet/", url.Values{
			"message":   {msg},
			"author_id": {"1"},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	path, body := getPage(t, ts, client, "/profile")
	assert.Equal(t, "/profile", path)
	assert.Contains(t, body, "foo@example.com")
	assert.Contains(t, body, "test message 1")
	assert.Contains(t, body, "&lt;test message 2&gt;")
	assert.True(t, strings.Index(body, "test message 2") < strings.Index(body, "test message 1"),
		"newest tweet first")
}

func TestLoggedInUserIsRedirectedFromLogin(t *testing.T) {
	ts, client := setupTestServer(t, "cookie")

	register(t, ts, client, "foo", "default-pw", "", "")
	login(t, ts, client, "foo", "default-pw")

	path, _ := getPage(t, ts, client, "/login")
	assert.Equal(t, "/", path)
	path, _ = getPage(t, ts, client, "/register")
	assert.Equal(t, "/", path)
}

// Package auth runs the login and registration flows on top of the user
// store and binds authenticated users to requests through Sessions.
package auth

import (
	"context"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"tweeter/internal/apperr"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/users"
)

// Registration is the register form: a user creation plus the password
// confirmation.
type Registration struct {
	users.Input
	Password2 string `json:"password2"`
}

type Authenticator struct {
	users    *users.Service
	sessions Sessions
}

func NewAuthenticator(us *users.Service, s Sessions) *Authenticator {
	return &Authenticator{users: us, sessions: s}
}

// Login verifies the credentials and, on a match, establishes a session for
// the user. A rejection is an apperr.KindAuth error; an unknown username is
// rejected like a wrong password, never treated as a failure of the server.
func (a *Authenticator) Login(ctx context.Context, q storage.Querier, w http.ResponseWriter, r *http.Request, username, password string) (int64, error) {
	logger := log.WithFields(log.Fields{
		"caller":   "Authenticator.Login",
		"username": username,
	})

	u, err := a.users.GetByUsername(ctx, q, username)
	if apperr.Is(err, apperr.KindNotFound) {
		logger.Info("login rejected: unknown username")
		return 0, apperr.Auth("Invalid username")
	}
	if err != nil {
		return 0, err
	}
	if !users.CheckPassword(u, password) {
		logger.Info("login rejected: wrong password")
		return 0, apperr.Auth("Invalid password")
	}

	if err := a.sessions.Establish(w, r, u.UserID); err != nil {
		return 0, fmt.Errorf("failed to establish session: %w", err)
	}
	logger.WithField("user_id", u.UserID).Info("login authenticated")
	return u.UserID, nil
}

// Register validates the form and creates the user. It is rejected when the
// confirmation does not match or when the username already exists.
func (a *Authenticator) Register(ctx context.Context, q storage.Querier, reg Registration) (int64, error) {
	if reg.Password != reg.Password2 {
		return 0, apperr.Validation("The two passwords do not match")
	}

	_, err := a.users.GetByUsername(ctx, q, reg.Username)
	switch {
	case err == nil:
		return 0, apperr.Conflict("The username is already taken")
	case !apperr.Is(err, apperr.KindNotFound):
		return 0, err
	}

	id, err := a.users.Create(ctx, q, reg.Input)
	if apperr.Is(err, apperr.KindConflict) {
		return 0, apperr.Conflict("The username is already taken")
	}
	return id, err
}

func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) error {
	return a.sessions.Terminate(w, r)
}

// CurrentUser resolves the request's session to a user. A session pointing
// at a deleted user counts as no session.
func (a *Authenticator) CurrentUser(ctx context.Context, q storage.Querier, r *http.Request) (*models.User, bool) {
	userID, ok := a.sessions.CurrentUser(r)
	if !ok {
		return nil, false
	}
	u, err := a.users.GetByID(ctx, q, userID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			log.WithError(err).WithField("user_id", userID).Warn("failed to resolve session user")
		}
		return nil, false
	}
	return u, true
}

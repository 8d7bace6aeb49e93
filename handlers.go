package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"tweeter/internal/apperr"
	"tweeter/internal/auth"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/users"
)

const profileTweets = 30

// currentUser resolves the session on the request's connection.
func (a *app) currentUser(r *http.Request) (*storage.Conn, *models.User) {
	conn, ok := storage.ConnFrom(r.Context())
	if !ok {
		return nil, nil
	}
	u, _ := a.auth.CurrentUser(r.Context(), conn, r)
	return conn, u
}

// GET /: the tweet form for a logged in user, a login prompt otherwise
func (a *app) indexHandler(w http.ResponseWriter, r *http.Request) {
	_, user := a.currentUser(r)
	a.renderTemplate(w, r, "index.html", user, nil)
}

// GET /profile
func (a *app) profileHandler(w http.ResponseWriter, r *http.Request) {
	conn, user := a.currentUser(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	list, err := a.tweets.ListByAuthor(r.Context(), conn, user.UserID, profileTweets)
	if err != nil {
		log.WithError(err).WithField("user_id", user.UserID).Error("failed to list tweets")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	messages := make([]map[string]any, 0, len(list))
	for _, tw := range list {
		messages = append(messages, map[string]any{
			"tweet_id": tw.TweetID,
			"message":  tw.Message,
		})
	}
	a.renderTemplate(w, r, "profile.html", user, map[string]any{
		"tweets": messages,
	})
}

// GET + POST /login
func (a *app) loginHandler(w http.ResponseWriter, r *http.Request) {
	conn, user := a.currentUser(r)
	if user != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == http.MethodPost {
		username := r.FormValue("username")
		_, err := a.auth.Login(r.Context(), conn, w, r, username, r.FormValue("password"))
		switch {
		case err == nil:
			a.addFlash(w, r, "You were logged in")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		case apperr.Is(err, apperr.KindAuth):
			errorMsg = apperr.Message(err)
		default:
			log.WithError(err).Error("login failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	a.renderTemplate(w, r, "login.html", nil, map[string]any{
		"error":    errorMsg,
		"username": r.FormValue("username"),
	})
}

// GET + POST /register
func (a *app) registerHandler(w http.ResponseWriter, r *http.Request) {
	conn, user := a.currentUser(r)
	if user != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == http.MethodPost {
		_, err := a.auth.Register(r.Context(), conn, auth.Registration{
			Input: users.Input{
				Username:  r.FormValue("username"),
				Password:  r.FormValue("password"),
				FirstName: r.FormValue("first_name"),
				LastName:  r.FormValue("last_name"),
				Email:     r.FormValue("email"),
			},
			Password2: r.FormValue("password2"),
		})
		switch {
		case err == nil:
			a.addFlash(w, r, "You were successfully registered and can login now")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		case apperr.Is(err, apperr.KindValidation), apperr.Is(err, apperr.KindConflict):
			errorMsg = apperr.Message(err)
		default:
			log.WithError(err).Error("registration failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	a.renderTemplate(w, r, "register.html", nil, map[string]any{
		"error":      errorMsg,
		"username":   r.FormValue("username"),
		"first_name": r.FormValue("first_name"),
		"last_name":  r.FormValue("last_name"),
		"email":      r.FormValue("email"),
	})
}

// GET /logout
func (a *app) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(w, r); err != nil {
		log.WithError(err).Warn("failed to terminate session")
	}
	a.addFlash(w, r, "You were logged out")
	http.Redirect(w, r, "/", http.StatusFound)
}

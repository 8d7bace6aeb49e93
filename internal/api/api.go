// Package api serves the /api/v1 JSON resources for tweets and users.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"tweeter/internal/apperr"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/tweets"
	"tweeter/internal/users"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Handler handles HTTP requests for the tweet and user resources.
type Handler struct {
	tweets *tweets.Service
	users  *users.Service
}

func NewHandler(ts *tweets.Service, us *users.Service) *Handler {
	return &Handler{tweets: ts, users: us}
}

// RegisterRoutes mounts the resources under /api/v1 on r. Requests must pass
// through storage.Store.Middleware first.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/tweet/", h.createTweet).Methods(http.MethodPost)
	v1.HandleFunc("/tweet/{id}", h.getTweet).Methods(http.MethodGet)
	v1.HandleFunc("/tweet/{id}", h.updateTweet).Methods(http.MethodPut)
	v1.HandleFunc("/tweet/{id}", h.deleteTweet).Methods(http.MethodDelete)

	v1.HandleFunc("/user/", h.createUser).Methods(http.MethodPost)
	v1.HandleFunc("/user/{ref}", h.getUser).Methods(http.MethodGet)
	v1.HandleFunc("/user/{id}", h.updateUser).Methods(http.MethodPut)
	v1.HandleFunc("/user/{id}", h.deleteUser).Methods(http.MethodDelete)
}

////////////////////////////////////////////////////////////////////////////////
// Tweets
////////////////////////////////////////////////////////////////////////////////

// POST /api/v1/tweet/
func (h *Handler) createTweet(w http.ResponseWriter, r *http.Request) {
	conn, f, ok := h.begin(w, r)
	if !ok {
		return
	}
	authorID, err := f.int64("author_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.tweets.Create(r.Context(), conn, tweets.Input{
		Message:  deref(f.str("message")),
		AuthorID: deref(authorID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"tweet_id": id})
}

// GET /api/v1/tweet/{id}
func (h *Handler) getTweet(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.target(w, r)
	if !ok {
		return
	}
	tw, err := h.tweets.Get(r.Context(), conn, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, tweetFields(tw))
}

// PUT /api/v1/tweet/{id}
func (h *Handler) updateTweet(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.target(w, r)
	if !ok {
		return
	}
	f, err := readFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	authorID, err := f.int64("author_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tw, err := h.tweets.Update(r.Context(), conn, id, models.TweetPatch{
		Message:  f.str("message"),
		AuthorID: authorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, tweetFields(tw))
}

// DELETE /api/v1/tweet/{id}
func (h *Handler) deleteTweet(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.target(w, r)
	if !ok {
		return
	}
	deleted, err := h.tweets.Delete(r.Context(), conn, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tweet_id": deleted})
}

////////////////////////////////////////////////////////////////////////////////
// Users
////////////////////////////////////////////////////////////////////////////////

// POST /api/v1/user/
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	conn, f, ok := h.begin(w, r)
	if !ok {
		return
	}

	id, err := h.users.Create(r.Context(), conn, users.Input{
		Username:  deref(f.str("username")),
		Password:  deref(f.str("password")),
		FirstName: deref(f.str("first_name")),
		LastName:  deref(f.str("last_name")),
		Email:     deref(f.str("email")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"user_id": id})
}

// GET /api/v1/user/{ref} where ref is an id when it is all digits and a
// username otherwise.
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.conn(w, r)
	if !ok {
		return
	}

	var (
		u   *models.User
		err error
	)
	ref := mux.Vars(r)["ref"]
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		u, err = h.users.GetByID(r.Context(), conn, id)
	} else {
		u, err = h.users.GetByUsername(r.Context(), conn, ref)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, userFields(u))
}

// PUT /api/v1/user/{id}
func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.target(w, r)
	if !ok {
		return
	}
	f, err := readFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Update(r.Context(), conn, id, models.UserPatch{
		FirstName: f.str("first_name"),
		LastName:  f.str("last_name"),
		Email:     f.str("email"),
		Password:  f.str("password"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, userFields(u))
}

// DELETE /api/v1/user/{id}
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.target(w, r)
	if !ok {
		return
	}
	deleted, err := h.users.Delete(r.Context(), conn, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user_id": deleted})
}

////////////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////////////

func (h *Handler) conn(w http.ResponseWriter, r *http.Request) (*storage.Conn, bool) {
	conn, ok := storage.ConnFrom(r.Context())
	if !ok {
		log.WithField("path", r.URL.Path).Error("request reached api without a storage connection")
		writeError(w, r, apperr.Wrap(apperr.KindInternal, "no storage connection", nil))
	}
	return conn, ok
}

// begin fetches the connection and the request body.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (*storage.Conn, fields, bool) {
	conn, ok := h.conn(w, r)
	if !ok {
		return nil, nil, false
	}
	f, err := readFields(r)
	if err != nil {
		writeError(w, r, err)
		return nil, nil, false
	}
	return conn, f, true
}

// target fetches the connection and the numeric {id} path variable.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (*storage.Conn, int64, bool) {
	conn, ok := h.conn(w, r)
	if !ok {
		return nil, 0, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, apperr.Validation("id must be an integer"))
		return nil, 0, false
	}
	return conn, id, true
}

func tweetFields(tw *models.Tweet) map[string]any {
	return map[string]any{
		"tweet_id":  tw.TweetID,
		"message":   tw.Message,
		"author_id": tw.AuthorID,
	}
}

// userFields never includes the password hash.
func userFields(u *models.User) map[string]any {
	return map[string]any{
		"user_id":    u.UserID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
	}
}

func writeSuccess(w http.ResponseWriter, code int, body map[string]any) {
	body["status"] = statusSuccess
	writeJSON(w, code, body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("api request failed")
	}
	writeJSON(w, code, map[string]any{
		"status": statusError,
		"error":  apperr.Message(err),
	})
}

func writeJSON(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

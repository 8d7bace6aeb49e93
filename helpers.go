package main

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	log "github.com/sirupsen/logrus"

	"tweeter/internal/models"
)

// --- Template helpers ---

func gravatar(email string) string {
	h := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon&s=48", h)
}

func userView(u *models.User) any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"user_id":    u.UserID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"gravatar":   gravatar(u.Email),
	}
}

// renderTemplate renders templates/<name> with data plus the pending flash
// messages and the current user.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, name string, user *models.User, data map[string]any) {
	tpl, err := gonja.FromFile(filepath.Join(a.templatesDir, name))
	if err != nil {
		log.WithError(err).WithField("template", name).Error("failed to load template")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["current_user"] = userView(user)
	data["flashes"] = a.flashes.Take(w, r)

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, exec.NewContext(data)); err != nil {
		log.WithError(err).WithField("template", name).Error("failed to render template")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (a *app) addFlash(w http.ResponseWriter, r *http.Request, message string) {
	if err := a.flashes.Add(w, r, message); err != nil {
		log.WithError(err).Warn("failed to store flash message")
	}
}

// Package users implements CRUD over the user table, including password
// hashing.
package users

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tweeter/internal/apperr"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/validate"
)

const MinPasswordLength = 8

// Input is the body of a user creation.
type Input struct {
	Username  string `json:"username" validate:"required,max=64,handle"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
}

type patchRules struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
}

const selectUser = `SELECT user_id, username, pw_hash, first_name, last_name, email FROM "user"`

type Service struct {
	cost int
}

// New returns a Service hashing with the given bcrypt cost; out of range
// costs fall back to bcrypt.DefaultCost.
func New(cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{cost: cost}
}

// Create registers a user and returns the new id. The existence check and
// the insert share a transaction; the UNIQUE constraint on username catches
// a concurrent registration that slips between them.
func (s *Service) Create(ctx context.Context, q storage.Querier, in Input) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.InTx(ctx, func(tx storage.Querier) error {
		_, err := tx.QueryOne(ctx, `SELECT user_id FROM "user" WHERE username = ?`, in.Username)
		switch {
		case err == nil:
			return usernameTaken(in.Username)
		case !errors.Is(err, storage.ErrNoRecord):
			return err
		}

		id, err = tx.Insert(ctx,
			`INSERT INTO "user" (username, pw_hash, first_name, last_name, email)
			VALUES (?, ?, ?, ?, ?) RETURNING user_id`,
			in.Username, hash, in.FirstName, in.LastName, in.Email)
		return err
	})
	if errors.Is(err, storage.ErrUnique) {
		return 0, usernameTaken(in.Username)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  id,
		"username": in.Username,
	}).Info("user created")
	return id, nil
}

func usernameTaken(username string) error {
	return apperr.Conflict(fmt.Sprintf("username '%s' already taken", username))
}

func (s *Service) GetByID(ctx context.Context, q storage.Querier, id int64) (*models.User, error) {
	rec, err := q.QueryOne(ctx, selectUser+` WHERE user_id = ?`, id)
	if errors.Is(err, storage.ErrNoRecord) {
		return nil, apperr.NotFound(fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

func (s *Service) GetByUsername(ctx context.Context, q storage.Querier, username string) (*models.User, error) {
	rec, err := q.QueryOne(ctx, selectUser+` WHERE username = ?`, username)
	if errors.Is(err, storage.ErrNoRecord) {
		return nil, apperr.NotFound(fmt.Sprintf("user '%s' not found", username))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return fromRecord(rec), nil
}

// Update overwrites only the fields present in patch, re-hashing a new
// password, and returns the merged user. Nothing is written when the merge
// leaves the row unchanged.
func (s *Service) Update(ctx context.Context, q storage.Querier, id int64, patch models.UserPatch) (*models.User, error) {
	current, err := s.GetByID(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}
	if err := validate.Struct(patchRules(patch)); err != nil {
		return nil, err
	}

	merged := *current
	if patch.FirstName != nil {
		merged.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		merged.LastName = *patch.LastName
	}
	if patch.Email != nil {
		merged.Email = *patch.Email
	}
	if patch.Password != nil && !CheckPassword(current, *patch.Password) {
		if merged.PwHash, err = s.hash(*patch.Password); err != nil {
			return nil, err
		}
	}
	if merged == *current {
		return current, nil
	}

	n, err := q.Execute(ctx,
		`UPDATE "user" SET first_name = ?, last_name = ?, email = ?, pw_hash = ? WHERE user_id = ?`,
		merged.FirstName, merged.LastName, merged.Email, merged.PwHash, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("user %d not found", id))
	}
	return &merged, nil
}

// Delete removes the user, and through the foreign key their tweets, and
// echoes the id back.
func (s *Service) Delete(ctx context.Context, q storage.Querier, id int64) (int64, error) {
	n, err := q.Execute(ctx, `DELETE FROM "user" WHERE user_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if n == 0 {
		return 0, apperr.NotFound(fmt.Sprintf("user %d not found", id))
	}
	return id, nil
}

// CheckPassword reports whether password matches the user's stored hash.
func CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PwHash), []byte(password)) == nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

func fromRecord(rec storage.Record) *models.User {
	return &models.User{
		UserID:    rec.Int64("user_id"),
		Username:  rec.String("username"),
		PwHash:    rec.String("pw_hash"),
		FirstName: rec.String("first_name"),
		LastName:  rec.String("last_name"),
		Email:     rec.String("email"),
	}
}

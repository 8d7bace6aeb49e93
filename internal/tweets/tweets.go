// Package tweets implements CRUD over the tweet table.
package tweets

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tweeter/internal/apperr"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/validate"
)

const MaxMessageLength = 140

// Input is the body of a tweet creation.
type Input struct {
	Message  string `json:"message" validate:"required,max=140"`
	AuthorID int64  `json:"author_id" validate:"required,min=1"`
}

type patchRules struct {
	Message  *string `json:"message" validate:"omitempty,min=1,max=140"`
	AuthorID *int64  `json:"author_id" validate:"omitempty,min=1"`
}

type Service struct{}

func New() *Service {
	return &Service{}
}

// Create stores a new tweet and returns its id.
func (s *Service) Create(ctx context.Context, q storage.Querier, in Input) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}

	id, err := q.Insert(ctx,
		`INSERT INTO tweet (message, author_id) VALUES (?, ?) RETURNING tweet_id`,
		in.Message, in.AuthorID)
	if errors.Is(err, storage.ErrForeignKey) {
		return 0, apperr.Validation("author_id does not reference an existing user")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create tweet: %w", err)
	}

	log.WithFields(log.Fields{
		"tweet_id":  id,
		"author_id": in.AuthorID,
	}).Debug("tweet created")
	return id, nil
}

func (s *Service) Get(ctx context.Context, q storage.Querier, id int64) (*models.Tweet, error) {
	rec, err := q.QueryOne(ctx,
		`SELECT tweet_id, message, author_id FROM tweet WHERE tweet_id = ?`, id)
	if errors.Is(err, storage.ErrNoRecord) {
		return nil, apperr.NotFound(fmt.Sprintf("tweet %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet %d: %w", id, err)
	}
	return fromRecord(rec), nil
}

// Update overwrites only the fields present in patch and returns the merged
// tweet. Nothing is written when the merge leaves the row unchanged.
func (s *Service) Update(ctx context.Context, q storage.Querier, id int64, patch models.TweetPatch) (*models.Tweet, error) {
	current, err := s.Get(ctx, q, id)
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
	if patch.Message != nil {
		merged.Message = *patch.Message
	}
	if patch.AuthorID != nil {
		merged.AuthorID = *patch.AuthorID
	}
	if merged == *current {
		return current, nil
	}

	n, err := q.Execute(ctx,
		`UPDATE tweet SET message = ?, author_id = ? WHERE tweet_id = ?`,
		merged.Message, merged.AuthorID, id)
	if errors.Is(err, storage.ErrForeignKey) {
		return nil, apperr.Validation("author_id does not reference an existing user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tweet %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("tweet %d not found", id))
	}
	return &merged, nil
}

// Delete removes the tweet and echoes its id back.
func (s *Service) Delete(ctx context.Context, q storage.Querier, id int64) (int64, error) {
	n, err := q.Execute(ctx, `DELETE FROM tweet WHERE tweet_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tweet %d: %w", id, err)
	}
	if n == 0 {
		return 0, apperr.NotFound(fmt.Sprintf("tweet %d not found", id))
	}
	return id, nil
}

// ListByAuthor returns up to limit of the author's tweets, newest first.
func (s *Service) ListByAuthor(ctx context.Context, q storage.Querier, authorID int64, limit int) ([]models.Tweet, error) {
	recs, err := q.Query(ctx,
		`SELECT tweet_id, message, author_id FROM tweet
		WHERE author_id = ? ORDER BY tweet_id DESC LIMIT ?`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets of %d: %w", authorID, err)
	}

	out := make([]models.Tweet, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *fromRecord(rec))
	}
	return out, nil
}

func fromRecord(rec storage.Record) *models.Tweet {
	return &models.Tweet{
		TweetID:  rec.Int64("tweet_id"),
		Message:  rec.String("message"),
		AuthorID: rec.Int64("author_id"),
	}
}

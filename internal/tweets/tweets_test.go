package tweets_test

import (
	"context"
	"strings"
	"testing"

	"tweeter/internal/apperr"
	"tweeter/internal/models"
	"tweeter/internal/storage"
	"tweeter/internal/storage/storagetest"
	"tweeter/internal/tweets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthor(t *testing.T, q storage.Querier, username string) int64 {
	t.Helper()
	id, err := q.Insert(context.Background(),
		`INSERT INTO "user" (username, pw_hash, first_name, last_name, email)
		VALUES (?, ?, ?, ?, ?) RETURNING user_id`,
		username, "hash", "First", "Last", username+"@example.com")
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	author := newAuthor(t, conn, "alice")

	id, err := svc.Create(ctx, conn, tweets.Input{Message: "hello world", AuthorID: author})
	require.NoError(t, err)
	assert.NotZero(t, id)

	tw, err := svc.Get(ctx, conn, id)
	require.NoError(t, err)
	assert.Equal(t, models.Tweet{TweetID: id, Message: "hello world", AuthorID: author}, *tw)
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	author := newAuthor(t, conn, "alice")

	tests := []struct {
		name string
		in   tweets.Input
	}{
		{"missing message", tweets.Input{AuthorID: author}},
		{"missing author", tweets.Input{Message: "hi"}},
		{"too long", tweets.Input{Message: strings.Repeat("a", tweets.MaxMessageLength+1), AuthorID: author}},
		{"unknown author", tweets.Input{Message: "hi", AuthorID: author + 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, conn, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	// Exactly 140 characters, counted in runes, is accepted.
	_, err := svc.Create(ctx, conn, tweets.Input{Message: strings.Repeat("é", tweets.MaxMessageLength), AuthorID: author})
	assert.NoError(t, err)
}

func TestService_GetMissing(t *testing.T) {
	conn := storagetest.NewConn(t)

	tw, err := tweets.New().Get(context.Background(), conn, 12345)
	assert.Nil(t, tw)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	alice := newAuthor(t, conn, "alice")
	bob := newAuthor(t, conn, "bob")

	id, err := svc.Create(ctx, conn, tweets.Input{Message: "first", AuthorID: alice})
	require.NoError(t, err)

	tw, err := svc.Update(ctx, conn, id, models.TweetPatch{Message: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "edited", tw.Message)
	assert.Equal(t, alice, tw.AuthorID)

	tw, err = svc.Update(ctx, conn, id, models.TweetPatch{AuthorID: intPtr(bob)})
	require.NoError(t, err)
	assert.Equal(t, "edited", tw.Message)
	assert.Equal(t, bob, tw.AuthorID)

	stored, err := svc.Get(ctx, conn, id)
	require.NoError(t, err)
	assert.Equal(t, tw, stored)
}

func TestService_UpdateWithoutChangesDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	alice := newAuthor(t, conn, "alice")

	id, err := svc.Create(ctx, conn, tweets.Input{Message: "same", AuthorID: alice})
	require.NoError(t, err)
	before, err := svc.Get(ctx, conn, id)
	require.NoError(t, err)

	counting := &storagetest.CountingQuerier{Querier: conn}

	tw, err := svc.Update(ctx, counting, id, models.TweetPatch{})
	require.NoError(t, err)
	assert.Equal(t, before, tw)

	tw, err = svc.Update(ctx, counting, id, models.TweetPatch{Message: strPtr("same")})
	require.NoError(t, err)
	assert.Equal(t, before, tw)
	assert.Zero(t, counting.Writes)

	after, err := svc.Get(ctx, conn, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	alice := newAuthor(t, conn, "alice")
	id, err := svc.Create(ctx, conn, tweets.Input{Message: "x", AuthorID: alice})
	require.NoError(t, err)

	_, err = svc.Update(ctx, conn, id+1, models.TweetPatch{Message: strPtr("y")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Update(ctx, conn, id, models.TweetPatch{Message: strPtr("")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, conn, id, models.TweetPatch{AuthorID: intPtr(alice + 50)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	alice := newAuthor(t, conn, "alice")
	id, err := svc.Create(ctx, conn, tweets.Input{Message: "bye", AuthorID: alice})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, conn, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted)

	_, err = svc.Get(ctx, conn, id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Delete(ctx, conn, id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ListByAuthor(t *testing.T) {
	ctx := context.Background()
	conn := storagetest.NewConn(t)
	svc := tweets.New()
	alice := newAuthor(t, conn, "alice")
	bob := newAuthor(t, conn, "bob")

	for _, msg := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, conn, tweets.Input{Message: msg, AuthorID: alice})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, conn, tweets.Input{Message: "bob's", AuthorID: bob})
	require.NoError(t, err)

	list, err := svc.ListByAuthor(ctx, conn, alice, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "three", list[0].Message)
	assert.Equal(t, "two", list[1].Message)
}

package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/db"
	"github.com/example/content-platform/services/comments/internal/migrations"
)

// openTestPool migrates TEST_DATABASE_URL and empties every table.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, migrations.Up(url, zap.NewNop()))

	ctx := context.Background()
	pool, err := db.Open(ctx, db.Options{URL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE comments, entities, news, video_posts RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestPostgresEntityStore(t *testing.T) {
	pool := openTestPool(t)
	s := NewPostgresEntityStore(pool)
	ctx := context.Background()

	news, err := s.Create(ctx, KindNews, ContentInput{Title: "Launch", Description: "It flew"})
	require.NoError(t, err)
	video, err := s.Create(ctx, KindVideo, ContentInput{Title: "Replay", Description: "Slow motion"})
	require.NoError(t, err)

	got, err := s.Get(ctx, news.ID)
	require.NoError(t, err)
	assert.Equal(t, KindNews, got.Kind)
	assert.Equal(t, "Launch", got.Content.Title)

	_, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	all, more, err := s.List(ctx, EntityFilter{Limit: 1})
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, all, 1)
	assert.Equal(t, video.ID, all[0].ID)
	assert.Equal(t, "Replay", all[0].Content.Title)

	onlyNews, more, err := s.List(ctx, EntityFilter{Kind: KindNews, Limit: 10})
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, onlyNews, 1)
	assert.Equal(t, news.ID, onlyNews[0].ID)

	_, err = pool.Exec(ctx, `DELETE FROM video_posts WHERE id = $1`, video.ContentID)
	require.NoError(t, err)
	_, err = s.Get(ctx, video.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The dangling video no longer occupies the single slot.
	all, more, err = s.List(ctx, EntityFilter{Limit: 1})
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, all, 1)
	assert.Equal(t, news.ID, all[0].ID)
}

func TestPostgresCommentStore(t *testing.T) {
	pool := openTestPool(t)
	entities := NewPostgresEntityStore(pool)
	s := NewPostgresCommentStore(pool)
	ctx := context.Background()

	e, err := entities.Create(ctx, KindNews, ContentInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	other, err := entities.Create(ctx, KindNews, ContentInput{Title: "t2", Description: "d2"})
	require.NoError(t, err)

	c1 := insertWithPath(t, s, e.ID, nil)
	c2 := insertWithPath(t, s, e.ID, nil)
	c3 := insertWithPath(t, s, e.ID, &c1)
	insertWithPath(t, s, other.ID, nil)

	rows, more, err := s.FetchByEntityOrdered(ctx, e.ID, PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []int64{c1.ID, c3.ID, c2.ID}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, more, err = s.FetchByEntityOrdered(ctx, e.ID, PageQuery{Before: c2.Path, Limit: 1})
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, rows, 1)
	assert.Equal(t, c3.ID, rows[0].ID)

	t.Run("foreign parent", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx CommentTx) error {
			_, err := tx.Insert(ctx, NewComment{EntityID: other.ID, UserID: 1, Text: "x", ParentID: &c1.ID})
			return err
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("delete semantics", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx CommentTx) error { return tx.HardDelete(ctx, c1.ID) })
		assert.ErrorIs(t, err, ErrIntegrity)

		require.NoError(t, s.WithTx(ctx, func(tx CommentTx) error { return tx.Tombstone(ctx, c1.ID) }))
		got, err := s.FetchByID(ctx, c1.ID)
		require.NoError(t, err)
		assert.True(t, got.Tombstoned)
		assert.Equal(t, TombstoneText, got.Text)

		require.NoError(t, s.WithTx(ctx, func(tx CommentTx) error { return tx.HardDelete(ctx, c3.ID) }))
		_, err = s.FetchByID(ctx, c3.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

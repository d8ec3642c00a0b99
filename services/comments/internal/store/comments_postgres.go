package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists comments in Postgres. The path column uses
// the "C" collation so comparisons are byte-wise.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentColumns = `id, entity_id, user_id, parent_id, text, COALESCE(path, ''), created_at, is_tombstoned`

func (s *PostgresCommentStore) WithTx(ctx context.Context, fn func(tx CommentTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&postgresCommentTx{tx: tx}); err != nil {
		return err
	}
	return mapPgErr(tx.Commit(ctx))
}

func (s *PostgresCommentStore) FetchByID(ctx context.Context, id int64) (Comment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		return Comment{}, fmt.Errorf("comment %d: %w", id, mapPgErr(err))
	}
	return c, nil
}

func (s *PostgresCommentStore) FetchByEntityOrdered(ctx context.Context, entityID int64, q PageQuery) ([]Comment, bool, error) {
	limit := q.limit()

	var sql string
	var args []any
	backward := false
	switch {
	case q.After != "":
		sql = `SELECT ` + commentColumns + ` FROM comments
		       WHERE entity_id = $1 AND path IS NOT NULL AND path > $2
		       ORDER BY path ASC
		       LIMIT $3`
		args = []any{entityID, q.After, limit + 1}
	case q.Before != "":
		backward = true
		sql = `SELECT ` + commentColumns + ` FROM comments
		       WHERE entity_id = $1 AND path IS NOT NULL AND path < $2
		       ORDER BY path DESC
		       LIMIT $3`
		args = []any{entityID, q.Before, limit + 1}
	default:
		sql = `SELECT ` + commentColumns + ` FROM comments
		       WHERE entity_id = $1 AND path IS NOT NULL
		       ORDER BY path ASC
		       LIMIT $2`
		args = []any{entityID, limit + 1}
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, mapPgErr(err)
	}
	defer rows.Close()

	out := make([]Comment, 0, limit+1)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, false, mapPgErr(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, mapPgErr(err)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	if backward {
		slices.Reverse(out)
	}
	return out, hasMore, nil
}

func (s *PostgresCommentStore) Ping(ctx context.Context) error {
	return mapPgErr(s.pool.Ping(ctx))
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.EntityID, &c.UserID, &c.ParentID,
		&c.Text, &c.Path, &c.CreatedAt, &c.Tombstoned)
	return c, err
}

type postgresCommentTx struct {
	tx pgx.Tx
}

func (t *postgresCommentTx) Insert(ctx context.Context, c NewComment) (int64, error) {
	if c.ParentID != nil {
		var parentEntity int64
		err := t.tx.QueryRow(ctx, `SELECT entity_id FROM comments WHERE id = $1`, *c.ParentID).Scan(&parentEntity)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && parentEntity != c.EntityID) {
			return 0, fmt.Errorf("%w: parent %d not in entity %d", ErrValidation, *c.ParentID, c.EntityID)
		}
		if err != nil {
			return 0, mapPgErr(err)
		}
	}

	const q = `INSERT INTO comments (entity_id, user_id, parent_id, text)
	           VALUES ($1, $2, $3, $4)
	           RETURNING id`
	var id int64
	if err := t.tx.QueryRow(ctx, q, c.EntityID, c.UserID, c.ParentID, c.Text).Scan(&id); err != nil {
		err = mapPgErr(err)
		if errors.Is(err, ErrIntegrity) {
			return 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return 0, err
	}
	return id, nil
}

func (t *postgresCommentTx) SetPath(ctx context.Context, id int64, path string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE comments SET path = $2 WHERE id = $1 AND path IS NULL`, id, path)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := t.FetchByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: path of comment %d already assigned", ErrIntegrity, id)
}

func (t *postgresCommentTx) FetchByID(ctx context.Context, id int64) (Comment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, id)
	c, err := scanComment(row)
	if err != nil {
		return Comment{}, fmt.Errorf("comment %d: %w", id, mapPgErr(err))
	}
	return c, nil
}

func (t *postgresCommentTx) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE parent_id = $1)`, id).Scan(&exists)
	return exists, mapPgErr(err)
}

func (t *postgresCommentTx) UpdateText(ctx context.Context, id int64, text string) error {
	return t.execOne(ctx, id, `UPDATE comments SET text = $2, updated_at = now() WHERE id = $1`, id, text)
}

func (t *postgresCommentTx) Tombstone(ctx context.Context, id int64) error {
	return t.execOne(ctx, id,
		`UPDATE comments SET text = $2, is_tombstoned = TRUE, updated_at = now() WHERE id = $1`,
		id, TombstoneText)
}

func (t *postgresCommentTx) HardDelete(ctx context.Context, id int64) error {
	return t.execOne(ctx, id, `DELETE FROM comments WHERE id = $1`, id)
}

// execOne runs a statement that must touch exactly the row id.
func (t *postgresCommentTx) execOne(ctx context.Context, id int64, sql string, args ...any) error {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}

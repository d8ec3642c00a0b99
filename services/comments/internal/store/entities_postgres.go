package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEntityStore keeps entities in one table and their content in a
// table per kind. Reads are two-phase: the entity row first, then the
// content row through the static kind table.
type PostgresEntityStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEntityStore(pool *pgxpool.Pool) *PostgresEntityStore {
	return &PostgresEntityStore{pool: pool}
}

func (s *PostgresEntityStore) Create(ctx context.Context, kind ContentKind, in ContentInput) (Entity, error) {
	table, ok := kind.table()
	if !ok {
		return Entity{}, fmt.Errorf("%w: unknown entity type %d", ErrValidation, kind)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Entity{}, mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := Content{Title: in.Title, Description: in.Description}
	err = tx.QueryRow(ctx,
		`INSERT INTO `+table+` (title, description) VALUES ($1, $2) RETURNING id, created_at`,
		in.Title, in.Description).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Entity{}, mapPgErr(err)
	}

	e := Entity{Kind: kind, ContentID: c.ID, Content: c}
	err = tx.QueryRow(ctx,
		`INSERT INTO entities (kind, content_id) VALUES ($1, $2) RETURNING id, created_at`,
		int16(kind), c.ID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entity{}, mapPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Entity{}, mapPgErr(err)
	}
	return e, nil
}

func (s *PostgresEntityStore) Get(ctx context.Context, id int64) (Entity, error) {
	var e Entity
	var kind int16
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, content_id, created_at FROM entities WHERE id = $1`, id).
		Scan(&e.ID, &kind, &e.ContentID, &e.CreatedAt)
	if err != nil {
		return Entity{}, fmt.Errorf("entity %d: %w", id, mapPgErr(err))
	}
	e.Kind = ContentKind(kind)

	contents, err := s.loadContents(ctx, e.Kind, []int64{e.ContentID})
	if err != nil {
		return Entity{}, err
	}
	c, ok := contents[e.ContentID]
	if !ok {
		return Entity{}, fmt.Errorf("entity %d content: %w", id, ErrNotFound)
	}
	e.Content = c
	return e, nil
}

func (s *PostgresEntityStore) List(ctx context.Context, f EntityFilter) ([]Entity, bool, error) {
	limit := f.limit()

	const cols = `SELECT id, kind, content_id, created_at FROM entities e
	              WHERE ($1::smallint = 0 OR e.kind = $1::smallint) AND `
	var sql string
	var args []any
	backward := false
	switch {
	case f.After != 0:
		sql = cols + contentExists + ` AND e.id < $2 ORDER BY e.id DESC LIMIT $3`
		args = []any{int16(f.Kind), f.After, limit + 1}
	case f.Before != 0:
		backward = true
		sql = cols + contentExists + ` AND e.id > $2 ORDER BY e.id ASC LIMIT $3`
		args = []any{int16(f.Kind), f.Before, limit + 1}
	default:
		sql = cols + contentExists + ` ORDER BY e.id DESC LIMIT $2`
		args = []any{int16(f.Kind), limit + 1}
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, mapPgErr(err)
	}
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entity, error) {
		var e Entity
		var kind int16
		err := row.Scan(&e.ID, &kind, &e.ContentID, &e.CreatedAt)
		e.Kind = ContentKind(kind)
		return e, err
	})
	if err != nil {
		return nil, false, mapPgErr(err)
	}

	hasMore := len(entities) > limit
	if hasMore {
		entities = entities[:limit]
	}
	if backward {
		slices.Reverse(entities)
	}

	byKind := make(map[ContentKind][]int64)
	for _, e := range entities {
		byKind[e.Kind] = append(byKind[e.Kind], e.ContentID)
	}
	contents := make(map[ContentKind]map[int64]Content, len(byKind))
	for kind, ids := range byKind {
		m, err := s.loadContents(ctx, kind, ids)
		if err != nil {
			return nil, false, err
		}
		contents[kind] = m
	}

	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		c, ok := contents[e.Kind][e.ContentID]
		if !ok {
			continue
		}
		e.Content = c
		out = append(out, e)
	}
	return out, hasMore, nil
}

// contentExists keeps entities whose content row is gone out of listings
// before LIMIT applies. It is built from the static kind table.
var contentExists = func() string {
	var b strings.Builder
	b.WriteString("CASE e.kind")
	for _, k := range Kinds() {
		table, _ := k.table()
		fmt.Fprintf(&b, " WHEN %d THEN EXISTS (SELECT 1 FROM %s c WHERE c.id = e.content_id)", k, table)
	}
	b.WriteString(" ELSE false END")
	return b.String()
}()

func (s *PostgresEntityStore) loadContents(ctx context.Context, kind ContentKind, ids []int64) (map[int64]Content, error) {
	table, ok := kind.table()
	if !ok {
		return map[int64]Content{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, created_at FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapPgErr(err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Content])
	if err != nil {
		return nil, mapPgErr(err)
	}
	out := make(map[int64]Content, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func (s *PostgresEntityStore) Ping(ctx context.Context) error {
	return mapPgErr(s.pool.Ping(ctx))
}

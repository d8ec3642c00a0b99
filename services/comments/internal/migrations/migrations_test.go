package migrations

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/comments?sslmode=disable": "pgx5://u:p@db:5432/comments?sslmode=disable",
		"postgresql://db/comments":                        "pgx5://db/comments",
		"pgx5://db/comments":                              "pgx5://db/comments",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddedFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(FS(), ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up and %d down", ups, downs)
	}
}

// schemaURL returns TEST_DATABASE_URL scoped to a scratch schema so the
// round trip does not disturb other packages sharing the database.
func schemaURL(t *testing.T, schema string) string {
	t.Helper()
	raw := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, raw)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		_ = conn.Close(context.Background())
	})
	if _, err := conn.Exec(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if _, err := conn.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func currentVersion(t *testing.T, databaseURL string) uint {
	t.Helper()
	m, err := newMigrate(databaseURL)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	defer func() { _, _ = m.Close() }()
	v, _, err := m.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	return v
}

func TestUpDownRoundTrip(t *testing.T) {
	dbURL := schemaURL(t, "migrations_roundtrip")

	if err := Up(dbURL, zap.NewNop()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if v := currentVersion(t, dbURL); v != 3 {
		t.Fatalf("expected version 3 after up, got %d", v)
	}

	if err := Down(dbURL); err != nil {
		t.Fatalf("down: %v", err)
	}
	if v := currentVersion(t, dbURL); v != 2 {
		t.Fatalf("expected version 2 after down, got %d", v)
	}

	if err := Up(dbURL, zap.NewNop()); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if v := currentVersion(t, dbURL); v != 3 {
		t.Fatalf("expected version 3 after re-apply, got %d", v)
	}
	if err := Up(dbURL, zap.NewNop()); err != nil {
		t.Fatalf("up with nothing pending should succeed: %v", err)
	}
}

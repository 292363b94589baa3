package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	communities "github.com/goliatone/go-communities"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	seen := map[string]bool{}
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 %s up migrations, got %v", entry.Dialect, matches)
		}
		seen[entry.Dialect] = true
	}
	if !seen[DialectPostgres] || !seen[DialectSQLite] {
		t.Fatalf("expected postgres and sqlite filesystems, got %+v", seen)
	}
}

func TestFilesystems_AcceptsFlatRoot(t *testing.T) {
	root := fstest.MapFS{
		"00001_init.up.sql":        {Data: []byte("SELECT 1;")},
		"sqlite/00001_init.up.sql": {Data: []byte("SELECT 1;")},
	}
	filesystems, err := Filesystems(root)
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if filesystems[0].Path != "." || filesystems[1].Path != "sqlite" {
		t.Fatalf("unexpected paths %+v", filesystems)
	}
}

func TestFilesystems_RejectsMissingSQLite(t *testing.T) {
	root := fstest.MapFS{
		"00001_init.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := Filesystems(root); err == nil {
		t.Fatalf("expected missing sqlite tree to fail")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		calls = append(calls, dialect+":"+label)
		return nil
	}, WithValidationTargets(" SQLite ", "sqlite"), WithSourceLabel("app"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(calls) != 1 || calls[0] != "sqlite:app" {
		t.Fatalf("expected single sqlite registration, got %v", calls)
	}
	if reg.SourceLabel != "app" {
		t.Fatalf("expected source label app, got %q", reg.SourceLabel)
	}
}

func TestRegister_RequiresFunction(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected nil register function to fail")
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite3":  DialectSQLite,
		"sqlite":   DialectSQLite,
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
	}
	for driver, want := range cases {
		got, err := DialectForDriver(driver)
		if err != nil || got != want {
			t.Fatalf("driver %q: expected %q, got %q (%v)", driver, want, got, err)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := communities.GetMigrationsFS()
	for _, name := range []string{"00001_communities", "00002_community_members"} {
		for _, dir := range []string{"data/sql/migrations", "data/sql/migrations/sqlite"} {
			for _, direction := range []string{"up", "down"} {
				path := dir + "/" + name + "." + direction + ".sql"
				content, err := fs.ReadFile(root, path)
				if err != nil {
					t.Fatalf("read migration %s: %v", path, err)
				}
				if strings.TrimSpace(string(content)) == "" {
					t.Fatalf("expected migration %s to have SQL content", path)
				}
			}
		}
	}
}

func TestSQLiteMigrations_ApplyCascadeAndRollback(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migrations-communities?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	sqliteMigrations, err := fs.Sub(communities.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	for _, migration := range []string{"00001_communities.up.sql", "00002_community_members.up.sql"} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply %s: %v", migration, err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO communities (id, external_id, name, slug) VALUES (?, ?, ?, ?)`,
		"c1", "org_1", "Acme", "acme",
	); err != nil {
		t.Fatalf("insert community: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO communities (id, external_id, name, slug) VALUES (?, ?, ?, ?)`,
		"c2", "org_1", "Dup", "dup",
	); err == nil {
		t.Fatalf("expected duplicate external id to violate uniqueness")
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO community_members (id, community_id, user_id) VALUES (?, ?, ?)`,
		"m1", "org_1", "user_1",
	); err != nil {
		t.Fatalf("insert member: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO community_members (id, community_id, user_id) VALUES (?, ?, ?)`,
		"m2", "org_missing", "user_1",
	); err == nil {
		t.Fatalf("expected member of unknown community to violate foreign key")
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM communities WHERE external_id = ?`, "org_1"); err != nil {
		t.Fatalf("delete community: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM community_members`).Scan(&count); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade to remove members, got %d", count)
	}

	for _, migration := range []string{"00002_community_members.down.sql", "00001_communities.down.sql"} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("rollback %s: %v", migration, err)
		}
	}
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('communities', 'community_members')`,
	).Scan(&tables); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tables != 0 {
		t.Fatalf("expected tables to be dropped, got %d", tables)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}

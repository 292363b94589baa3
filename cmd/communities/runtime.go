package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-communities/adapters/gologger"
	"github.com/goliatone/go-communities/core"
	communitymigrations "github.com/goliatone/go-communities/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// loadConfig layers COMMUNITIES_* variables read by lookup over the
// defaults.
func loadConfig(ctx context.Context, lookup func(string) (string, bool)) (core.Config, error) {
	loader := core.NewEnvConfigLoader()
	if lookup != nil {
		loader.Lookup = lookup
	}
	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(loader).Load(ctx, defaults)
	if err != nil {
		return core.Config{}, fmt.Errorf("load config: %w", err)
	}
	return core.GoOptionsResolver{}.Resolve(defaults, loaded, core.Config{})
}

func newLoggerProvider(out io.Writer, flags *rootFlags) (*gologger.LogrusProvider, error) {
	level, format := "info", "json"
	if flags != nil {
		level, format = flags.logLevel, flags.logFormat
	}
	base, err := gologger.NewLogrus(out, level, format)
	if err != nil {
		return nil, err
	}
	return gologger.NewLogrusProvider(base), nil
}

// openPersistence opens the configured database and, when migrate is set,
// applies the embedded migrations for its dialect.
func openPersistence(ctx context.Context, cfg core.PersistenceConfig, migrate bool) (*persistence.Client, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = core.DriverSQLite
	}
	cfg.Driver = driver

	var dialect schema.Dialect
	switch driver {
	case core.DriverSQLite:
		dialect = sqlitedialect.New()
	case core.DriverPostgres:
		dialect = pgdialect.New()
	default:
		return nil, fmt.Errorf("unsupported persistence driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == core.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}
	if migrate {
		if err := communitymigrations.Apply(ctx, client, driver); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"

	documentName = "products"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore keeps the catalog document as one row of catalog_documents.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQL opens the database for the dialect. SQLite is pinned to a single
// connection so an in-memory database is shared by every query.
func OpenSQL(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout*5)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

func (s *SQLStore) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(s.db, &migratepgx.Config{})
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("unknown dialect %q", s.dialect)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) Load(ctx context.Context) (Catalog, error) {
	var body string

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT body
			FROM catalog_documents
			WHERE name = `+s.dialect.placeholder(1),
			documentName,
		).Scan(&body)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, readErr(err)
	}

	c, err := decodeCatalog([]byte(body))
	if err != nil {
		return nil, readErr(fmt.Errorf("decode document: %w", err))
	}
	return c, nil
}

func (s *SQLStore) Save(ctx context.Context, c Catalog) error {
	raw, err := encodeCatalog(c)
	if err != nil {
		return writeErr(err)
	}

	p := s.dialect.placeholder
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO catalog_documents (name, body, updated_at)
			VALUES (`+p(1)+`, `+p(2)+`, `+p(3)+`)
			ON CONFLICT (name) DO UPDATE
			SET body = excluded.body, updated_at = excluded.updated_at
		`, documentName, string(raw), time.Now().UTC())
		return err
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

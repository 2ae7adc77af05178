package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

const (
	postgresSchema = `CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	message    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`

	sqliteSchema = `CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	message    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
)`

	insertQuery = "INSERT INTO %s (id, name, email, message, category, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	scanQuery   = "SELECT id, name, email, message, category, created_at FROM %s"
)

// SQLStore is the storage gateway over a relational table, shared by the
// postgres and sqlite drivers.
type SQLStore struct {
	db          *sqlx.DB
	driver      string
	table       string
	isDuplicate func(error) bool
}

// NewPostgresStore connects to PostgreSQL and creates the table if needed.
func NewPostgresStore(ctx context.Context, databaseURL, table string) (*SQLStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres store requires DATABASE_URL")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return openSQL(ctx, db, table, postgresSchema, isPostgresDuplicate)
}

// NewSQLiteStore opens (or creates) a SQLite database file.
func NewSQLiteStore(ctx context.Context, path, table string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires SQLITE_PATH")
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return openSQL(ctx, db, table, sqliteSchema, isSQLiteDuplicate)
}

func openSQL(ctx context.Context, db *sqlx.DB, table, schema string, isDuplicate func(error) bool) (*SQLStore, error) {
	if err := validateTable(table); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(schema, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return &SQLStore{
		db:          db,
		driver:      db.DriverName(),
		table:       table,
		isDuplicate: isDuplicate,
	}, nil
}

// Put inserts msg. A primary key conflict is reported as ErrDuplicateID.
func (s *SQLStore) Put(ctx context.Context, msg contact.Message) error {
	defer observe(s.driver, "put", time.Now())

	query := s.db.Rebind(fmt.Sprintf(insertQuery, s.table))
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.Name, msg.Email, msg.Message, msg.Category, msg.CreatedAt.UTC())
	if err != nil {
		if s.isDuplicate(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ScanAll reads the whole table.
func (s *SQLStore) ScanAll(ctx context.Context) ([]contact.Message, error) {
	defer observe(s.driver, "scan", time.Now())

	messages := []contact.Message{}
	if err := s.db.SelectContext(ctx, &messages, fmt.Sprintf(scanQuery, s.table)); err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}
	return messages, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isSQLiteDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

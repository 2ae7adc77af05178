// Package store is the storage gateway for contact messages: a durable
// key-value table supporting single-record writes and full scans.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/zhouzirui/contact-desk/backend/internal/metrics"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

var (
	// ErrDuplicateID is returned by Put when a record with the same id exists.
	// Stores never overwrite an existing record.
	ErrDuplicateID = errors.New("message id already exists")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is implemented by every storage driver.
type Store interface {
	Put(ctx context.Context, msg contact.Message) error
	ScanAll(ctx context.Context) ([]contact.Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver      string
	Table       string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
}

// Open constructs the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	if err := validateTable(opts.Table); err != nil {
		return nil, err
	}

	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL, opts.Table)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.SQLitePath, opts.Table)
	case "redis":
		return NewRedisStore(ctx, opts.RedisURL, opts.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validateTable guards identifiers that are interpolated into SQL and redis keys.
func validateTable(table string) error {
	if !tablePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func observe(driver, op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
}

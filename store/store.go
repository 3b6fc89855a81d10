// Package store keeps the local package records and the binding of each
// harvested package to its remote catalog record.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrNotFound is returned when no package has the requested id.
	ErrNotFound = errors.New("package not found")

	// ErrDuplicate is returned when creating a package whose id is taken.
	ErrDuplicate = errors.New("package already exists")
)

// Package is a local package record. RemoteID is empty for packages that
// are not bound to a catalog record.
type Package struct {
	LocalID             string
	RemoteID            string
	PreferredIdentifier string
	HarvestSource       string
	Title               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Store is the SQLite-backed local datastore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Create inserts a package.
func (s *Store) Create(ctx context.Context, pkg Package) error {
	if pkg.LocalID == "" {
		return errors.New("package local id is required")
	}
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (local_id, remote_id, preferred_identifier, harvest_source, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pkg.LocalID, nullable(pkg.RemoteID), pkg.PreferredIdentifier, pkg.HarvestSource, pkg.Title, now, now,
	)
	if isConstraintError(err) {
		return fmt.Errorf("create %s: %w", pkg.LocalID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", pkg.LocalID, err)
	}
	return nil
}

// Update replaces the mutable fields of a package.
func (s *Store) Update(ctx context.Context, pkg Package) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE packages
		SET remote_id = ?, preferred_identifier = ?, harvest_source = ?, title = ?, updated_at = ?
		WHERE local_id = ?`,
		nullable(pkg.RemoteID), pkg.PreferredIdentifier, pkg.HarvestSource, pkg.Title, s.timestamp(), pkg.LocalID,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", pkg.LocalID, err)
	}
	return requireRow(res, "update", pkg.LocalID)
}

// Delete removes a package.
func (s *Store) Delete(ctx context.Context, localID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", localID, err)
	}
	return requireRow(res, "delete", localID)
}

// Get returns a package by local id.
func (s *Store) Get(ctx context.Context, localID string) (*Package, error) {
	row := s.db.QueryRowContext(ctx, selectPackage+` WHERE local_id = ?`, localID)
	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", localID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", localID, err)
	}
	return pkg, nil
}

// RemoteID resolves the catalog identifier bound to a local package. It is
// empty for unbound packages.
func (s *Store) RemoteID(ctx context.Context, localID string) (string, error) {
	var remoteID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT remote_id FROM packages WHERE local_id = ?`, localID).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve %s: %w", localID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", localID, err)
	}
	return remoteID.String, nil
}

// FindByPreferredIdentifier returns the most recently updated package with
// the given preferred identifier.
func (s *Store) FindByPreferredIdentifier(ctx context.Context, pid string) (*Package, error) {
	row := s.db.QueryRowContext(ctx, selectPackage+`
		WHERE preferred_identifier = ?
		ORDER BY updated_at DESC, local_id ASC
		LIMIT 1`, pid)
	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s: %w", pid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", pid, err)
	}
	return pkg, nil
}

// List returns the packages of a harvest source, or all packages when
// source is empty, ordered by local id.
func (s *Store) List(ctx context.Context, source string) ([]Package, error) {
	query := selectPackage
	var args []any
	if source != "" {
		query += ` WHERE harvest_source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY local_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("list packages: %w", err)
		}
		out = append(out, *pkg)
	}
	return out, rows.Err()
}

const selectPackage = `
	SELECT local_id, remote_id, preferred_identifier, harvest_source, title, created_at, updated_at
	FROM packages`

type scanner interface {
	Scan(dest ...any) error
}

func scanPackage(row scanner) (*Package, error) {
	var (
		pkg                  Package
		remoteID             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&pkg.LocalID, &remoteID, &pkg.PreferredIdentifier, &pkg.HarvestSource, &pkg.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	pkg.RemoteID = remoteID.String
	pkg.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	pkg.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &pkg, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result, op, localID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, localID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, localID, ErrNotFound)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

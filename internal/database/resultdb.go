package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/piculet/internal/model"
)

// DBFileName is the name of the database file inside the database directory.
const DBFileName = "piculet.db"

// timestampLayout stores times in UTC with fixed-width nanoseconds, so
// that ordering by the text column orders by time.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ErrAmbiguousID is returned by GetResultByID when an ID prefix matches
// more than one result.
var ErrAmbiguousID = errors.New("ambiguous result id")

// ResultDB provides SQLite-based storage for scrape results.
// It manages connection pooling and provides methods for CRUD operations.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode in the connection string.
	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the path of the database file.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- Results store complete scrape results as JSON
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		spec TEXT NOT NULL,
		doctype TEXT,
		scraped_at TEXT NOT NULL,
		digest TEXT,
		failed INTEGER NOT NULL DEFAULT 0,
		key_count INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_source ON results(source);
	CREATE INDEX IF NOT EXISTS idx_results_scraped_at ON results(scraped_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a scrape result. Saving a result with an ID that is
// already stored replaces it.
func (rdb *ResultDB) SaveResult(ctx context.Context, result *model.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO results (id, source, spec, doctype, scraped_at, digest, failed, key_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		spec = excluded.spec,
		doctype = excluded.doctype,
		scraped_at = excluded.scraped_at,
		digest = excluded.digest,
		failed = excluded.failed,
		key_count = excluded.key_count,
		result_json = excluded.result_json
	`

	_, err = rdb.db.ExecContext(ctx, query,
		result.ID.String(),
		result.Source,
		result.Spec,
		result.DocType,
		formatTimestamp(result.ScrapedAt),
		result.Digest,
		result.Failed(),
		len(result.Data),
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// GetLatestResult retrieves the most recent result for a source.
// It returns nil without error when the source has no results.
func (rdb *ResultDB) GetLatestResult(ctx context.Context, source string) (*model.Result, error) {
	query := `
	SELECT result_json FROM results
	WHERE source = ?
	ORDER BY scraped_at DESC
	LIMIT 1
	`

	var resultJSON string
	err := rdb.db.QueryRowContext(ctx, query, source).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return decodeResult(resultJSON)
}

// ListSources returns every source that has stored results, sorted.
func (rdb *ResultDB) ListSources(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT source FROM results
	ORDER BY source
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// GetHistory retrieves all results for a source, newest first.
func (rdb *ResultDB) GetHistory(ctx context.Context, source string) ([]*model.Result, error) {
	query := `
	SELECT result_json FROM results
	WHERE source = ?
	ORDER BY scraped_at DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []*model.Result
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		result, err := decodeResult(resultJSON)
		if err != nil {
			continue // Skip malformed results
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// ResultMetadata contains summary information about a stored result.
// This is used for displaying history without loading the full result.
type ResultMetadata struct {
	// ID is the result ID.
	ID string

	// Source is the scraped input.
	Source string

	// Spec is the spec the input was scraped with.
	Spec string

	// ScrapedAt is when the scrape was performed.
	ScrapedAt time.Time

	// Digest is the hash of the raw document.
	Digest string

	// Failed is true when the scrape failed.
	Failed bool

	// KeyCount is the number of top level keys extracted.
	KeyCount int
}

// GetHistoryWithMetadata retrieves result metadata for a source, newest first.
// This is more efficient than GetHistory when only metadata is needed.
func (rdb *ResultDB) GetHistoryWithMetadata(ctx context.Context, source string) ([]ResultMetadata, error) {
	query := `
	SELECT id, source, spec, scraped_at, digest, failed, key_count
	FROM results
	WHERE source = ?
	ORDER BY scraped_at DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ResultMetadata
	for rows.Next() {
		var meta ResultMetadata
		var timestamp string
		var digest sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Source, &meta.Spec, &timestamp, &digest, &meta.Failed, &meta.KeyCount); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.ScrapedAt = parseTimestamp(timestamp)
		meta.Digest = digest.String

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetResultByID retrieves a result by its ID or a unique prefix of it.
// It returns nil without error when no result matches.
func (rdb *ResultDB) GetResultByID(ctx context.Context, id string) (*model.Result, error) {
	query := `
	SELECT result_json FROM results
	WHERE id LIKE ? || '%'
	LIMIT 2
	`

	rows, err := rdb.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		matches = append(matches, resultJSON)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return decodeResult(matches[0])
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
	}
}

// DeleteBefore removes results scraped before t and returns how many
// were removed.
func (rdb *ResultDB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := rdb.db.ExecContext(ctx, `DELETE FROM results WHERE scraped_at < ?`, formatTimestamp(t))
	if err != nil {
		return 0, fmt.Errorf("failed to delete results: %w", err)
	}
	return res.RowsAffected()
}

func decodeResult(resultJSON string) (*model.Result, error) {
	var result model.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trader_state (
	account        TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	data           BLOB NOT NULL,
	checksum       BLOB NOT NULL,
	updated_at     INTEGER NOT NULL
);
`

// SQLiteStore persists one Snapshot per account in a single-row-per-
// account table, each row checksummed to detect on-disk corruption.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save writes snap for its account, replacing any prior row. The write
// happens inside a serializable transaction so a concurrent Load never
// observes a half-written row.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := snap.marshal()
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	checksum := sha256.Sum256(data)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT OR REPLACE INTO trader_state (account, schema_version, data, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, snap.Account, snap.SchemaVersion, data, checksum[:], time.Now().UnixNano()); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return tx.Commit()
}

// Load reads the most recent Snapshot for account. Returns
// apperrors.ErrSnapshotMissing (wrapped) if no row exists for the
// account, which the monitor verb treats as fatal. The init verb never
// loads a snapshot.
func (s *SQLiteStore) Load(ctx context.Context, account string) (Snapshot, error) {
	const q = `SELECT schema_version, data, checksum FROM trader_state WHERE account = ?`
	var version int
	var data, storedChecksum []byte
	err := s.db.QueryRowContext(ctx, q, account).Scan(&version, &data, &storedChecksum)
	if err == sql.ErrNoRows {
		return Snapshot{}, fmt.Errorf("store: no snapshot for account %s: %w", account, apperrors.ErrSnapshotMissing)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: read snapshot for %s: %w", account, err)
	}
	if version > SchemaVersion {
		return Snapshot{}, fmt.Errorf("store: snapshot schema_version %d newer than supported %d: %w", version, SchemaVersion, apperrors.ErrInvariantViolation)
	}

	computed := sha256.Sum256(data)
	if len(storedChecksum) != len(computed) || string(storedChecksum) != string(computed[:]) {
		return Snapshot{}, fmt.Errorf("store: checksum mismatch for account %s, snapshot corrupted: %w", account, apperrors.ErrInvariantViolation)
	}

	snap, err := unmarshalSnapshot(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: unmarshal snapshot for %s: %w", account, err)
	}
	return snap, nil
}

// Exists reports whether a snapshot row exists for account, without
// paying the deserialization cost Load incurs.
func (s *SQLiteStore) Exists(ctx context.Context, account string) (bool, error) {
	const q = `SELECT 1 FROM trader_state WHERE account = ?`
	var one int
	err := s.db.QueryRowContext(ctx, q, account).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check snapshot existence for %s: %w", account, err)
	}
	return true, nil
}

// Package store persists extracted statement text and the account
// configuration (boundary list, aliases) in a local SQLite database.
// The matching core never touches this package; the orchestrator loads
// from it and passes plain values in.
package store

import (
	"database/sql"
	"time"

	"bank-transfer-reconciler/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS statement_texts (
	file_id    TEXT PRIMARY KEY,
	file_hash  TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS boundary_accounts (
	account_id TEXT PRIMARY KEY,
	label      TEXT NOT NULL DEFAULT '',
	added_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS account_aliases (
	alias      TEXT PRIMARY KEY,
	canonical  TEXT NOT NULL
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreOpen, "open "+path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StoreError(errors.CodeStoreOpen, "init schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveStatementText caches extracted text so re-runs skip extraction.
// An existing row for the same file id is replaced.
func (s *Store) SaveStatementText(fileID, fileHash, text string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO statement_texts (file_id, file_hash, text, created_at) VALUES (?, ?, ?, ?)`,
		fileID, fileHash, text, time.Now().UTC(),
	)
	if err != nil {
		return errors.StoreError(errors.CodeStoreQuery, "save statement text", err)
	}
	return nil
}

// GetStatementText returns the cached text for a file id, or ok=false
// when absent or the stored hash no longer matches.
func (s *Store) GetStatementText(fileID, fileHash string) (string, bool, error) {
	var text, storedHash string
	err := s.db.QueryRow(
		`SELECT text, file_hash FROM statement_texts WHERE file_id = ?`, fileID,
	).Scan(&text, &storedHash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.StoreError(errors.CodeStoreQuery, "get statement text", err)
	}
	if fileHash != "" && storedHash != fileHash {
		return "", false, nil
	}
	return text, true, nil
}

// AddBoundaryAccount marks an account as inside the user's boundary.
func (s *Store) AddBoundaryAccount(accountID, label string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO boundary_accounts (account_id, label, added_at) VALUES (?, ?, ?)`,
		accountID, label, time.Now().UTC(),
	)
	if err != nil {
		return errors.StoreError(errors.CodeStoreQuery, "add boundary account", err)
	}
	return nil
}

// RemoveBoundaryAccount drops an account from the boundary set.
func (s *Store) RemoveBoundaryAccount(accountID string) error {
	_, err := s.db.Exec(`DELETE FROM boundary_accounts WHERE account_id = ?`, accountID)
	if err != nil {
		return errors.StoreError(errors.CodeStoreQuery, "remove boundary account", err)
	}
	return nil
}

// ListBoundaryAccounts returns the boundary account ids in insertion
// order.
func (s *Store) ListBoundaryAccounts() ([]string, error) {
	rows, err := s.db.Query(`SELECT account_id FROM boundary_accounts ORDER BY added_at, account_id`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreQuery, "list boundary accounts", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQuery, "scan boundary account", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError(errors.CodeStoreQuery, "iterate boundary accounts", err)
	}
	return ids, nil
}

// SetAlias folds an alternate account id onto its canonical id.
func (s *Store) SetAlias(alias, canonical string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO account_aliases (alias, canonical) VALUES (?, ?)`,
		alias, canonical,
	)
	if err != nil {
		return errors.StoreError(errors.CodeStoreQuery, "set alias", err)
	}
	return nil
}

// Aliases loads the full alias map.
func (s *Store) Aliases() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT alias, canonical FROM account_aliases`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeStoreQuery, "list aliases", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, errors.StoreError(errors.CodeStoreQuery, "scan alias", err)
		}
		aliases[alias] = canonical
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError(errors.CodeStoreQuery, "iterate aliases", err)
	}
	return aliases, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Passwords are encrypted with the injected Encryptor before write and decrypted
// after read. Writes run in their own transaction on the single writer
// connection; reads borrow a pooled reader connection for one query.
type CredentialRepo struct {
	db  *DB
	enc driven.Encryptor // nil when encryption is disabled
	now func() time.Time
}

// NewCredentialRepo creates a new CredentialRepo. enc may be nil to disable
// credential storage; every operation except Delete then returns
// driven.ErrEncryptionKeyNotSet.
func NewCredentialRepo(db *DB, enc driven.Encryptor) *CredentialRepo {
	return &CredentialRepo{db: db, enc: enc, now: time.Now}
}

const credentialColumns = `identifier, username, password_ciphertext, last_seen_ip, created_at, rotated_at`

// Get retrieves the credential for id. Returns (nil, nil) if none is stored.
func (r *CredentialRepo) Get(ctx context.Context, id string) (*model.Credential, error) {
	if r.enc == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE identifier = ?`
	row, err := scanCredentialRow(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %q: %w", id, err)
	}

	cred, err := row.decode(r.enc)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential %q: %w", id, err)
	}
	return &cred, nil
}

// GetGlobal retrieves the fallback credential stored under model.GlobalIdentifier.
func (r *CredentialRepo) GetGlobal(ctx context.Context) (*model.Credential, error) {
	return r.Get(ctx, model.GlobalIdentifier)
}

// Set inserts or overwrites the credential for id. An existing row keeps its
// created_at and has rotated_at set to the current time; an empty lastSeenIP
// keeps the stored address.
func (r *CredentialRepo) Set(ctx context.Context, id, username, password, lastSeenIP string) error {
	if r.enc == nil {
		return driven.ErrEncryptionKeyNotSet
	}

	ciphertext, err := r.enc.Encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypt credential %q: %w", id, err)
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	// excluded.created_at carries "now" for both branches of the upsert.
	const query = `
		INSERT INTO credentials (identifier, username, password_ciphertext, last_seen_ip, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			username = excluded.username,
			password_ciphertext = excluded.password_ciphertext,
			last_seen_ip = COALESCE(excluded.last_seen_ip, credentials.last_seen_ip),
			rotated_at = excluded.created_at
	`

	var ip sql.NullString
	if lastSeenIP != "" {
		ip = sql.NullString{String: lastSeenIP, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, query, id, username, ciphertext, ip, r.now().Unix()); err != nil {
		return fmt.Errorf("set credential %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential %q: %w", id, err)
	}
	return nil
}

// Delete removes the credential for id. A missing row is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const query = `DELETE FROM credentials WHERE identifier = ?`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete credential %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete credential %q: %w", id, err)
	}
	return nil
}

// ListAll returns every stored credential ordered by identifier. Rows whose
// secret fails to decrypt are returned as model.Undecryptable, never dropped.
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.CredentialRecord, error) {
	if r.enc == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT ` + credentialColumns + ` FROM credentials ORDER BY identifier`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var records []model.CredentialRecord
	for rows.Next() {
		row, err := scanCredentialRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		cred, err := row.decode(r.enc)
		switch {
		case errors.Is(err, driven.ErrDecryption):
			records = append(records, model.Undecryptable{Identifier: row.identifier})
		case err != nil:
			return nil, fmt.Errorf("decode credential %q: %w", row.identifier, err)
		default:
			records = append(records, model.Decoded{Credential: cred})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return records, nil
}

// credentialRow is a credentials row before its secret is decrypted.
type credentialRow struct {
	identifier string
	username   string
	ciphertext string
	lastSeenIP sql.NullString
	createdAt  int64
	rotatedAt  sql.NullInt64
}

func scanCredentialRow(s scanner) (credentialRow, error) {
	var row credentialRow
	err := s.Scan(&row.identifier, &row.username, &row.ciphertext, &row.lastSeenIP, &row.createdAt, &row.rotatedAt)
	return row, err
}

func (row credentialRow) decode(enc driven.Encryptor) (model.Credential, error) {
	password, err := enc.Decrypt(row.ciphertext)
	if err != nil {
		return model.Credential{}, err
	}

	cred := model.Credential{
		Identifier: row.identifier,
		Username:   row.username,
		Password:   password,
		LastSeenIP: row.lastSeenIP.String,
		CreatedAt:  time.Unix(row.createdAt, 0).UTC(),
	}
	if row.rotatedAt.Valid {
		cred.RotatedAt = time.Unix(row.rotatedAt.Int64, 0).UTC()
	}
	return cred, nil
}

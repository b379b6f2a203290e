package node

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rylenko/emaild/common"
)

// Store is the node's persistence layer: one `emails` table, indexed by
// recipient public key hash, with no uniqueness constraint on the proof
// of work hash — duplicate envelopes are preserved here on purpose;
// dedup is a client-side concern.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-connected pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the emails table if it does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			id BIGSERIAL PRIMARY KEY,
			email_bytes BYTEA NOT NULL,
			recipient_public_key_pem_hash BYTEA NOT NULL,
			proof_of_work_hex VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS emails_recipient_idx
			ON emails (recipient_public_key_pem_hash);
	`)
	if err != nil {
		return fmt.Errorf("node: migrate emails table: %w", err)
	}
	return nil
}

// newEmailRow serializes email into its row form. The node never touches
// email's decrypted fields; it only ever holds the envelope bytes plus
// the two indexed columns.
func newEmailRow(email *common.Email) (bytes_, recipientHash []byte, powHex string, err error) {
	if !email.CheckEncryptedIntegrity() {
		return nil, nil, "", fmt.Errorf("node: email failed encrypted integrity check")
	}

	emailBytes, err := email.GobEncode()
	if err != nil {
		return nil, nil, "", fmt.Errorf("node: serialize email: %w", err)
	}

	return emailBytes, email.RecipientPublicKeyPEMHash[:], email.ComputeHash(), nil
}

// AddEmail stores email under its recipient hash. email must already
// satisfy CheckEncryptedIntegrity; callers are expected to have checked
// this themselves before calling (the relay does, on receipt).
func (s *Store) AddEmail(ctx context.Context, email *common.Email) error {
	emailBytes, recipientHash, powHex, err := newEmailRow(email)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO emails (email_bytes, recipient_public_key_pem_hash, proof_of_work_hex)
		 VALUES ($1, $2, $3)`,
		emailBytes, recipientHash, powHex,
	)
	if err != nil {
		return fmt.Errorf("node: insert email: %w", err)
	}
	return nil
}

// GetEmailBytes returns the serialized envelope at index (0-based, oldest
// first) among all emails addressed to recipientHash.
func (s *Store) GetEmailBytes(ctx context.Context, index int64, recipientHash [32]byte) ([]byte, error) {
	var emailBytes []byte
	err := s.pool.QueryRow(ctx,
		`SELECT email_bytes FROM emails
		 WHERE recipient_public_key_pem_hash = $1
		 ORDER BY id
		 OFFSET $2 LIMIT 1`,
		recipientHash[:], index,
	).Scan(&emailBytes)
	if err != nil {
		return nil, fmt.Errorf("node: get email bytes: %w", err)
	}
	return emailBytes, nil
}

// GetEmailsCount returns how many emails are stored for recipientHash.
func (s *Store) GetEmailsCount(ctx context.Context, recipientHash [32]byte) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM emails WHERE recipient_public_key_pem_hash = $1`,
		recipientHash[:],
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("node: count emails: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes every row whose created_at is older than age.
func (s *Store) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emails WHERE created_at < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("node: delete old emails: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Package tokenstore persists Spotify OAuth credentials, one row per
// user, encrypted at rest.
package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no credential exists for an email.
var ErrNotFound = errors.New("not found")

// Credential is one user's stored token set, decrypted.
type Credential struct {
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch seconds
}

// Store is a Postgres-backed credential store. Token fields are
// encrypted before write and decrypted after read; the database never
// sees plaintext tokens.
type Store struct {
	pool   *pgxpool.Pool
	cipher *Cipher
}

// New creates a Store, verifying the database connection.
func New(ctx context.Context, databaseURL string, cipher *Cipher) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool, cipher: cipher}, nil
}

// Migrate creates the tokens table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS tokens (
			email TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating tokens table: %w", err)
	}
	return nil
}

// Get retrieves and decrypts the credential for an email.
// Returns ErrNotFound when no row exists.
func (s *Store) Get(ctx context.Context, email string) (*Credential, error) {
	query := `
		SELECT email, access_token, refresh_token, expires_at
		FROM tokens
		WHERE email = $1
	`
	var cred Credential
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&cred.Email,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}

	if cred.AccessToken, err = s.cipher.Decrypt(cred.AccessToken); err != nil {
		return nil, fmt.Errorf("access token for %s: %w", email, err)
	}
	if cred.RefreshToken, err = s.cipher.Decrypt(cred.RefreshToken); err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", email, err)
	}

	return &cred, nil
}

// Put encrypts and upserts a credential. Concurrent writers for the
// same email race benignly: the last write wins, and tokens are
// re-derivable from the authorization provider.
func (s *Store) Put(ctx context.Context, email, accessToken, refreshToken string, expiresAt int64) error {
	encAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return err
	}
	encRefresh, err := s.cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tokens (email, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.pool.Exec(ctx, query, email, encAccess, encRefresh, expiresAt); err != nil {
		return fmt.Errorf("upserting tokens: %w", err)
	}
	return nil
}

// Delete removes the credential for an email. Deleting an absent row
// is not an error; deletion is an administrative operation.
func (s *Store) Delete(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE email = $1`, email); err != nil {
		return fmt.Errorf("deleting tokens: %w", err)
	}
	return nil
}

// Exists reports whether a credential row exists for an email.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking tokens: %w", err)
	}
	return exists, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

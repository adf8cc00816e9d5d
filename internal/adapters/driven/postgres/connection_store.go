package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore implements driven.ConnectionStore using PostgreSQL.
// It stores token ciphertext as-is; encryption is the caller's job.
type ConnectionStore struct {
	db *sql.DB
}

// NewConnectionStore creates a new PostgreSQL-backed connection store.
func NewConnectionStore(db *sql.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

const connectionColumns = `id, user_id, provider, access_token, refresh_token,
	   shop_domain, token_expires_at, connected_at, last_synced_at, is_active, metadata`

// GetActive retrieves the active connection for (user, provider).
// Inactive rows look exactly like missing ones: both are ErrNotFound.
func (s *ConnectionStore) GetActive(ctx context.Context, userID string, provider domain.Provider) (*domain.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM tool_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE
	`

	conn, err := scanConnection(s.db.QueryRowContext(ctx, query, userID, string(provider)))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	return conn, nil
}

// ListActive retrieves all active connections for a user.
func (s *ConnectionStore) ListActive(ctx context.Context, userID string) ([]*domain.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM tool_connections
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY connected_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []*domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	return conns, nil
}

// Upsert inserts or replaces the (user, provider) row. The conflict update
// rewrites every token field, reactivates the row and bumps last_synced_at,
// so concurrent callbacks resolve last-write-wins.
func (s *ConnectionStore) Upsert(ctx context.Context, userID string, provider domain.Provider, fields driven.ConnectionUpsert) (*domain.Connection, error) {
	metadata, err := json.Marshal(fields.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO tool_connections (
			user_id, provider, access_token, refresh_token,
			shop_domain, token_expires_at, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			shop_domain = EXCLUDED.shop_domain,
			token_expires_at = EXCLUDED.token_expires_at,
			metadata = EXCLUDED.metadata,
			last_synced_at = NOW(),
			is_active = TRUE
		RETURNING ` + connectionColumns + `
	`

	conn, err := scanConnection(s.db.QueryRowContext(ctx, query,
		userID,
		string(provider),
		fields.AccessToken,
		nullString(fields.RefreshToken),
		nullString(fields.ShopDomain),
		nullTime(fields.TokenExpiresAt),
		metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}

	return conn, nil
}

// Disconnect soft-deletes the connection by clearing is_active.
// Disconnecting a missing or already inactive connection is a no-op.
func (s *ConnectionStore) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	query := `
		UPDATE tool_connections
		SET is_active = FALSE
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE
	`

	if _, err := s.db.ExecContext(ctx, query, userID, string(provider)); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	var conn domain.Connection
	var provider string
	var refreshToken, shopDomain sql.NullString
	var tokenExpiresAt sql.NullTime
	var metadata []byte

	err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&provider,
		&conn.AccessToken,
		&refreshToken,
		&shopDomain,
		&tokenExpiresAt,
		&conn.ConnectedAt,
		&conn.LastSyncedAt,
		&conn.IsActive,
		&metadata,
	)
	if err != nil {
		return nil, err
	}

	conn.Provider = domain.Provider(provider)
	conn.RefreshToken = refreshToken.String
	conn.ShopDomain = shopDomain.String
	if tokenExpiresAt.Valid {
		t := tokenExpiresAt.Time
		conn.TokenExpiresAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &conn.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &conn, nil
}

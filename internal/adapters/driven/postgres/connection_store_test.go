package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

var connectionCols = []string{
	"id", "user_id", "provider", "access_token", "refresh_token",
	"shop_domain", "token_expires_at", "connected_at", "last_synced_at", "is_active", "metadata",
}

func newMockStore(t *testing.T) (*ConnectionStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewConnectionStore(db), mock
}

func TestConnectionStore_GetActive(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM tool_connections").
		WithArgs("user-1", "shopify").
		WillReturnRows(sqlmock.NewRows(connectionCols).AddRow(
			"conn-1", "user-1", "shopify", "enc-access", "enc-refresh",
			"mystore.myshopify.com", nil, now, now, true,
			[]byte(`{"scope":"read_orders","shop":"mystore.myshopify.com"}`),
		))

	conn, err := store.GetActive(context.Background(), "user-1", domain.ProviderShopify)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if conn.Provider != domain.ProviderShopify {
		t.Errorf("Provider = %q", conn.Provider)
	}
	if conn.AccessToken != "enc-access" || conn.RefreshToken != "enc-refresh" {
		t.Errorf("tokens = %q / %q", conn.AccessToken, conn.RefreshToken)
	}
	if conn.ShopDomain != "mystore.myshopify.com" {
		t.Errorf("ShopDomain = %q", conn.ShopDomain)
	}
	if conn.TokenExpiresAt != nil {
		t.Errorf("TokenExpiresAt = %v, want nil", conn.TokenExpiresAt)
	}
	if conn.Metadata["scope"] != "read_orders" {
		t.Errorf("Metadata = %v", conn.Metadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConnectionStore_GetActiveNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM tool_connections").
		WithArgs("user-1", "stripe").
		WillReturnRows(sqlmock.NewRows(connectionCols))

	_, err := store.GetActive(context.Background(), "user-1", domain.ProviderStripe)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetActive error = %v, want ErrNotFound", err)
	}
}

func TestConnectionStore_Upsert(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	expires := now.Add(time.Hour)

	mock.ExpectQuery("INSERT INTO tool_connections .+ ON CONFLICT \\(user_id, provider\\) DO UPDATE").
		WithArgs("user-1", "amazon", "enc-access", "enc-refresh", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(connectionCols).AddRow(
			"conn-2", "user-1", "amazon", "enc-access", "enc-refresh",
			nil, expires, now, now, true, []byte(`{}`),
		))

	conn, err := store.Upsert(context.Background(), "user-1", domain.ProviderAmazon, driven.ConnectionUpsert{
		AccessToken:    "enc-access",
		RefreshToken:   "enc-refresh",
		TokenExpiresAt: &expires,
		Metadata:       domain.Metadata{},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !conn.IsActive {
		t.Error("IsActive = false after upsert")
	}
	if conn.TokenExpiresAt == nil || !conn.TokenExpiresAt.Equal(expires) {
		t.Errorf("TokenExpiresAt = %v, want %v", conn.TokenExpiresAt, expires)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConnectionStore_Disconnect(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE tool_connections\\s+SET is_active = FALSE").
		WithArgs("user-1", "shopify").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Disconnect(context.Background(), "user-1", domain.ProviderShopify); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	// Disconnecting again touches zero rows and still succeeds.
	mock.ExpectExec("UPDATE tool_connections\\s+SET is_active = FALSE").
		WithArgs("user-1", "shopify").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Disconnect(context.Background(), "user-1", domain.ProviderShopify); err != nil {
		t.Fatalf("Disconnect (repeat): %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConnectionStore_ListActive(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM tool_connections").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(connectionCols).
			AddRow("c1", "user-1", "shopify", "enc-a", nil, "mystore.myshopify.com", nil, now, now, true, []byte(`{}`)).
			AddRow("c2", "user-1", "stripe", "enc-b", nil, nil, nil, now, now, true, []byte(`{"livemode":false}`)))

	conns, err := store.ListActive(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("len(conns) = %d, want 2", len(conns))
	}
	if conns[1].Metadata["livemode"] != false {
		t.Errorf("Metadata = %v", conns[1].Metadata)
	}
}

package domain

import (
	"testing"
	"time"
)

func connWithExpiry(d time.Duration) *Connection {
	at := time.Now().Add(d)
	return &Connection{
		UserID:         "user-1",
		Provider:       ProviderAmazon,
		IsActive:       true,
		TokenExpiresAt: &at,
		ConnectedAt:    time.Now(),
	}
}

func TestConnection_ExpiringSoon(t *testing.T) {
	tests := []struct {
		name string
		conn *Connection
		want bool
	}{
		{"inside buffer window", connWithExpiry(4 * time.Minute), true},
		{"outside buffer window", connWithExpiry(10 * time.Minute), false},
		{"already expired", connWithExpiry(-time.Minute), true},
		{"no expiry", &Connection{Provider: ProviderShopify, IsActive: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conn.ExpiringSoon(); got != tt.want {
				t.Errorf("ExpiringSoon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnection_IsExpired(t *testing.T) {
	if connWithExpiry(time.Hour).IsExpired() {
		t.Error("future expiry should not be expired")
	}
	if !connWithExpiry(-time.Second).IsExpired() {
		t.Error("past expiry should be expired")
	}
	noExpiry := &Connection{Provider: ProviderShopify, IsActive: true}
	if noExpiry.IsExpired() {
		t.Error("nil expiry should never be expired")
	}
}

func TestConnection_Status(t *testing.T) {
	conn := connWithExpiry(-time.Minute)
	conn.ShopDomain = "mystore.myshopify.com"

	status := conn.Status()
	if status.Connected {
		t.Error("expired connection should not report connected")
	}
	if !status.IsExpired {
		t.Error("expected IsExpired = true")
	}
	if !status.NeedsRefresh {
		t.Error("expected NeedsRefresh = true")
	}
	if status.ShopDomain != "mystore.myshopify.com" {
		t.Errorf("ShopDomain = %s", status.ShopDomain)
	}

	fresh := connWithExpiry(time.Hour)
	status = fresh.Status()
	if !status.Connected {
		t.Error("active unexpired connection should report connected")
	}
	if status.NeedsRefresh {
		t.Error("expected NeedsRefresh = false outside the buffer window")
	}
}

func TestTokenSet_ExpiresAt(t *testing.T) {
	now := time.Now()

	ts := &TokenSet{AccessToken: "tok", ExpiresIn: 3600}
	at := ts.ExpiresAt(now)
	if at == nil {
		t.Fatal("expected non-nil expiry")
	}
	if got := at.Sub(now); got != time.Hour {
		t.Errorf("expiry offset = %v, want 1h", got)
	}

	nonExpiring := &TokenSet{AccessToken: "tok"}
	if nonExpiring.ExpiresAt(now) != nil {
		t.Error("expected nil expiry for ExpiresIn = 0")
	}
}

package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartHandler_AddRequiresCSRF(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	listing := s.createListing(t, seller.ID, "10.00", 5)
	c := s.client(t)

	status, body := c.do(http.MethodPost, "/cart/add", "", map[string]any{"listing_id": listing.ID})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(0), body["cart_count"])

	status, body = c.do(http.MethodGet, "/cart/count", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["cart_count"])
}

func TestCartHandler_AddAndReuseToken(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	listing := s.createListing(t, seller.ID, "10.00", 5)
	c := s.client(t)

	tok := c.token("cart")
	status, body := c.do(http.MethodPost, "/cart/add", tok, map[string]any{"listing_id": listing.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Item added to cart", body["message"])
	assert.Equal(t, float64(1), body["cart_count"])
	assert.Equal(t, "20.00", body["cart_total"])

	// tokens are single use
	status, body = c.do(http.MethodPost, "/cart/add", tok, map[string]any{"listing_id": listing.ID})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, float64(1), body["cart_count"])

	status, body = c.do(http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(2), items[0].(map[string]any)["quantity"])
}

func TestCartHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	listing := s.createListing(t, seller.ID, "10.00", 2)
	c := s.client(t)

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{"unknown listing", "/cart/add", map[string]any{"listing_id": 999}, http.StatusNotFound},
		{"zero quantity", "/cart/add", map[string]any{"listing_id": listing.ID, "quantity": 0}, http.StatusBadRequest},
		{"over stock", "/cart/add", map[string]any{"listing_id": listing.ID, "quantity": 3}, http.StatusConflict},
		{"quantity over cart limit", "/cart/add", map[string]any{"listing_id": listing.ID, "quantity": 100}, http.StatusBadRequest},
		{"quantity overflow", "/cart/add", map[string]any{"listing_id": listing.ID, "quantity": int64(1) << 62}, http.StatusBadRequest},
		{"update over cart limit", "/cart/update", map[string]any{"listing_id": listing.ID, "quantity": 100}, http.StatusBadRequest},
		{"missing listing id", "/cart/add", map[string]any{"quantity": 1}, http.StatusBadRequest},
		{"update without quantity", "/cart/update", map[string]any{"listing_id": listing.ID}, http.StatusBadRequest},
		{"remove missing line", "/cart/remove", map[string]any{"listing_id": listing.ID}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.do(http.MethodPost, tt.path, c.token("cart"), tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(0), body["cart_count"])
		})
	}
}

func TestCartHandler_QuantityLimitMessage(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	listing := s.createListing(t, seller.ID, "10.00", 0)
	c := s.client(t)

	status, body := c.do(http.MethodPost, "/cart/add", c.token("cart"), map[string]any{"listing_id": listing.ID, "quantity": 100})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "quantity must be at most 99", body["message"])
}

func TestCartHandler_UpdateRemoveClear(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	first := s.createListing(t, seller.ID, "10.00", 5)
	second := s.createListing(t, seller.ID, "2.50", 5)
	c := s.client(t)

	_, _ = c.do(http.MethodPost, "/cart/add", c.token("cart"), map[string]any{"listing_id": first.ID})
	_, _ = c.do(http.MethodPost, "/cart/add", c.token("cart"), map[string]any{"listing_id": second.ID})

	status, body := c.do(http.MethodPost, "/cart/update", c.token("cart"), map[string]any{"listing_id": first.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart updated", body["message"])
	assert.Equal(t, float64(2), body["cart_count"])
	assert.Equal(t, "32.50", body["cart_total"])

	status, body = c.do(http.MethodPost, "/cart/remove", c.token("cart"), map[string]any{"listing_id": second.ID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item removed from cart", body["message"])
	assert.Equal(t, float64(1), body["cart_count"])
	assert.Equal(t, "30.00", body["cart_total"])

	status, body = c.do(http.MethodPost, "/cart/clear", c.token("cart"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart cleared", body["message"])
	assert.Equal(t, float64(0), body["cart_count"])
	assert.Equal(t, "0.00", body["cart_total"])
}

func TestCartHandler_SessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	seller := s.createUser(t, "seller@example.com")
	listing := s.createListing(t, seller.ID, "10.00", 5)
	alice, bob := s.client(t), s.client(t)

	_, _ = alice.do(http.MethodPost, "/cart/add", alice.token("cart"), map[string]any{"listing_id": listing.ID})

	// a token from another session is rejected
	status, _ := bob.do(http.MethodPost, "/cart/add", alice.token("cart"), map[string]any{"listing_id": listing.ID})
	assert.Equal(t, http.StatusForbidden, status)

	_, body := bob.do(http.MethodGet, "/cart/count", "", nil)
	assert.Equal(t, float64(0), body["cart_count"])
	_, body = alice.do(http.MethodGet, "/cart/count", "", nil)
	assert.Equal(t, float64(1), body["cart_count"])
}

package connectors

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pazarsync/backend/internal/domain/integration"
)

func hepsiburadaTestCreds() integration.CredentialHandle {
	return testCreds(integration.PlatformCodeHepsiburada, map[string]string{
		integration.CredentialFieldUsername:   "merchant-user",
		integration.CredentialFieldPassword:   "merchant-pass",
		integration.CredentialFieldMerchantID: "m-777",
	})
}

func TestHepsiburadaConnector_Capabilities(t *testing.T) {
	c := NewHepsiburadaConnector("", nil)

	assert.Equal(t, integration.PlatformCodeHepsiburada, c.Platform())
	caps := c.Capabilities()
	assert.True(t, caps.Has(integration.CapabilityCancelOrder))
	assert.False(t, caps.Has(integration.CapabilityListCategories))
	assert.False(t, caps.Has(integration.CapabilityRefund))
}

func TestHepsiburadaConnector_AuthHeader(t *testing.T) {
	c := NewHepsiburadaConnector("", nil)

	auth, err := c.AuthHeader(hepsiburadaTestCreds())
	require.NoError(t, err)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("merchant-user:merchant-pass")), auth)
}

func TestHepsiburadaConnector_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/api/products/m-777", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("page"))

		resp := HepsiburadaProductList{
			PageCount: 2,
			Page:      0,
			Listings: []HepsiburadaProduct{{
				MerchantSKU: "MUG-01",
				Barcode:     "8680000000001",
				Title:       "Ceramic Mug",
				Price:       "149.90",
				Stock:       12,
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewHepsiburadaConnector(server.URL, server.Client())
	page, err := c.ListProducts(context.Background(), hepsiburadaTestCreds(), integration.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "MUG-01", page.Items[0].SKU)
	assert.True(t, page.Items[0].Price.Equal(decimal.NewFromFloat(149.90)))
}

func TestHepsiburadaConnector_UpsertProductReturnsSKU(t *testing.T) {
	var got HepsiburadaProduct
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHepsiburadaConnector(server.URL, server.Client())
	externalID, err := c.UpsertProduct(context.Background(), hepsiburadaTestCreds(), &integration.Product{
		SKU:     "MUG-01",
		Barcode: "8680000000001",
		Title:   "Ceramic Mug",
		Price:   decimal.NewFromFloat(149.90),
		Stock:   12,
	})
	require.NoError(t, err)

	assert.Equal(t, "MUG-01", externalID)
	assert.Equal(t, "MUG-01", got.MerchantSKU)
	assert.Equal(t, "149.90", got.Price)
}

func TestHepsiburadaConnector_UpdateStock(t *testing.T) {
	var got HepsiburadaInventoryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/products/api/inventory/m-777", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHepsiburadaConnector(server.URL, server.Client())
	err := c.UpdateStock(context.Background(), hepsiburadaTestCreds(), &integration.StockUpdate{
		ExternalID: "MUG-01",
		Quantity:   3,
	})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "MUG-01", got.Items[0].MerchantSKU)
	require.NotNil(t, got.Items[0].AvailableStock)
	assert.Equal(t, 3, *got.Items[0].AvailableStock)
	assert.Empty(t, got.Items[0].Price)
}

func TestHepsiburadaConnector_ListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/api/orders/m-777", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("beginDate"))

		resp := HepsiburadaOrderList{
			PageCount: 1,
			Orders: []HepsiburadaOrder{{
				OrderNumber:  "HB-3001",
				Status:       "InTransit",
				TotalPrice:   HepsiburadaAmount{Amount: 299.80, Currency: "TRY"},
				CustomerName: "Mehmet Demir",
				City:         "Ankara",
				OrderDate:    "2026-03-10T09:30:00Z",
				Items: []HepsiburadaOrderItem{{
					LineItemID:  "li-55",
					MerchantSKU: "MUG-01",
					Quantity:    2,
					UnitPrice:   HepsiburadaAmount{Amount: 149.90, Currency: "TRY"},
				}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewHepsiburadaConnector(server.URL, server.Client())
	window := integration.OrderWindow{Start: time.Now().Add(-24 * time.Hour)}
	page, err := c.ListOrders(context.Background(), hepsiburadaTestCreds(), window, integration.PageRequest{})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	order := page.Items[0]
	assert.Equal(t, "HB-3001", order.ExternalID)
	assert.Equal(t, integration.OrderStatusShipped, order.Status)
	assert.Equal(t, "TRY", order.Currency)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), order.PlacedAt)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "li-55", order.Lines[0].ExternalLineID)
}

func TestHepsiburadaConnector_UpdateOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		status   integration.OrderStatus
		wantPath string
	}{
		{integration.OrderStatusPicking, "/orders/api/orders/m-777/HB-3001/accept"},
		{integration.OrderStatusShipped, "/orders/api/orders/m-777/HB-3001/ship"},
		{integration.OrderStatusDelivered, "/orders/api/orders/m-777/HB-3001/deliver"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			c := NewHepsiburadaConnector(server.URL, server.Client())
			err := c.UpdateOrderStatus(context.Background(), hepsiburadaTestCreds(), &integration.OrderStatusUpdate{
				ExternalOrderID: "HB-3001",
				Status:          tt.status,
				TrackingNumber:  "TRK-1",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestHepsiburadaConnector_UpdateOrderStatusWithoutTransition(t *testing.T) {
	c := NewHepsiburadaConnector("http://unused.invalid", nil)

	err := c.UpdateOrderStatus(context.Background(), hepsiburadaTestCreds(), &integration.OrderStatusUpdate{
		ExternalOrderID: "HB-3001",
		Status:          integration.OrderStatusInvoiced,
	})
	require.Error(t, err)
	assert.Equal(t, integration.FailureRemoteValidation, integration.KindOf(err))
}

func TestHepsiburadaConnector_CancelOrder(t *testing.T) {
	var got HepsiburadaRejectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/api/orders/m-777/HB-3001/reject", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHepsiburadaConnector(server.URL, server.Client())
	err := c.CancelOrder(context.Background(), hepsiburadaTestCreds(), "HB-3001", "out of stock")
	require.NoError(t, err)
	assert.Equal(t, "out of stock", got.Reason)
}

func TestHepsiburadaConnector_UnsupportedOperation(t *testing.T) {
	c := NewHepsiburadaConnector("", nil)

	_, err := c.ListCategories(context.Background(), hepsiburadaTestCreds())
	require.Error(t, err)
	assert.Equal(t, integration.FailureUnsupportedOperation, integration.KindOf(err))
}

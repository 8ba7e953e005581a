package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pazarsync/backend/internal/domain/integration"
)

func n11TestCreds() integration.CredentialHandle {
	return testCreds(integration.PlatformCodeN11, map[string]string{
		integration.CredentialFieldAPIKey:    "n11-app-key",
		integration.CredentialFieldAPISecret: "n11-app-sikret",
	})
}

// n11Respond marshals an XML response body the way the platform does.
func n11Respond(t *testing.T, w http.ResponseWriter, response any) {
	t.Helper()
	raw, err := xml.Marshal(response)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(raw)
}

func TestN11Connector_Capabilities(t *testing.T) {
	c := NewN11Connector("", nil)

	assert.Equal(t, integration.PlatformCodeN11, c.Platform())
	caps := c.Capabilities()
	assert.True(t, caps.Has(integration.CapabilityUpdateStock))
	assert.True(t, caps.Has(integration.CapabilityListCategories))
	// prices only move through product saves
	assert.False(t, caps.Has(integration.CapabilityUpdatePrice))
}

func TestN11Connector_SignIsDeterministic(t *testing.T) {
	c := NewN11Connector("", nil)
	creds := n11TestCreds()

	sig1, err := c.Sign(creds, []byte("GetProductList"))
	require.NoError(t, err)
	sig2, err := c.Sign(creds, []byte("GetProductList"))
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)

	mac := hmac.New(sha1.New, []byte("n11-app-sikret"))
	mac.Write([]byte("n11-app-key"))
	mac.Write([]byte("GetProductList"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), sig1)

	other, err := c.Sign(creds, []byte("SaveProduct"))
	require.NoError(t, err)
	assert.NotEqual(t, sig1, other)
}

func TestN11Connector_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ProductService", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req N11GetProductListRequest
		require.NoError(t, xml.Unmarshal(body, &req))
		assert.Equal(t, "n11-app-key", req.Auth.AppKey)
		assert.NotEmpty(t, req.Auth.Signature)
		assert.Equal(t, 0, req.PagingData.CurrentPage)

		resp := N11GetProductListResponse{
			Result:     N11Result{Status: "success"},
			PagingData: N11PagingData{CurrentPage: 0, PageCount: 2},
		}
		product := N11Product{
			ID:                9001,
			ProductSellerCode: "MUG-01",
			Title:             "Ceramic Mug",
			Price:             "149.90",
		}
		product.StockItems.StockItem = []N11StockItem{{SellerStockCode: "MUG-01", Quantity: 12}}
		resp.Products.Product = []N11Product{product}
		n11Respond(t, w, resp)
	}))
	defer server.Close()

	c := NewN11Connector(server.URL, server.Client())
	page, err := c.ListProducts(context.Background(), n11TestCreds(), integration.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "MUG-01", page.Items[0].SKU)
	assert.Equal(t, 12, page.Items[0].Stock)
	assert.True(t, page.Items[0].Price.Equal(decimal.NewFromFloat(149.90)))
}

func TestN11Connector_UpsertProductReturnsNumericID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ProductService", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req N11SaveProductRequest
		require.NoError(t, xml.Unmarshal(body, &req))
		assert.Equal(t, "MUG-01", req.Product.ProductSellerCode)

		resp := N11SaveProductResponse{
			Result:  N11Result{Status: "success"},
			Product: N11Product{ID: 424242, ProductSellerCode: "MUG-01"},
		}
		n11Respond(t, w, resp)
	}))
	defer server.Close()

	c := NewN11Connector(server.URL, server.Client())
	externalID, err := c.UpsertProduct(context.Background(), n11TestCreds(), &integration.Product{
		SKU:      "MUG-01",
		Title:    "Ceramic Mug",
		Price:    decimal.NewFromFloat(149.90),
		Currency: "TL",
		Stock:    12,
	})
	require.NoError(t, err)
	assert.Equal(t, "424242", externalID)
}

func TestN11Connector_ResultClassification(t *testing.T) {
	tests := []struct {
		name      string
		errorCode string
		wantKind  integration.FailureKind
	}{
		{"authorization", "SELLER_API_AUTHORIZATION", integration.FailureAuth},
		{"authentication", "AUTHENTICATION_FAILED", integration.FailureAuth},
		{"throttled", "THROTTLING", integration.FailureRateLimited},
		{"validation", "PRODUCT_VALIDATION", integration.FailureRemoteValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// business failures ride on HTTP 200
				resp := N11SimpleResponse{Result: N11Result{
					Status:       "failure",
					ErrorCode:    tt.errorCode,
					ErrorMessage: "rejected",
				}}
				n11Respond(t, w, resp)
			}))
			defer server.Close()

			c := NewN11Connector(server.URL, server.Client())
			err := c.UpdateStock(context.Background(), n11TestCreds(), &integration.StockUpdate{SKU: "MUG-01", Quantity: 1})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, integration.KindOf(err))
		})
	}
}

func TestN11Connector_UpdateOrderStatusShipsOnly(t *testing.T) {
	var gotReq N11ShipmentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/OrderService", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, xml.Unmarshal(body, &gotReq))
		n11Respond(t, w, N11SimpleResponse{Result: N11Result{Status: "success"}})
	}))
	defer server.Close()

	c := NewN11Connector(server.URL, server.Client())

	err := c.UpdateOrderStatus(context.Background(), n11TestCreds(), &integration.OrderStatusUpdate{
		ExternalOrderID: "5151",
		Status:          integration.OrderStatusShipped,
		TrackingNumber:  "TRK-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5151), gotReq.OrderItemID)
	assert.Equal(t, "TRK-1", gotReq.TrackingNumber)

	// any other transition is a terminal validation failure
	err = c.UpdateOrderStatus(context.Background(), n11TestCreds(), &integration.OrderStatusUpdate{
		ExternalOrderID: "5151",
		Status:          integration.OrderStatusDelivered,
	})
	require.Error(t, err)
	assert.Equal(t, integration.FailureRemoteValidation, integration.KindOf(err))

	// non-numeric order IDs never reach the network
	err = c.UpdateOrderStatus(context.Background(), n11TestCreds(), &integration.OrderStatusUpdate{
		ExternalOrderID: "not-a-number",
		Status:          integration.OrderStatusShipped,
	})
	require.Error(t, err)
	assert.Equal(t, integration.FailureRemoteValidation, integration.KindOf(err))
}

func TestN11Connector_ListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := N11OrderListResponse{
			Result:     N11Result{Status: "success"},
			PagingData: N11PagingData{CurrentPage: 0, PageCount: 1},
		}
		order := N11Order{
			ID:          5151,
			OrderNumber: "N11-5151",
			Status:      "Shipped",
			TotalAmount: "299.80",
			Buyer:       N11Buyer{FullName: "Fatma Kaya", Email: "fatma@example.com"},
			City:        "İzmir",
			CreateDate:  "10/03/2026",
		}
		order.OrderItemList.OrderItem = []N11OrderItem{{
			ID:                61,
			ProductSellerCode: "MUG-01",
			ProductName:       "Ceramic Mug",
			Quantity:          2,
			Price:             "149.90",
		}}
		resp.OrderList.Order = []N11Order{order}
		n11Respond(t, w, resp)
	}))
	defer server.Close()

	c := NewN11Connector(server.URL, server.Client())
	page, err := c.ListOrders(context.Background(), n11TestCreds(), integration.OrderWindow{}, integration.PageRequest{})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	order := page.Items[0]
	assert.Equal(t, "5151", order.ExternalID)
	assert.Equal(t, "N11-5151", order.OrderNumber)
	assert.Equal(t, integration.OrderStatusShipped, order.Status)
	assert.Equal(t, "Fatma Kaya", order.CustomerName)
	assert.Equal(t, "İzmir", order.ShippingCity)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "61", order.Lines[0].ExternalLineID)
}

func TestN11Connector_ListCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/CategoryService", r.URL.Path)
		resp := N11CategoryListResponse{Result: N11Result{Status: "success"}}
		resp.CategoryList.Category = []N11Category{
			{ID: 1000, Name: "Ev & Yaşam"},
			{ID: 1001, Name: "Elektronik"},
		}
		n11Respond(t, w, resp)
	}))
	defer server.Close()

	c := NewN11Connector(server.URL, server.Client())
	nodes, err := c.ListCategories(context.Background(), n11TestCreds())
	require.NoError(t, err)

	require.Len(t, nodes, 2)
	assert.Equal(t, "1000", nodes[0].ExternalID)
	assert.Equal(t, "Ev & Yaşam", nodes[0].Name)
}

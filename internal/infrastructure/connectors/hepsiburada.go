package connectors

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// Hepsiburada OMS endpoints. Sandbox is a separate host.
const (
	HepsiburadaBaseURL        = "https://oms-external.hepsiburada.com"
	HepsiburadaSandboxBaseURL = "https://oms-external-sandbox.hepsiburada.com"
)

// HepsiburadaConnector adapts the Hepsiburada merchant API. Authentication is
// HTTP Basic over the merchant username/password; listings are keyed by
// merchant SKU.
type HepsiburadaConnector struct {
	unsupportedOps
	baseURL        string
	sandboxBaseURL string
	client         *http.Client
}

// NewHepsiburadaConnector creates a Hepsiburada connector. Empty URLs and nil
// client select production defaults.
func NewHepsiburadaConnector(baseURL string, client *http.Client) *HepsiburadaConnector {
	sandboxURL := HepsiburadaSandboxBaseURL
	if baseURL == "" {
		baseURL = HepsiburadaBaseURL
	} else {
		// An explicit base URL (tests, proxies) serves both environments
		sandboxURL = baseURL
	}
	return &HepsiburadaConnector{
		unsupportedOps: unsupportedOps{platform: integration.PlatformCodeHepsiburada},
		baseURL:        strings.TrimRight(baseURL, "/"),
		sandboxBaseURL: strings.TrimRight(sandboxURL, "/"),
		client:         newHTTPClient(client),
	}
}

// Platform returns the platform code this connector handles.
func (c *HepsiburadaConnector) Platform() integration.PlatformCode {
	return integration.PlatformCodeHepsiburada
}

// Capabilities returns the operations Hepsiburada supports.
func (c *HepsiburadaConnector) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityListProducts,
		integration.CapabilityUpsertProduct,
		integration.CapabilityUpdateStock,
		integration.CapabilityUpdatePrice,
		integration.CapabilityListOrders,
		integration.CapabilityUpdateOrderStatus,
		integration.CapabilityCancelOrder,
	)
}

// AuthHeader builds the Basic authorization value from username/password.
func (c *HepsiburadaConnector) AuthHeader(creds integration.CredentialHandle) (string, error) {
	username, err := creds.Get(integration.CredentialFieldUsername)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	password, err := creds.Get(integration.CredentialFieldPassword)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password)), nil
}

// merchantID extracts the merchant path segment from the credentials.
func (c *HepsiburadaConnector) merchantID(creds integration.CredentialHandle) (string, error) {
	mid, err := creds.Get(integration.CredentialFieldMerchantID)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	return mid, nil
}

// ListProducts pages through the merchant's listings.
func (c *HepsiburadaConnector) ListProducts(ctx context.Context, creds integration.CredentialHandle, page integration.PageRequest) (*integration.ProductPage, error) {
	page.Normalize()
	mid, err := c.merchantID(creds)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page-1))
	query.Set("size", strconv.Itoa(page.Size))

	body, err := c.do(ctx, creds, http.MethodGet, fmt.Sprintf("/products/api/products/%s", mid), query, nil)
	if err != nil {
		return nil, err
	}

	var resp HepsiburadaProductList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.ProductPage{
		Items:      make([]integration.Product, 0, len(resp.Listings)),
		Page:       resp.Page + 1,
		TotalPages: resp.PageCount,
	}
	for i := range resp.Listings {
		out.Items = append(out.Items, convertHepsiburadaProduct(&resp.Listings[i]))
	}
	return out, nil
}

// UpsertProduct submits one listing. Hepsiburada keys listings by merchant
// SKU, which doubles as the external ID.
func (c *HepsiburadaConnector) UpsertProduct(ctx context.Context, creds integration.CredentialHandle, product *integration.Product) (string, error) {
	mid, err := c.merchantID(creds)
	if err != nil {
		return "", err
	}

	payload := HepsiburadaProduct{
		MerchantSKU: product.SKU,
		Barcode:     product.Barcode,
		Title:       product.Title,
		Description: product.Description,
		Brand:       product.Brand,
		CategoryID:  product.CategoryID,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		VATRate:     product.VATRate,
		Images:      product.Images,
		Attributes:  product.Attributes,
	}

	if _, err := c.do(ctx, creds, http.MethodPost, fmt.Sprintf("/products/api/products/%s", mid), nil, payload); err != nil {
		return "", err
	}
	return product.SKU, nil
}

// UpdateStock pushes one stock level through the inventory endpoint.
func (c *HepsiburadaConnector) UpdateStock(ctx context.Context, creds integration.CredentialHandle, update *integration.StockUpdate) error {
	mid, err := c.merchantID(creds)
	if err != nil {
		return err
	}

	stock := update.Quantity
	req := HepsiburadaInventoryRequest{
		Items: []HepsiburadaInventoryItem{{
			MerchantSKU:    hepsiburadaSKU(update.ExternalID, update.SKU),
			AvailableStock: &stock,
		}},
	}

	_, err = c.do(ctx, creds, http.MethodPut, fmt.Sprintf("/products/api/inventory/%s", mid), nil, req)
	return err
}

// UpdatePrice pushes one price through the inventory endpoint.
func (c *HepsiburadaConnector) UpdatePrice(ctx context.Context, creds integration.CredentialHandle, update *integration.PriceUpdate) error {
	mid, err := c.merchantID(creds)
	if err != nil {
		return err
	}

	req := HepsiburadaInventoryRequest{
		Items: []HepsiburadaInventoryItem{{
			MerchantSKU: hepsiburadaSKU(update.ExternalID, update.SKU),
			Price:       update.Price.StringFixed(2),
		}},
	}

	_, err = c.do(ctx, creds, http.MethodPut, fmt.Sprintf("/products/api/inventory/%s", mid), nil, req)
	return err
}

// ListOrders pulls orders created within the window.
func (c *HepsiburadaConnector) ListOrders(ctx context.Context, creds integration.CredentialHandle, window integration.OrderWindow, page integration.PageRequest) (*integration.OrderPage, error) {
	page.Normalize()
	mid, err := c.merchantID(creds)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page-1))
	query.Set("size", strconv.Itoa(page.Size))
	if !window.Start.IsZero() {
		query.Set("beginDate", window.Start.UTC().Format(time.RFC3339))
	}
	if !window.End.IsZero() {
		query.Set("endDate", window.End.UTC().Format(time.RFC3339))
	}

	body, err := c.do(ctx, creds, http.MethodGet, fmt.Sprintf("/orders/api/orders/%s", mid), query, nil)
	if err != nil {
		return nil, err
	}

	var resp HepsiburadaOrderList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.OrderPage{
		Items:      make([]integration.Order, 0, len(resp.Orders)),
		Page:       resp.Page + 1,
		TotalPages: resp.PageCount,
	}
	for i := range resp.Orders {
		out.Items = append(out.Items, convertHepsiburadaOrder(&resp.Orders[i]))
	}
	return out, nil
}

// UpdateOrderStatus pushes a status transition. Hepsiburada models
// transitions as dedicated endpoints rather than a status field.
func (c *HepsiburadaConnector) UpdateOrderStatus(ctx context.Context, creds integration.CredentialHandle, update *integration.OrderStatusUpdate) error {
	mid, err := c.merchantID(creds)
	if err != nil {
		return err
	}

	base := fmt.Sprintf("/orders/api/orders/%s/%s", mid, update.ExternalOrderID)
	switch update.Status {
	case integration.OrderStatusPicking:
		_, err = c.do(ctx, creds, http.MethodPost, base+"/accept", nil, nil)
	case integration.OrderStatusShipped:
		_, err = c.do(ctx, creds, http.MethodPost, base+"/ship", nil, HepsiburadaShipRequest{
			TrackingNumber: update.TrackingNumber,
			CargoCompany:   update.CarrierCode,
		})
	case integration.OrderStatusDelivered:
		_, err = c.do(ctx, creds, http.MethodPost, base+"/deliver", nil, nil)
	default:
		return integration.NewFailure(integration.FailureRemoteValidation, c.Platform(),
			fmt.Sprintf("status %s has no transition on this platform", update.Status))
	}
	return err
}

// CancelOrder rejects one order with a reason.
func (c *HepsiburadaConnector) CancelOrder(ctx context.Context, creds integration.CredentialHandle, externalOrderID, reason string) error {
	mid, err := c.merchantID(creds)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, creds, http.MethodPost,
		fmt.Sprintf("/orders/api/orders/%s/%s/reject", mid, externalOrderID), nil,
		HepsiburadaRejectRequest{Reason: reason})
	return err
}

// do performs one HTTP round trip against the merchant API.
func (c *HepsiburadaConnector) do(ctx context.Context, creds integration.CredentialHandle, method, path string, query url.Values, payload any) ([]byte, error) {
	auth, err := c.AuthHeader(creds)
	if err != nil {
		return nil, err
	}

	host := c.baseURL
	if creds.Sandbox() {
		host = c.sandboxBaseURL
	}
	endpoint := host + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody []byte
	if payload != nil {
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pazarsync/1.0")
	req.Header.Set("Authorization", auth)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(c.Platform(), err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, classifyTransport(c.Platform(), err)
	}
	if err := classifyStatus(c.Platform(), resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// hepsiburadaSKU picks the merchant SKU for an inventory row.
func hepsiburadaSKU(externalID, sku string) string {
	if externalID != "" {
		return externalID
	}
	return sku
}

// convertHepsiburadaProduct converts a listing to the normalized form.
func convertHepsiburadaProduct(p *HepsiburadaProduct) integration.Product {
	price, _ := decimal.NewFromString(p.Price)
	return integration.Product{
		SKU:         p.MerchantSKU,
		Barcode:     p.Barcode,
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand,
		CategoryID:  p.CategoryID,
		Price:       price,
		Currency:    "TRY",
		Stock:       p.Stock,
		VATRate:     p.VATRate,
		Images:      p.Images,
		Attributes:  p.Attributes,
	}
}

// convertHepsiburadaOrder converts an order to the normalized form.
func convertHepsiburadaOrder(o *HepsiburadaOrder) integration.Order {
	order := integration.Order{
		ExternalID:    o.OrderNumber,
		OrderNumber:   o.OrderNumber,
		Status:        mapHepsiburadaOrderStatus(o.Status),
		Total:         decimal.NewFromFloat(o.TotalPrice.Amount),
		Currency:      o.TotalPrice.Currency,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.Email,
		ShippingCity:  o.City,
		Lines:         make([]integration.OrderLine, 0, len(o.Items)),
	}
	if t, err := time.Parse(time.RFC3339, o.OrderDate); err == nil {
		order.PlacedAt = t.UTC()
	}
	for _, item := range o.Items {
		order.Lines = append(order.Lines, integration.OrderLine{
			ExternalLineID: item.LineItemID,
			SKU:            item.MerchantSKU,
			Title:          item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      decimal.NewFromFloat(item.UnitPrice.Amount),
		})
	}
	return order
}

// mapHepsiburadaOrderStatus maps a Hepsiburada order status to the
// normalized one.
func mapHepsiburadaOrderStatus(status string) integration.OrderStatus {
	switch strings.ToLower(status) {
	case "open", "received":
		return integration.OrderStatusCreated
	case "packaged", "readytoship":
		return integration.OrderStatusPicking
	case "intransit", "shipped":
		return integration.OrderStatusShipped
	case "delivered":
		return integration.OrderStatusDelivered
	case "cancelled", "cancelledbymerchant", "cancelledbycustomer":
		return integration.OrderStatusCancelled
	case "returned":
		return integration.OrderStatusReturned
	default:
		return integration.OrderStatusCreated
	}
}

// Ensure HepsiburadaConnector implements the connector port
var (
	_ integration.Connector     = (*HepsiburadaConnector)(nil)
	_ integration.StaticKeyAuth = (*HepsiburadaConnector)(nil)
)

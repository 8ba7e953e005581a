package connectors

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
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

// TrendyolBaseURL is the supplier gateway endpoint (production and sandbox
// share it; sandbox is selected by the credentials).
const TrendyolBaseURL = "https://api.trendyol.com/sapigw"

// TrendyolConnector adapts the Trendyol supplier API. Authentication is HTTP
// Basic over the api key/secret pair; products are keyed by barcode.
type TrendyolConnector struct {
	unsupportedOps
	baseURL string
	client  *http.Client
}

// NewTrendyolConnector creates a Trendyol connector. Empty baseURL and nil
// client select production defaults.
func NewTrendyolConnector(baseURL string, client *http.Client) *TrendyolConnector {
	if baseURL == "" {
		baseURL = TrendyolBaseURL
	}
	return &TrendyolConnector{
		unsupportedOps: unsupportedOps{platform: integration.PlatformCodeTrendyol},
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         newHTTPClient(client),
	}
}

// Platform returns the platform code this connector handles.
func (c *TrendyolConnector) Platform() integration.PlatformCode {
	return integration.PlatformCodeTrendyol
}

// Capabilities returns the operations Trendyol supports.
func (c *TrendyolConnector) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityListProducts,
		integration.CapabilityUpsertProduct,
		integration.CapabilityUpdateStock,
		integration.CapabilityUpdatePrice,
		integration.CapabilityListOrders,
		integration.CapabilityUpdateOrderStatus,
		integration.CapabilityListCategories,
	)
}

// AuthHeader builds the Basic authorization value from the key/secret pair.
func (c *TrendyolConnector) AuthHeader(creds integration.CredentialHandle) (string, error) {
	key, err := creds.Get(integration.CredentialFieldAPIKey)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	secret, err := creds.Get(integration.CredentialFieldAPISecret)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	token := base64.StdEncoding.EncodeToString([]byte(key + ":" + secret))
	return "Basic " + token, nil
}

// supplierID extracts the supplier path segment from the credentials.
func (c *TrendyolConnector) supplierID(creds integration.CredentialHandle) (string, error) {
	sid, err := creds.Get(integration.CredentialFieldSupplierID)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	return sid, nil
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// ListProducts pages through the supplier's product listing.
func (c *TrendyolConnector) ListProducts(ctx context.Context, creds integration.CredentialHandle, page integration.PageRequest) (*integration.ProductPage, error) {
	page.Normalize()
	sid, err := c.supplierID(creds)
	if err != nil {
		return nil, err
	}

	// Trendyol pages are 0-based
	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page-1))
	query.Set("size", strconv.Itoa(page.Size))

	body, err := c.do(ctx, creds, http.MethodGet, fmt.Sprintf("/suppliers/%s/products", sid), query, nil)
	if err != nil {
		return nil, err
	}

	var resp TrendyolProductPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.ProductPage{
		Items:      make([]integration.Product, 0, len(resp.Content)),
		Page:       resp.Page + 1,
		TotalPages: resp.TotalPages,
	}
	for i := range resp.Content {
		out.Items = append(out.Items, convertTrendyolProduct(&resp.Content[i]))
	}
	return out, nil
}

// UpsertProduct submits one product listing. Trendyol identifies listings by
// barcode, so the barcode doubles as the external ID.
func (c *TrendyolConnector) UpsertProduct(ctx context.Context, creds integration.CredentialHandle, product *integration.Product) (string, error) {
	sid, err := c.supplierID(creds)
	if err != nil {
		return "", err
	}

	item := TrendyolItem{
		Barcode:       product.Barcode,
		Title:         product.Title,
		ProductMainID: product.SKU,
		Brand:         product.Brand,
		StockCode:     product.SKU,
		Quantity:      product.Stock,
		Description:   product.Description,
		CurrencyType:  product.Currency,
		ListPrice:     product.ListPrice.StringFixed(2),
		SalePrice:     product.Price.StringFixed(2),
		VATRate:       product.VATRate,
	}
	if product.CategoryID != "" {
		if id, convErr := strconv.ParseInt(product.CategoryID, 10, 64); convErr == nil {
			item.CategoryID = id
		}
	}
	for _, img := range product.Images {
		item.Images = append(item.Images, TrendyolImage{URL: img})
	}
	for name, value := range product.Attributes {
		item.Attributes = append(item.Attributes, TrendyolItemAttribute{AttributeName: name, AttributeValue: value})
	}

	body, err := c.do(ctx, creds, http.MethodPost, fmt.Sprintf("/suppliers/%s/products", sid), nil, TrendyolItemsRequest{Items: []TrendyolItem{item}})
	if err != nil {
		return "", err
	}

	var resp TrendyolBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	return product.Barcode, nil
}

// UpdateStock pushes one stock level through the price-and-inventory endpoint.
func (c *TrendyolConnector) UpdateStock(ctx context.Context, creds integration.CredentialHandle, update *integration.StockUpdate) error {
	sid, err := c.supplierID(creds)
	if err != nil {
		return err
	}

	quantity := update.Quantity
	req := TrendyolPriceInventoryRequest{
		Items: []TrendyolPriceInventoryItem{{
			Barcode:  trendyolBarcode(update.ExternalID, update.SKU),
			Quantity: &quantity,
		}},
	}

	_, err = c.do(ctx, creds, http.MethodPost, fmt.Sprintf("/suppliers/%s/products/price-and-inventory", sid), nil, req)
	return err
}

// UpdatePrice pushes one price through the price-and-inventory endpoint.
func (c *TrendyolConnector) UpdatePrice(ctx context.Context, creds integration.CredentialHandle, update *integration.PriceUpdate) error {
	sid, err := c.supplierID(creds)
	if err != nil {
		return err
	}

	item := TrendyolPriceInventoryItem{
		Barcode:   trendyolBarcode(update.ExternalID, update.SKU),
		SalePrice: update.Price.StringFixed(2),
	}
	if update.ListPrice.IsPositive() {
		item.ListPrice = update.ListPrice.StringFixed(2)
	}

	_, err = c.do(ctx, creds, http.MethodPost, fmt.Sprintf("/suppliers/%s/products/price-and-inventory", sid), nil, TrendyolPriceInventoryRequest{Items: []TrendyolPriceInventoryItem{item}})
	return err
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// ListOrders pulls orders created within the window. Trendyol uses epoch
// millisecond timestamps and 0-based pages.
func (c *TrendyolConnector) ListOrders(ctx context.Context, creds integration.CredentialHandle, window integration.OrderWindow, page integration.PageRequest) (*integration.OrderPage, error) {
	page.Normalize()
	sid, err := c.supplierID(creds)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page-1))
	query.Set("size", strconv.Itoa(page.Size))
	if !window.Start.IsZero() {
		query.Set("startDate", strconv.FormatInt(window.Start.UnixMilli(), 10))
	}
	if !window.End.IsZero() {
		query.Set("endDate", strconv.FormatInt(window.End.UnixMilli(), 10))
	}

	body, err := c.do(ctx, creds, http.MethodGet, fmt.Sprintf("/suppliers/%s/orders", sid), query, nil)
	if err != nil {
		return nil, err
	}

	var resp TrendyolOrderPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.OrderPage{
		Items:      make([]integration.Order, 0, len(resp.Content)),
		Page:       resp.Page + 1,
		TotalPages: resp.TotalPages,
	}
	for i := range resp.Content {
		out.Items = append(out.Items, convertTrendyolOrder(&resp.Content[i]))
	}
	return out, nil
}

// UpdateOrderStatus pushes a status transition for one order.
func (c *TrendyolConnector) UpdateOrderStatus(ctx context.Context, creds integration.CredentialHandle, update *integration.OrderStatusUpdate) error {
	sid, err := c.supplierID(creds)
	if err != nil {
		return err
	}

	req := TrendyolStatusUpdateRequest{
		Status:         mapToTrendyolOrderStatus(update.Status),
		TrackingNumber: update.TrackingNumber,
		InvoiceNumber:  update.InvoiceNumber,
	}

	_, err = c.do(ctx, creds, http.MethodPut, fmt.Sprintf("/suppliers/%s/orders/%s/status", sid, update.ExternalOrderID), nil, req)
	return err
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ListCategories returns the flattened platform category tree.
func (c *TrendyolConnector) ListCategories(ctx context.Context, creds integration.CredentialHandle) ([]integration.CategoryNode, error) {
	body, err := c.do(ctx, creds, http.MethodGet, "/product-categories", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp TrendyolCategoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	var nodes []integration.CategoryNode
	var walk func(cats []TrendyolCategory, parentID int64)
	walk = func(cats []TrendyolCategory, parentID int64) {
		for _, cat := range cats {
			node := integration.CategoryNode{
				ExternalID: strconv.FormatInt(cat.ID, 10),
				Name:       cat.Name,
				Leaf:       len(cat.SubCategories) == 0,
			}
			if parentID > 0 {
				node.ParentID = strconv.FormatInt(parentID, 10)
			}
			nodes = append(nodes, node)
			walk(cat.SubCategories, cat.ID)
		}
	}
	walk(resp.Categories, 0)
	return nodes, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// VerifyWebhook checks the HMAC-SHA256 hex signature over the raw payload,
// keyed by the supplier's api secret.
func (c *TrendyolConnector) VerifyWebhook(creds integration.CredentialHandle, payload []byte, signature string) error {
	secret, err := creds.Get(integration.CredentialFieldAPISecret)
	if err != nil {
		return integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return integration.ErrWebhookBadSignature
	}
	return nil
}

// WebhookEventID extracts the dedup key and normalized event type.
func (c *TrendyolConnector) WebhookEventID(payload []byte) (string, integration.WebhookEventType, error) {
	var envelope TrendyolWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", "", fmt.Errorf("trendyol: malformed webhook payload: %w", err)
	}

	eventType, err := mapTrendyolEventType(envelope.EventType)
	if err != nil {
		return "", "", err
	}

	eventID := envelope.EventID
	if eventID == "" && envelope.OrderNumber != "" {
		eventID = envelope.EventType + "-" + envelope.OrderNumber
	}
	if eventID == "" {
		return "", "", fmt.Errorf("trendyol: webhook payload carries no event identifier")
	}
	return eventID, eventType, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// do performs one HTTP round trip against the supplier gateway.
func (c *TrendyolConnector) do(ctx context.Context, creds integration.CredentialHandle, method, path string, query url.Values, payload any) ([]byte, error) {
	auth, err := c.AuthHeader(creds)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), marshalErr)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
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

// trendyolBarcode picks the barcode for a stock/price row. The external ID
// is the barcode once a mapping is bound; the SKU covers the first push.
func trendyolBarcode(externalID, sku string) string {
	if externalID != "" {
		return externalID
	}
	return sku
}

// convertTrendyolProduct converts a Trendyol listing to the normalized form.
func convertTrendyolProduct(p *TrendyolProduct) integration.Product {
	product := integration.Product{
		SKU:         p.StockCode,
		Barcode:     p.Barcode,
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand,
		Price:       decimal.NewFromFloat(p.SalePrice),
		ListPrice:   decimal.NewFromFloat(p.ListPrice),
		Currency:    "TRY",
		Stock:       p.Quantity,
		VATRate:     p.VATRate,
	}
	if p.CategoryID > 0 {
		product.CategoryID = strconv.FormatInt(p.CategoryID, 10)
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, img.URL)
	}
	if len(p.Attributes) > 0 {
		product.Attributes = make(map[string]string, len(p.Attributes))
		for _, attr := range p.Attributes {
			product.Attributes[attr.AttributeName] = attr.AttributeValue
		}
	}
	return product
}

// convertTrendyolOrder converts a Trendyol order to the normalized form.
func convertTrendyolOrder(o *TrendyolOrder) integration.Order {
	order := integration.Order{
		ExternalID:    o.OrderNumber,
		OrderNumber:   o.OrderNumber,
		Status:        mapTrendyolOrderStatus(o.Status),
		Total:         decimal.NewFromFloat(o.TotalPrice),
		Currency:      o.CurrencyCode,
		CustomerName:  strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName),
		CustomerEmail: o.CustomerEmail,
		ShippingCity:  o.ShipmentAddress.City,
		Lines:         make([]integration.OrderLine, 0, len(o.Lines)),
	}
	if o.OrderDate > 0 {
		order.PlacedAt = time.UnixMilli(o.OrderDate).UTC()
	}
	for _, line := range o.Lines {
		order.Lines = append(order.Lines, integration.OrderLine{
			ExternalLineID: strconv.FormatInt(line.LineID, 10),
			SKU:            line.MerchantSKU,
			Title:          line.ProductName,
			Quantity:       line.Quantity,
			UnitPrice:      decimal.NewFromFloat(line.Price),
		})
	}
	return order
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// mapTrendyolOrderStatus maps a Trendyol order status to the normalized one.
func mapTrendyolOrderStatus(status string) integration.OrderStatus {
	switch status {
	case "Created", "Awaiting":
		return integration.OrderStatusCreated
	case "Picking":
		return integration.OrderStatusPicking
	case "Invoiced":
		return integration.OrderStatusInvoiced
	case "Shipped":
		return integration.OrderStatusShipped
	case "Delivered":
		return integration.OrderStatusDelivered
	case "Cancelled", "UnSupplied":
		return integration.OrderStatusCancelled
	case "Returned":
		return integration.OrderStatusReturned
	default:
		return integration.OrderStatusCreated
	}
}

// mapToTrendyolOrderStatus maps a normalized status to Trendyol's form.
func mapToTrendyolOrderStatus(status integration.OrderStatus) string {
	switch status {
	case integration.OrderStatusCreated:
		return "Created"
	case integration.OrderStatusPicking:
		return "Picking"
	case integration.OrderStatusInvoiced:
		return "Invoiced"
	case integration.OrderStatusShipped:
		return "Shipped"
	case integration.OrderStatusDelivered:
		return "Delivered"
	case integration.OrderStatusCancelled:
		return "Cancelled"
	case integration.OrderStatusReturned:
		return "Returned"
	default:
		return ""
	}
}

// mapTrendyolEventType maps a Trendyol webhook event type onto the
// normalized set.
func mapTrendyolEventType(eventType string) (integration.WebhookEventType, error) {
	switch eventType {
	case "OrderCreated":
		return integration.WebhookEventOrderCreated, nil
	case "OrderStatusChanged":
		return integration.WebhookEventOrderStatusChanged, nil
	case "OrderCancelled":
		return integration.WebhookEventOrderCancelled, nil
	case "StockChanged":
		return integration.WebhookEventStockChanged, nil
	default:
		return "", fmt.Errorf("trendyol: unknown webhook event type %q", eventType)
	}
}

// Ensure TrendyolConnector implements the connector port and its
// sub-capabilities
var (
	_ integration.Connector       = (*TrendyolConnector)(nil)
	_ integration.StaticKeyAuth   = (*TrendyolConnector)(nil)
	_ integration.WebhookVerifier = (*TrendyolConnector)(nil)
)

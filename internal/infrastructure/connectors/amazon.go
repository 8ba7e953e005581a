package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// Amazon Selling Partner endpoints for the EU region, which hosts the
// Turkish marketplace, and the Login-with-Amazon token service.
const (
	AmazonBaseURL     = "https://sellingpartnerapi-eu.amazon.com"
	AmazonLWATokenURL = "https://api.amazon.com/auth/o2/token"

	// amazonMarketplaceTR is the Amazon Turkey marketplace identifier
	amazonMarketplaceTR = "A33AVAJ2PDY3EV"
)

// tokenExpirySlack refreshes tokens this long before they actually expire
const tokenExpirySlack = 60 * time.Second

// lwaToken is one cached access token.
type lwaToken struct {
	value     string
	expiresAt time.Time
}

// valid reports whether the token is usable at the given instant.
func (t *lwaToken) valid(now time.Time) bool {
	return t != nil && t.value != "" && now.Before(t.expiresAt.Add(-tokenExpirySlack))
}

// AmazonSPConnector adapts the Amazon Selling Partner API. Access tokens are
// minted from the stored refresh token through LWA and cached in memory per
// integration; the credential handle itself never changes.
type AmazonSPConnector struct {
	unsupportedOps
	baseURL  string
	tokenURL string
	client   *http.Client

	mu     sync.Mutex
	tokens map[uuid.UUID]*lwaToken
}

// NewAmazonSPConnector creates an Amazon SP connector. Empty URLs and nil
// client select production defaults.
func NewAmazonSPConnector(baseURL, tokenURL string, client *http.Client) *AmazonSPConnector {
	if baseURL == "" {
		baseURL = AmazonBaseURL
	}
	if tokenURL == "" {
		tokenURL = AmazonLWATokenURL
	}
	return &AmazonSPConnector{
		unsupportedOps: unsupportedOps{platform: integration.PlatformCodeAmazonSP},
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokenURL:       tokenURL,
		client:         newHTTPClient(client),
		tokens:         make(map[uuid.UUID]*lwaToken),
	}
}

// Platform returns the platform code this connector handles.
func (c *AmazonSPConnector) Platform() integration.PlatformCode {
	return integration.PlatformCodeAmazonSP
}

// Capabilities returns the operations Amazon supports here. Product creation
// goes through Amazon's feed pipeline, which is out of scope; listings are
// read and patched, orders are pulled.
func (c *AmazonSPConnector) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityListProducts,
		integration.CapabilityUpdateStock,
		integration.CapabilityUpdatePrice,
		integration.CapabilityListOrders,
	)
}

// ---------------------------------------------------------------------------
// LWA token handling
// ---------------------------------------------------------------------------

// RefreshIfExpired force-refreshes the cached access token for the
// integration. Called by the resilience layer after an AUTH failure, so the
// cached token is dropped even if it has not nominally expired.
func (c *AmazonSPConnector) RefreshIfExpired(ctx context.Context, creds integration.CredentialHandle) error {
	c.mu.Lock()
	delete(c.tokens, creds.IntegrationID())
	c.mu.Unlock()

	_, err := c.accessToken(ctx, creds)
	return err
}

// accessToken returns a valid cached token or mints a new one through LWA.
func (c *AmazonSPConnector) accessToken(ctx context.Context, creds integration.CredentialHandle) (string, error) {
	c.mu.Lock()
	cached := c.tokens[creds.IntegrationID()]
	c.mu.Unlock()
	if cached.valid(time.Now()) {
		return cached.value, nil
	}

	clientID, err := creds.Get(integration.CredentialFieldClientID)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	clientSecret, err := creds.Get(integration.CredentialFieldClientSecret)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	refreshToken, err := creds.Get(integration.CredentialFieldRefreshToken)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransport(c.Platform(), err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", classifyTransport(c.Platform(), err)
	}
	if resp.StatusCode >= 400 {
		// A rejected grant is an auth failure regardless of status class
		return "", integration.NewFailure(integration.FailureAuth, c.Platform(),
			fmt.Sprintf("LWA token grant rejected: HTTP %d: %s", resp.StatusCode, bodyExcerpt(body)))
	}

	var token AmazonTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	if token.AccessToken == "" {
		return "", integration.NewFailure(integration.FailureAuth, c.Platform(), "LWA token grant returned no access token")
	}

	expiresIn := token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	minted := &lwaToken{value: token.AccessToken, expiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second)}

	c.mu.Lock()
	c.tokens[creds.IntegrationID()] = minted
	c.mu.Unlock()

	return minted.value, nil
}

// sellerID extracts the seller path segment from the credentials.
func (c *AmazonSPConnector) sellerID(creds integration.CredentialHandle) (string, error) {
	sid, err := creds.Get(integration.CredentialFieldSellerID)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	return sid, nil
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// ListProducts pages through the seller's listings. Amazon paginates with an
// opaque token, so total pages are only known once the last page is reached.
func (c *AmazonSPConnector) ListProducts(ctx context.Context, creds integration.CredentialHandle, page integration.PageRequest) (*integration.ProductPage, error) {
	page.Normalize()
	sid, err := c.sellerID(creds)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("marketplaceIds", amazonMarketplaceTR)
	query.Set("pageSize", fmt.Sprintf("%d", page.Size))
	query.Set("includedData", "summaries,offers")

	body, err := c.do(ctx, creds, http.MethodGet, fmt.Sprintf("/listings/2021-08-01/items/%s", sid), query, nil)
	if err != nil {
		return nil, err
	}

	var resp AmazonListingsPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.ProductPage{
		Items:      make([]integration.Product, 0, len(resp.Items)),
		Page:       page.Page,
		TotalPages: page.Page,
	}
	if resp.Pagination.NextToken != "" {
		out.TotalPages = page.Page + 1
	}
	for i := range resp.Items {
		out.Items = append(out.Items, convertAmazonListing(&resp.Items[i]))
	}
	return out, nil
}

// UpdateStock patches one listing's fulfillment availability.
func (c *AmazonSPConnector) UpdateStock(ctx context.Context, creds integration.CredentialHandle, update *integration.StockUpdate) error {
	sid, err := c.sellerID(creds)
	if err != nil {
		return err
	}

	patch := AmazonPatchRequest{
		ProductType: "PRODUCT",
		Patches: []AmazonPatchOperation{{
			Op:   "replace",
			Path: "/attributes/fulfillment_availability",
			Value: []AmazonFulfillmentAvailability{{
				FulfillmentChannelCode: "DEFAULT",
				Quantity:               update.Quantity,
			}},
		}},
	}

	query := url.Values{}
	query.Set("marketplaceIds", amazonMarketplaceTR)

	_, err = c.do(ctx, creds, http.MethodPatch, fmt.Sprintf("/listings/2021-08-01/items/%s/%s", sid, url.PathEscape(amazonSKU(update.ExternalID, update.SKU))), query, patch)
	return err
}

// UpdatePrice patches one listing's purchasable offer.
func (c *AmazonSPConnector) UpdatePrice(ctx context.Context, creds integration.CredentialHandle, update *integration.PriceUpdate) error {
	sid, err := c.sellerID(creds)
	if err != nil {
		return err
	}

	patch := AmazonPatchRequest{
		ProductType: "PRODUCT",
		Patches: []AmazonPatchOperation{{
			Op:   "replace",
			Path: "/attributes/purchasable_offer",
			Value: []map[string]any{{
				"marketplace_id": amazonMarketplaceTR,
				"currency":       update.Currency,
				"our_price": []map[string]any{{
					"schedule": []map[string]string{{"value_with_tax": update.Price.StringFixed(2)}},
				}},
			}},
		}},
	}

	query := url.Values{}
	query.Set("marketplaceIds", amazonMarketplaceTR)

	_, err = c.do(ctx, creds, http.MethodPatch, fmt.Sprintf("/listings/2021-08-01/items/%s/%s", sid, url.PathEscape(amazonSKU(update.ExternalID, update.SKU))), query, patch)
	return err
}

// ListOrders pulls orders created within the window.
func (c *AmazonSPConnector) ListOrders(ctx context.Context, creds integration.CredentialHandle, window integration.OrderWindow, page integration.PageRequest) (*integration.OrderPage, error) {
	page.Normalize()

	query := url.Values{}
	query.Set("MarketplaceIds", amazonMarketplaceTR)
	query.Set("MaxResultsPerPage", fmt.Sprintf("%d", page.Size))
	if !window.Start.IsZero() {
		query.Set("CreatedAfter", window.Start.UTC().Format(time.RFC3339))
	}
	if !window.End.IsZero() {
		query.Set("CreatedBefore", window.End.UTC().Format(time.RFC3339))
	}

	body, err := c.do(ctx, creds, http.MethodGet, "/orders/v0/orders", query, nil)
	if err != nil {
		return nil, err
	}

	var resp AmazonOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	out := &integration.OrderPage{
		Items:      make([]integration.Order, 0, len(resp.Payload.Orders)),
		Page:       page.Page,
		TotalPages: page.Page,
	}
	if resp.Payload.NextToken != "" {
		out.TotalPages = page.Page + 1
	}
	for i := range resp.Payload.Orders {
		out.Items = append(out.Items, convertAmazonOrder(&resp.Payload.Orders[i]))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// do performs one HTTP round trip against the SP API with a bearer token.
func (c *AmazonSPConnector) do(ctx context.Context, creds integration.CredentialHandle, method, path string, query url.Values, payload any) ([]byte, error) {
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-amz-access-token", token)

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

// amazonSKU picks the SKU path segment for a listing patch.
func amazonSKU(externalID, sku string) string {
	if externalID != "" {
		return externalID
	}
	return sku
}

// convertAmazonListing converts a listing to the normalized form.
func convertAmazonListing(item *AmazonListingsItem) integration.Product {
	product := integration.Product{SKU: item.SKU}
	for _, summary := range item.Summaries {
		if summary.MarketplaceID == amazonMarketplaceTR || product.Title == "" {
			product.Title = summary.ItemName
			product.Barcode = summary.ASIN
		}
	}
	for _, offer := range item.Offers {
		if offer.MarketplaceID == amazonMarketplaceTR || product.Currency == "" {
			if price, err := decimal.NewFromString(offer.Price.Amount); err == nil {
				product.Price = price
			}
			product.Currency = offer.Price.CurrencyCode
		}
	}
	return product
}

// convertAmazonOrder converts an order to the normalized form.
func convertAmazonOrder(o *AmazonOrder) integration.Order {
	total, _ := decimal.NewFromString(o.OrderTotal.Amount)
	order := integration.Order{
		ExternalID:    o.AmazonOrderID,
		OrderNumber:   o.AmazonOrderID,
		Status:        mapAmazonOrderStatus(o.OrderStatus),
		Total:         total,
		Currency:      o.OrderTotal.CurrencyCode,
		CustomerName:  o.BuyerInfo.BuyerName,
		CustomerEmail: o.BuyerInfo.BuyerEmail,
	}
	if t, err := time.Parse(time.RFC3339, o.PurchaseDate); err == nil {
		order.PlacedAt = t.UTC()
	}
	return order
}

// mapAmazonOrderStatus maps an Amazon order status to the normalized one.
func mapAmazonOrderStatus(status string) integration.OrderStatus {
	switch status {
	case "Pending", "PendingAvailability":
		return integration.OrderStatusCreated
	case "Unshipped", "PartiallyShipped":
		return integration.OrderStatusPicking
	case "Shipped", "InvoiceUnconfirmed":
		return integration.OrderStatusShipped
	case "Delivered":
		return integration.OrderStatusDelivered
	case "Canceled":
		return integration.OrderStatusCancelled
	default:
		return integration.OrderStatusCreated
	}
}

// Ensure AmazonSPConnector implements the connector port with token refresh
var (
	_ integration.Connector         = (*AmazonSPConnector)(nil)
	_ integration.OAuth2RefreshAuth = (*AmazonSPConnector)(nil)
)

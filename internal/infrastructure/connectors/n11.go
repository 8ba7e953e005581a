package connectors

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// N11BaseURL is the N11 web service endpoint (shared by sandbox and
// production; the credentials select the environment).
const N11BaseURL = "https://api.n11.com/ws"

// n11DateLayout is the dd/MM/yyyy format N11 expects in order queries.
const n11DateLayout = "02/01/2006"

// N11Connector adapts the N11 XML web services. Every request embeds the
// app key/secret pair and an HMAC-SHA1 request signature.
type N11Connector struct {
	unsupportedOps
	baseURL string
	client  *http.Client
}

// NewN11Connector creates an N11 connector. Empty baseURL and nil client
// select production defaults.
func NewN11Connector(baseURL string, client *http.Client) *N11Connector {
	if baseURL == "" {
		baseURL = N11BaseURL
	}
	return &N11Connector{
		unsupportedOps: unsupportedOps{platform: integration.PlatformCodeN11},
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         newHTTPClient(client),
	}
}

// Platform returns the platform code this connector handles.
func (c *N11Connector) Platform() integration.PlatformCode {
	return integration.PlatformCodeN11
}

// Capabilities returns the operations N11 supports. Price changes ride on
// product saves, so there is no separate UPDATE_PRICE.
func (c *N11Connector) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityListProducts,
		integration.CapabilityUpsertProduct,
		integration.CapabilityUpdateStock,
		integration.CapabilityListOrders,
		integration.CapabilityUpdateOrderStatus,
		integration.CapabilityCancelOrder,
		integration.CapabilityListCategories,
	)
}

// Sign computes the HMAC-SHA1 signature N11 requires: the payload prefixed
// with the app key, keyed by the app secret, base64 encoded.
func (c *N11Connector) Sign(creds integration.CredentialHandle, payload []byte) (string, error) {
	key, err := creds.Get(integration.CredentialFieldAPIKey)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	secret, err := creds.Get(integration.CredentialFieldAPISecret)
	if err != nil {
		return "", integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(key))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// auth builds the request credential block, signing the request name.
func (c *N11Connector) auth(creds integration.CredentialHandle, requestName string) (N11Auth, error) {
	key, err := creds.Get(integration.CredentialFieldAPIKey)
	if err != nil {
		return N11Auth{}, integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	secret, err := creds.Get(integration.CredentialFieldAPISecret)
	if err != nil {
		return N11Auth{}, integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	signature, err := c.Sign(creds, []byte(requestName))
	if err != nil {
		return N11Auth{}, err
	}
	return N11Auth{AppKey: key, AppSecret: secret, Signature: signature}, nil
}

// ListProducts pages through the seller's products.
func (c *N11Connector) ListProducts(ctx context.Context, creds integration.CredentialHandle, page integration.PageRequest) (*integration.ProductPage, error) {
	page.Normalize()
	auth, err := c.auth(creds, "GetProductList")
	if err != nil {
		return nil, err
	}

	req := N11GetProductListRequest{
		Auth:       auth,
		PagingData: N11PagingData{CurrentPage: page.Page - 1, PageSize: page.Size},
	}

	var resp N11GetProductListResponse
	if err := c.call(ctx, "ProductService", req, &resp, &resp.Result); err != nil {
		return nil, err
	}

	out := &integration.ProductPage{
		Items:      make([]integration.Product, 0, len(resp.Products.Product)),
		Page:       resp.PagingData.CurrentPage + 1,
		TotalPages: resp.PagingData.PageCount,
	}
	for i := range resp.Products.Product {
		out.Items = append(out.Items, convertN11Product(&resp.Products.Product[i]))
	}
	return out, nil
}

// UpsertProduct saves one product. N11 assigns a numeric product ID, which
// becomes the external ID.
func (c *N11Connector) UpsertProduct(ctx context.Context, creds integration.CredentialHandle, product *integration.Product) (string, error) {
	auth, err := c.auth(creds, "SaveProduct")
	if err != nil {
		return "", err
	}

	item := N11Product{
		ProductSellerCode: product.SKU,
		Title:             product.Title,
		Description:       product.Description,
		Price:             product.Price.StringFixed(2),
		CurrencyType:      product.Currency,
	}
	if product.CategoryID != "" {
		if id, convErr := strconv.ParseInt(product.CategoryID, 10, 64); convErr == nil {
			item.CategoryID = id
		}
	}
	item.StockItems.StockItem = []N11StockItem{{SellerStockCode: product.SKU, Quantity: product.Stock}}

	req := N11SaveProductRequest{Auth: auth, Product: item}

	var resp N11SaveProductResponse
	if err := c.call(ctx, "ProductService", req, &resp, &resp.Result); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.Product.ID, 10), nil
}

// UpdateStock updates one stock level by seller stock code.
func (c *N11Connector) UpdateStock(ctx context.Context, creds integration.CredentialHandle, update *integration.StockUpdate) error {
	auth, err := c.auth(creds, "UpdateStockByStockSellerCode")
	if err != nil {
		return err
	}

	req := N11UpdateStockRequest{Auth: auth}
	req.StockItems.StockItem = []N11StockItem{{SellerStockCode: update.SKU, Quantity: update.Quantity}}

	var resp N11SimpleResponse
	return c.call(ctx, "ProductStockService", req, &resp, &resp.Result)
}

// ListOrders pulls orders created within the window.
func (c *N11Connector) ListOrders(ctx context.Context, creds integration.CredentialHandle, window integration.OrderWindow, page integration.PageRequest) (*integration.OrderPage, error) {
	page.Normalize()
	auth, err := c.auth(creds, "DetailedOrderList")
	if err != nil {
		return nil, err
	}

	req := N11OrderListRequest{
		Auth:       auth,
		PagingData: N11PagingData{CurrentPage: page.Page - 1, PageSize: page.Size},
	}
	if !window.Start.IsZero() {
		req.SearchData.Period.StartDate = window.Start.Format(n11DateLayout)
	}
	if !window.End.IsZero() {
		req.SearchData.Period.EndDate = window.End.Format(n11DateLayout)
	}

	var resp N11OrderListResponse
	if err := c.call(ctx, "OrderService", req, &resp, &resp.Result); err != nil {
		return nil, err
	}

	out := &integration.OrderPage{
		Items:      make([]integration.Order, 0, len(resp.OrderList.Order)),
		Page:       resp.PagingData.CurrentPage + 1,
		TotalPages: resp.PagingData.PageCount,
	}
	for i := range resp.OrderList.Order {
		out.Items = append(out.Items, convertN11Order(&resp.OrderList.Order[i]))
	}
	return out, nil
}

// UpdateOrderStatus pushes a status transition. N11 only models the shipment
// transition; other states progress on the platform itself.
func (c *N11Connector) UpdateOrderStatus(ctx context.Context, creds integration.CredentialHandle, update *integration.OrderStatusUpdate) error {
	if update.Status != integration.OrderStatusShipped {
		return integration.NewFailure(integration.FailureRemoteValidation, c.Platform(),
			fmt.Sprintf("status %s has no transition on this platform", update.Status))
	}

	auth, err := c.auth(creds, "MakeOrderItemShipment")
	if err != nil {
		return err
	}
	orderID, err := strconv.ParseInt(update.ExternalOrderID, 10, 64)
	if err != nil {
		return integration.NewFailure(integration.FailureRemoteValidation, c.Platform(),
			fmt.Sprintf("order ID %q is not numeric", update.ExternalOrderID))
	}

	req := N11ShipmentRequest{
		Auth:           auth,
		OrderItemID:    orderID,
		TrackingNumber: update.TrackingNumber,
	}

	var resp N11SimpleResponse
	return c.call(ctx, "OrderService", req, &resp, &resp.Result)
}

// CancelOrder rejects one order with a reason.
func (c *N11Connector) CancelOrder(ctx context.Context, creds integration.CredentialHandle, externalOrderID, reason string) error {
	auth, err := c.auth(creds, "OrderItemReject")
	if err != nil {
		return err
	}
	orderID, err := strconv.ParseInt(externalOrderID, 10, 64)
	if err != nil {
		return integration.NewFailure(integration.FailureRemoteValidation, c.Platform(),
			fmt.Sprintf("order ID %q is not numeric", externalOrderID))
	}

	req := N11RejectRequest{Auth: auth, OrderID: orderID, RejectReason: reason}

	var resp N11SimpleResponse
	return c.call(ctx, "OrderService", req, &resp, &resp.Result)
}

// ListCategories returns the top level category list.
func (c *N11Connector) ListCategories(ctx context.Context, creds integration.CredentialHandle) ([]integration.CategoryNode, error) {
	auth, err := c.auth(creds, "GetTopLevelCategories")
	if err != nil {
		return nil, err
	}

	var resp N11CategoryListResponse
	if err := c.call(ctx, "CategoryService", N11CategoryListRequest{Auth: auth}, &resp, &resp.Result); err != nil {
		return nil, err
	}

	nodes := make([]integration.CategoryNode, 0, len(resp.CategoryList.Category))
	for _, cat := range resp.CategoryList.Category {
		nodes = append(nodes, integration.CategoryNode{
			ExternalID: strconv.FormatInt(cat.ID, 10),
			Name:       cat.Name,
			Leaf:       false,
		})
	}
	return nodes, nil
}

// call performs one XML round trip against an N11 service and checks the
// embedded result block. N11 reports business rejections inside HTTP 200
// responses, so the result status drives classification.
func (c *N11Connector) call(ctx context.Context, service string, request any, response any, result *N11Result) error {
	raw, err := xml.Marshal(request)
	if err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	body := append([]byte(xml.Header), raw...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+service, bytes.NewReader(body))
	if err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("User-Agent", "pazarsync/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(c.Platform(), err)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return classifyTransport(c.Platform(), err)
	}
	if err := classifyStatus(c.Platform(), resp, respBody); err != nil {
		return err
	}

	if err := xml.Unmarshal(respBody, response); err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	if !result.IsSuccess() {
		return classifyN11Result(c.Platform(), result)
	}
	return nil
}

// classifyN11Result maps an N11 failure result onto the taxonomy.
func classifyN11Result(platform integration.PlatformCode, result *N11Result) error {
	message := fmt.Sprintf("%s: %s", result.ErrorCode, result.ErrorMessage)
	switch result.ErrorCode {
	case "SELLER_API_AUTHORIZATION", "AUTHENTICATION_FAILED":
		return integration.NewFailure(integration.FailureAuth, platform, message)
	case "THROTTLING":
		return integration.NewRateLimitedFailure(platform, message, 0)
	default:
		return integration.NewFailure(integration.FailureRemoteValidation, platform, message)
	}
}

// convertN11Product converts an N11 product to the normalized form.
func convertN11Product(p *N11Product) integration.Product {
	price, _ := decimal.NewFromString(p.Price)
	product := integration.Product{
		SKU:         p.ProductSellerCode,
		Title:       p.Title,
		Description: p.Description,
		Price:       price,
		Currency:    "TRY",
	}
	if p.CategoryID > 0 {
		product.CategoryID = strconv.FormatInt(p.CategoryID, 10)
	}
	for _, item := range p.StockItems.StockItem {
		product.Stock += item.Quantity
	}
	return product
}

// convertN11Order converts an N11 order to the normalized form.
func convertN11Order(o *N11Order) integration.Order {
	total, _ := decimal.NewFromString(o.TotalAmount)
	order := integration.Order{
		ExternalID:    strconv.FormatInt(o.ID, 10),
		OrderNumber:   o.OrderNumber,
		Status:        mapN11OrderStatus(o.Status),
		Total:         total,
		Currency:      "TRY",
		CustomerName:  o.Buyer.FullName,
		CustomerEmail: o.Buyer.Email,
		ShippingCity:  o.City,
		Lines:         make([]integration.OrderLine, 0, len(o.OrderItemList.OrderItem)),
	}
	if t, err := time.Parse(n11DateLayout, o.CreateDate); err == nil {
		order.PlacedAt = t.UTC()
	}
	for _, item := range o.OrderItemList.OrderItem {
		price, _ := decimal.NewFromString(item.Price)
		order.Lines = append(order.Lines, integration.OrderLine{
			ExternalLineID: strconv.FormatInt(item.ID, 10),
			SKU:            item.ProductSellerCode,
			Title:          item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      price,
		})
	}
	return order
}

// mapN11OrderStatus maps an N11 order status to the normalized one.
func mapN11OrderStatus(status string) integration.OrderStatus {
	switch status {
	case "New":
		return integration.OrderStatusCreated
	case "Approved", "Picking":
		return integration.OrderStatusPicking
	case "Shipped":
		return integration.OrderStatusShipped
	case "Delivered", "Completed":
		return integration.OrderStatusDelivered
	case "Rejected", "Cancelled":
		return integration.OrderStatusCancelled
	case "Returned":
		return integration.OrderStatusReturned
	default:
		return integration.OrderStatusCreated
	}
}

// Ensure N11Connector implements the connector port
var (
	_ integration.Connector         = (*N11Connector)(nil)
	_ integration.SignedRequestAuth = (*N11Connector)(nil)
)

package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalized catalog types
// ---------------------------------------------------------------------------

// Product is the normalized listing representation pushed to and pulled from
// platforms. Adapters translate between this and the platform wire format.
type Product struct {
	InternalID  string
	SKU         string
	Barcode     string
	Title       string
	Description string
	Brand       string
	CategoryID  string
	Price       decimal.Decimal
	ListPrice   decimal.Decimal
	Currency    string
	Stock       int
	VATRate     int
	Images      []string
	Attributes  map[string]string
}

// PayloadHash returns a stable content hash over the fields a platform sees.
// Two products with the same hash would produce an identical remote payload,
// so delta sync skips them without a network call.
func (p *Product) PayloadHash() string {
	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, [2]string{k, p.Attributes[k]})
	}

	canonical := struct {
		SKU         string      `json:"sku"`
		Barcode     string      `json:"barcode"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Brand       string      `json:"brand"`
		CategoryID  string      `json:"category_id"`
		Price       string      `json:"price"`
		ListPrice   string      `json:"list_price"`
		Currency    string      `json:"currency"`
		Stock       int         `json:"stock"`
		VATRate     int         `json:"vat_rate"`
		Images      []string    `json:"images"`
		Attributes  [][2]string `json:"attributes"`
	}{
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand,
		CategoryID:  p.CategoryID,
		Price:       p.Price.String(),
		ListPrice:   p.ListPrice.String(),
		Currency:    p.Currency,
		Stock:       p.Stock,
		VATRate:     p.VATRate,
		Images:      p.Images,
		Attributes:  attrs,
	}

	raw, _ := json.Marshal(canonical)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ProductPage is one page of a remote product listing.
type ProductPage struct {
	Items      []Product
	Page       int
	TotalPages int
}

// HasNext reports whether more pages follow.
func (p *ProductPage) HasNext() bool {
	return p.Page < p.TotalPages
}

// StockUpdate pushes one stock level to a platform.
type StockUpdate struct {
	InternalID string
	ExternalID string
	SKU        string
	Quantity   int
}

// PriceUpdate pushes one price to a platform.
type PriceUpdate struct {
	InternalID string
	ExternalID string
	SKU        string
	Price      decimal.Decimal
	ListPrice  decimal.Decimal
	Currency   string
}

// ---------------------------------------------------------------------------
// Normalized order types
// ---------------------------------------------------------------------------

// OrderStatus is a platform-independent order state.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPicking   OrderStatus = "PICKING"
	OrderStatusInvoiced  OrderStatus = "INVOICED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
)

// IsValid returns true if the order status is known.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPicking, OrderStatusInvoiced,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusReturned:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus.
func (s OrderStatus) String() string {
	return string(s)
}

// OrderLine is one line of a normalized order.
type OrderLine struct {
	ExternalLineID string
	SKU            string
	Title          string
	Quantity       int
	UnitPrice      decimal.Decimal
}

// Order is the normalized order representation pulled from platforms.
type Order struct {
	ExternalID    string
	OrderNumber   string
	Status        OrderStatus
	Total         decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerEmail string
	ShippingCity  string
	Lines         []OrderLine
	PlacedAt      time.Time
}

// OrderPage is one page of a remote order listing.
type OrderPage struct {
	Items      []Order
	Page       int
	TotalPages int
}

// HasNext reports whether more pages follow.
func (p *OrderPage) HasNext() bool {
	return p.Page < p.TotalPages
}

// OrderStatusUpdate pushes a status transition for one order.
type OrderStatusUpdate struct {
	ExternalOrderID string
	Status          OrderStatus
	TrackingNumber  string
	CarrierCode     string
	InvoiceNumber   string
}

// RefundRequest issues a (partial) refund against one payment or order.
type RefundRequest struct {
	ExternalOrderID string
	TransactionID   string
	Amount          decimal.Decimal
	Currency        string
	Reason          string
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// CategoryNode is one node of a platform category tree, flattened.
type CategoryNode struct {
	ExternalID string
	ParentID   string
	Name       string
	Leaf       bool
}

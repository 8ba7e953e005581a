package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// InternalProductModel is the persistence model for the internal catalog.
// Sync runs read these rows and fan them out to the platforms; they are the
// system of record the marketplaces are reconciled against.
type InternalProductModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	SKU            string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_sku"`
	Barcode        string          `gorm:"type:varchar(100);index"`
	Title          string          `gorm:"type:varchar(255);not null"`
	Description    string          `gorm:"type:text"`
	Brand          string          `gorm:"type:varchar(100)"`
	CategoryID     string          `gorm:"type:varchar(100)"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ListPrice      decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'TRY'"`
	Stock          int             `gorm:"not null;default:0"`
	VATRate        int             `gorm:"not null;default:20"`
	ImagesJSON     string          `gorm:"type:jsonb;column:images"`
	AttributesJSON string          `gorm:"type:jsonb;column:attributes"`
	Syncable       bool            `gorm:"not null;default:true;index"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InternalProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to the normalized Product.
func (m *InternalProductModel) ToDomain() integration.Product {
	p := integration.Product{
		InternalID:  m.ID.String(),
		SKU:         m.SKU,
		Barcode:     m.Barcode,
		Title:       m.Title,
		Description: m.Description,
		Brand:       m.Brand,
		CategoryID:  m.CategoryID,
		Price:       m.Price,
		ListPrice:   m.ListPrice,
		Currency:    m.Currency,
		Stock:       m.Stock,
		VATRate:     m.VATRate,
	}
	if m.ImagesJSON != "" {
		_ = json.Unmarshal([]byte(m.ImagesJSON), &p.Images)
	}
	if m.AttributesJSON != "" {
		_ = json.Unmarshal([]byte(m.AttributesJSON), &p.Attributes)
	}
	return p
}

// FromDomain populates the persistence model from a normalized Product.
// The caller supplies the row ID since Product carries it as a string.
func (m *InternalProductModel) FromDomain(id uuid.UUID, p *integration.Product) {
	m.ID = id
	m.SKU = p.SKU
	m.Barcode = p.Barcode
	m.Title = p.Title
	m.Description = p.Description
	m.Brand = p.Brand
	m.CategoryID = p.CategoryID
	m.Price = p.Price
	m.ListPrice = p.ListPrice
	m.Currency = p.Currency
	m.Stock = p.Stock
	m.VATRate = p.VATRate
	m.Syncable = true

	if len(p.Images) > 0 {
		if raw, err := json.Marshal(p.Images); err == nil {
			m.ImagesJSON = string(raw)
		}
	}
	if len(p.Attributes) > 0 {
		if raw, err := json.Marshal(p.Attributes); err == nil {
			m.AttributesJSON = string(raw)
		}
	}
}

// ImportedOrderModel is the persistence model for orders pulled from the
// platforms. The unique index on (integration, external ID) makes order
// import idempotent across repeated pulls and webhook deliveries.
type ImportedOrderModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_imported_orders_external,priority:1"`
	Platform      integration.PlatformCode `gorm:"type:varchar(20);not null"`
	ExternalID    string                   `gorm:"type:varchar(100);not null;uniqueIndex:idx_imported_orders_external,priority:2"`
	OrderNumber   string                   `gorm:"type:varchar(100);index"`
	Status        integration.OrderStatus  `gorm:"type:varchar(20);not null"`
	Total         decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	Currency      string                   `gorm:"type:varchar(3);not null"`
	CustomerName  string                   `gorm:"type:varchar(255)"`
	CustomerEmail string                   `gorm:"type:varchar(255)"`
	ShippingCity  string                   `gorm:"type:varchar(100)"`
	LinesJSON     string                   `gorm:"type:jsonb;column:lines"`
	PlacedAt      time.Time                `gorm:"not null;index"`
	CreatedAt     time.Time                `gorm:"not null"`
	UpdatedAt     time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ImportedOrderModel) TableName() string {
	return "imported_orders"
}

// ToDomain converts the persistence model to a normalized Order.
func (m *ImportedOrderModel) ToDomain() integration.Order {
	o := integration.Order{
		ExternalID:    m.ExternalID,
		OrderNumber:   m.OrderNumber,
		Status:        m.Status,
		Total:         m.Total,
		Currency:      m.Currency,
		CustomerName:  m.CustomerName,
		CustomerEmail: m.CustomerEmail,
		ShippingCity:  m.ShippingCity,
		PlacedAt:      m.PlacedAt,
	}
	if m.LinesJSON != "" {
		_ = json.Unmarshal([]byte(m.LinesJSON), &o.Lines)
	}
	return o
}

// FromDomain populates the persistence model from a normalized Order.
func (m *ImportedOrderModel) FromDomain(intg *integration.Integration, o *integration.Order) {
	m.IntegrationID = intg.ID
	m.Platform = intg.Platform
	m.ExternalID = o.ExternalID
	m.OrderNumber = o.OrderNumber
	m.Status = o.Status
	m.Total = o.Total
	m.Currency = o.Currency
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.ShippingCity = o.ShippingCity
	m.PlacedAt = o.PlacedAt

	if len(o.Lines) > 0 {
		if raw, err := json.Marshal(o.Lines); err == nil {
			m.LinesJSON = string(raw)
		}
	}
}

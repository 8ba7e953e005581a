package connectors

// Wire structs for the Trendyol supplier API (JSON over REST, Basic auth).

// TrendyolItemsRequest wraps product and price/inventory submissions.
type TrendyolItemsRequest struct {
	Items []TrendyolItem `json:"items"`
}

// TrendyolItem is one product listing in Trendyol's format.
type TrendyolItem struct {
	Barcode           string                  `json:"barcode"`
	Title             string                  `json:"title,omitempty"`
	ProductMainID     string                  `json:"productMainId,omitempty"`
	Brand             string                  `json:"brand,omitempty"`
	CategoryID        int64                   `json:"categoryId,omitempty"`
	StockCode         string                  `json:"stockCode,omitempty"`
	Quantity          int                     `json:"quantity"`
	Description       string                  `json:"description,omitempty"`
	CurrencyType      string                  `json:"currencyType,omitempty"`
	ListPrice         string                  `json:"listPrice,omitempty"`
	SalePrice         string                  `json:"salePrice,omitempty"`
	VATRate           int                     `json:"vatRate,omitempty"`
	DimensionalWeight int                     `json:"dimensionalWeight,omitempty"`
	Images            []TrendyolImage         `json:"images,omitempty"`
	Attributes        []TrendyolItemAttribute `json:"attributes,omitempty"`
}

// TrendyolImage is one product image reference.
type TrendyolImage struct {
	URL string `json:"url"`
}

// TrendyolItemAttribute is one free-form product attribute.
type TrendyolItemAttribute struct {
	AttributeName  string `json:"attributeName"`
	AttributeValue string `json:"attributeValue"`
}

// TrendyolBatchResponse acknowledges an items submission.
type TrendyolBatchResponse struct {
	BatchRequestID string `json:"batchRequestId"`
}

// TrendyolProductPage is one page of the supplier's product listing.
type TrendyolProductPage struct {
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	Content       []TrendyolProduct `json:"content"`
}

// TrendyolProduct is one listed product as Trendyol returns it.
type TrendyolProduct struct {
	ID          string                  `json:"id"`
	Barcode     string                  `json:"barcode"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Brand       string                  `json:"brand"`
	CategoryID  int64                   `json:"pimCategoryId"`
	StockCode   string                  `json:"stockCode"`
	Quantity    int                     `json:"quantity"`
	ListPrice   float64                 `json:"listPrice"`
	SalePrice   float64                 `json:"salePrice"`
	VATRate     int                     `json:"vatRate"`
	Images      []TrendyolImage         `json:"images"`
	Attributes  []TrendyolItemAttribute `json:"attributes"`
}

// TrendyolPriceInventoryItem is one stock/price row for the
// price-and-inventory endpoint.
type TrendyolPriceInventoryItem struct {
	Barcode   string `json:"barcode"`
	Quantity  *int   `json:"quantity,omitempty"`
	SalePrice string `json:"salePrice,omitempty"`
	ListPrice string `json:"listPrice,omitempty"`
}

// TrendyolPriceInventoryRequest wraps price/inventory rows.
type TrendyolPriceInventoryRequest struct {
	Items []TrendyolPriceInventoryItem `json:"items"`
}

// TrendyolOrderPage is one page of supplier orders.
type TrendyolOrderPage struct {
	TotalElements int64           `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
	Page          int             `json:"page"`
	Content       []TrendyolOrder `json:"content"`
}

// TrendyolOrder is one order as Trendyol returns it.
type TrendyolOrder struct {
	OrderNumber       string              `json:"orderNumber"`
	Status            string              `json:"status"`
	TotalPrice        float64             `json:"totalPrice"`
	CurrencyCode      string              `json:"currencyCode"`
	CustomerFirstName string              `json:"customerFirstName"`
	CustomerLastName  string              `json:"customerLastName"`
	CustomerEmail     string              `json:"customerEmail"`
	ShipmentAddress   TrendyolAddress     `json:"shipmentAddress"`
	OrderDate         int64               `json:"orderDate"`
	Lines             []TrendyolOrderLine `json:"lines"`
}

// TrendyolAddress is the shipment address block of an order.
type TrendyolAddress struct {
	City     string `json:"city"`
	District string `json:"district"`
}

// TrendyolOrderLine is one order line.
type TrendyolOrderLine struct {
	LineID       int64   `json:"id"`
	Barcode      string  `json:"barcode"`
	MerchantSKU  string  `json:"merchantSku"`
	ProductName  string  `json:"productName"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	CurrencyCode string  `json:"currencyCode"`
}

// TrendyolStatusUpdateRequest transitions one order's status.
type TrendyolStatusUpdateRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	InvoiceNumber  string `json:"invoiceNumber,omitempty"`
}

// TrendyolCategory is one node of the category tree; Trendyol nests children.
type TrendyolCategory struct {
	ID            int64              `json:"id"`
	ParentID      int64              `json:"parentId"`
	Name          string             `json:"name"`
	SubCategories []TrendyolCategory `json:"subCategories"`
}

// TrendyolCategoryResponse is the category tree root.
type TrendyolCategoryResponse struct {
	Categories []TrendyolCategory `json:"categories"`
}

// TrendyolWebhookEnvelope is the outer shape of an inbound Trendyol webhook.
type TrendyolWebhookEnvelope struct {
	EventID     string `json:"eventId"`
	EventType   string `json:"eventType"`
	OrderNumber string `json:"orderNumber"`
}

package connectors

// Wire structs for the Hepsiburada merchant API (JSON over REST, Basic auth).

// HepsiburadaProduct is one product listing in Hepsiburada's format.
type HepsiburadaProduct struct {
	MerchantSKU string            `json:"merchantSku"`
	Barcode     string            `json:"barcode"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Brand       string            `json:"brand,omitempty"`
	CategoryID  string            `json:"categoryId,omitempty"`
	Price       string            `json:"price"`
	Stock       int               `json:"availableStock"`
	VATRate     int               `json:"vatRate,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// HepsiburadaProductList is one page of the merchant's products.
type HepsiburadaProductList struct {
	TotalCount int                  `json:"totalCount"`
	PageCount  int                  `json:"pageCount"`
	Page       int                  `json:"page"`
	Listings   []HepsiburadaProduct `json:"listings"`
}

// HepsiburadaInventoryItem is one stock/price row.
type HepsiburadaInventoryItem struct {
	MerchantSKU    string `json:"merchantSku"`
	AvailableStock *int   `json:"availableStock,omitempty"`
	Price          string `json:"price,omitempty"`
}

// HepsiburadaInventoryRequest wraps inventory rows.
type HepsiburadaInventoryRequest struct {
	Items []HepsiburadaInventoryItem `json:"items"`
}

// HepsiburadaOrder is one order as Hepsiburada returns it.
type HepsiburadaOrder struct {
	OrderNumber  string                 `json:"orderNumber"`
	Status       string                 `json:"status"`
	TotalPrice   HepsiburadaAmount      `json:"totalPrice"`
	CustomerName string                 `json:"customerName"`
	Email        string                 `json:"email"`
	City         string                 `json:"shippingCity"`
	OrderDate    string                 `json:"orderDate"`
	Items        []HepsiburadaOrderItem `json:"items"`
}

// HepsiburadaAmount is a currency-tagged amount.
type HepsiburadaAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// HepsiburadaOrderItem is one order line.
type HepsiburadaOrderItem struct {
	LineItemID  string            `json:"lineItemId"`
	MerchantSKU string            `json:"merchantSku"`
	ProductName string            `json:"productName"`
	Quantity    int               `json:"quantity"`
	UnitPrice   HepsiburadaAmount `json:"unitPrice"`
}

// HepsiburadaOrderList is one page of orders.
type HepsiburadaOrderList struct {
	TotalCount int                `json:"totalCount"`
	PageCount  int                `json:"pageCount"`
	Page       int                `json:"page"`
	Orders     []HepsiburadaOrder `json:"orders"`
}

// HepsiburadaShipRequest carries shipment details for an order.
type HepsiburadaShipRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	CargoCompany   string `json:"cargoCompany,omitempty"`
}

// HepsiburadaRejectRequest carries the rejection reason for an order.
type HepsiburadaRejectRequest struct {
	Reason string `json:"reason"`
}

package connectors

// Wire structs for the Amazon Selling Partner API and the LWA token service.

// AmazonTokenResponse is the LWA token grant response.
type AmazonTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AmazonListingsPage is one page of the seller's listings.
type AmazonListingsPage struct {
	NumberOfResults int                  `json:"numberOfResults"`
	Pagination      AmazonPagination     `json:"pagination"`
	Items           []AmazonListingsItem `json:"items"`
}

// AmazonPagination carries the opaque continuation token.
type AmazonPagination struct {
	NextToken string `json:"nextToken"`
}

// AmazonListingsItem is one listing.
type AmazonListingsItem struct {
	SKU       string                 `json:"sku"`
	Summaries []AmazonListingSummary `json:"summaries"`
	Offers    []AmazonListingOffer   `json:"offers"`
}

// AmazonListingSummary is the per-marketplace summary block of a listing.
type AmazonListingSummary struct {
	MarketplaceID string `json:"marketplaceId"`
	ASIN          string `json:"asin"`
	ItemName      string `json:"itemName"`
	Status        string `json:"status"`
}

// AmazonListingOffer is the per-marketplace offer block of a listing.
type AmazonListingOffer struct {
	MarketplaceID string      `json:"marketplaceId"`
	Price         AmazonMoney `json:"price"`
}

// AmazonMoney is a currency-tagged amount.
type AmazonMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// AmazonPatchOperation is one JSON-patch operation on a listing.
type AmazonPatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// AmazonPatchRequest patches one listing.
type AmazonPatchRequest struct {
	ProductType string                 `json:"productType"`
	Patches     []AmazonPatchOperation `json:"patches"`
}

// AmazonFulfillmentAvailability is the stock block of a listing patch.
type AmazonFulfillmentAvailability struct {
	FulfillmentChannelCode string `json:"fulfillment_channel_code"`
	Quantity               int    `json:"quantity"`
}

// AmazonOrdersResponse wraps the orders payload.
type AmazonOrdersResponse struct {
	Payload AmazonOrdersPayload `json:"payload"`
}

// AmazonOrdersPayload is one page of orders.
type AmazonOrdersPayload struct {
	Orders    []AmazonOrder `json:"Orders"`
	NextToken string        `json:"NextToken"`
}

// AmazonOrder is one order as the SP API returns it.
type AmazonOrder struct {
	AmazonOrderID string           `json:"AmazonOrderId"`
	OrderStatus   string           `json:"OrderStatus"`
	PurchaseDate  string           `json:"PurchaseDate"`
	OrderTotal    AmazonOrderMoney `json:"OrderTotal"`
	BuyerInfo     AmazonBuyerInfo  `json:"BuyerInfo"`
}

// AmazonOrderMoney is the order total block.
type AmazonOrderMoney struct {
	Amount       string `json:"Amount"`
	CurrencyCode string `json:"CurrencyCode"`
}

// AmazonBuyerInfo is the buyer block of an order.
type AmazonBuyerInfo struct {
	BuyerName  string `json:"BuyerName"`
	BuyerEmail string `json:"BuyerEmail"`
}

package connectors

import "encoding/xml"

// Wire structs for the N11 SOAP-style XML API.

// N11Auth is the credential block every N11 request carries.
type N11Auth struct {
	AppKey    string `xml:"appKey"`
	AppSecret string `xml:"appSecret"`
	Signature string `xml:"signature,omitempty"`
}

// N11Result is the status block every N11 response carries.
type N11Result struct {
	Status       string `xml:"status"`
	ErrorCode    string `xml:"errorCode"`
	ErrorMessage string `xml:"errorMessage"`
}

// IsSuccess reports whether the platform accepted the request.
func (r *N11Result) IsSuccess() bool {
	return r.Status == "success"
}

// N11PagingData is N11's pagination block (0-based pages).
type N11PagingData struct {
	CurrentPage int `xml:"currentPage"`
	PageSize    int `xml:"pageSize"`
	PageCount   int `xml:"pageCount,omitempty"`
}

// N11StockItem is one stock row inside a product.
type N11StockItem struct {
	SellerStockCode string `xml:"sellerStockCode"`
	Quantity        int    `xml:"quantity"`
}

// N11Product is one product in N11's format.
type N11Product struct {
	ID                int64  `xml:"id,omitempty"`
	ProductSellerCode string `xml:"productSellerCode"`
	Title             string `xml:"title"`
	Description       string `xml:"description,omitempty"`
	Price             string `xml:"price"`
	CurrencyType      string `xml:"currencyType,omitempty"`
	CategoryID        int64  `xml:"category>id,omitempty"`
	StockItems        struct {
		StockItem []N11StockItem `xml:"stockItem"`
	} `xml:"stockItems"`
}

// N11SaveProductRequest creates or updates one product.
type N11SaveProductRequest struct {
	XMLName xml.Name   `xml:"SaveProductRequest"`
	Auth    N11Auth    `xml:"auth"`
	Product N11Product `xml:"product"`
}

// N11SaveProductResponse acknowledges a product save.
type N11SaveProductResponse struct {
	XMLName xml.Name   `xml:"SaveProductResponse"`
	Result  N11Result  `xml:"result"`
	Product N11Product `xml:"product"`
}

// N11GetProductListRequest pages through the seller's products.
type N11GetProductListRequest struct {
	XMLName    xml.Name      `xml:"GetProductListRequest"`
	Auth       N11Auth       `xml:"auth"`
	PagingData N11PagingData `xml:"pagingData"`
}

// N11GetProductListResponse is one page of products.
type N11GetProductListResponse struct {
	XMLName  xml.Name  `xml:"GetProductListResponse"`
	Result   N11Result `xml:"result"`
	Products struct {
		Product []N11Product `xml:"product"`
	} `xml:"products"`
	PagingData N11PagingData `xml:"pagingData"`
}

// N11UpdateStockRequest updates stock by seller stock code.
type N11UpdateStockRequest struct {
	XMLName    xml.Name `xml:"UpdateStockByStockSellerCodeRequest"`
	Auth       N11Auth  `xml:"auth"`
	StockItems struct {
		StockItem []N11StockItem `xml:"stockItem"`
	} `xml:"stockItems"`
}

// N11SimpleResponse is the result-only response shape shared by stock,
// shipment and rejection calls.
type N11SimpleResponse struct {
	Result N11Result `xml:"result"`
}

// N11Buyer is the purchaser block of an order.
type N11Buyer struct {
	FullName string `xml:"fullName"`
	Email    string `xml:"email"`
}

// N11OrderItem is one order line.
type N11OrderItem struct {
	ID                int64  `xml:"id"`
	ProductSellerCode string `xml:"productSellerCode"`
	ProductName       string `xml:"productName"`
	Quantity          int    `xml:"quantity"`
	Price             string `xml:"price"`
}

// N11Order is one order as N11 returns it.
type N11Order struct {
	ID            int64    `xml:"id"`
	OrderNumber   string   `xml:"orderNumber"`
	Status        string   `xml:"status"`
	TotalAmount   string   `xml:"totalAmount"`
	Buyer         N11Buyer `xml:"buyer"`
	City          string   `xml:"shippingAddress>city"`
	CreateDate    string   `xml:"createDate"`
	OrderItemList struct {
		OrderItem []N11OrderItem `xml:"orderItem"`
	} `xml:"orderItemList"`
}

// N11OrderListRequest pulls orders within a creation window.
type N11OrderListRequest struct {
	XMLName    xml.Name `xml:"DetailedOrderListRequest"`
	Auth       N11Auth  `xml:"auth"`
	SearchData struct {
		Period struct {
			StartDate string `xml:"startDate"`
			EndDate   string `xml:"endDate"`
		} `xml:"period"`
	} `xml:"searchData"`
	PagingData N11PagingData `xml:"pagingData"`
}

// N11OrderListResponse is one page of orders.
type N11OrderListResponse struct {
	XMLName   xml.Name  `xml:"DetailedOrderListResponse"`
	Result    N11Result `xml:"result"`
	OrderList struct {
		Order []N11Order `xml:"order"`
	} `xml:"orderList"`
	PagingData N11PagingData `xml:"pagingData"`
}

// N11ShipmentRequest marks one order item shipped.
type N11ShipmentRequest struct {
	XMLName        xml.Name `xml:"MakeOrderItemShipmentRequest"`
	Auth           N11Auth  `xml:"auth"`
	OrderItemID    int64    `xml:"orderItemList>orderItem>id"`
	TrackingNumber string   `xml:"orderItemList>orderItem>shipmentInfo>trackingNumber"`
	CampaignNumber string   `xml:"orderItemList>orderItem>shipmentInfo>campaignNumber,omitempty"`
}

// N11RejectRequest rejects one order with a reason.
type N11RejectRequest struct {
	XMLName      xml.Name `xml:"OrderItemRejectRequest"`
	Auth         N11Auth  `xml:"auth"`
	OrderID      int64    `xml:"orderItemList>orderItem>id"`
	RejectReason string   `xml:"rejectReason"`
}

// N11Category is one category node.
type N11Category struct {
	ID   int64  `xml:"id"`
	Name string `xml:"name"`
}

// N11CategoryListRequest pulls the top level categories.
type N11CategoryListRequest struct {
	XMLName xml.Name `xml:"GetTopLevelCategoriesRequest"`
	Auth    N11Auth  `xml:"auth"`
}

// N11CategoryListResponse is the top level category list.
type N11CategoryListResponse struct {
	XMLName      xml.Name  `xml:"GetTopLevelCategoriesResponse"`
	Result       N11Result `xml:"result"`
	CategoryList struct {
		Category []N11Category `xml:"category"`
	} `xml:"categoryList"`
}

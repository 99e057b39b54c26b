package transport

import (
	"time"

	"stockboard/internal/domain"

	"github.com/shopspring/decimal"
)

// ProductResponse is a catalog entry with its derived fields.
type ProductResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	CategoryLabel   string           `json:"categoryLabel"`
	MRP             decimal.Decimal  `json:"mrp"`
	Price           decimal.Decimal  `json:"price"`
	Stock           int              `json:"stock"`
	Enabled         bool             `json:"enabled"`
	Availability    string           `json:"availability"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	DisplayImage    string           `json:"displayImage"`
	Album           []string         `json:"album"`
	Tags            []string         `json:"tags"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time       `json:"updatedAt,omitempty"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      string(p.Category),
		CategoryLabel: p.Category.Label(),
		MRP:           p.MRP,
		Price:         p.Price,
		Stock:         p.Stock,
		Enabled:       p.Enabled,
		Availability:  string(p.Availability()),
		DisplayImage:  p.DisplayImage,
		Album:         nonNilStrings(p.Album),
		Tags:          nonNilStrings(p.Tags),
		CreatedAt:     optionalTime(p.CreatedAt),
		UpdatedAt:     optionalTime(p.UpdatedAt),
	}
	if discount, ok := p.Discount(); ok {
		rounded := discount.Round(2)
		resp.DiscountPercent = &rounded
	}
	return resp
}

func newProductResponses(products []*domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

// LowStockGroupResponse is one category of the low-stock report.
type LowStockGroupResponse struct {
	Category string            `json:"category"`
	Label    string            `json:"label"`
	Products []ProductResponse `json:"products"`
}

func newLowStockResponse(groups []domain.CategoryGroup) []LowStockGroupResponse {
	out := make([]LowStockGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, LowStockGroupResponse{
			Category: string(g.Category),
			Label:    g.Label,
			Products: newProductResponses(g.Products),
		})
	}
	return out
}

type OrderItemResponse struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// StatusResponse shows the delivery state both normalized and as stored.
type StatusResponse struct {
	Delivered bool   `json:"delivered"`
	Label     string `json:"label"`
	Field     string `json:"field"`
	Value     string `json:"value"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	CustomerName  string              `json:"customerName"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
	Address       string              `json:"address"`
	Items         []OrderItemResponse `json:"items"`
	ItemSummary   string              `json:"itemSummary"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaymentMode   string              `json:"paymentMode"`
	PaymentStatus string              `json:"paymentStatus"`
	Paid          bool                `json:"paid"`
	Status        StatusResponse      `json:"status"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return OrderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		Items:         items,
		ItemSummary:   o.ItemSummary(),
		TotalAmount:   o.TotalAmount,
		PaymentMode:   o.PaymentMode,
		PaymentStatus: o.PaymentStatus,
		Paid:          o.Paid(),
		Status: StatusResponse{
			Delivered: o.Status.Delivered,
			Label:     o.Status.Label(),
			Field:     o.Status.Field(),
			Value:     o.Status.Value(),
		},
		CreatedAt: optionalTime(o.CreatedAt),
	}
}

func newOrderResponses(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

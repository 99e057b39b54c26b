package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	ProductsCollection = "stock"
	OrdersCollection   = "orders"
)

// DocumentStore is the part of the gateway the repositories use.
type DocumentStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	List(ctx context.Context, collection string) (docstore.Snapshot, error)
	Push(ctx context.Context, collection string, value any) (string, error)
	Remove(ctx context.Context, path string) error
	Transaction(ctx context.Context, path string, fn docstore.TxFunc) error
}

// Numbers are decoded as float64 because records written by browser clients
// carry JavaScript numbers.
type productDocument struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	MRP          float64  `json:"mrp"`
	Price        float64  `json:"price"`
	Stock        float64  `json:"stock"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	DisplayImage string   `json:"displayImage"`
	Album        []string `json:"album,omitempty"`
	Enabled      bool     `json:"enabled"`
	CreatedAt    float64  `json:"createdAt,omitempty"`
	UpdatedAt    float64  `json:"updatedAt,omitempty"`
}

func decodeProduct(key string, raw json.RawMessage) (*domain.Product, error) {
	var doc productDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", key, err)
	}
	return &domain.Product{
		ID:           key,
		Name:         doc.Name,
		Description:  doc.Description,
		Category:     domain.Category(doc.Category),
		MRP:          decimal.NewFromFloat(doc.MRP),
		Price:        decimal.NewFromFloat(doc.Price),
		Stock:        int(math.Floor(doc.Stock)),
		Enabled:      doc.Enabled,
		DisplayImage: doc.DisplayImage,
		Album:        doc.Album,
		Tags:         doc.Tags,
		CreatedAt:    fromMillis(doc.CreatedAt),
		UpdatedAt:    fromMillis(doc.UpdatedAt),
	}, nil
}

// productFields lists the fields a save writes. The album is only written
// when it has entries, so saving with an empty album keeps the stored one.
func productFields(p *domain.Product) map[string]any {
	fields := map[string]any{
		"name":         p.Name,
		"category":     string(p.Category),
		"mrp":          p.MRP.InexactFloat64(),
		"price":        p.Price.InexactFloat64(),
		"stock":        p.Stock,
		"tags":         nonNil(p.Tags),
		"description":  p.Description,
		"displayImage": p.DisplayImage,
		"enabled":      p.Enabled,
		"updatedAt":    toMillis(p.UpdatedAt),
	}
	if len(p.Album) > 0 {
		fields["album"] = p.Album
	}
	return fields
}

type orderItemDocument struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderDocument struct {
	Name           string              `json:"name,omitempty"`
	CustomerName   string              `json:"customerName,omitempty"`
	Email          string              `json:"email,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Address        string              `json:"address,omitempty"`
	Items          []orderItemDocument `json:"items,omitempty"`
	ItemNames      []string            `json:"itemNames,omitempty"`
	TotalAmount    *float64            `json:"totalAmount,omitempty"`
	CartValue      *float64            `json:"cartValue,omitempty"`
	PaymentMode    string              `json:"paymentMode,omitempty"`
	PaymentStatus  string              `json:"paymentStatus,omitempty"`
	Status         *string             `json:"status,omitempty"`
	DeliveryStatus *string             `json:"deliveryStatus,omitempty"`
	CreatedAt      float64             `json:"createdAt,omitempty"`
}

func decodeOrder(key string, raw json.RawMessage) (*domain.Order, error) {
	var doc orderDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", key, err)
	}

	order := &domain.Order{
		ID:            key,
		CustomerName:  doc.CustomerName,
		Email:         doc.Email,
		Phone:         doc.Phone,
		Address:       doc.Address,
		ItemNames:     doc.ItemNames,
		PaymentMode:   doc.PaymentMode,
		PaymentStatus: doc.PaymentStatus,
		CreatedAt:     fromMillis(doc.CreatedAt),
	}
	if order.CustomerName == "" {
		order.CustomerName = doc.Name
	}

	switch {
	case doc.TotalAmount != nil:
		order.TotalAmount = decimal.NewFromFloat(*doc.TotalAmount)
	case doc.CartValue != nil:
		order.TotalAmount = decimal.NewFromFloat(*doc.CartValue)
	}

	switch {
	case doc.DeliveryStatus != nil:
		order.Status = domain.NormalizeStatus(domain.DeliveryStatusField, *doc.DeliveryStatus)
	case doc.Status != nil:
		order.Status = domain.NormalizeStatus(domain.StatusField, *doc.Status)
	default:
		order.Status = domain.OrderStatus{Vocabulary: domain.DeliveryStatusField}
	}

	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  int(item.Quantity),
			Price:     decimal.NewFromFloat(item.Price),
		})
	}

	return order, nil
}

func encodeOrder(o *domain.Order) orderDocument {
	total := o.TotalAmount.InexactFloat64()
	status := o.Status.Value()
	doc := orderDocument{
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		ItemNames:     o.ItemNames,
		TotalAmount:   &total,
		PaymentMode:   o.PaymentMode,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     float64(toMillis(o.CreatedAt)),
	}
	if o.Status.Vocabulary == domain.StatusField {
		doc.Status = &status
	} else {
		doc.DeliveryStatus = &status
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  float64(item.Quantity),
			Price:     item.Price.InexactFloat64(),
		})
	}
	return doc
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms float64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatusVocabulary names the record field an order keeps its delivery state
// in, and the words it uses there.
type StatusVocabulary string

const (
	// DeliveryStatusField holds "delivered" / "not-delivered".
	DeliveryStatusField StatusVocabulary = "deliveryStatus"
	// StatusField holds "Delivered" / "Pending".
	StatusField StatusVocabulary = "status"
)

// OrderStatus is the normalized delivery state of an order.
type OrderStatus struct {
	Delivered  bool
	Vocabulary StatusVocabulary
}

// NormalizeStatus reads a raw status value written in vocabulary.
func NormalizeStatus(vocabulary StatusVocabulary, raw string) OrderStatus {
	return OrderStatus{
		Delivered:  strings.EqualFold(strings.TrimSpace(raw), "delivered"),
		Vocabulary: vocabulary,
	}
}

// Field returns the record field the status is stored in.
func (s OrderStatus) Field() string {
	if s.Vocabulary == StatusField {
		return string(StatusField)
	}
	return string(DeliveryStatusField)
}

// Value returns the stored word for the status in its own vocabulary.
func (s OrderStatus) Value() string {
	if s.Vocabulary == StatusField {
		if s.Delivered {
			return "Delivered"
		}
		return "Pending"
	}
	if s.Delivered {
		return "delivered"
	}
	return "not-delivered"
}

// WithDelivered returns the status with the flag changed and the vocabulary kept.
func (s OrderStatus) WithDelivered(delivered bool) OrderStatus {
	s.Delivered = delivered
	return s
}

// Label is the human readable state.
func (s OrderStatus) Label() string {
	if s.Delivered {
		return "Delivered"
	}
	return "Not Delivered"
}

type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// Order is a customer order. Orders are only ever modified through their
// delivery and payment status.
type Order struct {
	ID            string
	CustomerName  string
	Email         string
	Phone         string
	Address       string
	Items         []OrderItem
	ItemNames     []string
	TotalAmount   decimal.Decimal
	PaymentMode   string
	PaymentStatus string
	Status        OrderStatus
	CreatedAt     time.Time
}

// Paid reports whether the payment status reads as paid.
func (o *Order) Paid() bool {
	return strings.EqualFold(strings.TrimSpace(o.PaymentStatus), "paid")
}

// ItemSummary renders the items as "2x Frame, 1x Poster". Items without a
// name fall back to the matching entry of ItemNames, then to "Product".
func (o *Order) ItemSummary() string {
	parts := make([]string, 0, len(o.Items))
	for i, item := range o.Items {
		name := item.Name
		if name == "" && i < len(o.ItemNames) {
			name = o.ItemNames[i]
		}
		if name == "" {
			name = "Product"
		}
		parts = append(parts, strconv.Itoa(item.Quantity)+"x "+name)
	}
	if len(parts) == 0 {
		return strings.Join(o.ItemNames, ", ")
	}
	return strings.Join(parts, ", ")
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one catalog entry. ID is the store key.
type Product struct {
	ID           string
	Name         string
	Description  string
	Category     Category
	MRP          decimal.Decimal
	Price        decimal.Decimal
	Stock        int
	Enabled      bool
	DisplayImage string
	Album        []string
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Availability derives the listing state from the enabled flag and stock.
func (p *Product) Availability() Availability {
	return DeriveAvailability(p.Enabled, p.Stock)
}

// Discount returns the discount percentage and whether it is meaningful.
func (p *Product) Discount() (decimal.Decimal, bool) {
	return DiscountPercent(p.MRP, p.Price)
}

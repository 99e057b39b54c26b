package domain

import "sort"

// DefaultLowStockThreshold is the stock level at or below which a product is
// flagged.
const DefaultLowStockThreshold = 2

// CategoryGroup is one section of the low-stock report.
type CategoryGroup struct {
	Category Category
	Label    string
	Products []*Product
}

// GroupLowStock selects products with stock <= threshold and groups them by
// category, sorted by category key. Products keep their input order inside a
// group.
func GroupLowStock(products []*Product, threshold int) []CategoryGroup {
	byCategory := make(map[Category][]*Product)
	for _, p := range products {
		if p.Stock <= threshold {
			byCategory[p.Category] = append(byCategory[p.Category], p)
		}
	}

	keys := make([]Category, 0, len(byCategory))
	for c := range byCategory {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	groups := make([]CategoryGroup, 0, len(keys))
	for _, c := range keys {
		groups = append(groups, CategoryGroup{
			Category: c,
			Label:    c.Label(),
			Products: byCategory[c],
		})
	}
	return groups
}

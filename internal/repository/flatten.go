package repository

import (
	"sort"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"
)

// FlattenProducts turns a collection snapshot into products, keeping snapshot
// order. Records that fail to decode are skipped and their keys returned.
func FlattenProducts(snapshot docstore.Snapshot) ([]*domain.Product, []string) {
	products := make([]*domain.Product, 0, len(snapshot.Entries))
	var skipped []string
	for _, entry := range snapshot.Entries {
		product, err := decodeProduct(entry.Key, entry.Value)
		if err != nil {
			skipped = append(skipped, entry.Key)
			continue
		}
		products = append(products, product)
	}
	return products, skipped
}

// FlattenOrders turns a collection snapshot into orders sorted newest first.
// Orders with equal timestamps keep snapshot order.
func FlattenOrders(snapshot docstore.Snapshot) ([]*domain.Order, []string) {
	orders := make([]*domain.Order, 0, len(snapshot.Entries))
	var skipped []string
	for _, entry := range snapshot.Entries {
		order, err := decodeOrder(entry.Key, entry.Value)
		if err != nil {
			skipped = append(skipped, entry.Key)
			continue
		}
		orders = append(orders, order)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, skipped
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stockboard/internal/docstore"
	"stockboard/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestFlattenOrdersPairsKeysAndSortsNewestFirst(t *testing.T) {
	snapshot := docstore.Snapshot{
		Collection: OrdersCollection,
		Entries: []docstore.Entry{
			{Key: "k1", Value: json.RawMessage(`{"name":"A"}`)},
			{Key: "k2", Value: json.RawMessage(`{"name":"B"}`)},
			{Key: "k3", Value: json.RawMessage(`{"customerName":"C","createdAt":1700000000000}`)},
			{Key: "bad", Value: json.RawMessage(`"not an object"`)},
		},
	}

	orders, skipped := FlattenOrders(snapshot)

	if len(skipped) != 1 || skipped[0] != "bad" {
		t.Errorf("skipped = %v", skipped)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	ids := []string{orders[0].ID, orders[1].ID, orders[2].ID}
	if ids[0] != "k3" || ids[1] != "k1" || ids[2] != "k2" {
		t.Errorf("ids = %v", ids)
	}
	if orders[1].CustomerName != "A" {
		t.Errorf("CustomerName = %q, want name fallback", orders[1].CustomerName)
	}
}

func TestFlattenProductsKeepsOrderAndSkipsMalformed(t *testing.T) {
	snapshot := docstore.Snapshot{
		Collection: ProductsCollection,
		Entries: []docstore.Entry{
			{Key: "a", Value: json.RawMessage(`{"name":"Frame","stock":3,"enabled":true,"mrp":500,"price":450}`)},
			{Key: "b", Value: json.RawMessage(`{"name":"Poster","stock":"many"}`)},
			{Key: "c", Value: json.RawMessage(`{"name":"Keychain"}`)},
		},
	}

	products, skipped := FlattenProducts(snapshot)

	if len(products) != 2 || products[0].ID != "a" || products[1].ID != "c" {
		t.Fatalf("unexpected products: %+v", products)
	}
	if len(skipped) != 1 || skipped[0] != "b" {
		t.Errorf("skipped = %v", skipped)
	}
	if products[0].Availability() != domain.Available {
		t.Errorf("availability = %s", products[0].Availability())
	}
	if products[1].Stock != 0 {
		t.Errorf("missing stock should read as 0, got %d", products[1].Stock)
	}
}

func TestDecodeOrderStatusVocabularies(t *testing.T) {
	tests := []struct {
		raw        string
		delivered  bool
		vocabulary domain.StatusVocabulary
	}{
		{`{"deliveryStatus":"delivered"}`, true, domain.DeliveryStatusField},
		{`{"deliveryStatus":"not-delivered"}`, false, domain.DeliveryStatusField},
		{`{"status":"Delivered"}`, true, domain.StatusField},
		{`{"status":"Pending"}`, false, domain.StatusField},
		{`{}`, false, domain.DeliveryStatusField},
	}

	for _, tt := range tests {
		order, err := decodeOrder("k", json.RawMessage(tt.raw))
		if err != nil {
			t.Fatalf("decodeOrder(%s) failed: %v", tt.raw, err)
		}
		if order.Status.Delivered != tt.delivered || order.Status.Vocabulary != tt.vocabulary {
			t.Errorf("decodeOrder(%s).Status = %+v", tt.raw, order.Status)
		}
	}
}

func TestDecodeOrderTotalFallsBackToCartValue(t *testing.T) {
	order, err := decodeOrder("k", json.RawMessage(`{"cartValue":1299.5,"paymentMode":"cod"}`))
	if err != nil {
		t.Fatalf("decodeOrder failed: %v", err)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("1299.5")) {
		t.Errorf("TotalAmount = %s", order.TotalAmount)
	}
}

func TestUpdateStatusKeepsVocabulary(t *testing.T) {
	store := newTestStore(t)
	orderRepo := NewOrderRepository(store, zap.NewNop())
	ctx := context.Background()

	if err := store.Set(ctx, "orders/o1", map[string]any{"status": "Pending", "email": "a@b.c"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	order, err := orderRepo.UpdateStatus(ctx, "o1", true)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if !order.Status.Delivered {
		t.Error("returned order not delivered")
	}

	raw, _ := store.Get(ctx, "orders/o1")
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	if doc["status"] != "Delivered" || doc["email"] != "a@b.c" {
		t.Errorf("unexpected document: %v", doc)
	}
	if _, ok := doc["deliveryStatus"]; ok {
		t.Error("deliveryStatus written for status vocabulary order")
	}
}

func TestUpdateStatusDefaultsToDeliveryStatus(t *testing.T) {
	store := newTestStore(t)
	orderRepo := NewOrderRepository(store, zap.NewNop())
	ctx := context.Background()

	order := &domain.Order{CustomerName: "Asha", CreatedAt: time.UnixMilli(1700000000000)}
	if err := orderRepo.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := orderRepo.UpdateStatus(ctx, order.ID, true); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	retrieved, err := orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if retrieved.Status.Value() != "delivered" || retrieved.CustomerName != "Asha" {
		t.Errorf("retrieved = %+v", retrieved)
	}
}

func TestUpdatePayment(t *testing.T) {
	store := newTestStore(t)
	orderRepo := NewOrderRepository(store, zap.NewNop())
	ctx := context.Background()

	if err := store.Set(ctx, "orders/o1", map[string]any{"paymentStatus": "pending"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	order, err := orderRepo.UpdatePayment(ctx, "o1", true)
	if err != nil {
		t.Fatalf("UpdatePayment failed: %v", err)
	}
	if !order.Paid() {
		t.Errorf("PaymentStatus = %q", order.PaymentStatus)
	}

	if _, err := orderRepo.UpdatePayment(ctx, "missing", true); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

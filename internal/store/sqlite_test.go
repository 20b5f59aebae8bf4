package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/tests/testutil"
)

func seedShops(now time.Time) []model.Shop {
	return []model.Shop{
		{
			ID: 1, Name: "Ada's Antiques", Email: "owner@adas.test",
			CustomerEmail: "support@adas.test", Domain: "adas.test",
			PlatformDomain: "adas.myshopify.com", ShopOwner: "Ada Lovelace",
			Currency: "USD", OwnerID: 10, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: 2, Name: "Babbage Books", Email: "hello@babbage.test",
			Domain: "babbage.test", OwnerID: 11,
			Currency: "GBP", CreatedAt: now, UpdatedAt: now,
		},
	}
}

func TestUpsertAndListShops(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := s.UpsertShops(ctx, seedShops(now)); err != nil {
		t.Fatalf("UpsertShops() error = %v", err)
	}

	shops, err := s.ListShops(ctx)
	if err != nil {
		t.Fatalf("ListShops() error = %v", err)
	}
	if len(shops) != 2 {
		t.Fatalf("ListShops() returned %d shops, want 2", len(shops))
	}
	// Ordered by name.
	if shops[0].Name != "Ada's Antiques" || shops[1].Name != "Babbage Books" {
		t.Errorf("shops out of order: %q, %q", shops[0].Name, shops[1].Name)
	}
	if shops[0].CustomerEmail != "support@adas.test" {
		t.Errorf("CustomerEmail = %q", shops[0].CustomerEmail)
	}
}

func TestUpsertShopsReplacesExisting(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	shops := seedShops(now)
	if err := s.UpsertShops(ctx, shops); err != nil {
		t.Fatalf("UpsertShops() error = %v", err)
	}

	shops[0].Name = "Ada's Atelier"
	if err := s.UpsertShops(ctx, shops[:1]); err != nil {
		t.Fatalf("second UpsertShops() error = %v", err)
	}

	got, err := s.ListShops(ctx)
	if err != nil {
		t.Fatalf("ListShops() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListShops() returned %d shops, want 2 after replace", len(got))
	}
	for _, shop := range got {
		if shop.ID == 1 && shop.Name != "Ada's Atelier" {
			t.Errorf("shop 1 name = %q, want replaced value", shop.Name)
		}
	}
}

func TestOwners(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	owners := []model.Owner{
		{ID: 10, Email: "ada@adas.test", CompanyName: "Ada's Antiques Ltd",
			SyncLevel: 1, Currency: "USD", CreatedAt: now, UpdatedAt: now},
		{ID: 11, Email: "charles@babbage.test", CompanyName: "Babbage Books",
			SyncLevel: 0, Currency: "GBP", CreatedAt: now, UpdatedAt: now},
	}
	if err := s.UpsertOwners(ctx, owners); err != nil {
		t.Fatalf("UpsertOwners() error = %v", err)
	}

	list, err := s.ListOwners(ctx)
	if err != nil {
		t.Fatalf("ListOwners() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != 10 || list[1].ID != 11 {
		t.Errorf("ListOwners() = %+v, want two owners ordered by id", list)
	}

	owner, err := s.GetOwnerByID(ctx, 10)
	if err != nil {
		t.Fatalf("GetOwnerByID() error = %v", err)
	}
	if owner == nil || owner.CompanyName != "Ada's Antiques Ltd" {
		t.Errorf("GetOwnerByID(10) = %+v", owner)
	}

	missing, err := s.GetOwnerByID(ctx, 999)
	if err != nil {
		t.Fatalf("GetOwnerByID(999) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetOwnerByID(999) = %+v, want nil", missing)
	}
}

func TestEmptyUpsertsAreNoOps(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.UpsertShops(ctx, nil); err != nil {
		t.Errorf("UpsertShops(nil) error = %v", err)
	}
	if err := s.UpsertOwners(ctx, nil); err != nil {
		t.Errorf("UpsertOwners(nil) error = %v", err)
	}
}

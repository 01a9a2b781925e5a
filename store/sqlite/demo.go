package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/collection-ledger/collection"
)

// SeedDemo replaces the database contents with a small demo catalog and two
// debts: a customer debt with two past periods and a supplier debt with none.
// Period keys are relative to now in the store's location.
func (s *Store) SeedDemo(ctx context.Context, now time.Time) error {
	if err := s.Reset(ctx); err != nil {
		return err
	}

	products := []collection.Product{
		{ID: "p-rice", Code: "8930001", Name: "Rice 5kg", CostPrice: money(80000), SellingPrice: money(95000), Inventory: 40},
		{ID: "p-oil", Code: "8930002", Name: "Cooking oil 1L", CostPrice: money(35000), SellingPrice: money(42000), Inventory: 12},
		{ID: "p-sugar", Code: "8930003", Name: "Sugar 1kg", CostPrice: money(18000), SellingPrice: money(22000), Inventory: 0},
		{ID: "p-fish", Code: "8930004", Name: "Fish sauce 500ml", CostPrice: money(25000), SellingPrice: money(31000), Inventory: 25},
	}
	for _, p := range products {
		if err := s.SaveProduct(ctx, p); err != nil {
			return err
		}
	}

	local := now.In(s.loc)
	due := local.AddDate(0, 1, 0)
	debts := []collection.DebtRecord{
		{
			ID: "debt-lan", Code: "CN-0001", Kind: collection.KindCustomerDebt,
			PaidAmount: money(100000), DueDate: due, CounterpartyName: "Lan grocery",
			Note: "weekly delivery",
		},
		{
			ID: "debt-mekong", Code: "NCC-0001", Kind: collection.KindSupplierDebt,
			DueDate: due, CounterpartyName: "Mekong wholesale",
		},
	}

	history := []struct {
		daysAgo int
		product collection.Product
		qty     int
	}{
		{14, products[0], 3},
		{14, products[3], 6},
		{7, products[0], 2},
		{7, products[1], 4},
	}

	total := decimal.Zero
	for _, h := range history {
		total = total.Add(h.product.SellingPrice.Mul(decimal.NewFromInt(int64(h.qty))))
	}
	debts[0].TotalAmount = total
	debts[0].Status = collection.StatusFor(total, debts[0].PaidAmount, due, now)
	debts[1].Status = collection.StatusFor(decimal.Zero, decimal.Zero, due, now)

	for _, d := range debts {
		if err := s.SaveDebt(ctx, d); err != nil {
			return err
		}
	}
	for _, h := range history {
		key := collection.KeyOf(local.AddDate(0, 0, -h.daysAgo))
		_, err := s.SaveItem(ctx, "debt-lan", key, collection.LineItem{
			ProductID:    h.product.ID,
			ProductCode:  h.product.Code,
			ProductName:  h.product.Name,
			Quantity:     h.qty,
			CostPrice:    h.product.CostPrice,
			SellingPrice: h.product.SellingPrice,
		})
		if err != nil {
			return fmt.Errorf("failed to seed %s on %s: %w", h.product.ID, key, err)
		}
	}
	return nil
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

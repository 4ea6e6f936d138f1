package memory

import (
	"context"
	"log"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// NewSeeded returns a store preloaded with demo master data for dev mode.
func NewSeeded() *Store {
	s := New()
	if err := Seed(context.Background(), s); err != nil {
		log.Fatalf("[memory-store] seed failed: %v", err)
	}
	return s
}

// Seed writes the demo master data through any gateway.
func Seed(ctx context.Context, gw store.Gateway) error {
	seeds := map[domain.Collection][]any{
		domain.CollectionCategories: {
			domain.Category{ID: "cat-general", Name: "General"},
			domain.Category{ID: "cat-beverage", Name: "Beverage"},
			domain.Category{ID: "cat-reload", Name: "Mobile Reload"},
		},
		domain.CollectionProducts: {
			domain.Product{ID: "prd-rice-5kg", Name: "Rice 5kg", SKU: "RICE5", CategoryID: "cat-general", Cost: 58000, Price: 65000, BranchStocks: map[string]domain.Number{"Main": 40}, Stock: 40, LowStockThreshold: 10, Kind: domain.KindStandard},
			domain.Product{ID: "prd-tea-500", Name: "Iced Tea 500ml", SKU: "TEA500", CategoryID: "cat-beverage", Cost: 3500, Price: 5000, BranchStocks: map[string]domain.Number{"Main": 120, "Airport": 24}, Stock: 144, LowStockThreshold: 24, Kind: domain.KindStandard},
			domain.Product{ID: "prd-reload-wallet", Name: "Mobile Reload Wallet", SKU: "RELOAD", CategoryID: "cat-reload", Cost: 0, Price: 1, BranchStocks: map[string]domain.Number{"Main": 2000000}, Stock: 2000000, LowStockThreshold: 250000, Kind: domain.KindReload},
		},
		domain.CollectionCustomers: {
			domain.Customer{ID: "cus-walk-in", Name: "Walk-in Customer", CreditLimit: 0},
			domain.Customer{ID: "cus-warung-sari", Name: "Warung Sari", CreditLimit: 5000000},
		},
		domain.CollectionVendors: {
			domain.Vendor{ID: "ven-sumber-pangan", Name: "Sumber Pangan"},
		},
		domain.CollectionAccounts: {
			domain.BankAccount{ID: "cash", Name: "Cash Drawer", Type: "CASH", Balance: 1000000},
			domain.BankAccount{ID: "acc-bca", Name: "BCA Operating", Type: "BANK", Balance: 25000000},
		},
	}

	for _, collection := range domain.Collections {
		records, ok := seeds[collection]
		if !ok {
			continue
		}
		docs := make([]store.Document, 0, len(records))
		for _, record := range records {
			doc, err := store.Encode(record)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		if err := gw.BulkUpsert(ctx, collection, docs); err != nil {
			return err
		}
	}
	return nil
}

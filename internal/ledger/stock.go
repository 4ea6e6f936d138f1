package ledger

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"ledgerpos/backend/internal/domain"
)

// BranchStock reads the stock held in branch. Products that predate
// per-branch tracking have no branch entries; their legacy total is used.
// Once any branch is tracked, a missing branch reads as zero rather than
// the legacy total, which would count the same units twice.
func BranchStock(product domain.Product, branch string) domain.Number {
	if qty, ok := product.BranchStocks[branch]; ok {
		return qty
	}
	if len(product.BranchStocks) == 0 {
		return product.Stock
	}
	return 0
}

// ApplyStockDelta adds signed to the branch bucket and recomputes the total.
// Standard stock never drops below zero on a downward move; reload stock may.
func ApplyStockDelta(product domain.Product, branch string, signed float64, kind domain.ProductKind) domain.Product {
	current := BranchStock(product, branch).Decimal()
	next := current.Add(decimal.NewFromFloat(signed))
	if ruleFor(kind).clamp && signed < 0 && next.IsNegative() {
		next = decimal.Zero
	}

	stocks := make(map[string]domain.Number, len(product.BranchStocks)+1)
	maps.Copy(stocks, product.BranchStocks)
	stocks[branch] = domain.NumberFromDecimal(next)

	product.BranchStocks = stocks
	product.Stock = SumStocks(stocks)
	return product
}

// SumStocks totals branch buckets in a stable order.
func SumStocks(stocks map[string]domain.Number) domain.Number {
	total := decimal.Zero
	for _, branch := range slices.Sorted(maps.Keys(stocks)) {
		total = total.Add(stocks[branch].Decimal())
	}
	return domain.NumberFromDecimal(total)
}

// StockKey identifies one product bucket.
type StockKey struct {
	ProductID string
	Branch    string
}

// NetStockChange restores the old lines' deductions and subtracts the new
// lines' deductions, keyed by product and resolved branch, so each bucket
// takes a single write.
func NetStockChange(oldItems []domain.LineItem, oldBranch string, newItems []domain.LineItem, newBranch string, kindOf func(productID string) domain.ProductKind) map[StockKey]float64 {
	net := make(map[StockKey]decimal.Decimal)
	oldBucket := ResolveStockBranch(oldBranch)
	for _, item := range oldItems {
		if item.ProductID == "" {
			continue
		}
		key := StockKey{ProductID: item.ProductID, Branch: oldBucket}
		net[key] = net[key].Add(deductionDecimal(item, kindOf(item.ProductID)))
	}
	newBucket := ResolveStockBranch(newBranch)
	for _, item := range newItems {
		if item.ProductID == "" {
			continue
		}
		key := StockKey{ProductID: item.ProductID, Branch: newBucket}
		net[key] = net[key].Sub(deductionDecimal(item, kindOf(item.ProductID)))
	}

	out := make(map[StockKey]float64, len(net))
	for key, delta := range net {
		f, _ := delta.Float64()
		out[key] = f
	}
	return out
}

// CostBasis is the cost of goods for the sale lines at current product cost.
func CostBasis(items []domain.LineItem, lookup func(productID string) (domain.Product, bool)) float64 {
	total := decimal.Zero
	for _, item := range items {
		product, ok := lookup(item.ProductID)
		if !ok {
			continue
		}
		unit := ruleFor(KindOf(product)).unitCost(product.Cost, item.Price)
		total = total.Add(unit.Mul(item.Quantity.Decimal()))
	}
	f, _ := total.Float64()
	return f
}

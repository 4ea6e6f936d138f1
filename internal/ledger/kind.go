package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"ledgerpos/backend/internal/domain"
)

const reloadToken = "RELOAD"

// ReloadCostRate approximates the supplier cost of a reload good as a share
// of its selling value.
var ReloadCostRate = decimal.RequireFromString("0.96")

type kindRule struct {
	deduct   func(item domain.LineItem) decimal.Decimal
	unitCost func(cost domain.Number, price domain.Number) decimal.Decimal
	clamp    bool
}

var kindRules = map[domain.ProductKind]kindRule{
	domain.KindStandard: {
		deduct: func(item domain.LineItem) decimal.Decimal {
			return item.Quantity.Decimal()
		},
		unitCost: func(cost domain.Number, _ domain.Number) decimal.Decimal {
			return cost.Decimal()
		},
		clamp: true,
	},
	domain.KindReload: {
		deduct: func(item domain.LineItem) decimal.Decimal {
			return item.Price.Decimal().Mul(item.Quantity.Decimal()).Mul(ReloadCostRate)
		},
		unitCost: func(cost domain.Number, price domain.Number) decimal.Decimal {
			if cost == 0 {
				return price.Decimal().Mul(ReloadCostRate)
			}
			return cost.Decimal()
		},
		clamp: false,
	},
}

func ruleFor(kind domain.ProductKind) kindRule {
	if rule, ok := kindRules[kind]; ok {
		return rule
	}
	return kindRules[domain.KindStandard]
}

// Classify derives the product kind from its category.
func Classify(categoryID string, categoryName string) domain.ProductKind {
	if strings.Contains(strings.ToUpper(categoryName), reloadToken) ||
		strings.Contains(strings.ToUpper(categoryID), reloadToken) {
		return domain.KindReload
	}
	return domain.KindStandard
}

// KindOf returns the stored kind, falling back to the category id for
// products saved before kinds were recorded.
func KindOf(product domain.Product) domain.ProductKind {
	switch product.Kind {
	case domain.KindReload, domain.KindStandard:
		return product.Kind
	}
	return Classify(product.CategoryID, "")
}

// DeductionAmount is the stock quantity one sale line consumes.
func DeductionAmount(item domain.LineItem, kind domain.ProductKind) float64 {
	f, _ := ruleFor(kind).deduct(item).Float64()
	return f
}

func deductionDecimal(item domain.LineItem, kind domain.ProductKind) decimal.Decimal {
	return ruleFor(kind).deduct(item)
}

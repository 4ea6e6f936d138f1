package ledger

import (
	"github.com/shopspring/decimal"

	"ledgerpos/backend/internal/domain"
)

// RealizedInflow is the part of the amount received at completion time.
func RealizedInflow(tx domain.Transaction) float64 {
	if paid, ok := tx.Paid(); ok {
		return paid.Float()
	}
	if tx.PaymentMethod != domain.PayCredit {
		return tx.Amount.Float()
	}
	return 0
}

// CreditImpact is the signed change a transaction makes to its customer's
// totalCredit. Payments reduce exposure.
func CreditImpact(tx domain.Transaction) float64 {
	switch tx.Type {
	case domain.TxCreditPayment:
		return -tx.Amount.Float()
	case domain.TxSale:
		if tx.PaymentMethod == domain.PayCredit {
			return tx.Amount.Float()
		}
		return tx.BalanceDue.Float()
	default:
		return 0
	}
}

// VendorImpact is the signed change a transaction makes to its vendor's
// totalBalance. A purchase order received for cash never touched the vendor.
func VendorImpact(tx domain.Transaction) float64 {
	switch tx.Type {
	case domain.TxPurchase:
		if tx.PurchaseOrderID != "" && tx.PaymentMethod != domain.PayCredit {
			return 0
		}
		return tx.Amount.Float()
	case domain.TxCreditPayment:
		return -tx.Amount.Float()
	default:
		return 0
	}
}

// AccountImpact is the signed change a transaction makes to accountId.
func AccountImpact(tx domain.Transaction) float64 {
	amount := tx.Amount.Float()
	switch tx.Type {
	case domain.TxPurchase:
		if tx.PaymentMethod == domain.PayCredit {
			return 0
		}
		return -amount
	case domain.TxExpense, domain.TxTransfer:
		return -amount
	case domain.TxCreditPayment:
		if tx.CustomerID != "" {
			return amount
		}
		return -amount
	default:
		return RealizedInflow(tx)
	}
}

// Target names one balance-carrying aggregate.
type Target struct {
	Collection domain.Collection
	ID         string
}

// Effects lists every balance change a completed transaction carries,
// excluding stock.
func Effects(tx domain.Transaction) map[Target]float64 {
	effects := make(map[Target]decimal.Decimal, 4)
	add := func(collection domain.Collection, id string, amount float64) {
		if id == "" {
			return
		}
		key := Target{Collection: collection, ID: id}
		effects[key] = effects[key].Add(decimal.NewFromFloat(amount))
	}

	if tx.Type == domain.TxSale || (tx.Type == domain.TxCreditPayment && tx.CustomerID != "") {
		add(domain.CollectionCustomers, tx.CustomerID, CreditImpact(tx))
	}
	add(domain.CollectionVendors, tx.VendorID, VendorImpact(tx))
	add(domain.CollectionAccounts, tx.AccountID, AccountImpact(tx))
	if tx.Type == domain.TxTransfer {
		add(domain.CollectionAccounts, tx.DestinationAccountID, tx.Amount.Float())
	}

	out := make(map[Target]float64, len(effects))
	for key, amount := range effects {
		f, _ := amount.Float64()
		out[key] = f
	}
	return out
}

// EffectDelta is Effects(next) minus Effects(prev). A nil side counts as
// no effect at all.
func EffectDelta(prev *domain.Transaction, next *domain.Transaction) map[Target]float64 {
	delta := make(map[Target]decimal.Decimal)
	if next != nil && next.Status == domain.StatusCompleted {
		for key, amount := range Effects(*next) {
			delta[key] = delta[key].Add(decimal.NewFromFloat(amount))
		}
	}
	if prev != nil && prev.Status == domain.StatusCompleted {
		for key, amount := range Effects(*prev) {
			delta[key] = delta[key].Sub(decimal.NewFromFloat(amount))
		}
	}

	out := make(map[Target]float64, len(delta))
	for key, amount := range delta {
		if amount.IsZero() {
			continue
		}
		f, _ := amount.Float64()
		out[key] = f
	}
	return out
}

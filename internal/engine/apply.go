package engine

import (
	"fmt"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

// CompleteSale deducts stock for every line at the resolved branch, books
// the customer credit and realized inflow, and stores the sale as COMPLETED.
// A supplied non-zero costBasis is kept; otherwise it is recomputed.
func (e *Engine) CompleteSale(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	tx.Type = domain.TxSale
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	if tx.CostBasis == 0 {
		tx.CostBasis = domain.Number(ledger.CostBasis(tx.Items, snap.Product))
	}
	return e.complete(snap, "complete_sale", tx)
}

// SaveDraft stores tx as DRAFT without side effects.
func (e *Engine) SaveDraft(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	if tx.Type == "" {
		tx.Type = domain.TxSale
	}
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	tx.Status = domain.StatusDraft

	var prev *domain.Transaction
	if existing, ok := snap.Transaction(tx.ID); ok {
		if existing.Status == domain.StatusCompleted {
			return nil, tx, fmt.Errorf("%w: transaction %s is completed", ErrInvalidTransition, tx.ID)
		}
		prev = &existing
	}

	plan := uow.NewPlan("save_draft")
	if err := writeTransaction(plan, prev, tx); err != nil {
		return nil, tx, err
	}
	return plan, tx, nil
}

// CompleteDraft moves a stored DRAFT to COMPLETED and applies its effects.
func (e *Engine) CompleteDraft(snap *snapshot.Snapshot, id string) (*uow.Plan, domain.Transaction, error) {
	draft, ok := snap.Transaction(id)
	if !ok {
		return nil, domain.Transaction{}, store.ErrNotFound
	}
	if draft.Status != domain.StatusDraft {
		return nil, draft, fmt.Errorf("%w: transaction %s is not a draft", ErrInvalidTransition, id)
	}
	if draft.Type == domain.TxSale && draft.CostBasis == 0 {
		draft.CostBasis = domain.Number(ledger.CostBasis(draft.Items, snap.Product))
	}
	return e.complete(snap, "complete_draft", draft)
}

// RecordCustomerPayment books a CREDIT_PAYMENT against a customer and, when
// parentTxId is set, settles that invoice.
func (e *Engine) RecordCustomerPayment(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	tx.Type = domain.TxCreditPayment
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	if tx.CustomerID == "" {
		return nil, tx, fmt.Errorf("%w: customerId is required", store.ErrInvalidTransaction)
	}
	tx.VendorID = ""
	return e.complete(snap, "record_customer_payment", tx)
}

// RecordVendorPayment books a vendor settlement (CREDIT_PAYMENT) or a direct
// vendor charge (PURCHASE).
func (e *Engine) RecordVendorPayment(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	switch tx.Type {
	case "":
		tx.Type = domain.TxCreditPayment
	case domain.TxCreditPayment, domain.TxPurchase:
	default:
		return nil, tx, fmt.Errorf("%w: vendor payments are CREDIT_PAYMENT or PURCHASE", store.ErrInvalidTransaction)
	}
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	if tx.VendorID == "" {
		return nil, tx, fmt.Errorf("%w: vendorId is required", store.ErrInvalidTransaction)
	}
	tx.CustomerID = ""
	tx.ParentTxID = ""
	return e.complete(snap, "record_vendor_payment", tx)
}

func (e *Engine) RecordExpense(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	tx.Type = domain.TxExpense
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	if tx.AccountID == "" {
		return nil, tx, fmt.Errorf("%w: accountId is required", store.ErrInvalidTransaction)
	}
	return e.complete(snap, "record_expense", tx)
}

// RecordTransfer debits accountId and credits destinationAccountId.
func (e *Engine) RecordTransfer(snap *snapshot.Snapshot, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	tx.Type = domain.TxTransfer
	tx, err := e.prepare(tx)
	if err != nil {
		return nil, tx, err
	}
	if tx.AccountID == "" || tx.DestinationAccountID == "" {
		return nil, tx, fmt.Errorf("%w: accountId and destinationAccountId are required", store.ErrInvalidTransaction)
	}
	if tx.AccountID == tx.DestinationAccountID {
		return nil, tx, fmt.Errorf("%w: transfer to the same account", store.ErrInvalidTransaction)
	}
	return e.complete(snap, "record_transfer", tx)
}

// CloseAccount zeroes a non-zero balance with a TRANSFER against the cash
// account, then deletes the account.
func (e *Engine) CloseAccount(snap *snapshot.Snapshot, accountID string) (*uow.Plan, *domain.Transaction, error) {
	account, ok := snap.Account(accountID)
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if accountID == e.cashAccountID {
		return nil, nil, fmt.Errorf("%w: the cash account cannot be closed", store.ErrInvalidTransaction)
	}

	plan := uow.NewPlan("close_account")
	var closing *domain.Transaction
	if account.Balance != 0 {
		tx := domain.Transaction{
			Type:          domain.TxTransfer,
			PaymentMethod: domain.PayCash,
			Description:   fmt.Sprintf("Closing transfer for account %s", account.ID),
		}
		if account.Balance > 0 {
			tx.Amount = account.Balance
			tx.AccountID = account.ID
			tx.DestinationAccountID = e.cashAccountID
		} else {
			tx.Amount = -account.Balance
			tx.AccountID = e.cashAccountID
			tx.DestinationAccountID = account.ID
		}
		tx, err := e.prepare(tx)
		if err != nil {
			return nil, nil, err
		}
		transferPlan, completed, err := e.complete(snap, "close_account", tx)
		if err != nil {
			return nil, nil, err
		}
		plan.Append(transferPlan)
		closing = &completed
		account.Balance = 0
	}

	prior, err := store.Encode(account)
	if err != nil {
		return nil, nil, err
	}
	plan.Delete(domain.CollectionAccounts, account.ID, "close", prior)
	return plan, closing, nil
}

package domain

import "time"

type ProductKind string

const (
	KindStandard ProductKind = "STANDARD"
	KindReload   ProductKind = "RELOAD"
)

type TransactionType string

const (
	TxSale          TransactionType = "SALE"
	TxPurchase      TransactionType = "PURCHASE"
	TxCreditPayment TransactionType = "CREDIT_PAYMENT"
	TxExpense       TransactionType = "EXPENSE"
	TxTransfer      TransactionType = "TRANSFER"
)

type TransactionStatus string

const (
	StatusDraft     TransactionStatus = "DRAFT"
	StatusCompleted TransactionStatus = "COMPLETED"
)

type PaymentMethod string

const (
	PayCash   PaymentMethod = "CASH"
	PayBank   PaymentMethod = "BANK"
	PayCard   PaymentMethod = "CARD"
	PayCredit PaymentMethod = "CREDIT"
	PayCheque PaymentMethod = "CHEQUE"
)

type PurchaseOrderStatus string

const (
	POStatusDraft    PurchaseOrderStatus = "DRAFT"
	POStatusPending  PurchaseOrderStatus = "PENDING"
	POStatusReceived PurchaseOrderStatus = "RECEIVED"
)

type Product struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	SKU               string            `json:"sku"`
	CategoryID        string            `json:"categoryId"`
	Cost              Number            `json:"cost"`
	Price             Number            `json:"price"`
	BranchStocks      map[string]Number `json:"branchStocks"`
	Stock             Number            `json:"stock"`
	LowStockThreshold Number            `json:"lowStockThreshold"`
	Kind              ProductKind       `json:"kind,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	CreditLimit Number `json:"creditLimit"`
	TotalCredit Number `json:"totalCredit"`
}

type Vendor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	TotalBalance Number `json:"totalBalance"`
}

type BankAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Balance Number `json:"balance"`
}

type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  Number `json:"quantity"`
	Price     Number `json:"price"`
	Discount  Number `json:"discount,omitempty"`
}

type Transaction struct {
	ID                   string            `json:"id"`
	Type                 TransactionType   `json:"type"`
	Status               TransactionStatus `json:"status"`
	Amount               Number            `json:"amount"`
	PaidAmount           *Number           `json:"paidAmount,omitempty"`
	BalanceDue           Number            `json:"balanceDue"`
	PaymentMethod        PaymentMethod     `json:"paymentMethod"`
	AccountID            string            `json:"accountId,omitempty"`
	DestinationAccountID string            `json:"destinationAccountId,omitempty"`
	CustomerID           string            `json:"customerId,omitempty"`
	VendorID             string            `json:"vendorId,omitempty"`
	ParentTxID           string            `json:"parentTxId,omitempty"`
	PurchaseOrderID      string            `json:"purchaseOrderId,omitempty"`
	Items                []LineItem        `json:"items,omitempty"`
	CostBasis            Number            `json:"costBasis"`
	BranchID             string            `json:"branchId"`
	Description          string            `json:"description,omitempty"`
	Date                 time.Time         `json:"date"`
}

type PurchaseOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  Number `json:"quantity"`
	Cost      Number `json:"cost"`
}

type PurchaseOrder struct {
	ID            string              `json:"id"`
	VendorID      string              `json:"vendorId"`
	Items         []PurchaseOrderItem `json:"items"`
	Status        PurchaseOrderStatus `json:"status"`
	TotalAmount   Number              `json:"totalAmount"`
	PaymentMethod PaymentMethod       `json:"paymentMethod"`
	AccountID     string              `json:"accountId,omitempty"`
	BranchID      string              `json:"branchId"`
	CreatedAt     time.Time           `json:"createdAt"`
	ReceivedDate  *time.Time          `json:"receivedDate,omitempty"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Paid reports the realized paidAmount and whether one was recorded.
func (t Transaction) Paid() (Number, bool) {
	if t.PaidAmount == nil {
		return 0, false
	}
	return *t.PaidAmount, true
}

type LowStockItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     Number `json:"stock"`
	Threshold Number `json:"threshold"`
}

type LedgerSummary struct {
	Version          uint64            `json:"version"`
	TotalReceivables Number            `json:"totalReceivables"`
	TotalAdvances    Number            `json:"totalAdvances"`
	TotalPayables    Number            `json:"totalPayables"`
	AccountBalances  map[string]Number `json:"accountBalances"`
	CashOnHand       Number            `json:"cashOnHand"`
	LowStock         []LowStockItem    `json:"lowStock"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

package domain

type Collection string

const (
	CollectionProducts       Collection = "products"
	CollectionCategories     Collection = "categories"
	CollectionCustomers      Collection = "customers"
	CollectionVendors        Collection = "vendors"
	CollectionAccounts       Collection = "accounts"
	CollectionTransactions   Collection = "transactions"
	CollectionPurchaseOrders Collection = "purchaseOrders"
	CollectionAuditLogs      Collection = "auditLogs"
)

// Collections lists every collection the engine reads or writes.
var Collections = []Collection{
	CollectionProducts,
	CollectionCategories,
	CollectionCustomers,
	CollectionVendors,
	CollectionAccounts,
	CollectionTransactions,
	CollectionPurchaseOrders,
	CollectionAuditLogs,
}

// HasBranch reports whether documents of the collection carry a branchId.
func (c Collection) HasBranch() bool {
	return c == CollectionTransactions || c == CollectionPurchaseOrders
}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

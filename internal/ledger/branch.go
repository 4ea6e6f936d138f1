package ledger

import "strings"

// DefaultBranch holds the pooled inventory that aliased branches draw from.
const DefaultBranch = "Main"

// stockBranchAliases maps upper-cased branch names that share the master
// branch's physical stock onto the master bucket.
var stockBranchAliases = map[string]string{
	"MAIN":          DefaultBranch,
	"MAIN BRANCH":   DefaultBranch,
	"HEAD OFFICE":   DefaultBranch,
	"HQ":            DefaultBranch,
	"WAREHOUSE":     DefaultBranch,
	"MAIN COUNTER":  DefaultBranch,
	"FRONT COUNTER": DefaultBranch,
	"ONLINE":        DefaultBranch,
	"ONLINE STORE":  DefaultBranch,
	"KIOSK":         DefaultBranch,
}

// ResolveStockBranch returns the stock bucket a branch reads and writes.
func ResolveStockBranch(branch string) string {
	branch = strings.Join(strings.Fields(branch), " ")
	if branch == "" {
		return DefaultBranch
	}
	if master, ok := stockBranchAliases[strings.ToUpper(branch)]; ok {
		return master
	}
	return branch
}

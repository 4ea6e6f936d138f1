package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
)

var unsafeIDChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"?", "_",
	"#", "_",
	"%", "_",
	"[", "_",
	"]", "_",
	".", "_",
)

// SanitizeID trims id and replaces characters that cannot appear in a
// document key.
func SanitizeID(id string) (string, error) {
	id = strings.Join(strings.Fields(id), "_")
	id = unsafeIDChars.Replace(id)
	if id == "" || strings.Trim(id, "_") == "" {
		return "", ErrInvalidID
	}
	return id, nil
}

// Merge applies patch over base. Nested objects are replaced, not merged,
// so a patched branchStocks map is authoritative.
func Merge(base Document, patch Document) Document {
	merged := make(Document, len(base)+len(patch))
	maps.Copy(merged, base)
	maps.Copy(merged, patch)
	return merged
}

// Prepare merges patch into existing and stamps the fields every stored
// document carries.
func Prepare(collection domain.Collection, id string, existing Document, patch Document, now time.Time) Document {
	doc := Merge(existing, patch)
	doc["id"] = id
	doc["updatedAt"] = now.UTC().Format(time.RFC3339Nano)
	if collection.HasBranch() {
		doc["branchId"] = normalizeBranch(doc["branchId"])
	}
	return doc
}

func normalizeBranch(v any) string {
	branch, ok := v.(string)
	if !ok {
		return ledger.DefaultBranch
	}
	branch = strings.Join(strings.Fields(branch), " ")
	if branch == "" || strings.EqualFold(branch, "undefined") || strings.EqualFold(branch, "null") {
		return ledger.DefaultBranch
	}
	return branch
}

// Dedupe folds items sharing a sanitized id into one patch, later items
// winning, in first-seen order. Items without a usable id are returned
// separately.
func Dedupe(items []Document) (kept []Document, rejected []Document) {
	index := make(map[string]int, len(items))
	for _, item := range items {
		id, err := SanitizeID(item.ID())
		if err != nil {
			rejected = append(rejected, item)
			continue
		}
		if pos, ok := index[id]; ok {
			kept[pos] = Merge(kept[pos], item)
			kept[pos]["id"] = id
			continue
		}
		doc := Merge(nil, item)
		doc["id"] = id
		index[id] = len(kept)
		kept = append(kept, doc)
	}
	return kept, rejected
}

// Encode turns a typed record into a Document.
func Encode(v any) (Document, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode fills dest from a Document.
func Decode(doc Document, dest any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID(), err)
	}
	return nil
}

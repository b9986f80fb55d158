package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, falling back to def
func ValidateSortOrder(orderDir, def string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return def
}

// ValidateSortField returns sortField when it is whitelisted, defaultField otherwise.
// Column names never reach SQL unless they appear in allowedFields.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CardSortFields are the catalog columns a listing may be ordered by
var CardSortFields = map[string]bool{
	"id":          true,
	"name":        true,
	"anime":       true,
	"rarity_rank": true,
	"created_at":  true,
}

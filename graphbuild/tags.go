package graphbuild

import "strings"

// Tag names inferred from table naming conventions
const (
	TagCollection  = "collection"
	TagActor       = "actor"
	TagTransaction = "transaction"
	TagInventory   = "inventory"
	TagAudit       = "audit"
	TagConfig      = "config"
	TagReference   = "reference"
)

var keywordTags = []struct {
	tag      string
	keywords []string
}{
	{TagActor, []string{"user", "account", "person", "member", "employee"}},
	{TagTransaction, []string{"order", "invoice", "payment", "transaction"}},
	{TagInventory, []string{"product", "item", "article", "inventory"}},
	{TagAudit, []string{"log", "audit", "history", "event"}},
	{TagConfig, []string{"config", "setting", "option", "preference"}},
	{TagReference, []string{"lookup", "type", "status", "category"}},
}

// InferTags derives semantic tags from a table's short name. Matching is a
// case-insensitive substring test, so several tags may apply.
func InferTags(name string) []string {
	lower := strings.ToLower(name)
	tags := []string{}

	// Plural names ("-s", "-es") usually hold many rows of one entity
	if strings.HasSuffix(lower, "s") {
		tags = append(tags, TagCollection)
	}

	for _, rule := range keywordTags {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}

	return tags
}

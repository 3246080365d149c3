package console

import (
	"fmt"
	"sort"
	"strings"
)

// Quest id resolution: an exact id wins; otherwise a unique prefix of a
// registered (or catalog) id is accepted, and an ambiguous prefix lists
// the candidates.

// AmbiguityError indicates multiple quest ids matched a prefix.
type AmbiguityError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("Which quest? %s matches: %s.", e.Prefix, strings.Join(e.Candidates, ", "))
}

// NotFoundError indicates no quest id matched.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No quest matches %q.", e.Prefix)
}

// resolveQuest resolves a prefix against registered quest ids.
func (c *Console) resolveQuest(prefix string) (string, error) {
	var ids []string
	for _, id := range c.M.Catalog().QuestOrder {
		if c.M.Quest(id) != nil {
			ids = append(ids, id)
		}
	}
	return resolvePrefix(prefix, ids)
}

// resolveCatalogQuest resolves a prefix against the full catalog.
func (c *Console) resolveCatalogQuest(prefix string) (string, error) {
	return resolvePrefix(prefix, c.M.Catalog().QuestOrder)
}

func resolvePrefix(prefix string, ids []string) (string, error) {
	var matches []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguityError{Prefix: prefix, Candidates: matches}
	}
}

// sortedKeys returns map keys in sorted order, for deterministic output.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

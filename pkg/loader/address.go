// Package loader implements the matching-and-reconciliation engine: column
// mapping, address normalization, geometry matching, the per-document
// upsert transaction, location assignment and materialized view refresh.
package loader

import (
	"sort"
	"strings"

	"github.com/iduprojects/insert-services/pkg/apperrors"
)

// PrefixNormalizer canonicalizes raw addresses against a configured set of
// accepted prefixes. The matched prefix is replaced by NewPrefix; longer
// prefixes win over shorter ones that are also their textual prefix.
type PrefixNormalizer struct {
	prefixes  []string
	newPrefix string
}

// NewPrefixNormalizer builds a normalizer over the given prefixes. An
// explicitly registered empty prefix acts as a wildcard accepting every
// address. An empty prefix list accepts nothing.
func NewPrefixNormalizer(prefixes []string, newPrefix string) *PrefixNormalizer {
	sorted := make([]string, len(prefixes))
	copy(sorted, prefixes)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return &PrefixNormalizer{prefixes: sorted, newPrefix: newPrefix}
}

// Normalize returns the canonical form of address, or
// apperrors.ErrAddressPrefixMismatch when no configured prefix matches.
func (n *PrefixNormalizer) Normalize(address string) (string, error) {
	for _, prefix := range n.prefixes {
		if strings.HasPrefix(address, prefix) {
			rest := strings.Trim(address[len(prefix):], ", ")
			if n.newPrefix == "" {
				return rest, nil
			}
			if rest == "" {
				return n.newPrefix, nil
			}
			return n.newPrefix + ", " + rest, nil
		}
	}
	return "", apperrors.ErrAddressPrefixMismatch
}

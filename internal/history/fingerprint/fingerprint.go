// Package fingerprint derives stable cache keys from the identity fields of
// a search query.
//
// Every field is written as <byte-length>:<bytes>, and the engine list as its
// element count followed by each length-prefixed engine name, so a value
// that contains the separator can never be read as a field boundary.
package fingerprint

import (
	"strconv"
	"strings"

	"github.com/lk2023060901/metasearch/internal/search/types"
)

// Fingerprint is the deterministic cache key of a SearchQuery
type Fingerprint string

// version is bumped whenever the layout below changes
const version = "v1"

// Of returns the fingerprint of q. A nil query fingerprints as the zero query.
func Of(q *types.SearchQuery) Fingerprint {
	if q == nil {
		q = &types.SearchQuery{}
	}

	var b strings.Builder
	b.Grow(len(q.Query) + len(q.Category) + len(q.Language) + 32*(len(q.Engines)+1))

	b.WriteString(version)
	writeField(&b, q.Query)
	b.WriteString(strconv.Itoa(len(q.Engines)))
	b.WriteByte('#')
	for _, engine := range q.Engines {
		writeField(&b, engine)
	}
	writeField(&b, q.Category)
	writeField(&b, q.Language)
	writeField(&b, strconv.Itoa(int(q.SafeSearch)))
	writeField(&b, strconv.Itoa(q.PageNo))
	writeField(&b, string(normalizeTimeRange(q.TimeRange)))

	return Fingerprint(b.String())
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// normalizeTimeRange maps every spelling of "no time range" to the empty string
func normalizeTimeRange(t types.TimeRange) types.TimeRange {
	if strings.TrimSpace(string(t)) == "" {
		return types.TimeRangeNone
	}
	return t
}

// String implements fmt.Stringer
func (f Fingerprint) String() string {
	return string(f)
}

package tuple

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/primitives"
)

// Row is a single table row as seen by the concurrency layer: a mapping from
// column name to value. The concurrency layer never interprets the values; it
// only derives a stable object id from them.
type Row map[string]any

// DeriveObjectID maps a row onto the lock/version object it represents.
//
// If the row carries an "id" column that value alone names the object;
// otherwise the id is a hash over the sorted column=value rendering of the
// whole row. Equal content always yields the same id. Two different rows can
// hash to the same id; that collision is a known approximation of this
// scheme, kept for compatibility (see DESIGN.md), not a bug to patch here.
func DeriveObjectID(row Row) primitives.ObjectID {
	if id, ok := row["id"]; ok {
		return primitives.ObjectID(fmt.Sprintf("id=%v", id))
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	for _, col := range cols {
		fmt.Fprintf(&b, "%s=%v;", col, row[col])
	}
	return primitives.ObjectID(fmt.Sprintf("row-%016x", xxhash.Sum64String(b.String())))
}
